package services

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/sercha-factcheck/internal/core/domain"
)

const unknownField = "Unknown"

// FormatVerdict renders a verdict as Markdown for chat style clients.
func FormatVerdict(v *domain.Verdict) string {
	if v.HasError() {
		return fmt.Sprintf("❌ **Fact check failed**: %s", v.Error)
	}

	var b strings.Builder
	if v.IsSupported {
		b.WriteString("✅ **Message is supported by your documents**\n\n")
	} else {
		b.WriteString("⚠️ **Message has no support in your documents**\n\n")
	}
	fmt.Fprintf(&b, "**Overall confidence**: %s\n\n", percent(v.Confidence))

	for i, cr := range v.ClaimResults {
		fmt.Fprintf(&b, "### Claim %d:\n", i+1)
		fmt.Fprintf(&b, "**\"%s\"**\n\n", cr.Claim)

		switch {
		case cr.Confidence > domain.StrongSupportConfidence:
			fmt.Fprintf(&b, "✅ **Strongly supported** (confidence: %s)\n", percent(cr.Confidence))
		case cr.Confidence > domain.PartialSupportConfidence:
			fmt.Fprintf(&b, "🟡 **Partially supported** (confidence: %s)\n", percent(cr.Confidence))
		default:
			fmt.Fprintf(&b, "❌ **Not supported** (confidence: %s)\n", percent(cr.Confidence))
		}
		fmt.Fprintf(&b, "**Supporting text**: %s\n", cr.SupportingText)

		if src := cr.Source; src != nil {
			fmt.Fprintf(&b, "**📄 Source**: %s\n", orUnknown(src.Source))
			fmt.Fprintf(&b, "**📖 Title**: %s\n", orUnknown(src.Title))
			fmt.Fprintf(&b, "**👤 Author**: %s\n", orUnknown(src.Author))
			fmt.Fprintf(&b, "**📊 Chunk ID**: %d\n", src.ChunkIndex)
			if len(src.ProcessedDate) >= 10 {
				fmt.Fprintf(&b, "**⏰ Processed**: %s\n", src.ProcessedDate[:10])
			}
		} else {
			b.WriteString("**📄 Source**: No supporting source found\n")
		}

		b.WriteString("\n" + strings.Repeat("─", 50) + "\n\n")
	}

	if len(v.Sources) > 0 {
		b.WriteString("## 📚 Sources used:\n")
		for i, src := range v.Sources {
			fmt.Fprintf(&b, "%d. **%s** (%s)\n", i+1, src.Title, src.Source)
		}
	}

	return b.String()
}

func percent(v float64) string {
	return fmt.Sprintf("%.2f%%", v*100)
}

func orUnknown(s string) string {
	if s == "" {
		return unknownField
	}
	return s
}
