package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestFingerprint_Matches(t *testing.T) {
	base := Fingerprint{Name: "A.pdf", Size: 100, Modified: 1700000000.5, Path: "/docs/A.pdf"}

	tests := []struct {
		name     string
		other    Fingerprint
		expected bool
	}{
		{"identical", base, true},
		{"moved path", Fingerprint{Name: "A.pdf", Size: 100, Modified: 1700000000.5, Path: "/other/A.pdf"}, true},
		{"touched", Fingerprint{Name: "A.pdf", Size: 100, Modified: 1700000001.5, Path: "/docs/A.pdf"}, false},
		{"resized", Fingerprint{Name: "A.pdf", Size: 101, Modified: 1700000000.5, Path: "/docs/A.pdf"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := base.Matches(tt.other); got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestNewFingerprint(t *testing.T) {
	mod := time.Unix(1700000000, 250000000)
	fp := NewFingerprint("/docs/Report 2024.pdf", 2048, mod)

	if fp.Name != "Report 2024.pdf" {
		t.Errorf("expected base name, got %s", fp.Name)
	}
	if fp.Stem() != "Report 2024" {
		t.Errorf("expected stem without extension, got %s", fp.Stem())
	}
	if fp.Modified != 1700000000.25 {
		t.Errorf("expected fractional seconds, got %v", fp.Modified)
	}
}

func TestFingerprintMap_Clone(t *testing.T) {
	orig := FingerprintMap{"A.pdf": {Name: "A.pdf", Size: 1}}
	clone := orig.Clone()
	clone["B.pdf"] = Fingerprint{Name: "B.pdf"}

	if _, ok := orig["B.pdf"]; ok {
		t.Error("clone should not alias the original map")
	}
}

func TestNewChunkRecord_Defaults(t *testing.T) {
	doc := Fingerprint{Name: "paper.pdf"}
	processed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	rec := NewChunkRecord(doc, DocumentInfo{}, 3, "größere Wörter", processed)

	if rec.ID != "paper_chunk_3" {
		t.Errorf("expected id paper_chunk_3, got %s", rec.ID)
	}
	if rec.Metadata.Title != "paper" {
		t.Errorf("expected stem title, got %s", rec.Metadata.Title)
	}
	if rec.Metadata.Author != UnknownAuthor {
		t.Errorf("expected unknown author, got %s", rec.Metadata.Author)
	}
	if rec.Metadata.ChunkLength != 14 {
		t.Errorf("expected rune length 14, got %d", rec.Metadata.ChunkLength)
	}
	if rec.Metadata.ProcessedDate != "2024-05-01T12:00:00Z" {
		t.Errorf("unexpected processed date %s", rec.Metadata.ProcessedDate)
	}
}

func TestNewChunkRecord_UsesDocumentInfo(t *testing.T) {
	rec := NewChunkRecord(Fingerprint{Name: "x.pdf"}, DocumentInfo{Title: "Password Study", Author: "M. Lee"}, 0, "text", time.Now())

	if rec.Metadata.Title != "Password Study" || rec.Metadata.Author != "M. Lee" {
		t.Errorf("expected document info to be used, got %+v", rec.Metadata)
	}
	if rec.Metadata.Source != "x.pdf" {
		t.Errorf("expected source x.pdf, got %s", rec.Metadata.Source)
	}
}

func TestVerdict_Status(t *testing.T) {
	tests := []struct {
		confidence float64
		expected   VerdictStatus
	}{
		{1.0, VerdictVerified},
		{0.71, VerdictVerified},
		{0.7, VerdictPartial},
		{0.31, VerdictPartial},
		{0.3, VerdictUnverified},
		{0, VerdictUnverified},
	}

	for _, tt := range tests {
		v := &Verdict{Confidence: tt.confidence}
		if got := v.Status(); got != tt.expected {
			t.Errorf("confidence %v: expected %s, got %s", tt.confidence, tt.expected, got)
		}
	}
}

func TestErrorVerdict(t *testing.T) {
	v := ErrorVerdict(errors.New("store offline"))

	if v.IsSupported || v.Confidence != 0 {
		t.Error("error verdict must be unsupported with zero confidence")
	}
	if !v.HasError() || v.Error != "store offline" {
		t.Errorf("expected error text, got %q", v.Error)
	}
	if v.ClaimResults == nil || v.Sources == nil {
		t.Error("expected empty, non-nil slices")
	}
}

func TestErrorVerdict_KeepsWrappedError(t *testing.T) {
	v := ErrorVerdict(fmt.Errorf("checking claim: %w", ErrNotReady))

	if !errors.Is(v.Err(), ErrNotReady) {
		t.Errorf("expected wrapped ErrNotReady, got %v", v.Err())
	}
	if (&Verdict{}).Err() != nil {
		t.Error("expected nil error on a successful verdict")
	}
}

func TestDocumentStage(t *testing.T) {
	if StageDetectedChanged.String() != "DETECTED_CHANGED" {
		t.Errorf("unexpected name %s", StageDetectedChanged)
	}
	if StageChunked.Next() != StageEmbeddedUpserted {
		t.Errorf("expected EMBEDDED_UPSERTED after CHUNKED")
	}
	if StageFingerprintCommitted.Next() != StageFingerprintCommitted {
		t.Error("final stage should have no successor")
	}
	if !StageFingerprintCommitted.Completed() || StageEmbeddedUpserted.Completed() {
		t.Error("only the commit stage is complete")
	}
	if DocumentStage(99).String() != "UNKNOWN" {
		t.Error("expected UNKNOWN for out of range stage")
	}

	text, err := StageNormalized.MarshalText()
	if err != nil || string(text) != "NORMALIZED" {
		t.Errorf("unexpected marshal result %q, %v", text, err)
	}
}
