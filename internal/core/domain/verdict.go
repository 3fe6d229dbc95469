package domain

// VerdictStatus is the coarse label shown to callers
type VerdictStatus string

const (
	VerdictVerified   VerdictStatus = "verified"
	VerdictPartial    VerdictStatus = "partial"
	VerdictUnverified VerdictStatus = "unverified"
)

// Confidence band boundaries used for status labels and formatting
const (
	StrongSupportConfidence  = 0.7
	PartialSupportConfidence = 0.3
)

// ClaimResult is the retrieval outcome for a single claim
type ClaimResult struct {
	Claim          string         `json:"claim"`
	Confidence     float64        `json:"confidence"`
	SupportingText string         `json:"supporting_text"`
	Source         *ChunkMetadata `json:"source"`
}

// Supported reports whether the claim found evidence below the threshold
func (c ClaimResult) Supported() bool {
	return c.Source != nil
}

// SourceRef identifies a cited document
type SourceRef struct {
	Title  string `json:"title"`
	Source string `json:"source"`
}

// Verdict is the message-level fact-check result
type Verdict struct {
	IsSupported  bool          `json:"is_supported"`
	Confidence   float64       `json:"confidence"`
	ClaimResults []ClaimResult `json:"claim_results"`
	Sources      []SourceRef   `json:"sources"`
	Error        string        `json:"error,omitempty"`

	err error
}

// ErrorVerdict returns the verdict reported when checking failed
func ErrorVerdict(err error) *Verdict {
	return &Verdict{
		IsSupported:  false,
		Confidence:   0,
		ClaimResults: []ClaimResult{},
		Sources:      []SourceRef{},
		Error:        err.Error(),
		err:          err,
	}
}

// Status maps the overall confidence to a status label
func (v *Verdict) Status() VerdictStatus {
	switch {
	case v.Confidence > StrongSupportConfidence:
		return VerdictVerified
	case v.Confidence > PartialSupportConfidence:
		return VerdictPartial
	default:
		return VerdictUnverified
	}
}

// Err returns the error a failed check was built from, or nil
func (v *Verdict) Err() error {
	return v.err
}

// HasError reports whether the check failed
func (v *Verdict) HasError() bool {
	return v.Error != ""
}
