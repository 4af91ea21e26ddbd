// ABOUTME: Normalized page content handed to the downstream normalization stage
// ABOUTME: The footer link shape is fixed so consumers never branch on missing keys

package domain

// FooterLinks holds the Terms-of-Service and Privacy-Policy links found on a
// page. Both keys are always serialized, empty when nothing matched.
type FooterLinks struct {
	Terms   string `json:"terms"`
	Privacy string `json:"privacy"`
}

// ExtractedContent is the structured record recovered from a raw body
type ExtractedContent struct {
	Title             string            `json:"title"`
	Body              string            `json:"body"`
	CanonicalURL      string            `json:"canonical_url"`
	CanonicalMismatch bool              `json:"canonical_mismatch"`
	OGMeta            map[string]string `json:"og_meta"`
	Meta              map[string]string `json:"meta"`
	FooterLinks       FooterLinks       `json:"footer_links"`
	Markdown          string            `json:"markdown,omitempty"`

	// ParseFailed is set when the document could not be parsed at all
	ParseFailed bool     `json:"parse_failed"`
	Diagnostics []string `json:"diagnostics,omitempty"`
}

// NewExtractedContent returns a record with every map initialized
func NewExtractedContent() *ExtractedContent {
	return &ExtractedContent{
		OGMeta: map[string]string{},
		Meta:   map[string]string{},
	}
}

// BodyLength returns the body length in characters, not bytes
func (c *ExtractedContent) BodyLength() int {
	if c == nil {
		return 0
	}
	return len([]rune(c.Body))
}

// AddDiagnostic records a non-fatal extraction note
func (c *ExtractedContent) AddDiagnostic(msg string) {
	c.Diagnostics = append(c.Diagnostics, msg)
}
