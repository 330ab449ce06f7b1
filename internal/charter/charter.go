// Package charter holds the boundary types shared between the mock-data
// generator, the record store and the LLM integrations: the closed category
// set, the classifier verdict shape, and the interfaces an external
// classifier or text rewriter must satisfy.
package charter

import "context"

// Categories is the closed set of contribution categories. Order matters
// nowhere; membership does.
var Categories = []string{
	"economie",
	"logement",
	"culture",
	"ecologie",
	"associations",
	"jeunesse",
	"alimentation-bien-etre-soins",
}

// ValidCategory reports whether cat is one of the known categories.
// The empty string is accepted: category is optional on contributions.
func ValidCategory(cat string) bool {
	if cat == "" {
		return true
	}
	for _, c := range Categories {
		if c == cat {
			return true
		}
	}
	return false
}

// ValidationResult is the classifier's verdict on one contribution.
type ValidationResult struct {
	IsValid           bool     `json:"is_valid"`
	Violations        []string `json:"violations"`
	EncouragedAspects []string `json:"encouraged_aspects"`
	Confidence        float64  `json:"confidence"`
	Reasoning         string   `json:"reasoning"`
	PredictedCategory string   `json:"category,omitempty"`
	TraceID           string   `json:"trace_id,omitempty"`
}

// Classifier validates a contribution against the charter. Implementations
// must signal internal failure through the error return, never through a
// silently-defaulted verdict; the harness records failed items separately
// and excludes them from metrics.
type Classifier interface {
	Classify(ctx context.Context, primaryText, secondaryText, category string) (ValidationResult, error)
}

// MutationKind selects the rewrite instruction for semantic mutation.
type MutationKind string

const (
	MutationParaphrase      MutationKind = "paraphrase"
	MutationOrthographic    MutationKind = "orthographic"
	MutationSemanticShift   MutationKind = "semantic_shift"
	MutationSubtleViolation MutationKind = "subtle_violation"
	MutationAggressive      MutationKind = "aggressive"
	MutationOffTopic        MutationKind = "off_topic"
)

// IsViolation reports whether this mutation kind produces a known-invalid text.
func (k MutationKind) IsViolation() bool {
	switch k {
	case MutationSubtleViolation, MutationAggressive, MutationOffTopic:
		return true
	}
	return false
}

// ExpectedValid returns the ground-truth label a mutation of this kind
// carries: true for meaning-preserving rewrites, false for violations,
// nil for the borderline semantic shift.
func (k MutationKind) ExpectedValid() *bool {
	switch k {
	case MutationParaphrase, MutationOrthographic:
		v := true
		return &v
	case MutationSemanticShift:
		return nil
	default:
		v := false
		return &v
	}
}

// TextRewriter produces a creative variant of text according to kind.
// Output is expected to differ run-to-run; callers wanting determinism
// substitute a test double.
type TextRewriter interface {
	Rewrite(ctx context.Context, text string, kind MutationKind) (string, error)
}
