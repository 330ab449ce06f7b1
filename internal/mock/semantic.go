package mock

import (
	"context"

	"charterbench/internal/charter"
	"charterbench/internal/textgen"
)

// MutationResult is the outcome of one semantic rewrite. A failed rewrite
// carries the original text unchanged and the error message; callers decide
// whether to keep or drop the step, the mutator itself never aborts.
type MutationResult struct {
	Original string
	Mutated  string
	Kind     charter.MutationKind
	Success  bool
	Err      string
}

// SemanticMutator produces meaning-level variants by delegating to a text
// rewriter (an LLM in production, a deterministic double in tests). It owns
// no algorithm beyond sequencing mutation kinds.
type SemanticMutator struct {
	rewriter charter.TextRewriter
}

func NewSemanticMutator(rewriter charter.TextRewriter) *SemanticMutator {
	return &SemanticMutator{rewriter: rewriter}
}

// Mutate rewrites text according to kind. External failure degrades to the
// original text with Success=false; the error never propagates.
func (m *SemanticMutator) Mutate(ctx context.Context, text string, kind charter.MutationKind) MutationResult {
	mutated, err := m.rewriter.Rewrite(ctx, text, kind)
	if err != nil {
		return MutationResult{Original: text, Mutated: text, Kind: kind, Success: false, Err: err.Error()}
	}
	return MutationResult{Original: text, Mutated: mutated, Kind: kind, Success: true}
}

// mutationSequence returns the kind cycle for a series. With violations the
// cycle walks from benign to severe; without, it alternates the
// meaning-preserving kinds plus the borderline shift.
func mutationSequence(includeViolations bool) []charter.MutationKind {
	if includeViolations {
		return []charter.MutationKind{
			charter.MutationParaphrase,
			charter.MutationOrthographic,
			charter.MutationSemanticShift,
			charter.MutationSubtleViolation,
			charter.MutationAggressive,
			charter.MutationOffTopic,
		}
	}
	return []charter.MutationKind{
		charter.MutationParaphrase,
		charter.MutationOrthographic,
		charter.MutationParaphrase,
		charter.MutationOrthographic,
		charter.MutationSemanticShift,
	}
}

// SemanticSeries derives count children of parent through the rewriter,
// cycling mutation kinds round-robin. Ground-truth labels follow the kind:
// paraphrase and orthographic stay valid, semantic shift is unknown, the
// three violation kinds are invalid and recorded in ViolationsInjected.
// A failed rewrite step falls back to the parent's text and is still
// emitted, so the series always has count entries.
func (g *Generator) SemanticSeries(ctx context.Context, parent Item, count int, includeViolations bool, mutator *SemanticMutator) ([]Item, error) {
	if count <= 0 {
		return nil, nil
	}
	sequence := mutationSequence(includeViolations)

	derived := make([]Item, 0, count)
	for i := 0; i < count; i++ {
		kind := sequence[i%len(sequence)]

		primary := mutator.Mutate(ctx, parent.PrimaryText, kind)
		mutatedSecondary := parent.SecondaryText
		if parent.SecondaryText != "" {
			if res := mutator.Mutate(ctx, parent.SecondaryText, kind); res.Success {
				mutatedSecondary = res.Mutated
			}
		}

		child := Item{
			Category:      parent.Category,
			PrimaryText:   primary.Mutated,
			SecondaryText: mutatedSecondary,
			Source:        SourceDerived,
			ParentID:      parent.ID,
			ExpectedValid: kind.ExpectedValid(),
			MutationKind:  string(kind),
		}
		if kind.IsViolation() {
			child.ViolationsInjected = []string{string(kind)}
		}

		dist := textgen.Distance(parent.FullText(), child.FullText())
		sim := round3(textgen.Ratio(parent.FullText(), child.FullText()))
		child.DistanceFromParent = &dist
		child.SimilarityToParent = &sim

		child.ID = child.ContentID()
		g.items = append(g.items, child)
		derived = append(derived, child)

		if err := ctx.Err(); err != nil {
			return derived, err
		}
	}
	return derived, nil
}
