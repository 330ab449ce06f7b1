package mock

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"charterbench/internal/charter"
)

// fakeRewriter rewrites deterministically by tagging the text with the
// mutation kind, and can be told to fail for specific kinds.
type fakeRewriter struct {
	failOn map[charter.MutationKind]bool
	calls  int
}

func (f *fakeRewriter) Rewrite(_ context.Context, text string, kind charter.MutationKind) (string, error) {
	f.calls++
	if f.failOn[kind] {
		return "", errors.New("rewriter unavailable")
	}
	return fmt.Sprintf("[%s] %s", kind, text), nil
}

func TestSemanticMutatorFallsBackOnError(t *testing.T) {
	m := NewSemanticMutator(&fakeRewriter{failOn: map[charter.MutationKind]bool{charter.MutationParaphrase: true}})

	res := m.Mutate(context.Background(), "texte original", charter.MutationParaphrase)
	if res.Success {
		t.Fatal("expected failure")
	}
	if res.Mutated != "texte original" {
		t.Fatalf("failed mutation must return the original text, got %q", res.Mutated)
	}
	if res.Err == "" {
		t.Fatal("failure must record the error message")
	}
}

func TestSemanticSeriesLabels(t *testing.T) {
	g := NewGenerator()
	seed := addTestSeed(t, g)
	m := NewSemanticMutator(&fakeRewriter{})

	series, err := g.SemanticSeries(context.Background(), seed, 6, true, m)
	if err != nil {
		t.Fatalf("series: %v", err)
	}
	if len(series) != 6 {
		t.Fatalf("expected 6 items, got %d", len(series))
	}

	wantValid := []*string{ptr("true"), ptr("true"), nil, ptr("false"), ptr("false"), ptr("false")}
	for i, item := range series {
		switch {
		case wantValid[i] == nil:
			if item.ExpectedValid != nil {
				t.Fatalf("step %d (semantic shift) must have unknown ground truth", i)
			}
		case *wantValid[i] == "true":
			if item.ExpectedValid == nil || !*item.ExpectedValid {
				t.Fatalf("step %d must be expected valid", i)
			}
			if len(item.ViolationsInjected) != 0 {
				t.Fatalf("step %d is benign but carries violations %v", i, item.ViolationsInjected)
			}
		default:
			if item.ExpectedValid == nil || *item.ExpectedValid {
				t.Fatalf("step %d must be expected invalid", i)
			}
			if len(item.ViolationsInjected) != 1 {
				t.Fatalf("step %d must record its violation kind", i)
			}
		}
	}
}

func TestSemanticSeriesSurvivesRewriterFailure(t *testing.T) {
	g := NewGenerator()
	seed := addTestSeed(t, g)
	m := NewSemanticMutator(&fakeRewriter{failOn: map[charter.MutationKind]bool{
		charter.MutationOrthographic: true,
	}})

	series, err := g.SemanticSeries(context.Background(), seed, 4, true, m)
	if err != nil {
		t.Fatalf("series must not abort on a failed step: %v", err)
	}
	if len(series) != 4 {
		t.Fatalf("expected 4 items despite one failing kind, got %d", len(series))
	}
	// The failed orthographic step (index 1) keeps the parent's text.
	if series[1].PrimaryText != seed.PrimaryText {
		t.Fatalf("failed step must fall back to the original text, got %q", series[1].PrimaryText)
	}
}

func TestSemanticSeriesDistancesPopulated(t *testing.T) {
	g := NewGenerator()
	seed := addTestSeed(t, g)
	m := NewSemanticMutator(&fakeRewriter{})

	series, err := g.SemanticSeries(context.Background(), seed, 3, false, m)
	if err != nil {
		t.Fatalf("series: %v", err)
	}
	for i, item := range series {
		if item.DistanceFromParent == nil || item.SimilarityToParent == nil {
			t.Fatalf("step %d missing distance cache", i)
		}
		if *item.DistanceFromParent == 0 {
			t.Fatalf("step %d: rewriter changed the text but distance is 0", i)
		}
	}
}

func ptr(s string) *string { return &s }
