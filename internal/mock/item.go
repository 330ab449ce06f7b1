// Package mock generates synthetic contributions for exercising the charter
// validator: seed items, character-level variation series at controlled edit
// distances, violation injection, and LLM-backed semantic mutation.
package mock

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"
)

// Item source values. Seed items are authored directly, derived items are
// produced by this package from a seed, external items come from real
// submissions imported for regression runs.
const (
	SourceSeed     = "seed"
	SourceDerived  = "derived"
	SourceExternal = "external-input"
)

// Item is one synthetic contribution under test. PrimaryText carries the
// factual observation, SecondaryText the proposed improvement; both fields
// mirror the submission form the real validator sees.
type Item struct {
	ID            string   `json:"id"`
	Category      string   `json:"category,omitempty"`
	PrimaryText   string   `json:"primary_text"`
	SecondaryText string   `json:"secondary_text"`
	Source        string   `json:"source"`

	// Parent linkage, set only on derived items. Distance and similarity are
	// caches of textgen.Distance/Ratio against the parent's full text; the
	// generator recomputes them after every mutation so they never diverge.
	ParentID           string   `json:"parent_id,omitempty"`
	DistanceFromParent *int     `json:"distance_from_parent,omitempty"`
	SimilarityToParent *float64 `json:"similarity_to_parent,omitempty"`

	// ExpectedValid is the ground-truth label; nil means no ground truth and
	// such items are excluded from accuracy denominators downstream.
	ExpectedValid *bool `json:"expected_valid,omitempty"`

	// ViolationsInjected lists the violation tags actually applied, in order.
	ViolationsInjected []string `json:"violations_injected,omitempty"`

	// MutationKind records the semantic-mutation instruction used, when the
	// item came from the LLM path.
	MutationKind string `json:"mutation_kind,omitempty"`
}

const titleMaxLen = 80

// Title derives a short display title from the primary text (falling back
// to the secondary), truncated at 80 runes.
func (it Item) Title() string {
	text := it.PrimaryText
	if text == "" {
		text = it.SecondaryText
	}
	runes := []rune(text)
	if len(runes) > titleMaxLen {
		return string(runes[:titleMaxLen-3]) + "..."
	}
	return text
}

// Body renders both fields the way the submission form concatenates them.
func (it Item) Body() string {
	var parts []string
	if it.PrimaryText != "" {
		parts = append(parts, "**Constat factuel:**\n"+it.PrimaryText)
	}
	if it.SecondaryText != "" {
		parts = append(parts, "**Vos idées d'améliorations:**\n"+it.SecondaryText)
	}
	return strings.Join(parts, "\n\n")
}

// FullText concatenates both text fields; all parent-distance calculations
// run against this.
func (it Item) FullText() string {
	return it.PrimaryText + " " + it.SecondaryText
}

// ContentID returns the deterministic identifier for the item's content:
// the first 12 hex chars of the md5 of both text fields plus the category.
// Identical content always hashes to the same id, so regenerating a corpus
// never duplicates items.
func (it Item) ContentID() string {
	content := fmt.Sprintf("%s:%s:%s", it.PrimaryText, it.SecondaryText, it.Category)
	sum := md5.Sum([]byte(content))
	return hex.EncodeToString(sum[:])[:12]
}
