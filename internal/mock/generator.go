package mock

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"charterbench/internal/textgen"
)

// Generator accumulates a corpus of mock contributions and derives
// controlled variations from them. It holds no global state; tests build
// one per case.
type Generator struct {
	items []Item
}

func NewGenerator(items ...Item) *Generator {
	return &Generator{items: items}
}

// Items returns the accumulated corpus in insertion order.
func (g *Generator) Items() []Item {
	return g.items
}

// AddSeed registers a new authored contribution and returns it with its
// content-hash id assigned.
func (g *Generator) AddSeed(primaryText, secondaryText, category string, expectedValid *bool, source string) Item {
	if source == "" {
		source = SourceSeed
	}
	item := Item{
		Category:      category,
		PrimaryText:   primaryText,
		SecondaryText: secondaryText,
		Source:        source,
		ExpectedValid: expectedValid,
	}
	item.ID = item.ContentID()
	g.items = append(g.items, item)
	return item
}

// DeriveOptions controls a single derivation step.
type DeriveOptions struct {
	TargetDistance int
	// Violation, when non-empty, is injected after mutation. Intensity
	// steers placement per textgen.InjectViolation.
	Violation textgen.ViolationCategory
	Intensity float64
	Seed      int64
}

// Derive creates one child of parent at approximately TargetDistance,
// splitting the edit budget evenly across the two text fields. A requested
// violation goes into the secondary field when it is non-empty, otherwise
// the primary. Distance and similarity are recomputed against the parent's
// full text after all edits, and an injected violation forces
// ExpectedValid to false: the label is known by construction, not detected.
func (g *Generator) Derive(parent Item, opts DeriveOptions) (Item, error) {
	mutatedPrimary, _ := textgen.ApplyDistance(parent.PrimaryText, opts.TargetDistance/2, opts.Seed)
	mutatedSecondary, _ := textgen.ApplyDistance(parent.SecondaryText, opts.TargetDistance/2, opts.Seed+1)

	var injected []string
	if opts.Violation != "" {
		var err error
		if mutatedSecondary != "" {
			mutatedSecondary, _, err = textgen.InjectViolation(mutatedSecondary, opts.Violation, opts.Intensity, opts.Seed+2)
		} else {
			mutatedPrimary, _, err = textgen.InjectViolation(mutatedPrimary, opts.Violation, opts.Intensity, opts.Seed+2)
		}
		if err != nil {
			return Item{}, fmt.Errorf("deriving from %s: %w", parent.ID, err)
		}
		injected = append(injected, string(opts.Violation))
	}

	child := Item{
		Category:           parent.Category,
		PrimaryText:        mutatedPrimary,
		SecondaryText:      mutatedSecondary,
		Source:             SourceDerived,
		ParentID:           parent.ID,
		ExpectedValid:      parent.ExpectedValid,
		ViolationsInjected: injected,
	}
	if len(injected) > 0 {
		invalid := false
		child.ExpectedValid = &invalid
	}

	dist := textgen.Distance(parent.FullText(), child.FullText())
	sim := round3(textgen.Ratio(parent.FullText(), child.FullText()))
	child.DistanceFromParent = &dist
	child.SimilarityToParent = &sim

	child.ID = child.ContentID()
	g.items = append(g.items, child)
	return child, nil
}

// SeriesOptions controls VariationSeries.
type SeriesOptions struct {
	Count                 int
	MaxDistanceRatio      float64 // default 0.3
	ProgressiveViolations bool
	Seed                  int64
}

// violationThreshold is the progress point past which the progressive
// series starts injecting violations; the remaining (0.4, 1.0] range maps
// linearly onto the category catalog, mildest first.
const violationThreshold = 0.4

// VariationSeries derives Count children of parent with monotonically
// increasing corruption. Step i (1-based) targets
// floor(len(fullText) * ratio * i/Count) edits; once progress exceeds 0.4
// and violations are enabled, each step also carries an injected violation
// whose category escalates with progress and whose intensity equals the
// progress itself.
func (g *Generator) VariationSeries(parent Item, opts SeriesOptions) ([]Item, error) {
	if opts.Count <= 0 {
		return nil, nil
	}
	ratio := opts.MaxDistanceRatio
	if ratio <= 0 {
		ratio = 0.3
	}

	maxDistance := int(float64(len([]rune(parent.FullText()))) * ratio)
	categories := textgen.ViolationCategories()

	derived := make([]Item, 0, opts.Count)
	for i := 1; i <= opts.Count; i++ {
		progress := float64(i) / float64(opts.Count)
		target := int(math.Floor(float64(maxDistance) * progress))

		var violation textgen.ViolationCategory
		if opts.ProgressiveViolations && progress > violationThreshold {
			idx := int((progress - violationThreshold) / (1 - violationThreshold) * float64(len(categories)))
			if idx >= len(categories) {
				idx = len(categories) - 1
			}
			violation = categories[idx]
		}

		child, err := g.Derive(parent, DeriveOptions{
			TargetDistance: target,
			Violation:      violation,
			Intensity:      progress,
			Seed:           opts.Seed + int64(i)*42,
		})
		if err != nil {
			return derived, err
		}
		derived = append(derived, child)
	}
	return derived, nil
}

// BatchOptions controls GenerateBatch.
type BatchOptions struct {
	VariationsPerSeed      int
	IncludeValidSeries     bool
	IncludeViolationSeries bool
	Seed                   int64
}

// GenerateBatch builds a full test corpus from several seeds: per seed, a
// mildly mutated series that stays valid (max ratio 0.2, no injection) and
// a progressive violation series.
func (g *Generator) GenerateBatch(seeds []Item, opts BatchOptions) ([]Item, error) {
	all := append([]Item(nil), seeds...)
	if opts.VariationsPerSeed <= 0 {
		opts.VariationsPerSeed = 5
	}

	for si, seed := range seeds {
		base := opts.Seed + int64(si)*1000
		if opts.IncludeValidSeries {
			series, err := g.VariationSeries(seed, SeriesOptions{
				Count:            opts.VariationsPerSeed,
				MaxDistanceRatio: 0.2,
				Seed:             base,
			})
			if err != nil {
				return all, err
			}
			all = append(all, series...)
		}
		if opts.IncludeViolationSeries {
			series, err := g.VariationSeries(seed, SeriesOptions{
				Count:                 opts.VariationsPerSeed,
				ProgressiveViolations: true,
				Seed:                  base + 500,
			})
			if err != nil {
				return all, err
			}
			all = append(all, series...)
		}
	}
	return all, nil
}

// corpusFile is the JSON envelope for a saved corpus.
type corpusFile struct {
	GeneratedAt string `json:"generated_at"`
	Count       int    `json:"count"`
	Items       []Item `json:"contributions"`
}

// SaveCorpus writes the corpus to path, creating parent directories.
func (g *Generator) SaveCorpus(path string) error {
	data, err := json.MarshalIndent(corpusFile{
		GeneratedAt: time.Now().Format(time.RFC3339),
		Count:       len(g.items),
		Items:       g.items,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding corpus: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating corpus dir: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// LoadCorpus reads a corpus saved by SaveCorpus. A missing file is an empty
// corpus, not an error.
func LoadCorpus(path string) (*Generator, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewGenerator(), nil
		}
		return nil, fmt.Errorf("reading corpus: %w", err)
	}
	var f corpusFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing corpus %s: %w", path, err)
	}
	return NewGenerator(f.Items...), nil
}

// Merge appends items whose ids are not already present and returns how
// many were added. Re-inserting identical content is a no-op by id.
func (g *Generator) Merge(items []Item) int {
	existing := make(map[string]bool, len(g.items))
	for _, it := range g.items {
		existing[it.ID] = true
	}
	added := 0
	for _, it := range items {
		if !existing[it.ID] {
			g.items = append(g.items, it)
			existing[it.ID] = true
			added++
		}
	}
	return added
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
