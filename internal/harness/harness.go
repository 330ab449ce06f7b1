// Package harness wires the pipeline end to end: generate mock
// contributions, run the classifier over them with a bounded pool, persist
// the evaluation records, and score the batch.
package harness

import (
	"context"
	"fmt"
	"log"
	"time"

	"charterbench/internal/charter"
	"charterbench/internal/dataset"
	"charterbench/internal/mock"
	"charterbench/internal/scorer"
	"charterbench/internal/store"
)

// Deps are the external capabilities a workflow needs. Store may be nil for
// a dry run; Rewriter is only needed on the semantic path.
type Deps struct {
	Classifier charter.Classifier
	Rewriter   charter.TextRewriter
	Store      *store.Store
}

// WorkflowOptions controls RunWorkflow.
type WorkflowOptions struct {
	Date              string // defaults to today (UTC)
	VariationsPerSeed int
	Semantic          bool // rewrite via LLM instead of character mutation
	IncludeViolations bool
	Seed              int64
	Concurrency       int
	CorpusPath        string // when set, the generated corpus is persisted as JSON
	Provider          string
	Model             string

	// When all three are non-zero the validated dataset is split.
	TrainRatio float64
	ValRatio   float64
	TestRatio  float64
}

// WorkflowResult summarizes one run.
type WorkflowResult struct {
	Date            string
	Generated       int
	Validated       int
	Errored         int
	Saved           int
	MatchesExpected int
	Scores          scorer.ExperimentResult
	TrainSize       int
	ValSize         int
	TestSize        int
	Duration        time.Duration
}

// itemToDataset converts one generated item into the export shape the
// scorer consumes.
func itemToDataset(it mock.Item) store.DatasetItem {
	var d store.DatasetItem
	d.Input.Title = it.Title()
	d.Input.Body = it.Body()
	d.Input.Category = it.Category
	d.Input.PrimaryText = it.PrimaryText
	d.Input.SecondaryText = it.SecondaryText
	d.ExpectedOutput.IsValid = it.ExpectedValid
	d.ExpectedOutput.Violations = it.ViolationsInjected
	d.ExpectedOutput.Category = it.Category
	d.Metadata.ID = it.ID
	d.Metadata.Source = it.Source
	d.Metadata.ParentID = it.ParentID
	d.Metadata.DistanceFromParent = it.DistanceFromParent
	d.Metadata.SimilarityToParent = it.SimilarityToParent
	d.Metadata.ViolationsInjected = it.ViolationsInjected
	return d
}

// ValidateItems runs the classifier over generated items and returns one
// record per item plus the aggregate scores. Per-item failures become
// errored records; the batch always completes.
func ValidateItems(ctx context.Context, classifier charter.Classifier, items []mock.Item, opts WorkflowOptions) ([]store.EvaluationRecord, scorer.ExperimentResult, error) {
	ds := make([]store.DatasetItem, len(items))
	for i, it := range items {
		ds[i] = itemToDataset(it)
	}
	return scorer.Run(ctx, classifier, ds, scorer.RunOptions{
		Date:        opts.Date,
		Concurrency: opts.Concurrency,
		Provider:    opts.Provider,
		Model:       opts.Model,
	})
}

// RunWorkflow executes the full pipeline: generate variants from the seeds,
// optionally persist the corpus, validate everything, save the records, and
// score. Splitting is applied to the exported dataset when ratios are set.
func RunWorkflow(ctx context.Context, deps Deps, seeds []mock.Item, opts WorkflowOptions) (WorkflowResult, error) {
	start := time.Now()
	if opts.Date == "" {
		opts.Date = time.Now().UTC().Format("2006-01-02")
	}

	gen := mock.NewGenerator()
	var (
		items []mock.Item
		err   error
	)
	if opts.Semantic {
		if deps.Rewriter == nil {
			return WorkflowResult{}, fmt.Errorf("semantic workflow needs a rewriter")
		}
		mutator := mock.NewSemanticMutator(deps.Rewriter)
		items = append(items, seeds...)
		for _, seed := range seeds {
			series, serr := gen.SemanticSeries(ctx, seed, opts.VariationsPerSeed, opts.IncludeViolations, mutator)
			items = append(items, series...)
			if serr != nil {
				return WorkflowResult{}, fmt.Errorf("semantic series for %s: %w", seed.ID, serr)
			}
		}
	} else {
		items, err = gen.GenerateBatch(seeds, mock.BatchOptions{
			VariationsPerSeed:      opts.VariationsPerSeed,
			IncludeValidSeries:     true,
			IncludeViolationSeries: opts.IncludeViolations,
			Seed:                   opts.Seed,
		})
		if err != nil {
			return WorkflowResult{}, fmt.Errorf("generating batch: %w", err)
		}
	}
	log.Printf("workflow generated items=%d seeds=%d semantic=%v", len(items), len(seeds), opts.Semantic)

	if opts.CorpusPath != "" {
		merged := mock.NewGenerator(seeds...)
		merged.Merge(items)
		if err := merged.SaveCorpus(opts.CorpusPath); err != nil {
			return WorkflowResult{}, fmt.Errorf("saving corpus: %w", err)
		}
	}

	records, scores, err := ValidateItems(ctx, deps.Classifier, items, opts)
	if err != nil {
		return WorkflowResult{}, fmt.Errorf("validating batch: %w", err)
	}

	res := WorkflowResult{
		Date:      opts.Date,
		Generated: len(items),
		Validated: len(records) - scores.Errored,
		Errored:   scores.Errored,
		Scores:    scores,
	}
	for _, r := range records {
		if m := r.MatchesExpected(); m != nil && *m {
			res.MatchesExpected++
		}
	}

	if deps.Store != nil {
		saved, err := deps.Store.SaveBatch(records)
		if err != nil {
			return res, fmt.Errorf("saving records: %w", err)
		}
		res.Saved = saved
		log.Printf("workflow saved records=%d date=%s", saved, opts.Date)
	}

	if opts.TrainRatio > 0 || opts.ValRatio > 0 || opts.TestRatio > 0 {
		exported := make([]store.DatasetItem, 0, len(records))
		for _, r := range records {
			if r.Err == "" {
				exported = append(exported, r.ToDatasetItem())
			}
		}
		split, err := dataset.Make(exported, opts.TrainRatio, opts.ValRatio, opts.TestRatio)
		if err != nil {
			return res, fmt.Errorf("splitting dataset: %w", err)
		}
		res.TrainSize, res.ValSize, res.TestSize = split.Sizes()
	}

	res.Duration = time.Since(start)
	log.Printf("workflow done items=%d errored=%d matches=%d in %s",
		res.Generated, res.Errored, res.MatchesExpected, res.Duration.Round(time.Millisecond))
	return res, nil
}

// ExistingFilter narrows ValidateExisting to a corpus subset.
type ExistingFilter struct {
	Source   string
	Category string
	Limit    int
}

// ValidateExisting re-validates items already present in a saved corpus,
// persisting the resulting records.
func ValidateExisting(ctx context.Context, deps Deps, corpusPath string, filter ExistingFilter, opts WorkflowOptions) (WorkflowResult, error) {
	start := time.Now()
	if opts.Date == "" {
		opts.Date = time.Now().UTC().Format("2006-01-02")
	}

	gen, err := mock.LoadCorpus(corpusPath)
	if err != nil {
		return WorkflowResult{}, fmt.Errorf("loading corpus: %w", err)
	}

	var items []mock.Item
	for _, it := range gen.Items() {
		if filter.Source != "" && it.Source != filter.Source {
			continue
		}
		if filter.Category != "" && it.Category != filter.Category {
			continue
		}
		items = append(items, it)
		if filter.Limit > 0 && len(items) >= filter.Limit {
			break
		}
	}
	log.Printf("validate existing corpus=%s matched=%d of %d", corpusPath, len(items), len(gen.Items()))

	records, scores, err := ValidateItems(ctx, deps.Classifier, items, opts)
	if err != nil {
		return WorkflowResult{}, fmt.Errorf("validating corpus items: %w", err)
	}

	res := WorkflowResult{
		Date:      opts.Date,
		Generated: len(items),
		Validated: len(records) - scores.Errored,
		Errored:   scores.Errored,
		Scores:    scores,
	}
	for _, r := range records {
		if m := r.MatchesExpected(); m != nil && *m {
			res.MatchesExpected++
		}
	}
	if deps.Store != nil && len(records) > 0 {
		res.Saved, err = deps.Store.SaveBatch(records)
		if err != nil {
			return res, fmt.Errorf("saving records: %w", err)
		}
	}
	res.Duration = time.Since(start)
	return res, nil
}

// RunDailyExperiment rescores everything archived for one date. It performs
// no classification; the verdicts are already on disk.
func RunDailyExperiment(st *store.Store, date string) (scorer.ExperimentResult, error) {
	if date == "" {
		date = time.Now().UTC().Format("2006-01-02")
	}
	records, err := st.GetByDate(date)
	if err != nil {
		return scorer.ExperimentResult{}, fmt.Errorf("loading records for %s: %w", date, err)
	}
	res := scorer.Score(records)
	log.Printf("daily experiment date=%s records=%d errored=%d", date, res.Total, res.Errored)
	return res, nil
}
