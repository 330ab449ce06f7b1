package harness

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"charterbench/internal/charter"
	"charterbench/internal/mock"
	"charterbench/internal/store"
)

// oracleClassifier plays a perfect validator: it rejects exactly the items
// whose text contains an injected violation phrase marker.
type oracleClassifier struct {
	rejectSubstrings []string
	failSubstring    string
}

func (c *oracleClassifier) Classify(_ context.Context, primary, secondary, _ string) (charter.ValidationResult, error) {
	full := primary + " " + secondary
	if c.failSubstring != "" && strings.Contains(full, c.failSubstring) {
		return charter.ValidationResult{}, errors.New("classifier unavailable")
	}
	for _, marker := range c.rejectSubstrings {
		if strings.Contains(full, marker) {
			return charter.ValidationResult{
				IsValid:    false,
				Violations: []string{"aggressive"},
				Confidence: 0.9,
				Reasoning:  "ton agressif",
			}, nil
		}
	}
	return charter.ValidationResult{IsValid: true, Confidence: 0.88}, nil
}

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seedItems() []mock.Item {
	g := mock.NewGenerator()
	valid := true
	return []mock.Item{
		g.AddSeed("Le port manque de places de stationnement en été", "Créer un parking relais à l'entrée de la ville", "economie", &valid, mock.SourceSeed),
	}
}

// Violation phrases the injector can choose from all carry recognizable
// aggressive/attack wording; the oracle keys off fragments of them.
var violationMarkers = []string{
	"incompétent", "idiots", "menteur", "corrompus", "incapables",
	"politique nationale", "Macron", "immigrés", "gouvernement devrait",
	"c'est nul", "marchera jamais", "personne ne fait rien", "pourri", "sert à rien",
	"!!!", "RÉVEILLEZ-VOUS", "SCANDALEUX", "HONTE", "INADMISSIBLE",
}

func TestRunWorkflowEndToEnd(t *testing.T) {
	st := openTestStore(t)
	deps := Deps{
		Classifier: &oracleClassifier{rejectSubstrings: violationMarkers},
		Store:      st,
	}

	res, err := RunWorkflow(context.Background(), deps, seedItems(), WorkflowOptions{
		Date:              "2026-08-23",
		VariationsPerSeed: 4,
		IncludeViolations: true,
		Seed:              11,
		Concurrency:       2,
	})
	if err != nil {
		t.Fatalf("workflow: %v", err)
	}

	// 1 seed + 4 valid-series + 4 violation-series variants.
	if res.Generated != 9 {
		t.Fatalf("expected 9 generated items, got %d", res.Generated)
	}
	if res.Errored != 0 {
		t.Fatalf("no classification failures expected, got %d", res.Errored)
	}
	if res.Saved == 0 {
		t.Fatal("records must be persisted")
	}

	stored, err := st.GetByDate("2026-08-23")
	if err != nil {
		t.Fatalf("get by date: %v", err)
	}
	if len(stored) != res.Saved {
		t.Fatalf("store holds %d records, workflow reported %d", len(stored), res.Saved)
	}

	// Re-running the same seeded workflow is idempotent: same content ids,
	// same date, zero new rows.
	res2, err := RunWorkflow(context.Background(), deps, seedItems(), WorkflowOptions{
		Date:              "2026-08-23",
		VariationsPerSeed: 4,
		IncludeViolations: true,
		Seed:              11,
		Concurrency:       2,
	})
	if err != nil {
		t.Fatalf("second workflow: %v", err)
	}
	if res2.Saved != 0 {
		t.Fatalf("idempotent re-run must save 0 new records, saved %d", res2.Saved)
	}
}

func TestRunWorkflowPersistsCorpus(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.json")
	deps := Deps{Classifier: &oracleClassifier{}}

	if _, err := RunWorkflow(context.Background(), deps, seedItems(), WorkflowOptions{
		VariationsPerSeed: 3,
		Seed:              5,
		CorpusPath:        path,
	}); err != nil {
		t.Fatalf("workflow: %v", err)
	}

	loaded, err := mock.LoadCorpus(path)
	if err != nil {
		t.Fatalf("load corpus: %v", err)
	}
	// 1 seed + 3 variants.
	if len(loaded.Items()) != 4 {
		t.Fatalf("corpus holds %d items, want 4", len(loaded.Items()))
	}
}

func TestRunWorkflowSplitsDataset(t *testing.T) {
	deps := Deps{Classifier: &oracleClassifier{}}

	res, err := RunWorkflow(context.Background(), deps, seedItems(), WorkflowOptions{
		VariationsPerSeed: 9, // 1 seed + 9 variants = 10 items
		Seed:              3,
		TrainRatio:        0.7,
		ValRatio:          0.15,
		TestRatio:         0.15,
	})
	if err != nil {
		t.Fatalf("workflow: %v", err)
	}
	if res.TrainSize+res.ValSize+res.TestSize != res.Generated {
		t.Fatalf("split sizes %d/%d/%d do not cover %d items",
			res.TrainSize, res.ValSize, res.TestSize, res.Generated)
	}
	if res.TrainSize != 7 {
		t.Fatalf("train size %d, want 7", res.TrainSize)
	}
}

func TestRunWorkflowSemanticPath(t *testing.T) {
	deps := Deps{
		Classifier: &oracleClassifier{},
		Rewriter:   rewriterFunc(func(_ context.Context, text string, kind charter.MutationKind) (string, error) {
			return "(" + string(kind) + ") " + text, nil
		}),
	}

	res, err := RunWorkflow(context.Background(), deps, seedItems(), WorkflowOptions{
		Semantic:          true,
		VariationsPerSeed: 6,
		IncludeViolations: true,
	})
	if err != nil {
		t.Fatalf("semantic workflow: %v", err)
	}
	if res.Generated != 7 {
		t.Fatalf("expected seed + 6 semantic variants, got %d", res.Generated)
	}
}

func TestRunWorkflowSemanticNeedsRewriter(t *testing.T) {
	deps := Deps{Classifier: &oracleClassifier{}}
	if _, err := RunWorkflow(context.Background(), deps, seedItems(), WorkflowOptions{Semantic: true}); err == nil {
		t.Fatal("semantic workflow without a rewriter must fail")
	}
}

type rewriterFunc func(ctx context.Context, text string, kind charter.MutationKind) (string, error)

func (f rewriterFunc) Rewrite(ctx context.Context, text string, kind charter.MutationKind) (string, error) {
	return f(ctx, text, kind)
}

func TestValidateExistingFiltersAndLimits(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.json")
	g := mock.NewGenerator()
	valid := true
	seed := g.AddSeed("La plage est sale en été", "Installer plus de poubelles", "ecologie", &valid, mock.SourceSeed)
	if _, err := g.VariationSeries(seed, mock.SeriesOptions{Count: 5, Seed: 2}); err != nil {
		t.Fatalf("series: %v", err)
	}
	g.AddSeed("Le marché pourrait accueillir plus de producteurs locaux", "Étendre la halle", "alimentation-bien-etre-soins", &valid, mock.SourceSeed)
	if err := g.SaveCorpus(path); err != nil {
		t.Fatalf("save corpus: %v", err)
	}

	st := openTestStore(t)
	deps := Deps{Classifier: &oracleClassifier{}, Store: st}

	res, err := ValidateExisting(context.Background(), deps, path, ExistingFilter{
		Source: mock.SourceDerived,
		Limit:  3,
	}, WorkflowOptions{Date: "2026-08-23"})
	if err != nil {
		t.Fatalf("validate existing: %v", err)
	}
	if res.Generated != 3 {
		t.Fatalf("limit ignored: validated %d items", res.Generated)
	}
	if res.Saved != 3 {
		t.Fatalf("expected 3 saved records, got %d", res.Saved)
	}

	byCat, err := ValidateExisting(context.Background(), deps, path, ExistingFilter{
		Category: "ecologie",
	}, WorkflowOptions{Date: "2026-08-24"})
	if err != nil {
		t.Fatalf("validate by category: %v", err)
	}
	// The ecologie seed plus its 5 variants.
	if byCat.Generated != 6 {
		t.Fatalf("category filter matched %d items, want 6", byCat.Generated)
	}
}

func TestValidateItemsRecordsFailures(t *testing.T) {
	items := seedItems()
	records, scores, err := ValidateItems(context.Background(), &oracleClassifier{failSubstring: "port"}, items, WorkflowOptions{})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("one record per item, got %d", len(records))
	}
	if records[0].Err == "" {
		t.Fatal("failed classification must be recorded on the item")
	}
	if scores.Errored != 1 {
		t.Fatalf("scores must count the errored record, got %d", scores.Errored)
	}
}

func TestRunDailyExperiment(t *testing.T) {
	st := openTestStore(t)
	valid, invalid := true, false
	records := []store.EvaluationRecord{
		{ID: "a", Date: "2026-08-23", PrimaryText: "x", ExpectedValid: &valid, ActualValid: true, Confidence: 0.9},
		{ID: "b", Date: "2026-08-23", PrimaryText: "y", ExpectedValid: &invalid, ActualValid: false, Confidence: 0.85, ViolationsInjected: []string{"off_topic"}, Violations: []string{"off_topic"}},
		{ID: "c", Date: "2026-08-22", PrimaryText: "z", ExpectedValid: &valid, ActualValid: false, Confidence: 0.6},
	}
	if _, err := st.SaveBatch(records); err != nil {
		t.Fatalf("save: %v", err)
	}

	res, err := RunDailyExperiment(st, "2026-08-23")
	if err != nil {
		t.Fatalf("experiment: %v", err)
	}
	if res.Total != 2 {
		t.Fatalf("experiment must only see its date, got %d records", res.Total)
	}
	if res.CharterAccuracy == nil || *res.CharterAccuracy != 1.0 {
		t.Fatalf("accuracy: %v", res.CharterAccuracy)
	}
	if res.TruePositives != 1 || res.TrueNegatives != 1 {
		t.Fatalf("matrix: %+v", res)
	}
}
