package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/slack-go/slack"

	"charterbench/internal/dataset"
	"charterbench/internal/harness"
	"charterbench/internal/llm"
	"charterbench/internal/mock"
	"charterbench/internal/store"
)

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: charterbench <command> [flags]

Commands:
  generate     build a mock-contribution corpus (no classifier calls)
  validate     generate variants and run the charter validator over them
  revalidate   re-run the validator over an existing corpus
  experiment   rescore the records archived for a date
  export       export archived records as a dataset (optionally split)
  stats        print archive statistics
  delete       delete all records for a date
  serve        run the daily experiment scheduler
`)
	os.Exit(2)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}
	cfg := LoadConfig()

	switch os.Args[1] {
	case "generate":
		cmdGenerate(cfg, os.Args[2:])
	case "validate":
		cmdValidate(cfg, os.Args[2:])
	case "revalidate":
		cmdRevalidate(cfg, os.Args[2:])
	case "experiment":
		cmdExperiment(cfg, os.Args[2:])
	case "export":
		cmdExport(cfg, os.Args[2:])
	case "stats":
		cmdStats(cfg)
	case "delete":
		cmdDelete(cfg, os.Args[2:])
	case "serve":
		cmdServe(cfg)
	default:
		usage()
	}
}

func llmConfig(cfg Config) llm.Config {
	return llm.Config{
		Provider:        cfg.LLMProvider,
		Model:           cfg.LLMModel,
		AnthropicAPIKey: cfg.AnthropicAPIKey,
		OpenAIAPIKey:    cfg.OpenAIAPIKey,
	}
}

func openStore(cfg Config) *store.Store {
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open record store: %v", err)
	}
	return st
}

func cmdGenerate(cfg Config, args []string) {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	seedsPath := fs.String("seeds", "", "seeds file (JSON); default built-in corpus")
	violations := fs.Bool("violations", true, "include the progressive violation series")
	semantic := fs.Bool("semantic", false, "use LLM semantic mutation instead of character edits")
	out := fs.String("out", cfg.CorpusPath, "corpus output path")
	fs.Parse(args)

	seeds, err := loadSeeds(*seedsPath)
	if err != nil {
		log.Fatalf("Failed to load seeds: %v", err)
	}

	gen := mock.NewGenerator(seeds...)
	if *semantic {
		cfg.RequireLLMKey()
		mutator := mock.NewSemanticMutator(llm.NewRewriter(llmConfig(cfg)))
		for _, seed := range seeds {
			if _, err := gen.SemanticSeries(context.Background(), seed, cfg.VariationsPerSeed, *violations, mutator); err != nil {
				log.Fatalf("Semantic series failed: %v", err)
			}
		}
	} else {
		inner := mock.NewGenerator()
		items, err := inner.GenerateBatch(seeds, mock.BatchOptions{
			VariationsPerSeed:      cfg.VariationsPerSeed,
			IncludeValidSeries:     true,
			IncludeViolationSeries: *violations,
			Seed:                   cfg.MutationSeed,
		})
		if err != nil {
			log.Fatalf("Generation failed: %v", err)
		}
		gen.Merge(items)
	}

	if err := gen.SaveCorpus(*out); err != nil {
		log.Fatalf("Failed to save corpus: %v", err)
	}
	fmt.Printf("Generated %d contributions -> %s\n", len(gen.Items()), *out)
}

func cmdValidate(cfg Config, args []string) {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	seedsPath := fs.String("seeds", "", "seeds file (JSON); default built-in corpus")
	violations := fs.Bool("violations", true, "include the progressive violation series")
	semantic := fs.Bool("semantic", false, "use LLM semantic mutation instead of character edits")
	date := fs.String("date", "", "record date (default today)")
	split := fs.Bool("split", false, "report train/val/test split sizes")
	fs.Parse(args)

	cfg.RequireLLMKey()
	seeds, err := loadSeeds(*seedsPath)
	if err != nil {
		log.Fatalf("Failed to load seeds: %v", err)
	}

	st := openStore(cfg)
	defer st.Close()

	deps := harness.Deps{
		Classifier: llm.NewValidator(llmConfig(cfg)),
		Store:      st,
	}
	if *semantic {
		deps.Rewriter = llm.NewRewriter(llmConfig(cfg))
	}

	opts := harness.WorkflowOptions{
		Date:              *date,
		VariationsPerSeed: cfg.VariationsPerSeed,
		Semantic:          *semantic,
		IncludeViolations: *violations,
		Seed:              cfg.MutationSeed,
		Concurrency:       cfg.Concurrency,
		CorpusPath:        cfg.CorpusPath,
		Provider:          cfg.LLMProvider,
		Model:             cfg.LLMModel,
	}
	if *split {
		opts.TrainRatio, opts.ValRatio, opts.TestRatio = cfg.TrainRatio, cfg.ValRatio, cfg.TestRatio
	}

	res, err := harness.RunWorkflow(context.Background(), deps, seeds, opts)
	if err != nil {
		log.Fatalf("Workflow failed: %v", err)
	}
	printWorkflowResult(res, *split)
}

func cmdRevalidate(cfg Config, args []string) {
	fs := flag.NewFlagSet("revalidate", flag.ExitOnError)
	source := fs.String("source", "", "filter by item source (seed/derived/external-input)")
	category := fs.String("category", "", "filter by category")
	limit := fs.Int("limit", 0, "max items to validate (0 = all)")
	date := fs.String("date", "", "record date (default today)")
	fs.Parse(args)

	cfg.RequireLLMKey()
	st := openStore(cfg)
	defer st.Close()

	deps := harness.Deps{
		Classifier: llm.NewValidator(llmConfig(cfg)),
		Store:      st,
	}
	res, err := harness.ValidateExisting(context.Background(), deps, cfg.CorpusPath,
		harness.ExistingFilter{Source: *source, Category: *category, Limit: *limit},
		harness.WorkflowOptions{
			Date:        *date,
			Concurrency: cfg.Concurrency,
			Provider:    cfg.LLMProvider,
			Model:       cfg.LLMModel,
		})
	if err != nil {
		log.Fatalf("Revalidation failed: %v", err)
	}
	printWorkflowResult(res, false)
}

func printWorkflowResult(res harness.WorkflowResult, split bool) {
	fmt.Printf("Validated %d contributions in %s: %d ok, %d errored, %d saved, %d match expected\n",
		res.Generated, res.Duration.Round(time.Millisecond),
		res.Validated, res.Errored, res.Saved, res.MatchesExpected)
	fmt.Println(FormatExperimentSummary(res.Date, res.Scores))
	if split {
		fmt.Printf("Split: train=%d val=%d test=%d\n", res.TrainSize, res.ValSize, res.TestSize)
	}
}

func cmdExperiment(cfg Config, args []string) {
	fs := flag.NewFlagSet("experiment", flag.ExitOnError)
	date := fs.String("date", "", "date to score (default today)")
	post := fs.Bool("post", false, "post the summary to Slack")
	fs.Parse(args)

	st := openStore(cfg)
	defer st.Close()

	day := *date
	if day == "" {
		day = time.Now().In(cfg.Location).Format("2006-01-02")
	}
	res, err := harness.RunDailyExperiment(st, day)
	if err != nil {
		log.Fatalf("Experiment failed: %v", err)
	}
	fmt.Println(FormatExperimentSummary(day, res))

	if *post {
		if cfg.SlackBotToken == "" || cfg.SlackChannelID == "" {
			log.Fatalf("slack_bot_token and slack_channel_id are required for -post")
		}
		PostExperimentSummary(cfg, slack.New(cfg.SlackBotToken), day, res)
	}
}

func cmdExport(cfg Config, args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	date := fs.String("date", "", "filter by date")
	source := fs.String("source", "", "filter by item source")
	validOnly := fs.Bool("valid-only", false, "only records the classifier accepted")
	out := fs.String("out", "dataset.json", "output path")
	split := fs.Bool("split", false, "write train/val/test files instead of one dataset")
	fs.Parse(args)

	st := openStore(cfg)
	defer st.Close()

	filter := store.ExportFilter{Date: *date, Source: *source}
	if *validOnly {
		v := true
		filter.ValidOnly = &v
	}
	items, err := st.Export(filter)
	if err != nil {
		log.Fatalf("Export failed: %v", err)
	}
	if len(items) == 0 {
		log.Fatalf("No records match the export filter")
	}

	if !*split {
		writeJSON(*out, items)
		fmt.Printf("Exported %d items -> %s\n", len(items), *out)
		return
	}

	parts, err := dataset.Make(items, cfg.TrainRatio, cfg.ValRatio, cfg.TestRatio)
	if err != nil {
		log.Fatalf("Split failed: %v", err)
	}
	base := (*out)[:len(*out)-len(filepath.Ext(*out))]
	writeJSON(base+"_train.json", parts.Train)
	writeJSON(base+"_val.json", parts.Validation)
	writeJSON(base+"_test.json", parts.Test)
	train, val, test := parts.Sizes()
	fmt.Printf("Exported %d items: train=%d val=%d test=%d -> %s_{train,val,test}.json\n",
		len(items), train, val, test, base)
}

func writeJSON(path string, v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatalf("Encoding %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		log.Fatalf("Writing %s: %v", path, err)
	}
}

func cmdStats(cfg Config) {
	st := openStore(cfg)
	defer st.Close()

	stats, err := st.Stats()
	if err != nil {
		log.Fatalf("Stats failed: %v", err)
	}
	fmt.Printf("Records: %d across %d dates\n", stats.TotalRecords, stats.Dates)
	fmt.Printf("Verdicts: %d valid, %d invalid, %d errored\n", stats.ValidCount, stats.InvalidCount, stats.ErroredCount)
	fmt.Printf("Ground truth: %d labeled, %d match\n", stats.WithLabel, stats.LabelMatches)
	fmt.Printf("Avg confidence: %.3f\n", stats.AvgConfidence)
	sources := make([]string, 0, len(stats.SourceCounts))
	for s := range stats.SourceCounts {
		sources = append(sources, s)
	}
	sort.Strings(sources)
	for _, s := range sources {
		fmt.Printf("  %s: %d\n", s, stats.SourceCounts[s])
	}

	dates, err := st.Dates()
	if err != nil {
		log.Fatalf("Listing dates: %v", err)
	}
	for _, d := range dates {
		fmt.Printf("  %s\n", d)
	}
}

func cmdDelete(cfg Config, args []string) {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	date := fs.String("date", "", "date to delete (required)")
	fs.Parse(args)
	if *date == "" {
		log.Fatalf("delete requires -date")
	}

	st := openStore(cfg)
	defer st.Close()

	n, err := st.DeleteDate(*date)
	if err != nil {
		log.Fatalf("Delete failed: %v", err)
	}
	fmt.Printf("Deleted %d records for %s\n", n, *date)
}

func cmdServe(cfg Config) {
	st := openStore(cfg)
	defer st.Close()

	var api *slack.Client
	if cfg.SlackBotToken != "" {
		api = slack.New(cfg.SlackBotToken)
	}

	log.Println("Starting charterbench scheduler...")
	StartExperimentScheduler(cfg, st, api)
	select {}
}
