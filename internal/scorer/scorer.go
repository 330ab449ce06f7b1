// Package scorer aggregates classifier verdicts against ground-truth labels
// into an experiment result: confusion matrix, accuracy, violation
// detection, confidence calibration, precision/recall/F1.
package scorer

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"charterbench/internal/charter"
	"charterbench/internal/store"
)

// ExperimentResult aggregates one scored dataset. "Expected invalid" is the
// positive class: missing a genuine violation is the costliest failure, so
// recall on invalid items is the headline number. Metrics are pointers so an
// undefined value (zero denominator) stays distinguishable from 0.0.
type ExperimentResult struct {
	Total   int `json:"total"`
	Errored int `json:"errored"`
	Labeled int `json:"labeled"`

	TruePositives  int `json:"true_positives"`
	TrueNegatives  int `json:"true_negatives"`
	FalsePositives int `json:"false_positives"`
	FalseNegatives int `json:"false_negatives"`

	CharterAccuracy       *float64 `json:"charter_accuracy"`
	ViolationDetection    *float64 `json:"violation_detection"`
	ConfidenceCalibration *float64 `json:"confidence_calibration"`
	Precision             *float64 `json:"precision"`
	Recall                *float64 `json:"recall"`
	F1                    *float64 `json:"f1"`
}

// Score aggregates records into an ExperimentResult. Errored records are
// counted and otherwise ignored; records without a ground-truth label are
// excluded from accuracy, calibration, and the confusion matrix, but still
// participate in violation detection (injection tags are known regardless
// of label).
func Score(records []store.EvaluationRecord) ExperimentResult {
	var res ExperimentResult
	res.Total = len(records)

	correct := 0
	calibrationSum := 0.0
	detectionSum := 0.0
	detectionCount := 0

	for _, r := range records {
		if r.Err != "" {
			res.Errored++
			continue
		}

		detectionSum += detectionScore(r)
		detectionCount++

		if r.ExpectedValid == nil {
			continue
		}
		res.Labeled++
		expectedInvalid := !*r.ExpectedValid
		predictedInvalid := !r.ActualValid

		switch {
		case expectedInvalid && predictedInvalid:
			res.TruePositives++
		case expectedInvalid && !predictedInvalid:
			res.FalseNegatives++
		case !expectedInvalid && predictedInvalid:
			res.FalsePositives++
		default:
			res.TrueNegatives++
		}

		if expectedInvalid == predictedInvalid {
			correct++
			calibrationSum += r.Confidence
		} else {
			calibrationSum += 1 - r.Confidence
		}
	}

	if res.Labeled > 0 {
		res.CharterAccuracy = ratio(float64(correct), float64(res.Labeled))
		res.ConfidenceCalibration = ratio(calibrationSum, float64(res.Labeled))
	}
	if detectionCount > 0 {
		res.ViolationDetection = ratio(detectionSum, float64(detectionCount))
	}
	res.Precision = ratio(float64(res.TruePositives), float64(res.TruePositives+res.FalsePositives))
	res.Recall = ratio(float64(res.TruePositives), float64(res.TruePositives+res.FalseNegatives))
	if res.Precision != nil && res.Recall != nil && *res.Precision+*res.Recall > 0 {
		f1 := 2 * *res.Precision * *res.Recall / (*res.Precision + *res.Recall)
		res.F1 = &f1
	}
	return res
}

// detectionScore grades one record's violation handling. An injected item
// earns full credit only when the classifier both rejected it and named at
// least one violation; rejecting without naming one is a blanket reject,
// directionally correct, half credit. A clean item earns full credit for a
// clean bill and half credit when the classifier hallucinated a violation.
func detectionScore(r store.EvaluationRecord) float64 {
	if len(r.ViolationsInjected) > 0 {
		switch {
		case !r.ActualValid && len(r.Violations) > 0:
			return 1.0
		case !r.ActualValid:
			return 0.5
		default:
			return 0.0
		}
	}
	if len(r.Violations) == 0 {
		return 1.0
	}
	return 0.5
}

func ratio(num, den float64) *float64 {
	if den == 0 {
		return nil
	}
	v := num / den
	return &v
}

// RunOptions controls Run.
type RunOptions struct {
	Date        string
	Concurrency int // default 4
	Provider    string
	Model       string
}

// Run drives the classifier over a dataset with a bounded worker pool,
// builds one evaluation record per item, and scores the batch. A failed
// classification becomes an errored record; it never aborts the run.
func Run(ctx context.Context, classifier charter.Classifier, items []store.DatasetItem, opts RunOptions) ([]store.EvaluationRecord, ExperimentResult, error) {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.Date == "" {
		opts.Date = time.Now().UTC().Format("2006-01-02")
	}

	records := make([]store.EvaluationRecord, len(items))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)
	for i, item := range items {
		g.Go(func() error {
			// Each goroutine owns exactly one slot.
			records[i] = evaluate(ctx, classifier, item, opts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, ExperimentResult{}, err
	}
	return records, Score(records), nil
}

func evaluate(ctx context.Context, classifier charter.Classifier, item store.DatasetItem, opts RunOptions) store.EvaluationRecord {
	rec := store.EvaluationRecord{
		ID:                 item.Metadata.ID,
		Date:               opts.Date,
		Title:              item.Input.Title,
		Body:               item.Input.Body,
		Category:           item.Input.Category,
		PrimaryText:        item.Input.PrimaryText,
		SecondaryText:      item.Input.SecondaryText,
		Source:             item.Metadata.Source,
		ExpectedValid:      item.ExpectedOutput.IsValid,
		ParentID:           item.Metadata.ParentID,
		DistanceFromParent: item.Metadata.DistanceFromParent,
		SimilarityToParent: item.Metadata.SimilarityToParent,
		ViolationsInjected: item.ExpectedOutput.Violations,
		Provider:           opts.Provider,
		Model:              opts.Model,
		TraceID:            uuid.NewString(),
		CreatedAt:          time.Now().UTC(),
	}

	start := time.Now()
	verdict, err := classifier.Classify(ctx, item.Input.PrimaryText, item.Input.SecondaryText, item.Input.Category)
	rec.ExecutionTimeMs = time.Since(start).Milliseconds()
	if err != nil {
		rec.Err = err.Error()
		return rec
	}

	rec.ActualValid = verdict.IsValid
	rec.Violations = verdict.Violations
	rec.EncouragedAspects = verdict.EncouragedAspects
	rec.Confidence = verdict.Confidence
	rec.Reasoning = verdict.Reasoning
	rec.PredictedCategory = verdict.PredictedCategory
	if verdict.TraceID != "" {
		rec.TraceID = verdict.TraceID
	}
	return rec
}
