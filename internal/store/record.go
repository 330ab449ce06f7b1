// Package store persists evaluation records in SQLite, keyed by (date, id),
// and exports filtered subsets in the dataset-item shape consumed by the
// splitter and the experiment scorer.
package store

import "time"

// EvaluationRecord is the immutable result of running the classifier on one
// mock item. Created once right after classification, then only read.
type EvaluationRecord struct {
	ID   string
	Date string // ISO date (2006-01-02), the storage partition key

	// Input fields, denormalized so a record is self-sufficient for export.
	Title         string
	Body          string
	Category      string
	PrimaryText   string
	SecondaryText string

	// Classifier verdict.
	ActualValid       bool
	Violations        []string
	EncouragedAspects []string
	Confidence        float64
	Reasoning         string
	PredictedCategory string

	// Generation metadata carried over from the mock item.
	Source             string
	ExpectedValid      *bool // nil = no ground truth
	ParentID           string
	DistanceFromParent *int
	SimilarityToParent *float64
	ViolationsInjected []string

	// Execution metadata.
	Provider        string
	Model           string
	ExecutionTimeMs int64
	TraceID         string

	// Err is set when the classifier failed on this item. Errored records
	// are kept for debugging but excluded from exports and metrics.
	Err string

	CreatedAt time.Time
}

// MatchesExpected reports whether the verdict agrees with the ground truth;
// nil when there is no ground truth to compare against.
func (r EvaluationRecord) MatchesExpected() *bool {
	if r.ExpectedValid == nil {
		return nil
	}
	m := r.ActualValid == *r.ExpectedValid
	return &m
}

// DatasetItem is the export shape: what the classifier consumes, what was
// actually true, and enough metadata to trace the item back. Field names are
// a stable contract; downstream tooling keys off them.
type DatasetItem struct {
	Input          DatasetInput    `json:"input"`
	ExpectedOutput DatasetExpected `json:"expected_output"`
	Metadata       DatasetMetadata `json:"metadata"`
}

type DatasetInput struct {
	Title         string `json:"title"`
	Body          string `json:"body"`
	Category      string `json:"category,omitempty"`
	PrimaryText   string `json:"primary_text"`
	SecondaryText string `json:"secondary_text"`
}

// DatasetExpected carries GROUND TRUTH, not the classifier's verdict:
// IsValid is the record's ExpectedValid and Violations are the injected
// tags. Conflating this with what the classifier said would make every
// experiment score itself perfect.
type DatasetExpected struct {
	IsValid    *bool    `json:"is_valid"`
	Violations []string `json:"violations"`
	Category   string   `json:"category,omitempty"`
}

type DatasetMetadata struct {
	ID                 string   `json:"id"`
	Date               string   `json:"date"`
	Source             string   `json:"source"`
	ParentID           string   `json:"parent_id,omitempty"`
	DistanceFromParent *int     `json:"distance_from_parent,omitempty"`
	SimilarityToParent *float64 `json:"similarity_to_parent,omitempty"`
	ViolationsInjected []string `json:"violations_injected"`
	Provider           string   `json:"provider,omitempty"`
	Model              string   `json:"model,omitempty"`
	TraceID            string   `json:"trace_id,omitempty"`
}

// ToDatasetItem converts a record into the export shape.
func (r EvaluationRecord) ToDatasetItem() DatasetItem {
	return DatasetItem{
		Input: DatasetInput{
			Title:         r.Title,
			Body:          r.Body,
			Category:      r.Category,
			PrimaryText:   r.PrimaryText,
			SecondaryText: r.SecondaryText,
		},
		ExpectedOutput: DatasetExpected{
			IsValid:    r.ExpectedValid,
			Violations: r.ViolationsInjected,
			Category:   r.Category,
		},
		Metadata: DatasetMetadata{
			ID:                 r.ID,
			Date:               r.Date,
			Source:             r.Source,
			ParentID:           r.ParentID,
			DistanceFromParent: r.DistanceFromParent,
			SimilarityToParent: r.SimilarityToParent,
			ViolationsInjected: r.ViolationsInjected,
			Provider:           r.Provider,
			Model:              r.Model,
			TraceID:            r.TraceID,
		},
	}
}
