package main

import (
	"fmt"
	"log"
	"strings"

	"github.com/slack-go/slack"

	"charterbench/internal/scorer"
)

// FormatExperimentSummary renders an experiment result as the Slack/stdout
// summary block.
func FormatExperimentSummary(date string, res scorer.ExperimentResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Charter experiment %s: %d records (%d labeled, %d errored)\n",
		date, res.Total, res.Labeled, res.Errored)
	fmt.Fprintf(&b, "- Confusion: TP=%d TN=%d FP=%d FN=%d\n",
		res.TruePositives, res.TrueNegatives, res.FalsePositives, res.FalseNegatives)
	fmt.Fprintf(&b, "- Accuracy: %s\n", formatMetric(res.CharterAccuracy))
	fmt.Fprintf(&b, "- Violation detection: %s\n", formatMetric(res.ViolationDetection))
	fmt.Fprintf(&b, "- Calibration: %s\n", formatMetric(res.ConfidenceCalibration))
	fmt.Fprintf(&b, "- Precision: %s / Recall: %s / F1: %s",
		formatMetric(res.Precision), formatMetric(res.Recall), formatMetric(res.F1))
	return b.String()
}

// formatMetric prints an optional metric; an undefined one (zero
// denominator) shows as n/a, never as 0.
func formatMetric(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.3f", *v)
}

// PostExperimentSummary posts the summary to the configured Slack channel.
// Posting is best-effort: failures are logged, not returned, so a Slack
// outage never fails a scheduled experiment.
func PostExperimentSummary(cfg Config, api *slack.Client, date string, res scorer.ExperimentResult) {
	if api == nil || cfg.SlackChannelID == "" {
		return
	}
	summary := FormatExperimentSummary(date, res)
	if _, _, err := api.PostMessage(cfg.SlackChannelID, slack.MsgOptionText(summary, false)); err != nil {
		log.Printf("experiment summary post error: %v", err)
	}
}
