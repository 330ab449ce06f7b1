package main

import (
	"log"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/slack-go/slack"

	"charterbench/internal/harness"
	"charterbench/internal/store"
)

// StartExperimentScheduler runs the daily experiment on a cron schedule and
// posts the summary to Slack. The schedule is a standard 5-field cron
// expression (minute hour day-of-month month day-of-week).
// Examples: "0 7 * * *" (daily 7am), "0 7 * * 1-5" (weekdays 7am).
func StartExperimentScheduler(cfg Config, st *store.Store, api *slack.Client) {
	schedule := strings.TrimSpace(cfg.ExperimentSchedule)
	if schedule == "" {
		log.Println("Experiment scheduler disabled (experiment_schedule not set)")
		return
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := parser.Parse(schedule)
	if err != nil {
		log.Printf("Invalid experiment_schedule '%s': %v, scheduler disabled", schedule, err)
		return
	}
	log.Printf("Daily experiment scheduled (cron: %s)", schedule)

	go func() {
		for {
			now := time.Now().In(cfg.Location)
			next := sched.Next(now)
			wait := next.Sub(now)
			log.Printf("Next experiment at %s (in %s)", next.Format("Mon Jan 2 15:04"), wait.Round(time.Minute))

			time.Sleep(wait)

			date := time.Now().In(cfg.Location).Format("2006-01-02")
			res, err := harness.RunDailyExperiment(st, date)
			if err != nil {
				log.Printf("Daily experiment error: %v", err)
				continue
			}
			log.Printf("Daily experiment complete: %s", FormatExperimentSummary(date, res))
			PostExperimentSummary(cfg, api, date, res)
		}
	}()
}
