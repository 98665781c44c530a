package tools

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/repolens/repolens/internal/github"
)

// TimelineReport is the structured payload of get_activity_timeline.
type TimelineReport struct {
	Repository   string         `json:"repository"`
	PeriodDays   int            `json:"period_days"`
	TotalEvents  int            `json:"total_events"`
	ActiveDays   int            `json:"active_days"`
	EventsByType map[string]int `json:"events_by_type"`
	EventsByDay  map[string]int `json:"events_by_day"`
}

func newActivityTimelineTool(deps Deps) Tool {
	return Tool{
		Name: "get_activity_timeline",
		Description: "Builds an activity timeline from recent repository events, grouped by " +
			"event type and by day. Event history is limited to what the events API exposes " +
			"(at most 100 recent events).",
		InputSchema: ownerRepoSchema(map[string]any{
			"days": map[string]any{
				"type":        "integer",
				"description": "Day window to analyze, counted back from now",
				"default":     30,
				"minimum":     1,
				"maximum":     365,
			},
		}),
		Handler: func(ctx context.Context, args map[string]any) (*Result, error) {
			owner, repo, err := ownerRepoArgs(args)
			if err != nil {
				return nil, err
			}
			days, err := intArg(args, "days", 30, 1, 365)
			if err != nil {
				return nil, err
			}

			sink := deps.sink()
			full := owner + "/" + repo
			sink.Info(fmt.Sprintf("collecting activity timeline for %s", full))

			query := url.Values{}
			query.Set("per_page", "100")

			var events []github.Event
			if _, err := deps.GitHub.GetJSON(ctx, fmt.Sprintf("/repos/%s/%s/events", owner, repo), query, sink, &events); err != nil {
				// A repository without an event feed is simply quiet.
				if github.IsNotFound(err) {
					events = nil
				} else {
					return nil, err
				}
			}

			cutoff := time.Now().AddDate(0, 0, -days)
			byType := make(map[string]int)
			byDay := make(map[string]int)
			total := 0
			for _, ev := range events {
				t, ok := github.ParseTime(ev.CreatedAt)
				if !ok || t.Before(cutoff) {
					continue
				}
				total++
				byType[ev.Type]++
				byDay[t.Format("2006-01-02")]++
			}

			report := &TimelineReport{
				Repository:   full,
				PeriodDays:   days,
				TotalEvents:  total,
				ActiveDays:   len(byDay),
				EventsByType: byType,
				EventsByDay:  byDay,
			}

			var b strings.Builder
			fmt.Fprintf(&b, "Activity timeline for %s (last %d days)\n\n", full, days)
			fmt.Fprintf(&b, "Total events: %d\n", total)
			fmt.Fprintf(&b, "Days with activity: %d\n", len(byDay))
			if len(byType) > 0 {
				b.WriteString("\nBy event type:\n")
				for _, name := range sortedKeys(byType) {
					fmt.Fprintf(&b, "  %s: %d\n", name, byType[name])
				}
			}
			if len(byDay) > 0 {
				b.WriteString("\nBusiest days:\n")
				for _, entry := range busiestDays(byDay, 10) {
					fmt.Fprintf(&b, "  %s: %d events\n", entry.day, entry.count)
				}
			} else {
				b.WriteString("\nNo activity found in the requested window\n")
			}

			return &Result{
				Text:       b.String(),
				Structured: report,
				Meta:       meta(owner, repo, "get_activity_timeline", map[string]any{"days": days}),
			}, nil
		},
	}
}

type dayCount struct {
	day   string
	count int
}

func busiestDays(byDay map[string]int, limit int) []dayCount {
	entries := make([]dayCount, 0, len(byDay))
	for day, count := range byDay {
		entries = append(entries, dayCount{day, count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].day > entries[j].day
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}
