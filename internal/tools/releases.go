package tools

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/repolens/repolens/internal/github"
)

// ReleaseInfo is the trimmed release shape returned in structured content.
type ReleaseInfo struct {
	TagName     string `json:"tag_name"`
	Name        string `json:"name"`
	PublishedAt string `json:"published_at"`
	Prerelease  bool   `json:"prerelease"`
	Draft       bool   `json:"draft"`
}

// ReleasesReport is the structured payload of get_releases_summary.
type ReleasesReport struct {
	Repository          string        `json:"repository"`
	TotalReleases       int           `json:"total_releases"`
	LatestRelease       *ReleaseInfo  `json:"latest_release"`
	DaysSinceLatest     *int          `json:"days_since_latest"`
	PrereleaseCount     int           `json:"prerelease_count"`
	DraftCount          int           `json:"draft_count"`
	Releases            []ReleaseInfo `json:"releases"`
}

func newReleasesSummaryTool(deps Deps) Tool {
	return Tool{
		Name: "get_releases_summary",
		Description: "Summarizes the recent releases of a repository: the latest release, how " +
			"long ago it was published, and draft/prerelease counts.",
		InputSchema: ownerRepoSchema(map[string]any{
			"limit": map[string]any{
				"type":        "integer",
				"description": "How many recent releases to include",
				"default":     10,
				"minimum":     1,
				"maximum":     50,
			},
		}),
		Handler: func(ctx context.Context, args map[string]any) (*Result, error) {
			owner, repo, err := ownerRepoArgs(args)
			if err != nil {
				return nil, err
			}
			limit, err := intArg(args, "limit", 10, 1, 50)
			if err != nil {
				return nil, err
			}

			sink := deps.sink()
			full := owner + "/" + repo
			sink.Info(fmt.Sprintf("collecting releases for %s", full))

			query := url.Values{}
			query.Set("per_page", strconv.Itoa(limit))

			var releases []github.Release
			if _, err := deps.GitHub.GetJSON(ctx, fmt.Sprintf("/repos/%s/%s/releases", owner, repo), query, sink, &releases); err != nil {
				return nil, err
			}
			if len(releases) > limit {
				releases = releases[:limit]
			}

			report := &ReleasesReport{
				Repository:    full,
				TotalReleases: len(releases),
				Releases:      make([]ReleaseInfo, 0, len(releases)),
			}
			for _, r := range releases {
				info := ReleaseInfo{
					TagName:     r.TagName,
					Name:        releaseName(r),
					PublishedAt: r.PublishedAt,
					Prerelease:  r.Prerelease,
					Draft:       r.Draft,
				}
				report.Releases = append(report.Releases, info)
				if r.Prerelease {
					report.PrereleaseCount++
				}
				if r.Draft {
					report.DraftCount++
				}
			}
			if len(report.Releases) > 0 {
				latest := report.Releases[0]
				report.LatestRelease = &latest
				if t, ok := github.ParseTime(latest.PublishedAt); ok {
					days := github.DaysSince(t)
					report.DaysSinceLatest = &days
				}
			}

			var b strings.Builder
			fmt.Fprintf(&b, "Releases summary for %s\n\n", full)
			fmt.Fprintf(&b, "Releases shown: %d (prereleases %d, drafts %d)\n", report.TotalReleases, report.PrereleaseCount, report.DraftCount)
			if report.LatestRelease != nil {
				fmt.Fprintf(&b, "Latest release: %s (%s)\n", report.LatestRelease.Name, report.LatestRelease.TagName)
				if report.DaysSinceLatest != nil {
					fmt.Fprintf(&b, "Published %d days ago\n", *report.DaysSinceLatest)
				}
			} else {
				b.WriteString("No releases found\n")
			}
			if len(report.Releases) > 0 {
				b.WriteString("\nRecent releases:\n")
				for i, r := range report.Releases {
					suffix := ""
					if r.Prerelease {
						suffix += " (pre-release)"
					}
					if r.Draft {
						suffix += " (draft)"
					}
					fmt.Fprintf(&b, "  %d. %s (%s)%s\n", i+1, r.Name, r.TagName, suffix)
				}
			}

			return &Result{
				Text:       b.String(),
				Structured: report,
				Meta:       meta(owner, repo, "get_releases_summary", map[string]any{"limit": limit}),
			}, nil
		},
	}
}

func releaseName(r github.Release) string {
	if r.Name != "" {
		return r.Name
	}
	return r.TagName
}
