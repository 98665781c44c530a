package tools

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/repolens/repolens/internal/github"
)

// ContributorsReport is the structured payload of get_repository_contributors.
type ContributorsReport struct {
	Repository        string               `json:"repository"`
	TotalContributors int                  `json:"total_contributors"`
	TopContributors   []github.Contributor `json:"top_contributors"`
}

func newContributorsTool(deps Deps) Tool {
	return Tool{
		Name: "get_repository_contributors",
		Description: "Lists the top contributors of a repository with their contribution counts " +
			"and account type.",
		InputSchema: ownerRepoSchema(map[string]any{
			"top_n": map[string]any{
				"type":        "integer",
				"description": "How many top contributors to return",
				"default":     10,
				"minimum":     1,
				"maximum":     100,
			},
		}),
		Handler: func(ctx context.Context, args map[string]any) (*Result, error) {
			owner, repo, err := ownerRepoArgs(args)
			if err != nil {
				return nil, err
			}
			topN, err := intArg(args, "top_n", 10, 1, 100)
			if err != nil {
				return nil, err
			}

			sink := deps.sink()
			full := owner + "/" + repo
			sink.Info(fmt.Sprintf("collecting top %d contributors for %s", topN, full))

			query := url.Values{}
			query.Set("per_page", strconv.Itoa(topN))
			query.Set("anon", "false")

			var contributors []github.Contributor
			if _, err := deps.GitHub.GetJSON(ctx, fmt.Sprintf("/repos/%s/%s/contributors", owner, repo), query, sink, &contributors); err != nil {
				return nil, err
			}
			if len(contributors) > topN {
				contributors = contributors[:topN]
			}

			report := &ContributorsReport{
				Repository:        full,
				TotalContributors: len(contributors),
				TopContributors:   contributors,
			}

			var b strings.Builder
			fmt.Fprintf(&b, "Top contributors for %s\n\n", full)
			if len(contributors) == 0 {
				b.WriteString("No contributors found\n")
			}
			for i, c := range contributors {
				fmt.Fprintf(&b, "%d. %s: %d contributions (%s)\n", i+1, c.Login, c.Contributions, c.Type)
			}

			return &Result{
				Text:       b.String(),
				Structured: report,
				Meta:       meta(owner, repo, "get_repository_contributors", map[string]any{"top_n": topN}),
			}, nil
		},
	}
}
