package github

import "time"

// Payload shapes for the subset of the GitHub REST API the tools consume.
// Fields not read by any tool are left out on purpose.

type Repository struct {
	FullName        string `json:"full_name"`
	Description     string `json:"description"`
	Language        string `json:"language"`
	StargazersCount int    `json:"stargazers_count"`
	ForksCount      int    `json:"forks_count"`
	WatchersCount   int    `json:"watchers_count"`
	OpenIssuesCount int    `json:"open_issues_count"`
	Archived        bool   `json:"archived"`
	Disabled        bool   `json:"disabled"`
	DefaultBranch   string `json:"default_branch"`
	PushedAt        string `json:"pushed_at"`
	HTMLURL         string `json:"html_url"`
}

type Commit struct {
	SHA    string `json:"sha"`
	Commit struct {
		Author struct {
			Name  string `json:"name"`
			Email string `json:"email"`
			Date  string `json:"date"`
		} `json:"author"`
		Message string `json:"message"`
	} `json:"commit"`
	Author *struct {
		Login string `json:"login"`
	} `json:"author"`
}

type Label struct {
	Name string `json:"name"`
}

type Issue struct {
	Number    int     `json:"number"`
	Title     string  `json:"title"`
	State     string  `json:"state"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
	Labels    []Label `json:"labels"`
	// Present only when the "issue" is actually a pull request.
	PullRequest *struct{} `json:"pull_request,omitempty"`
}

type Contributor struct {
	Login         string `json:"login"`
	Contributions int    `json:"contributions"`
	AvatarURL     string `json:"avatar_url"`
	Type          string `json:"type"`
	SiteAdmin     bool   `json:"site_admin"`
}

type Release struct {
	TagName     string `json:"tag_name"`
	Name        string `json:"name"`
	Draft       bool   `json:"draft"`
	Prerelease  bool   `json:"prerelease"`
	PublishedAt string `json:"published_at"`
	CreatedAt   string `json:"created_at"`
}

type Event struct {
	Type  string `json:"type"`
	Actor struct {
		Login string `json:"login"`
	} `json:"actor"`
	CreatedAt string `json:"created_at"`
}

// SearchResult carries the only field the tools read from the search API.
type SearchResult struct {
	TotalCount int `json:"total_count"`
}

// ParseTime parses the ISO 8601 timestamps the GitHub API emits.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// DaysSince returns whole days between t and now, never negative.
func DaysSince(t time.Time) int {
	d := int(time.Since(t).Hours() / 24)
	if d < 0 {
		return 0
	}
	return d
}
