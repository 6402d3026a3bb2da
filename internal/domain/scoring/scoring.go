// Package scoring computes a weighted contribution score from an activity
// record. The calculator is a pure function: no I/O, no hidden state, same
// input always yields the same breakdown.
package scoring

import (
	"github.com/okian/gitrank/internal/domain/model"
)

// Default scoring weights. These match the product's published formula and
// can be overridden from configuration.
const (
	defaultPRsOpenedWeight        = 2.0
	defaultPRsMergedWeight        = 5.0
	defaultIssuesCreatedWeight    = 1.0
	defaultIssuesClosedWeight     = 3.0
	defaultReposContributedWeight = 2.0
	defaultStarsGivenWeight       = 0.5
	defaultCommitsWeight          = 0.1
)

// Weight map keys accepted by WithWeightsFromConfig.
const (
	KeyPRsOpened        = "prs_opened"
	KeyPRsMerged        = "prs_merged"
	KeyIssuesCreated    = "issues_created"
	KeyIssuesClosed     = "issues_closed"
	KeyReposContributed = "repos_contributed"
	KeyStarsGiven       = "stars_given"
	KeyCommits          = "commits"
)

// Option applies a configuration option to the Calculator.
type Option func(*Calculator)

// WithWeightsFromConfig overrides individual weights from a configuration
// map. Unknown keys are ignored; negative weights are rejected.
func WithWeightsFromConfig(weights map[string]float64) Option {
	return func(c *Calculator) {
		for key, w := range weights {
			if w < 0 {
				continue
			}
			switch key {
			case KeyPRsOpened:
				c.prsOpened = w
			case KeyPRsMerged:
				c.prsMerged = w
			case KeyIssuesCreated:
				c.issuesCreated = w
			case KeyIssuesClosed:
				c.issuesClosed = w
			case KeyReposContributed:
				c.reposContributed = w
			case KeyStarsGiven:
				c.starsGiven = w
			case KeyCommits:
				c.commits = w
			}
		}
	}
}

// Calculator applies a weighted linear formula over activity counts.
type Calculator struct {
	prsOpened        float64
	prsMerged        float64
	issuesCreated    float64
	issuesClosed     float64
	reposContributed float64
	starsGiven       float64
	commits          float64
}

// NewCalculator creates a calculator with configuration options.
func NewCalculator(opts ...Option) *Calculator {
	c := &Calculator{
		prsOpened:        defaultPRsOpenedWeight,
		prsMerged:        defaultPRsMergedWeight,
		issuesCreated:    defaultIssuesCreatedWeight,
		issuesClosed:     defaultIssuesClosedWeight,
		reposContributed: defaultReposContributedWeight,
		starsGiven:       defaultStarsGivenWeight,
		commits:          defaultCommitsWeight,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Score computes the weighted breakdown for a record. Negative input counts
// are clamped to zero first, so the total can never go negative.
func (c *Calculator) Score(rec model.ActivityRecord) model.ScoreBreakdown {
	rec = rec.Clamped()

	b := model.ScoreBreakdown{
		PRsOpened:        float64(rec.PRsOpened) * c.prsOpened,
		PRsMerged:        float64(rec.PRsMerged) * c.prsMerged,
		IssuesCreated:    float64(rec.IssuesCreated) * c.issuesCreated,
		IssuesClosed:     float64(rec.IssuesClosed) * c.issuesClosed,
		ReposContributed: float64(rec.ReposContributed) * c.reposContributed,
		StarsGiven:       float64(rec.StarsGiven) * c.starsGiven,
		Commits:          float64(rec.Commits) * c.commits,
	}
	b.Total = b.PRsOpened + b.PRsMerged + b.IssuesCreated + b.IssuesClosed +
		b.ReposContributed + b.StarsGiven + b.Commits
	return b
}
