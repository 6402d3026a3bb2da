// Package badge evaluates achievement badges against lifetime activity
// counts. Badges are a fixed table of (name, threshold predicate) pairs;
// adding a badge means adding a table row, not a new type.
//
// Evaluation is monotonic: the result is always a superset of the previously
// earned set. Once a lifetime count crosses a threshold the badge stays
// earned even if a later fetch undercounts.
package badge

import (
	"sort"

	"github.com/okian/gitrank/internal/domain/model"
)

// Badge names.
const (
	PRMaster       = "PR Master"
	BugHunter      = "Bug Hunter"
	CodeWarrior    = "Code Warrior"
	StarGazer      = "Star Gazer"
	OpenSourceHero = "Open Source Hero"
)

// Threshold map keys accepted by WithThresholdsFromConfig.
const (
	KeyPRMaster       = "pr_master"
	KeyBugHunter      = "bug_hunter"
	KeyCodeWarrior    = "code_warrior"
	KeyStarGazer      = "star_gazer"
	KeyOpenSourceHero = "open_source_hero"
)

// Default thresholds over lifetime counts.
const (
	defaultPRMasterThreshold       = 50   // merged PRs
	defaultBugHunterThreshold      = 25   // closed issues
	defaultCodeWarriorThreshold    = 1000 // commits
	defaultStarGazerThreshold      = 100  // starred repos
	defaultOpenSourceHeroThreshold = 20   // contributed repos
)

// rule binds a badge name to the lifetime count it watches.
type rule struct {
	name      string
	threshold int64
	count     func(model.ActivityRecord) int64
}

// Option applies a configuration option to the Evaluator.
type Option func(*Evaluator)

// WithThresholdsFromConfig overrides badge thresholds from a configuration
// map. Unknown keys and non-positive thresholds are ignored.
func WithThresholdsFromConfig(thresholds map[string]int64) Option {
	return func(e *Evaluator) {
		for key, t := range thresholds {
			if t <= 0 {
				continue
			}
			if i, ok := e.index[key]; ok {
				e.rules[i].threshold = t
			}
		}
	}
}

// Evaluator holds the badge table.
type Evaluator struct {
	rules []rule
	index map[string]int // config key -> rules index
}

// NewEvaluator creates an evaluator with the default badge table and
// configuration options applied.
func NewEvaluator(opts ...Option) *Evaluator {
	e := &Evaluator{
		rules: []rule{
			{PRMaster, defaultPRMasterThreshold, func(r model.ActivityRecord) int64 { return r.PRsMerged }},
			{BugHunter, defaultBugHunterThreshold, func(r model.ActivityRecord) int64 { return r.IssuesClosed }},
			{CodeWarrior, defaultCodeWarriorThreshold, func(r model.ActivityRecord) int64 { return r.Commits }},
			{StarGazer, defaultStarGazerThreshold, func(r model.ActivityRecord) int64 { return r.StarsGiven }},
			{OpenSourceHero, defaultOpenSourceHeroThreshold, func(r model.ActivityRecord) int64 { return r.ReposContributed }},
		},
		index: map[string]int{
			KeyPRMaster:       0,
			KeyBugHunter:      1,
			KeyCodeWarrior:    2,
			KeyStarGazer:      3,
			KeyOpenSourceHero: 4,
		},
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Evaluate returns the union of earned with every badge whose threshold the
// lifetime counts now satisfy. The input slice is never mutated; the result
// is sorted for stable persistence and comparison.
func (e *Evaluator) Evaluate(lifetime model.ActivityRecord, earned []string) []string {
	set := make(map[string]struct{}, len(earned)+len(e.rules))
	for _, name := range earned {
		set[name] = struct{}{}
	}
	for _, r := range e.rules {
		if r.count(lifetime) >= r.threshold {
			set[r.name] = struct{}{}
		}
	}

	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
