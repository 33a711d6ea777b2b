package search

import (
	"sort"
)

// Candidate is an item with its embedding vector.
type Candidate struct {
	ID     string
	Vector []float32
}

// Result is a ranked item with its similarity score.
type Result struct {
	ID    string
	Score float64
}

// ----------------------------------------------------------------------------
// Options

type Option func(*config)

type config struct {
	exclude map[string]struct{}
}

// defaultK is the result count used when k <= 0.
const defaultK = 10

// WithExclude drops the given item IDs from the ranking.
func WithExclude(ids ...string) Option {
	return func(c *config) {
		if len(ids) == 0 {
			return
		}
		if c.exclude == nil {
			c.exclude = make(map[string]struct{}, len(ids))
		}
		for _, id := range ids {
			c.exclude[id] = struct{}{}
		}
	}
}

// ----------------------------------------------------------------------------
// Ranking

// Rank scores every candidate against query and returns the best k, ordered
// by score descending with ties broken by ID ascending. Candidates whose
// dimensionality differs from query score 0 but are still ranked.
func Rank(query []float32, cands []Candidate, k int, opts ...Option) []Result {
	var cfg config
	for _, o := range opts {
		o(&cfg)
	}
	if len(query) == 0 || len(cands) == 0 {
		return []Result{}
	}
	if k <= 0 {
		k = defaultK
	}

	buf := make([]Result, 0, len(cands))
	for _, c := range cands {
		if _, skip := cfg.exclude[c.ID]; skip {
			continue
		}
		buf = append(buf, Result{ID: c.ID, Score: CosineSimilarity(query, c.Vector)})
	}

	sort.SliceStable(buf, func(a, b int) bool {
		if buf[a].Score != buf[b].Score {
			return buf[a].Score > buf[b].Score
		}
		return buf[a].ID < buf[b].ID
	})

	if k > len(buf) {
		k = len(buf)
	}
	return buf[:k:k]
}
