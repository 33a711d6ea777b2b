package recommend

import "sort"

// Scores maps book ID to merged relevance in [0, 1].
type Scores map[string]float64

// Apply folds sig into s: every book keeps max(current, raw×weight).
// Zero and negative contributions never create an entry.
func (s Scores) Apply(sig Signal) {
	for id, raw := range sig.Raw {
		v := raw * sig.Weight
		if v <= 0 {
			continue
		}
		if cur, ok := s[id]; !ok || v > cur {
			s[id] = v
		}
	}
}

// Merge applies signals in order to an empty score map.
func Merge(signals []Signal) Scores {
	out := Scores{}
	for _, sig := range signals {
		out.Apply(sig)
	}
	return out
}

// ScoreCandidates computes and merges every signal for s.
func ScoreCandidates(s Snapshot) Scores {
	return Merge(Signals(s))
}

// Scored is a ranked book.
type Scored struct {
	ID    string
	Score float64
}

// Top returns the k highest scores, ties broken by ID ascending, skipping
// excluded books. k <= 0 returns everything.
func (s Scores) Top(k int, exclude Set) []Scored {
	out := make([]Scored, 0, len(s))
	for id, v := range s {
		if exclude.Has(id) {
			continue
		}
		out = append(out, Scored{ID: id, Score: v})
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Score != out[b].Score {
			return out[a].Score > out[b].Score
		}
		return out[a].ID < out[b].ID
	})
	if k > 0 && k < len(out) {
		out = out[:k]
	}
	return out
}
