// Package recommend blends behavioral signals into per-book relevance scores.
//
// Each signal yields a raw score per book. Signals are merged by keeping, for
// every book, the largest raw×weight contribution seen so far. Scores are
// never summed, so they stay within [0, 1] and many weak signals cannot
// outrank one strong signal.
//
// The package is pure: it works on a Snapshot the caller loads, performs no
// I/O and does not log.
package recommend

// Signal names, in merge order.
const (
	SignalPurchased  = "purchased"
	SignalAlsoBought = "also_bought"
	SignalCart       = "cart"
	SignalRated      = "rated"
	SignalFavorite   = "favorite"
	SignalCategory   = "category"
	SignalAuthor     = "author"
)

// Weights and flat raw scores.
const (
	WeightPurchased  = 1.0
	WeightAlsoBought = 0.7
	WeightCart       = 0.5
	WeightRated      = 0.6
	WeightFavorite   = 0.4
	WeightCategory   = 0.3
	WeightAuthor     = 0.25

	RawCategory = 0.3
	RawAuthor   = 0.25

	// Rated raw score is RatedBase + (rating-MinRating)*RatedStep.
	MinRating = 4
	RatedBase = 0.4
	RatedStep = 0.1
)

// BookMeta is the part of a catalog item the affinity signals read.
type BookMeta struct {
	ID         string
	AuthorID   string
	CategoryID string
}

// Set is a set of book IDs.
type Set map[string]struct{}

// NewSet builds a Set from ids.
func NewSet(ids ...string) Set {
	s := make(Set, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Has reports membership.
func (s Set) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Snapshot is the behavioral data for one user plus what is needed from
// everyone else.
type Snapshot struct {
	// Purchased are books in the user's non-cancelled orders.
	Purchased Set
	// OthersPurchased maps every other user to their purchased books.
	OthersPurchased map[string]Set
	// Cart are books in the user's cart.
	Cart []string
	// Ratings maps book ID to the user's 1..5 rating.
	Ratings map[string]int
	// Favorites are books the user favorited.
	Favorites []string
	// Catalog lists every book with its author and category.
	Catalog []BookMeta
}

// Signal is one weighted source of raw per-book scores.
type Signal struct {
	Name   string
	Weight float64
	Raw    map[string]float64
}

// Signals computes every signal for s in merge order.
func Signals(s Snapshot) []Signal {
	return []Signal{
		purchasedSignal(s),
		alsoBoughtSignal(s),
		cartSignal(s),
		ratedSignal(s),
		favoriteSignal(s),
		categorySignal(s),
		authorSignal(s),
	}
}

func purchasedSignal(s Snapshot) Signal {
	raw := make(map[string]float64, len(s.Purchased))
	for id := range s.Purchased {
		raw[id] = 1.0
	}
	return Signal{Name: SignalPurchased, Weight: WeightPurchased, Raw: raw}
}

// alsoBoughtSignal scores a book the user has not bought by the highest
// Jaccard similarity among other users who bought it.
func alsoBoughtSignal(s Snapshot) Signal {
	raw := map[string]float64{}
	if len(s.Purchased) > 0 {
		for _, other := range s.OthersPurchased {
			sim := Jaccard(s.Purchased, other)
			if sim <= 0 {
				continue
			}
			for id := range other {
				if s.Purchased.Has(id) {
					continue
				}
				if sim > raw[id] {
					raw[id] = sim
				}
			}
		}
	}
	return Signal{Name: SignalAlsoBought, Weight: WeightAlsoBought, Raw: raw}
}

func cartSignal(s Snapshot) Signal {
	raw := map[string]float64{}
	for _, id := range s.Cart {
		if !s.Purchased.Has(id) {
			raw[id] = 1.0
		}
	}
	return Signal{Name: SignalCart, Weight: WeightCart, Raw: raw}
}

func ratedSignal(s Snapshot) Signal {
	raw := map[string]float64{}
	for id, r := range s.Ratings {
		if r >= MinRating {
			raw[id] = RatedBase + float64(r-MinRating)*RatedStep
		}
	}
	return Signal{Name: SignalRated, Weight: WeightRated, Raw: raw}
}

func favoriteSignal(s Snapshot) Signal {
	raw := map[string]float64{}
	for _, id := range s.Favorites {
		if !s.Purchased.Has(id) {
			raw[id] = 1.0
		}
	}
	return Signal{Name: SignalFavorite, Weight: WeightFavorite, Raw: raw}
}

func categorySignal(s Snapshot) Signal {
	return affinitySignal(s, SignalCategory, WeightCategory, RawCategory, func(b BookMeta) string { return b.CategoryID })
}

func authorSignal(s Snapshot) Signal {
	return affinitySignal(s, SignalAuthor, WeightAuthor, RawAuthor, func(b BookMeta) string { return b.AuthorID })
}

// affinitySignal gives a flat raw score to unpurchased books sharing a key
// (author, category) with any purchased book.
func affinitySignal(s Snapshot, name string, weight, score float64, key func(BookMeta) string) Signal {
	raw := map[string]float64{}
	if len(s.Purchased) == 0 {
		return Signal{Name: name, Weight: weight, Raw: raw}
	}
	keys := map[string]struct{}{}
	for _, b := range s.Catalog {
		if k := key(b); k != "" && s.Purchased.Has(b.ID) {
			keys[k] = struct{}{}
		}
	}
	for _, b := range s.Catalog {
		if s.Purchased.Has(b.ID) {
			continue
		}
		if _, ok := keys[key(b)]; ok {
			raw[b.ID] = score
		}
	}
	return Signal{Name: name, Weight: weight, Raw: raw}
}

// Jaccard returns |a ∩ b| / |a ∪ b|, 0 when both are empty.
func Jaccard(a, b Set) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}
	inter := 0
	for id := range small {
		if large.Has(id) {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}
