package recommend

import (
	"math"
	"testing"
)

const tol = 1e-9

func near(a, b float64) bool { return math.Abs(a-b) < tol }

func fixture() Snapshot {
	return Snapshot{
		Purchased: NewSet("A", "B"),
		OthersPurchased: map[string]Set{
			"u2": NewSet("A", "C"),
			"u3": NewSet("E"),
		},
		Cart:      []string{"B", "E"},
		Ratings:   map[string]int{"F": 5, "E": 3, "A": 4},
		Favorites: []string{"F", "A"},
		Catalog: []BookMeta{
			{ID: "A", AuthorID: "a1", CategoryID: "c1"},
			{ID: "B", AuthorID: "a2", CategoryID: "c2"},
			{ID: "C", AuthorID: "a1", CategoryID: "c3"},
			{ID: "D", AuthorID: "a3", CategoryID: "c1"},
			{ID: "E", AuthorID: "a9", CategoryID: "c9"},
			{ID: "F", AuthorID: "a9", CategoryID: "c9"},
		},
	}
}

func TestScoreCandidates_Fixture(t *testing.T) {
	got := ScoreCandidates(fixture())
	want := map[string]float64{
		"A": 1.0,
		"B": 1.0,
		"C": 0.7 / 3,   // also-bought dominates author (0.0625)
		"D": 0.3 * 0.3, // category only
		"E": 0.5,       // cart
		"F": 0.4,       // favorite beats rating 5 (0.5*0.6)
	}
	if len(got) != len(want) {
		t.Fatalf("scores = %v", got)
	}
	for id, w := range want {
		if !near(got[id], w) {
			t.Fatalf("%s = %v; want %v", id, got[id], w)
		}
	}
}

func TestSignals_Order(t *testing.T) {
	names := []string{SignalPurchased, SignalAlsoBought, SignalCart, SignalRated, SignalFavorite, SignalCategory, SignalAuthor}
	sigs := Signals(fixture())
	if len(sigs) != len(names) {
		t.Fatalf("signals = %d", len(sigs))
	}
	for i, n := range names {
		if sigs[i].Name != n {
			t.Fatalf("signal %d = %s; want %s", i, sigs[i].Name, n)
		}
	}
}

func TestMerge_IntermediateStates(t *testing.T) {
	sigs := Signals(fixture())
	s := Scores{}
	s.Apply(sigs[0])
	if len(s) != 2 || s["A"] != 1 || s["B"] != 1 {
		t.Fatalf("after purchased: %v", s)
	}
	s.Apply(sigs[1])
	if len(s) != 3 || !near(s["C"], 0.7/3) {
		t.Fatalf("after also-bought: %v", s)
	}
	s.Apply(sigs[2])
	if !near(s["E"], 0.5) || s["B"] != 1 {
		t.Fatalf("after cart: %v", s)
	}
	s.Apply(sigs[3])
	if !near(s["F"], 0.3) || s["A"] != 1 {
		t.Fatalf("after rated: %v", s)
	}
}

func TestMerge_MaxNotSum(t *testing.T) {
	weak := Signal{Weight: 0.5, Raw: map[string]float64{"x": 0.4}}
	got := Merge([]Signal{weak, weak, weak, weak})
	if !near(got["x"], 0.2) {
		t.Fatalf("x = %v; repeated signals must not accumulate", got["x"])
	}
	strong := Signal{Weight: 1, Raw: map[string]float64{"y": 0.9}}
	got = Merge([]Signal{weak, strong})
	if got["y"] <= got["x"] {
		t.Fatalf("strong signal must outrank weak: %v", got)
	}
}

func TestMerge_OrderIndependentResult(t *testing.T) {
	sigs := Signals(fixture())
	rev := make([]Signal, len(sigs))
	for i := range sigs {
		rev[len(sigs)-1-i] = sigs[i]
	}
	a, b := Merge(sigs), Merge(rev)
	for id, v := range a {
		if !near(b[id], v) {
			t.Fatalf("%s differs: %v vs %v", id, v, b[id])
		}
	}
}

func TestScoreCandidates_EmptyUser(t *testing.T) {
	s := Snapshot{
		OthersPurchased: map[string]Set{"u2": NewSet("A")},
		Catalog:         []BookMeta{{ID: "A", AuthorID: "a", CategoryID: "c"}},
	}
	if got := ScoreCandidates(s); len(got) != 0 {
		t.Fatalf("empty history should give no scores, got %v", got)
	}
}

func TestAlsoBought_NoOverlapNoContribution(t *testing.T) {
	s := Snapshot{
		Purchased: NewSet("A"),
		OthersPurchased: map[string]Set{
			"u2": NewSet("B"),
			"u3": NewSet("C", "D"),
		},
	}
	sig := alsoBoughtSignal(s)
	if len(sig.Raw) != 0 {
		t.Fatalf("also-bought = %v; want none", sig.Raw)
	}
}

func TestAlsoBought_MaxAcrossUsers(t *testing.T) {
	s := Snapshot{
		Purchased: NewSet("A", "B"),
		OthersPurchased: map[string]Set{
			"close": NewSet("A", "B", "X"), // 2/3
			"far":   NewSet("A", "X", "Y"), // 1/4
		},
	}
	raw := alsoBoughtSignal(s).Raw
	if !near(raw["X"], 2.0/3) || !near(raw["Y"], 0.25) {
		t.Fatalf("raw = %v", raw)
	}
	if _, ok := raw["A"]; ok {
		t.Fatalf("purchased book must not be an also-bought candidate")
	}
}

func TestRatedSignal_Constants(t *testing.T) {
	raw := ratedSignal(Snapshot{Ratings: map[string]int{"a": 5, "b": 4, "c": 3, "d": 1}}).Raw
	if !near(raw["a"], 0.5) || !near(raw["b"], 0.4) || len(raw) != 2 {
		t.Fatalf("raw = %v", raw)
	}
}

func TestJaccard(t *testing.T) {
	cases := []struct {
		a, b Set
		want float64
	}{
		{NewSet(), NewSet(), 0},
		{NewSet("a"), NewSet(), 0},
		{NewSet("a", "b"), NewSet("a", "b"), 1},
		{NewSet("a", "b"), NewSet("b", "c"), 1.0 / 3},
	}
	for _, c := range cases {
		if got := Jaccard(c.a, c.b); !near(got, c.want) {
			t.Fatalf("Jaccard(%v,%v) = %v; want %v", c.a, c.b, got, c.want)
		}
	}
}

func TestScores_Top(t *testing.T) {
	s := ScoreCandidates(fixture())
	got := s.Top(3, NewSet("A", "B"))
	want := []string{"E", "F", "C"}
	if len(got) != 3 {
		t.Fatalf("top = %v", got)
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Fatalf("pos %d = %s; want %s", i, got[i].ID, id)
		}
	}

	tied := Scores{"b": 0.5, "a": 0.5}
	if top := tied.Top(0, nil); top[0].ID != "a" || len(top) != 2 {
		t.Fatalf("tie order = %v", top)
	}
}
