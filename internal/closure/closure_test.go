package closure

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"
)

func table(m map[string][]string) LookupFunc {
	return func(_ context.Context, title string) ([]string, error) {
		return m[title], nil
	}
}

func TestRun_CookedMeat(t *testing.T) {
	edges := table(nil)
	terminals := table(map[string][]string{"Raw beef": {"Cow"}})
	opts := Options{Implied: map[string][]string{"cooked meat": {"Raw beef", "Raw bear meat"}}}

	res := Run(context.Background(), "Cooked meat", 1, edges, terminals, opts)

	if got := res.Reached.Sorted(); !reflect.DeepEqual(got, []string{"Cooked meat", "Raw bear meat", "Raw beef"}) {
		t.Fatalf("unexpected reached: %#v", got)
	}
	if got := res.Terminals.Sorted(); !reflect.DeepEqual(got, []string{"Cow"}) {
		t.Fatalf("unexpected terminals: %#v", got)
	}
	if len(res.Failures) != 0 {
		t.Fatalf("unexpected failures: %#v", res.Failures)
	}
}

func TestRun_DepthZeroExpandsOnlyRoot(t *testing.T) {
	edges := table(map[string][]string{"A": {"B"}})
	terminals := table(map[string][]string{"A": {"TA"}, "B": {"TB"}})

	res := Run(context.Background(), "A", 0, edges, terminals, Options{})

	if got := res.Reached.Sorted(); !reflect.DeepEqual(got, []string{"A", "B"}) {
		t.Fatalf("unexpected reached: %#v", got)
	}
	if got := res.Terminals.Sorted(); !reflect.DeepEqual(got, []string{"TA"}) {
		t.Fatalf("B must not be expanded at depth 0, got %#v", got)
	}
}

func TestRun_NegativeDepth(t *testing.T) {
	var calls atomic.Int32
	lookup := func(context.Context, string) ([]string, error) {
		calls.Add(1)
		return []string{"X"}, nil
	}
	res := Run(context.Background(), "A", -1, lookup, lookup, Options{})
	if len(res.Reached) != 0 || len(res.Terminals) != 0 {
		t.Fatalf("expected empty result, got %#v", res)
	}
	if calls.Load() != 0 {
		t.Fatalf("expected no lookups, got %d", calls.Load())
	}
}

func TestRun_Cycles(t *testing.T) {
	var calls atomic.Int32
	graph := map[string][]string{"A": {"B"}, "B": {"C"}, "C": {"A", "B"}}
	edges := func(_ context.Context, title string) ([]string, error) {
		calls.Add(1)
		return graph[title], nil
	}

	res := Run(context.Background(), "A", 1000, edges, table(nil), Options{})

	if got := res.Reached.Sorted(); !reflect.DeepEqual(got, []string{"A", "B", "C"}) {
		t.Fatalf("unexpected reached: %#v", got)
	}
	if calls.Load() != 3 {
		t.Fatalf("each title expanded once, got %d edge lookups", calls.Load())
	}
}

func TestRun_Monotonic(t *testing.T) {
	graph := map[string][]string{
		"A": {"B", "C"},
		"B": {"D"},
		"C": {"E"},
		"D": {"F"},
		"E": {"A"},
	}
	supply := map[string][]string{"C": {"T1"}, "D": {"T2"}, "F": {"T3"}}

	var prev Result
	for depth := 0; depth <= 5; depth++ {
		res := Run(context.Background(), "A", depth, table(graph), table(supply), Options{})
		if depth > 0 {
			if !res.Reached.Contains(prev.Reached) {
				t.Fatalf("depth %d lost reached titles: %v -> %v", depth, prev.Reached.Sorted(), res.Reached.Sorted())
			}
			if !res.Terminals.Contains(prev.Terminals) {
				t.Fatalf("depth %d lost terminals: %v -> %v", depth, prev.Terminals.Sorted(), res.Terminals.Sorted())
			}
		}
		prev = res
	}
	if got := prev.Terminals.Sorted(); !reflect.DeepEqual(got, []string{"T1", "T2", "T3"}) {
		t.Fatalf("unexpected terminals at full depth: %#v", got)
	}
}

func TestRun_Failures(t *testing.T) {
	boom := errors.New("boom")
	edges := func(_ context.Context, title string) ([]string, error) {
		switch title {
		case "A":
			return []string{"B", "C"}, nil
		case "B":
			return nil, boom
		}
		return nil, nil
	}
	terminals := func(_ context.Context, title string) ([]string, error) {
		switch title {
		case "B":
			return []string{"TB"}, nil
		case "C":
			return nil, boom
		}
		return nil, nil
	}

	res := Run(context.Background(), "A", 3, edges, terminals, Options{})

	if got := res.Terminals.Sorted(); !reflect.DeepEqual(got, []string{"TB"}) {
		t.Fatalf("a failed edge lookup must keep the title's terminals, got %#v", got)
	}
	if len(res.Failures) != 2 {
		t.Fatalf("expected 2 failures, got %#v", res.Failures)
	}
	if res.Failures[0].Title != "B" || res.Failures[0].Op != OpEdges {
		t.Fatalf("unexpected first failure: %#v", res.Failures[0])
	}
	if res.Failures[1].Title != "C" || res.Failures[1].Op != OpTerminals {
		t.Fatalf("unexpected second failure: %#v", res.Failures[1])
	}
	if !errors.Is(res.Failures[0].Err, boom) {
		t.Fatalf("expected wrapped cause")
	}
	if got := res.FailedTitles(); !reflect.DeepEqual(got, []string{"B", "C"}) {
		t.Fatalf("unexpected failed titles: %#v", got)
	}
}

func TestRun_ImpliedIsCaseInsensitive(t *testing.T) {
	opts := Options{Implied: map[string][]string{"Cooked Chicken": {"Raw chicken"}}}
	res := Run(context.Background(), "cooked chicken", 1, table(nil), table(map[string][]string{"Raw chicken": {"Chicken"}}), opts)
	if got := res.Terminals.Sorted(); !reflect.DeepEqual(got, []string{"Chicken"}) {
		t.Fatalf("unexpected terminals: %#v", got)
	}
}

func TestRun_ParallelMatchesSequential(t *testing.T) {
	graph := map[string][]string{}
	supply := map[string][]string{}
	names := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	for i, n := range names {
		graph[n] = []string{names[(i+1)%len(names)], names[(i+3)%len(names)]}
		supply[n] = []string{"T" + n}
	}

	for depth := 0; depth < 5; depth++ {
		seq := Run(context.Background(), "a", depth, table(graph), table(supply), Options{})
		par := Run(context.Background(), "a", depth, table(graph), table(supply), Options{Workers: 4})
		if !reflect.DeepEqual(seq.Reached.Sorted(), par.Reached.Sorted()) {
			t.Fatalf("depth %d reached differs: %v vs %v", depth, seq.Reached.Sorted(), par.Reached.Sorted())
		}
		if !reflect.DeepEqual(seq.Terminals.Sorted(), par.Terminals.Sorted()) {
			t.Fatalf("depth %d terminals differ: %v vs %v", depth, seq.Terminals.Sorted(), par.Terminals.Sorted())
		}
	}
}

func TestRun_EmptyRoot(t *testing.T) {
	res := Run(context.Background(), "  ", 3, table(nil), table(nil), Options{})
	if len(res.Reached) != 0 {
		t.Fatalf("expected empty result")
	}
}

func TestRun_KeyMergesSpellings(t *testing.T) {
	var expansions atomic.Int32
	lower := func(m map[string][]string) LookupFunc {
		return func(_ context.Context, title string) ([]string, error) {
			if strings.ToLower(title) == "raw beef" {
				expansions.Add(1)
			}
			return m[strings.ToLower(title)], nil
		}
	}
	edges := lower(map[string][]string{"cooked meat": {"raw beef"}})
	terminals := func(_ context.Context, title string) ([]string, error) {
		if strings.ToLower(title) == "raw beef" {
			return []string{"Cow", "cow"}, nil
		}
		return nil, nil
	}
	opts := Options{
		Implied: map[string][]string{"cooked meat": {"Raw beef"}},
		Key:     strings.ToLower,
	}

	res := Run(context.Background(), "Cooked meat", 3, edges, terminals, opts)

	if got := res.Reached.Sorted(); !reflect.DeepEqual(got, []string{"Cooked meat", "raw beef"}) {
		t.Fatalf("expected one vertex per key, first spelling kept, got %#v", got)
	}
	if got := res.Terminals.Sorted(); !reflect.DeepEqual(got, []string{"Cow"}) {
		t.Fatalf("unexpected terminals: %#v", got)
	}
	if expansions.Load() != 1 {
		t.Fatalf("raw beef expanded %d times", expansions.Load())
	}
}

func TestRun_CancelledReportsFrontier(t *testing.T) {
	t.Run("before start", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		res := Run(ctx, "A", 3, table(nil), table(nil), Options{})
		if len(res.Failures) != 1 || res.Failures[0].Title != "A" || res.Failures[0].Op != OpCancelled {
			t.Fatalf("unexpected failures: %#v", res.Failures)
		}
		if !errors.Is(res.Failures[0].Err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", res.Failures[0].Err)
		}
	})

	t.Run("between rounds", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		edges := func(_ context.Context, title string) ([]string, error) {
			if title == "A" {
				cancel()
				return []string{"B", "C"}, nil
			}
			return nil, nil
		}
		res := Run(ctx, "A", 3, edges, table(nil), Options{})
		if got := res.FailedTitles(); !reflect.DeepEqual(got, []string{"B", "C"}) {
			t.Fatalf("expected unexpanded titles reported, got %#v", res.Failures)
		}
		for _, f := range res.Failures {
			if f.Op != OpCancelled {
				t.Fatalf("unexpected op %q", f.Op)
			}
		}
	})
}
