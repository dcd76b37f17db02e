package ingest

import (
	"context"
	"errors"
	"reflect"
	"sort"
	"testing"

	"wikifacts/internal/facts"
	"wikifacts/internal/store"
)

type mockPages struct {
	pages   map[string]store.Page
	failGet string
}

func (m *mockPages) GetPage(ctx context.Context, title string) (*store.Page, error) {
	if title == m.failGet {
		return nil, errors.New("forced error")
	}
	p, ok := m.pages[store.NormalizeTitle(title)]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *mockPages) ListPageTitles(ctx context.Context) ([]string, error) {
	var titles []string
	for _, p := range m.pages {
		titles = append(titles, p.Title)
	}
	sort.Strings(titles)
	return titles, nil
}

func newMockPages(pages ...store.Page) *mockPages {
	m := &mockPages{pages: make(map[string]store.Page)}
	for _, p := range pages {
		m.pages[store.NormalizeTitle(p.Title)] = p
	}
	return m
}

type mockRecord struct {
	rec  facts.Record
	hash string
}

type mockStore struct {
	records     map[string]mockRecord
	values      map[string][]string
	upserts     int
	failUpsert  string
	failReplace int
	deleteCalls []string
}

func newMockStore() *mockStore {
	return &mockStore{records: make(map[string]mockRecord), values: make(map[string][]string)}
}

func recordKey(kind facts.Kind, title string) string {
	return kind.String() + "/" + store.NormalizeTitle(title)
}

func valueKey(kind facts.Kind, title, field string) string {
	return recordKey(kind, title) + "/" + field
}

func (m *mockStore) GetFactHashes(ctx context.Context, kind facts.Kind) (map[string]string, error) {
	out := make(map[string]string)
	for _, r := range m.records {
		if r.rec.Kind == kind {
			out[r.rec.Title] = r.hash
		}
	}
	return out, nil
}

func (m *mockStore) UpsertFactRecord(ctx context.Context, rec facts.Record, sourceHash string) error {
	if rec.Title == m.failUpsert {
		return errors.New("forced error")
	}
	m.upserts++
	m.records[recordKey(rec.Kind, rec.Title)] = mockRecord{rec: rec, hash: sourceHash}
	return nil
}

func (m *mockStore) DeleteFactRecord(ctx context.Context, kind facts.Kind, title string) (bool, error) {
	m.deleteCalls = append(m.deleteCalls, title)
	key := recordKey(kind, title)
	if _, ok := m.records[key]; !ok {
		return false, nil
	}
	delete(m.records, key)
	for k := range m.values {
		if len(k) > len(key) && k[:len(key)+1] == key+"/" {
			delete(m.values, k)
		}
	}
	return true, nil
}

func (m *mockStore) ReplaceMultiValued(ctx context.Context, title string, kind facts.Kind, field string, values []string) (store.ReplaceResult, error) {
	if m.failReplace > 0 {
		m.failReplace--
		return store.ReplaceResult{}, errors.New("forced error")
	}
	key := valueKey(kind, title, field)
	old := m.values[key]
	retract, add := facts.Diff(old, values)
	if len(values) == 0 {
		delete(m.values, key)
	} else {
		m.values[key] = append([]string(nil), values...)
	}
	return store.ReplaceResult{OldCount: len(old), NewCount: len(values), Retracted: retract, Added: add}, nil
}

func (m *mockStore) MultiValues(ctx context.Context, kind facts.Kind, title, field string) ([]string, error) {
	return m.values[valueKey(kind, title, field)], nil
}

func (m *mockStore) TitlesWithValue(ctx context.Context, kind facts.Kind, field, value string) ([]string, error) {
	var titles []string
	for _, r := range m.records {
		if r.rec.Kind != kind {
			continue
		}
		for _, v := range m.values[valueKey(kind, r.rec.Title, field)] {
			if store.NormalizeTitle(v) == store.NormalizeTitle(value) {
				titles = append(titles, r.rec.Title)
				break
			}
		}
	}
	sort.Strings(titles)
	return titles, nil
}

const cakePage = `{{Infobox Item
|members = No
|value = 50
|weight = 0.45
}}
{{Recipe
|mat1 = Egg
|mat2 = [[Bucket of milk]]
|mat3 = Pot of flour
}}`

const cowPage = `{{Infobox Monster
|combat = 2
|hitpoints = 8
}}
{{DropsLine|name=Bones|quantity=1|rarity=Always}}
{{DropsLine|name=Raw beef|quantity=1|rarity=Always}}`

func TestExtract_StoresRecordsAndValues(t *testing.T) {
	pages := newMockPages(
		store.Page{Title: "Cake tin", Markup: "{{Infobox Item|value=10}}"},
		store.Page{Title: "Uncooked cake", Markup: cakePage},
		store.Page{Title: "Cow", Markup: cowPage},
	)
	db := newMockStore()
	e := New(pages, db, facts.DefaultTables(), Options{})

	result := Run(context.Background(), e, []facts.Kind{facts.Item, facts.Monster}, nil, nil)

	if len(result.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	// items: Cake tin, Uncooked cake; monster: Cow
	if result.Stored != 3 {
		t.Fatalf("expected 3 stored, got %+v", result)
	}
	// Cow has no item template, the two items have no monster template
	if result.Skipped != 3 {
		t.Fatalf("expected 3 skipped, got %+v", result)
	}

	got, _ := db.MultiValues(context.Background(), facts.Item, "Uncooked cake", facts.FieldIngredients)
	want := []string{"Egg", "Bucket of milk", "Pot of flour"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ingredients = %v, want %v", got, want)
	}
	rec := db.records[recordKey(facts.Item, "Uncooked cake")].rec
	if v, ok := rec.Int("value"); !ok || v != 50 {
		t.Fatalf("value = %v, %v", v, ok)
	}
}

func TestExtract_IncrementalSkip(t *testing.T) {
	pages := newMockPages(store.Page{Title: "Uncooked cake", Markup: cakePage})
	db := newMockStore()
	e := New(pages, db, facts.DefaultTables(), Options{})

	first := Drain(e.Extract(context.Background(), facts.Item, nil), nil)
	if first.Stored != 1 {
		t.Fatalf("expected first run to store, got %+v", first)
	}

	second := Drain(e.Extract(context.Background(), facts.Item, nil), nil)
	if second.Unchanged != 1 || second.Stored != 0 {
		t.Fatalf("expected unchanged on second run, got %+v", second)
	}
	if db.upserts != 1 {
		t.Fatalf("expected one upsert, got %d", db.upserts)
	}

	full := New(pages, db, facts.DefaultTables(), Options{Full: true})
	third := Drain(full.Extract(context.Background(), facts.Item, nil), nil)
	if third.Stored != 1 || db.upserts != 2 {
		t.Fatalf("expected full run to re-store, got %+v (upserts %d)", third, db.upserts)
	}
}

func TestExtract_RetractsVanishedValues(t *testing.T) {
	pages := newMockPages(store.Page{Title: "Uncooked cake", Markup: cakePage})
	db := newMockStore()
	e := New(pages, db, facts.DefaultTables(), Options{})
	Drain(e.Extract(context.Background(), facts.Item, nil), nil)

	pages.pages[store.NormalizeTitle("Uncooked cake")] = store.Page{
		Title:  "Uncooked cake",
		Markup: "{{Infobox Item|value=50}}\n{{Recipe|mat1=Egg}}",
	}
	Drain(e.Extract(context.Background(), facts.Item, nil), nil)

	got, _ := db.MultiValues(context.Background(), facts.Item, "Uncooked cake", facts.FieldIngredients)
	if !reflect.DeepEqual(got, []string{"Egg"}) {
		t.Fatalf("expected retracted ingredients, got %v", got)
	}

	pages.pages[store.NormalizeTitle("Uncooked cake")] = store.Page{Title: "Uncooked cake", Markup: "{{Infobox Item|value=50}}"}
	Drain(e.Extract(context.Background(), facts.Item, nil), nil)
	if got, _ := db.MultiValues(context.Background(), facts.Item, "Uncooked cake", facts.FieldIngredients); len(got) != 0 {
		t.Fatalf("expected no ingredients once the recipe is gone, got %v", got)
	}
}

func TestExtract_RemovesStaleRecords(t *testing.T) {
	pages := newMockPages(store.Page{Title: "Cow", Markup: cowPage})
	db := newMockStore()
	e := New(pages, db, facts.DefaultTables(), Options{})
	Drain(e.Extract(context.Background(), facts.Monster, nil), nil)

	t.Run("template removed", func(t *testing.T) {
		pages.pages["cow"] = store.Page{Title: "Cow", Markup: "Cows are gone."}
		var outcomes []Outcome
		result := Drain(e.Extract(context.Background(), facts.Monster, nil), func(o Outcome) { outcomes = append(outcomes, o) })
		if result.Removed != 1 {
			t.Fatalf("expected removal, got %+v", result)
		}
		if outcomes[0].Reason != ReasonNoTemplate {
			t.Fatalf("unexpected reason %q", outcomes[0].Reason)
		}
		if _, ok := db.records[recordKey(facts.Monster, "Cow")]; ok {
			t.Fatalf("record still stored")
		}
	})

	t.Run("malformed after valid", func(t *testing.T) {
		pages.pages["cow"] = store.Page{Title: "Cow", Markup: cowPage}
		Drain(e.Extract(context.Background(), facts.Monster, nil), nil)

		pages.pages["cow"] = store.Page{Title: "Cow", Markup: "{{Infobox Monster\n|combat=2\n"}
		result := Drain(e.Extract(context.Background(), facts.Monster, nil), nil)
		if result.Removed != 1 || !reflect.DeepEqual(result.Malformed, []string{"Cow"}) {
			t.Fatalf("expected malformed removal, got %+v", result)
		}
	})

	t.Run("missing page", func(t *testing.T) {
		result := Drain(e.Extract(context.Background(), facts.Monster, []string{"Goblin"}), nil)
		if result.Skipped != 1 {
			t.Fatalf("expected skip, got %+v", result)
		}
	})
}

func TestExtract_RetriesAfterFailedReplace(t *testing.T) {
	pages := newMockPages(store.Page{Title: "Cow", Markup: cowPage})
	db := newMockStore()
	db.failReplace = 1
	e := New(pages, db, facts.DefaultTables(), Options{})

	first := Drain(e.Extract(context.Background(), facts.Monster, nil), nil)
	if len(first.Errors) != 1 || first.Stored != 0 {
		t.Fatalf("expected the failed replace to surface, got %+v", first)
	}
	if _, ok := db.records[recordKey(facts.Monster, "Cow")]; ok {
		t.Fatalf("record stored although its values were not")
	}

	second := Drain(e.Extract(context.Background(), facts.Monster, nil), nil)
	if second.Stored != 1 || second.Unchanged != 0 {
		t.Fatalf("expected the page to be retried, got %+v", second)
	}
	got, _ := db.MultiValues(context.Background(), facts.Monster, "Cow", facts.FieldDrops)
	if !reflect.DeepEqual(got, []string{"Bones", "Raw beef"}) {
		t.Fatalf("drops = %v", got)
	}
}

func TestExtract_ContinuesOnError(t *testing.T) {
	pages := newMockPages(
		store.Page{Title: "Cake tin", Markup: "{{Infobox Item|value=10}}"},
		store.Page{Title: "Egg", Markup: "{{Infobox Item|value=4}}"},
		store.Page{Title: "Uncooked cake", Markup: cakePage},
	)
	pages.failGet = "Egg"
	db := newMockStore()
	db.failUpsert = "Cake tin"
	e := New(pages, db, facts.DefaultTables(), Options{})

	result := Drain(e.Extract(context.Background(), facts.Item, nil), nil)

	if len(result.Errors) != 2 {
		t.Fatalf("expected 2 errors, got %v", result.Errors)
	}
	if result.Stored != 1 {
		t.Fatalf("expected the remaining page stored, got %+v", result)
	}
}

func TestExtract_StopsEarly(t *testing.T) {
	pages := newMockPages(
		store.Page{Title: "A", Markup: "{{Infobox Item|value=1}}"},
		store.Page{Title: "B", Markup: "{{Infobox Item|value=2}}"},
	)
	db := newMockStore()
	e := New(pages, db, facts.DefaultTables(), Options{})

	for range e.Extract(context.Background(), facts.Item, nil) {
		break
	}
	if db.upserts != 1 {
		t.Fatalf("expected one page processed, got %d", db.upserts)
	}
}

func TestLookups(t *testing.T) {
	pages := newMockPages(
		store.Page{Title: "Uncooked cake", Markup: cakePage},
		store.Page{Title: "Cow", Markup: cowPage},
		store.Page{Title: "Cow calf", Markup: "{{Infobox Monster|combat=2}}\n{{DropsLine|name=Raw beef}}"},
	)
	db := newMockStore()
	e := New(pages, db, facts.DefaultTables(), Options{})
	Run(context.Background(), e, facts.Kinds(), nil, nil)

	ingredients, err := IngredientsOf(db)(context.Background(), "uncooked cake")
	if err != nil {
		t.Fatalf("IngredientsOf: %v", err)
	}
	if len(ingredients) != 3 {
		t.Fatalf("unexpected ingredients %v", ingredients)
	}

	droppers, err := DroppedBy(db)(context.Background(), "raw beef")
	if err != nil {
		t.Fatalf("DroppedBy: %v", err)
	}
	if !reflect.DeepEqual(droppers, []string{"Cow", "Cow calf"}) {
		t.Fatalf("unexpected droppers %v", droppers)
	}
}
