package facts

import (
	"sort"
)

// Record is the typed fact set derived from one page. Field values are int64,
// float64, bool, string or []string; absent facts are simply not present.
type Record struct {
	Kind   Kind           `json:"kind"`
	Title  string         `json:"title"`
	Fields map[string]any `json:"fields"`

	// Unparsed lists fields whose parameters were present but could not be
	// converted. It is diagnostic only and never persisted.
	Unparsed []string `json:"-"`
}

func newRecord(kind Kind, title string) Record {
	return Record{Kind: kind, Title: title, Fields: make(map[string]any)}
}

func (r Record) Get(name string) (any, bool) {
	v, ok := r.Fields[name]
	return v, ok
}

func (r Record) Int(name string) (int64, bool) {
	v, ok := r.Fields[name].(int64)
	return v, ok
}

// Float also accepts integral values, which is how whole floats come back
// from storage.
func (r Record) Float(name string) (float64, bool) {
	switch v := r.Fields[name].(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	}
	return 0, false
}

func (r Record) Bool(name string) (bool, bool) {
	v, ok := r.Fields[name].(bool)
	return v, ok
}

func (r Record) Text(name string) (string, bool) {
	v, ok := r.Fields[name].(string)
	return v, ok
}

func (r Record) List(name string) []string {
	v, _ := r.Fields[name].([]string)
	return v
}

// Scalars returns the single-valued fields.
func (r Record) Scalars() map[string]any {
	out := make(map[string]any, len(r.Fields))
	for name, value := range r.Fields {
		if _, isList := value.([]string); isList {
			continue
		}
		out[name] = value
	}
	return out
}

// ListFields returns the names of the multi-valued fields present, sorted.
func (r Record) ListFields() []string {
	var names []string
	for name, value := range r.Fields {
		if _, isList := value.([]string); isList {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func (r *Record) setList(name string, values []string) {
	if len(values) == 0 {
		return
	}
	r.Fields[name] = values
}

// Diff computes the values to retract (old - new) and to add (new - old) so
// that stored multi-valued facts match the latest extraction exactly.
func Diff(old, current []string) (retract, add []string) {
	oldSet := make(map[string]struct{}, len(old))
	for _, v := range old {
		oldSet[v] = struct{}{}
	}
	newSet := make(map[string]struct{}, len(current))
	for _, v := range current {
		newSet[v] = struct{}{}
	}
	for _, v := range old {
		if _, ok := newSet[v]; !ok {
			retract = append(retract, v)
			newSet[v] = struct{}{}
		}
	}
	for _, v := range current {
		if _, ok := oldSet[v]; !ok {
			add = append(add, v)
			oldSet[v] = struct{}{}
		}
	}
	return retract, add
}
