package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type Page struct {
	Title     string    `json:"title"`
	Markup    string    `json:"markup"`
	Revision  int64     `json:"revision"`
	SourceURL string    `json:"source_url,omitempty"`
	FetchedAt time.Time `json:"fetched_at"`
	FetchRun  string    `json:"fetch_run,omitempty"`
}

type SearchResult struct {
	Title   string  `json:"title"`
	Score   float64 `json:"score"`
	Snippet string  `json:"snippet"`
}

// ReplaceResult reports how a multi-valued field changed.
type ReplaceResult struct {
	OldCount  int
	NewCount  int
	Retracted []string
	Added     []string
}

func (r ReplaceResult) Changed() bool {
	return len(r.Retracted) > 0 || len(r.Added) > 0
}

// DanglingValue is a multi-valued fact naming a page that was never mirrored.
type DanglingValue struct {
	Title string
	Kind  string
	Field string
	Value string
}

// NormalizeTitle is the unique key form of a title in every backend.
func NormalizeTitle(title string) string {
	title = strings.ReplaceAll(title, "_", " ")
	return strings.ToLower(strings.Join(strings.Fields(title), " "))
}

// EncodeScalars serializes the single-valued fields of a record. Map keys are
// sorted by encoding/json, so equal records encode to equal bytes.
func EncodeScalars(fields map[string]any) ([]byte, error) {
	scalars := make(map[string]any, len(fields))
	for name, value := range fields {
		if _, isList := value.([]string); isList {
			continue
		}
		scalars[name] = value
	}
	return json.Marshal(scalars)
}

// DecodeScalars restores the Go types of stored scalar fields: integral
// numbers become int64, everything else float64.
func DecodeScalars(data []byte) (map[string]any, error) {
	out := make(map[string]any)
	if len(data) == 0 {
		return out, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding fields: %w", err)
	}
	for name, value := range raw {
		n, ok := value.(json.Number)
		if !ok {
			out[name] = value
			continue
		}
		if i, err := n.Int64(); err == nil {
			out[name] = i
			continue
		}
		f, err := n.Float64()
		if err != nil {
			return nil, fmt.Errorf("decoding field %s: %w", name, err)
		}
		out[name] = f
	}
	return out, nil
}
