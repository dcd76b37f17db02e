package facts

import (
	"errors"
	"fmt"
	"strings"

	"wikifacts/internal/markup"
	"wikifacts/internal/normalize"
)

var (
	ErrNoTemplate        = errors.New("page has no template for kind")
	ErrMalformedTemplate = errors.New("page template is malformed")
)

// Extract builds the fact record of the given kind from page markup. A page
// without the kind's template yields ErrNoTemplate; an unbalanced template
// yields ErrMalformedTemplate. Both mean "no record".
func Extract(tables *Tables, kind Kind, title, text string) (Record, error) {
	table, ok := tables.Kinds[kind]
	if !ok {
		return Record{}, fmt.Errorf("unsupported kind: %s", kind)
	}

	block, err := markup.ExtractBlock(text, table.Template)
	if err != nil {
		if errors.Is(err, markup.ErrMalformed) {
			return Record{}, fmt.Errorf("%w: %s: %w", ErrMalformedTemplate, table.Template, err)
		}
		return Record{}, fmt.Errorf("%w: %s: %w", ErrNoTemplate, table.Template, err)
	}
	params := markup.ParseParams(block)

	rec := newRecord(kind, title)
	for _, field := range table.Fields {
		rec.apply(params, field)
	}

	switch kind {
	case Item:
		rec.setList(FieldIngredients, ingredients(tables.Recipe, text))
	case Monster:
		rec.setList(FieldImmunity, immunities(tables.Immunities, params))
		rec.setList(FieldDrops, drops(tables.Drops, text))
	case Quest:
	}

	return rec, nil
}

// apply sets the first alias whose value converts; later aliases are only
// consulted when earlier ones are missing, blank or unparsable.
func (r *Record) apply(params markup.Params, field Field) {
	unparsed := false
	for _, alias := range field.Aliases {
		raw, ok := params.Get(alias)
		if !ok || strings.TrimSpace(raw) == "" {
			continue
		}
		value, ok := convert(field.Type, raw)
		if ok {
			r.Fields[field.Name] = value
			return
		}
		unparsed = true
	}
	if unparsed {
		r.Unparsed = append(r.Unparsed, field.Name)
	}
}

func convert(t FieldType, raw string) (any, bool) {
	switch t {
	case TypeInt:
		return normalize.ToInt(raw)
	case TypeIntLenient:
		return normalize.ToIntLenient(raw)
	case TypeFloat:
		return normalize.ToFloat(raw)
	case TypeBool:
		return normalize.ToBool(raw)
	case TypeString:
		return normalize.ToString(raw)
	case TypeTokens:
		tokens := normalize.ToTokenList(raw)
		return tokens, len(tokens) > 0
	case TypeLinks:
		links := normalize.LinkTargets(raw)
		return links, len(links) > 0
	default:
		return nil, false
	}
}

func immunities(table []Immunity, params markup.Params) []string {
	var out []string
	for _, immunity := range table {
		_, raw, ok := params.Lookup(immunity.Aliases...)
		if ok && normalize.ImmuneFlag(raw) {
			out = append(out, immunity.Name)
		}
	}
	return out
}

func ingredients(src RelationSource, text string) []string {
	block, err := markup.ExtractBlock(text, src.Template)
	if err != nil {
		return nil
	}
	params := markup.ParseBlock(block)

	var out []string
	seen := make(map[string]struct{})
	add := func(name string) {
		if _, ok := seen[name]; ok || name == "" {
			return
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	for _, key := range src.Keys {
		raw, ok := params.Get(key)
		if !ok {
			continue
		}
		targets := normalize.LinkTargets(raw)
		if len(targets) == 0 {
			add(strings.TrimSpace(raw))
			continue
		}
		for _, target := range targets {
			add(target)
		}
	}
	return out
}

// drops reads every line template of the drop table. A truncated trailing
// line does not discard the lines before it.
func drops(src RelationSource, text string) []string {
	blocks, _ := markup.ExtractAll(text, src.Template)

	var out []string
	seen := make(map[string]struct{})
	for _, block := range blocks {
		_, raw, ok := markup.ParseBlock(block).Lookup(src.Keys...)
		if !ok {
			continue
		}
		name := strings.TrimSpace(normalize.StripLinks(raw))
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}
