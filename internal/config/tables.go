package config

import (
	"fmt"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"wikifacts/internal/facts"
)

// Tables is the lookup data handed to extraction and closure. It is built
// once at startup and read-only afterwards.
type Tables struct {
	Facts   *facts.Tables
	Implied map[string][]string
}

// TablesFile is the YAML form of table overrides.
//
//	aliases:
//	  monster:
//	    combat_level: [combat, cb]
//	implied:
//	  cooked meat: [Raw beef, Raw bear meat]
type TablesFile struct {
	Aliases map[string]map[string][]string `yaml:"aliases"`
	Implied map[string][]string            `yaml:"implied"`
}

func (f *TablesFile) Validate() error {
	if err := validation.ValidateStruct(f,
		validation.Field(&f.Implied, validation.Each(validation.Required, validation.Each(validation.Required))),
	); err != nil {
		return err
	}
	for kind, fields := range f.Aliases {
		if _, err := facts.ParseKind(kind); err != nil {
			return fmt.Errorf("aliases: %w", err)
		}
		for field, aliases := range fields {
			if len(aliases) == 0 {
				return fmt.Errorf("aliases: %s.%s: alias list must not be empty", kind, field)
			}
		}
	}
	return nil
}

// DefaultImplied are the edges the recipe markup leaves out, keyed by
// lower-cased title.
func DefaultImplied() map[string][]string {
	return map[string][]string{
		"cooked meat":    {"Raw beef", "Raw bear meat"},
		"cooked chicken": {"Raw chicken"},
	}
}

func DefaultTables() *Tables {
	return &Tables{Facts: facts.DefaultTables(), Implied: DefaultImplied()}
}

// LoadTables applies the overrides in path on top of the defaults. An empty
// path returns the defaults. Implied entries replace the default entry for
// the same title.
func LoadTables(path string) (*Tables, error) {
	tables := DefaultTables()
	if strings.TrimSpace(path) == "" {
		return tables, nil
	}

	var file TablesFile
	if err := load(path, &file); err != nil {
		return nil, fmt.Errorf("loading tables: %w", err)
	}

	kinds := make([]string, 0, len(file.Aliases))
	for kind := range file.Aliases {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	for _, name := range kinds {
		kind, _ := facts.ParseKind(name)
		for field, aliases := range file.Aliases[name] {
			if err := tables.Facts.SetAliases(kind, field, aliases); err != nil {
				return nil, fmt.Errorf("loading tables: %w", err)
			}
		}
	}

	for title, targets := range file.Implied {
		tables.Implied[strings.ToLower(strings.TrimSpace(title))] = targets
	}
	return tables, nil
}
