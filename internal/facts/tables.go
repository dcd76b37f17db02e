package facts

import (
	"fmt"
	"sort"
)

type FieldType int

const (
	TypeInt FieldType = iota + 1
	TypeIntLenient
	TypeFloat
	TypeBool
	TypeString
	TypeTokens
	TypeLinks
)

func (t FieldType) multiValued() bool {
	return t == TypeTokens || t == TypeLinks
}

// Field maps one typed fact to the parameter keys it may appear under, in
// priority order.
type Field struct {
	Name    string
	Aliases []string
	Type    FieldType
}

type KindTable struct {
	Template string
	Fields   []Field
}

// Immunity is one flag-style parameter folded into the monster immunity list.
type Immunity struct {
	Name    string
	Aliases []string
}

// RelationSource names the template and parameter keys a relation list is
// read from.
type RelationSource struct {
	Template string
	Keys     []string
}

const (
	FieldImmunity    = "immunity"
	FieldDrops       = "drops"
	FieldIngredients = "ingredients"
)

// Tables holds the alias lists and templates per kind. Build it once with
// DefaultTables (and optional overrides) and treat it as read-only afterwards.
type Tables struct {
	Kinds      map[Kind]KindTable
	Immunities []Immunity
	Recipe     RelationSource
	Drops      RelationSource
}

func DefaultTables() *Tables {
	return &Tables{
		Kinds: map[Kind]KindTable{
			Item: {
				Template: "Infobox Item",
				Fields: []Field{
					{Name: "members", Aliases: []string{"members"}, Type: TypeBool},
					{Name: "tradeable", Aliases: []string{"tradeable"}, Type: TypeBool},
					{Name: "equipable", Aliases: []string{"equipable", "equipable1"}, Type: TypeBool},
					{Name: "stackable", Aliases: []string{"stackable"}, Type: TypeBool},
					{Name: "noteable", Aliases: []string{"noteable"}, Type: TypeBool},
					{Name: "value", Aliases: []string{"value", "value1"}, Type: TypeInt},
					{Name: "highalch", Aliases: []string{"highalch", "high alch", "highalch1"}, Type: TypeInt},
					{Name: "lowalch", Aliases: []string{"lowalch", "low alch", "lowalch1"}, Type: TypeInt},
					{Name: "weight", Aliases: []string{"weight", "weight1"}, Type: TypeFloat},
					{Name: "examine", Aliases: []string{"examine", "examine1"}, Type: TypeString},
					{Name: "release", Aliases: []string{"release", "release1"}, Type: TypeString},
				},
			},
			Monster: {
				Template: "Infobox Monster",
				Fields: []Field{
					{Name: "combat_level", Aliases: []string{"combat", "combat1", "combat_level"}, Type: TypeInt},
					{Name: "hitpoints", Aliases: []string{"hitpoints", "hitpoints1"}, Type: TypeInt},
					{Name: "max_hit", Aliases: []string{"max hit", "max hit1", "maxhit"}, Type: TypeIntLenient},
					{Name: "attack_speed", Aliases: []string{"attack speed", "attack speed1"}, Type: TypeInt},
					{Name: "slayer_level", Aliases: []string{"slaylvl", "slayer level"}, Type: TypeInt},
					{Name: "slayer_xp", Aliases: []string{"slayxp", "slayer xp"}, Type: TypeFloat},
					{Name: "members", Aliases: []string{"members"}, Type: TypeBool},
					{Name: "aggressive", Aliases: []string{"aggressive", "aggressive1"}, Type: TypeBool},
					{Name: "poisonous", Aliases: []string{"poisonous", "poisonous1"}, Type: TypeBool},
					{Name: "attack_style", Aliases: []string{"attack style", "attack style1"}, Type: TypeTokens},
					{Name: "attributes", Aliases: []string{"attributes", "attributes1"}, Type: TypeTokens},
					{Name: "examine", Aliases: []string{"examine", "examine1"}, Type: TypeString},
					{Name: "release", Aliases: []string{"release", "release1"}, Type: TypeString},
				},
			},
			Quest: {
				Template: "Quest details",
				Fields: []Field{
					{Name: "members", Aliases: []string{"members"}, Type: TypeBool},
					{Name: "difficulty", Aliases: []string{"difficulty"}, Type: TypeString},
					{Name: "length", Aliases: []string{"length"}, Type: TypeString},
					{Name: "start", Aliases: []string{"start"}, Type: TypeString},
					{Name: "quest_points", Aliases: []string{"qp", "questpoints"}, Type: TypeInt},
					{Name: "requirements", Aliases: []string{"requirements"}, Type: TypeLinks},
					{Name: "items", Aliases: []string{"items"}, Type: TypeLinks},
					{Name: "kills", Aliases: []string{"kills"}, Type: TypeLinks},
				},
			},
		},
		Immunities: []Immunity{
			{Name: "Poison", Aliases: []string{"immunepoison", "poisonimmune"}},
			{Name: "Venom", Aliases: []string{"immunevenom", "venomimmune"}},
			{Name: "Cannon", Aliases: []string{"immunecannon"}},
			{Name: "Thrall", Aliases: []string{"immunethrall"}},
			{Name: "Burn", Aliases: []string{"immuneburn"}},
		},
		Recipe: RelationSource{
			Template: "Recipe",
			Keys:     []string{"mat1", "mat2", "mat3", "mat4", "mat5", "mat6", "mat7", "mat8", "mat9", "mat10"},
		},
		Drops: RelationSource{
			Template: "DropsLine",
			Keys:     []string{"name"},
		},
	}
}

func (t *Tables) Template(kind Kind) string {
	return t.Kinds[kind].Template
}

// SetAliases replaces the alias priority list of one field. It is meant for
// initialisation only.
func (t *Tables) SetAliases(kind Kind, field string, aliases []string) error {
	table, ok := t.Kinds[kind]
	if !ok {
		return fmt.Errorf("unsupported kind: %s", kind)
	}
	if len(aliases) == 0 {
		return fmt.Errorf("%s field %s: at least one alias is required", kind, field)
	}
	fields := append([]Field(nil), table.Fields...)
	for i := range fields {
		if fields[i].Name == field {
			fields[i].Aliases = append([]string(nil), aliases...)
			table.Fields = fields
			t.Kinds[kind] = table
			return nil
		}
	}
	return fmt.Errorf("%s has no field %s", kind, field)
}

// ListFields returns the multi-valued field names a record of kind may carry,
// sorted. Stored values for these fields are fully replaced on every upsert.
func (t *Tables) ListFields(kind Kind) []string {
	var names []string
	for _, field := range t.Kinds[kind].Fields {
		if field.Type.multiValued() {
			names = append(names, field.Name)
		}
	}
	switch kind {
	case Item:
		names = append(names, FieldIngredients)
	case Monster:
		names = append(names, FieldImmunity, FieldDrops)
	}
	sort.Strings(names)
	return names
}
