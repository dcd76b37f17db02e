package facts

import (
	"fmt"
	"strings"
)

type Kind int

const (
	Item Kind = iota + 1
	Monster
	Quest
)

func Kinds() []Kind {
	return []Kind{Item, Monster, Quest}
}

func (k Kind) String() string {
	switch k {
	case Item:
		return "item"
	case Monster:
		return "monster"
	case Quest:
		return "quest"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "item":
		return Item, nil
	case "monster":
		return Monster, nil
	case "quest":
		return Quest, nil
	default:
		return 0, fmt.Errorf("unknown entity kind: %q", s)
	}
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
