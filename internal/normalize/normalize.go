// Package normalize converts raw template parameter values into typed facts.
// Every converter reports absence with a boolean; an unknown value is never
// turned into a zero value or false.
package normalize

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

var (
	linkRe     = regexp.MustCompile(`\[\[([^\[\]|]*)(?:\|([^\[\]]*))?\]\]`)
	digitRunRe = regexp.MustCompile(`-?\d+`)
)

// SplitPoint is the multi-value marker used by versioned infobox fields.
const SplitPoint = "&&SPLITPOINT&&"

// DefaultSeparators are used by ToTokenList when no separators are given.
var DefaultSeparators = []string{",", SplitPoint, "<br />", "<br/>", "<br>", "\n"}

// StripLinks rewrites [[Target|Label]] to Label and [[Target]] to Target.
func StripLinks(raw string) string {
	if !strings.Contains(raw, "[[") {
		return raw
	}
	return linkRe.ReplaceAllStringFunc(raw, func(link string) string {
		m := linkRe.FindStringSubmatch(link)
		if strings.TrimSpace(m[2]) != "" {
			return m[2]
		}
		return m[1]
	})
}

// LinkTargets returns the distinct link targets in raw in first-seen order.
// Section anchors are dropped.
func LinkTargets(raw string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, m := range linkRe.FindAllStringSubmatch(raw, -1) {
		target := m[1]
		if i := strings.Index(target, "#"); i >= 0 {
			target = target[:i]
		}
		target = strings.TrimSpace(strings.TrimPrefix(target, ":"))
		if target == "" {
			continue
		}
		if _, ok := seen[target]; ok {
			continue
		}
		seen[target] = struct{}{}
		out = append(out, target)
	}
	return out
}

func numeric(raw string) string {
	s := strings.TrimSpace(StripLinks(raw))
	s = strings.ReplaceAll(s, ",", "")
	return strings.TrimPrefix(s, "+")
}

func ToInt(raw string) (int64, bool) {
	s := numeric(raw)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ToIntLenient takes the first run of digits in noisy text such as "25 (melee)".
func ToIntLenient(raw string) (int64, bool) {
	s := strings.ReplaceAll(StripLinks(raw), ",", "")
	match := digitRunRe.FindString(s)
	if match == "" {
		return 0, false
	}
	v, err := strconv.ParseInt(match, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func ToFloat(raw string) (float64, bool) {
	s := numeric(raw)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func ToBool(raw string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(StripLinks(raw))) {
	case "yes", "true", "1":
		return true, true
	case "no", "false", "0":
		return false, true
	}
	return false, false
}

// ToString strips links and surrounding whitespace; an empty result is absent.
func ToString(raw string) (string, bool) {
	s := strings.TrimSpace(StripLinks(raw))
	return s, s != ""
}

// ToTokenList splits raw on the given separators (DefaultSeparators when
// none), trimming tokens and dropping blanks and duplicates while keeping
// first-seen order.
func ToTokenList(raw string, separators ...string) []string {
	if len(separators) == 0 {
		separators = DefaultSeparators
	}
	pairs := make([]string, 0, len(separators)*2)
	for _, sep := range separators {
		if sep == "" {
			continue
		}
		pairs = append(pairs, sep, "\x00")
	}
	split := strings.NewReplacer(pairs...).Replace(StripLinks(raw))

	var out []string
	seen := make(map[string]struct{})
	for _, token := range strings.Split(split, "\x00") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		if _, ok := seen[token]; ok {
			continue
		}
		seen[token] = struct{}{}
		out = append(out, token)
	}
	return out
}

// ImmuneFlag reports whether an immunity-style value is affirmative. Only an
// affirmative token or a value starting with the word "immune" counts;
// "not immune", "no" and "n" are always false.
func ImmuneFlag(raw string) bool {
	v := strings.ToLower(strings.TrimSpace(StripLinks(raw)))
	if v == "" || strings.HasPrefix(v, "not immune") {
		return false
	}
	switch v {
	case "no", "n", "false", "0", "not":
		return false
	case "yes", "y", "true", "1", "immune":
		return true
	}
	if !strings.HasPrefix(v, "immune") {
		return false
	}
	next := []rune(v[len("immune"):])
	return len(next) == 0 || !unicode.IsLetter(next[0])
}
