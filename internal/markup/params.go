package markup

import (
	"strconv"
	"strings"
)

// Params is an ordered mapping of template parameter keys to raw values.
// The zero value is an empty mapping ready to use.
type Params struct {
	keys   []string
	values map[string]string
}

func (p *Params) Set(key, value string) {
	if p.values == nil {
		p.values = make(map[string]string)
	}
	if _, exists := p.values[key]; !exists {
		p.keys = append(p.keys, key)
	}
	p.values[key] = value
}

func (p Params) Get(key string) (string, bool) {
	value, ok := p.values[key]
	return value, ok
}

// Lookup returns the value of the first key in aliases that is present.
func (p Params) Lookup(aliases ...string) (string, string, bool) {
	for _, alias := range aliases {
		if value, ok := p.values[alias]; ok {
			return alias, value, true
		}
	}
	return "", "", false
}

func (p Params) Keys() []string {
	return append([]string(nil), p.keys...)
}

func (p Params) Len() int {
	return len(p.keys)
}

func (p Params) Map() map[string]string {
	out := make(map[string]string, len(p.values))
	for key, value := range p.values {
		out[key] = value
	}
	return out
}

// String renders the parameters as "|key=value" lines in insertion order.
func (p Params) String() string {
	var b strings.Builder
	for _, key := range p.keys {
		b.WriteString("|")
		b.WriteString(key)
		b.WriteString("=")
		b.WriteString(p.values[key])
		b.WriteString("\n")
	}
	return b.String()
}

// ParseParams reads line-oriented parameters from a template block. A line
// starting with "|" opens a key; any other line continues the value of the
// open key. Values are trimmed only when the key is flushed.
func ParseParams(block string) Params {
	var params Params

	var (
		key   string
		value strings.Builder
		open  bool
	)
	flush := func() {
		if open && key != "" {
			params.Set(key, strings.TrimSpace(value.String()))
		}
		value.Reset()
		open = false
	}

	for _, line := range strings.Split(stripDelimiters(block), "\n") {
		line = strings.TrimSuffix(line, "\r")
		trimmed := strings.TrimLeft(line, " \t")
		if strings.HasPrefix(trimmed, "|") {
			flush()
			k, v, _ := strings.Cut(trimmed[1:], "=")
			key = strings.TrimSpace(k)
			value.WriteString(v)
			open = true
			continue
		}
		if !open {
			continue
		}
		value.WriteString("\n")
		value.WriteString(line)
	}
	flush()

	return params
}

// ParseInline reads a single-line invocation such as {{Name|a=1|b=2}}. Pipes
// nested inside templates or links do not split. Unnamed arguments are keyed
// by their 1-based position.
func ParseInline(block string) Params {
	var params Params

	body := strings.TrimSpace(block)
	if !strings.HasPrefix(body, openDelim) || !strings.HasSuffix(body, closeDelim) {
		return params
	}
	body = body[len(openDelim) : len(body)-len(closeDelim)]

	segments := splitTopLevel(body)
	if len(segments) < 2 {
		return params
	}

	position := 0
	for _, segment := range segments[1:] {
		k, v, found := strings.Cut(segment, "=")
		if !found {
			position++
			params.Set(strconv.Itoa(position), strings.TrimSpace(segment))
			continue
		}
		key := strings.TrimSpace(k)
		if key == "" {
			continue
		}
		params.Set(key, strings.TrimSpace(v))
	}
	return params
}

// ParseBlock picks ParseInline for single-line blocks and ParseParams otherwise.
func ParseBlock(block string) Params {
	if !strings.Contains(strings.TrimSpace(block), "\n") {
		return ParseInline(block)
	}
	return ParseParams(block)
}

// stripDelimiters removes the outer braces and the template name so that the
// first parameter begins a line.
func stripDelimiters(block string) string {
	body := block
	if !strings.HasPrefix(body, openDelim) {
		return body
	}
	body = body[len(openDelim):]
	body = strings.TrimSuffix(body, closeDelim)

	end := strings.IndexAny(body, "|\n")
	switch {
	case end < 0:
		return ""
	case body[end] == '|':
		return body[end:]
	default:
		return body[end+1:]
	}
}

func splitTopLevel(body string) []string {
	var (
		segments []string
		depth    int
		start    int
	)
	for i := 0; i < len(body); i++ {
		if i+1 < len(body) {
			pair := body[i : i+2]
			if pair == "{{" || pair == "[[" {
				depth++
				i++
				continue
			}
			if (pair == "}}" || pair == "]]") && depth > 0 {
				depth--
				i++
				continue
			}
		}
		if body[i] == '|' && depth == 0 {
			segments = append(segments, body[start:i])
			start = i + 1
		}
	}
	return append(segments, body[start:])
}
