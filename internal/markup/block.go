package markup

import (
	"errors"
	"strings"
)

var (
	ErrEmptyMarkup = errors.New("markup is empty")
	ErrNotFound    = errors.New("template not found")
	ErrMalformed   = errors.New("template block is unbalanced or truncated")
)

const (
	openDelim  = "{{"
	closeDelim = "}}"
)

// ExtractBlock returns the first invocation of the named template, delimiters
// included. Later invocations of the same template are ignored.
func ExtractBlock(markup, name string) (string, error) {
	if markup == "" {
		return "", ErrEmptyMarkup
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrNotFound
	}

	start := findOpening(markup, name, 0)
	if start < 0 {
		return "", ErrNotFound
	}
	end, err := matchClosing(markup, start)
	if err != nil {
		return "", err
	}
	return markup[start:end], nil
}

// ExtractAll returns every top-level invocation of the named template in
// document order. Scanning stops at the first unbalanced invocation, in which
// case the blocks found so far are returned together with ErrMalformed.
func ExtractAll(markup, name string) ([]string, error) {
	if markup == "" {
		return nil, ErrEmptyMarkup
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNotFound
	}

	var blocks []string
	pos := 0
	for {
		start := findOpening(markup, name, pos)
		if start < 0 {
			break
		}
		end, err := matchClosing(markup, start)
		if err != nil {
			return blocks, err
		}
		blocks = append(blocks, markup[start:end])
		pos = end
	}
	if len(blocks) == 0 {
		return nil, ErrNotFound
	}
	return blocks, nil
}

// Name returns the template name of a block, or "" if block does not start
// with an opening delimiter.
func Name(block string) string {
	if !strings.HasPrefix(block, openDelim) {
		return ""
	}
	rest := block[len(openDelim):]
	end := strings.IndexAny(rest, "|\n}")
	if end < 0 {
		end = len(rest)
	}
	return strings.TrimSpace(rest[:end])
}

func findOpening(markup, name string, from int) int {
	for i := from; i < len(markup); {
		idx := strings.Index(markup[i:], openDelim)
		if idx < 0 {
			return -1
		}
		pos := i + idx
		at := pos + len(openDelim)
		for at < len(markup) && (markup[at] == ' ' || markup[at] == '\t') {
			at++
		}
		if nameAt(markup, at, name) {
			return pos
		}
		i = pos + len(openDelim)
	}
	return -1
}

// nameAt reports whether name starts at markup[at] and is terminated by a
// parameter separator, a closing brace, a line break or the end of input.
// The first letter compares case-insensitively, as wiki page names do.
func nameAt(markup string, at int, name string) bool {
	if len(markup)-at < len(name) {
		return false
	}
	candidate := markup[at : at+len(name)]
	if !strings.EqualFold(candidate[:1], name[:1]) || candidate[1:] != name[1:] {
		return false
	}
	rest := at + len(name)
	for rest < len(markup) && (markup[rest] == ' ' || markup[rest] == '\t') {
		rest++
	}
	if rest == len(markup) {
		return true
	}
	switch markup[rest] {
	case '|', '}', '\n', '\r':
		return true
	}
	return false
}

// matchClosing counts brace pairs only, so a triple-brace parameter such as
// {{{x}}} leaves one unmatched brace.
func matchClosing(markup string, start int) (int, error) {
	depth := 0
	for i := start; i+1 < len(markup); {
		switch {
		case markup[i] == '{' && markup[i+1] == '{':
			depth++
			i += 2
		case markup[i] == '}' && markup[i+1] == '}':
			depth--
			i += 2
			if depth == 0 {
				return i, nil
			}
		default:
			i++
		}
	}
	return 0, ErrMalformed
}
