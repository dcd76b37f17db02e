// Package dumpfile reads one-page markup dumps. A dump may start with a YAML
// header between "---" lines carrying the page metadata:
//
//	---
//	title: Raw beef
//	revision: 14820311
//	source_url: https://oldschool.runescape.wiki/w/Raw_beef
//	timestamp: 2024-05-01T12:00:00Z
//	---
//	{{Infobox Item
//	...
//
// Everything after the header is the page markup, byte for byte.
package dumpfile

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Header struct {
	Title     string    `yaml:"title"`
	Revision  int64     `yaml:"revision"`
	SourceURL string    `yaml:"source_url"`
	Timestamp time.Time `yaml:"timestamp"`
}

type Dump struct {
	Header Header
	// HasHeader is false for plain markup files.
	HasHeader bool
	Markup    string
}

var (
	ErrUnterminatedHeader = errors.New("header has no closing marker")
	ErrInvalidYAML        = errors.New("invalid YAML in header")
	ErrInvalidRevision    = errors.New("header revision must not be negative")
)

const marker = "---\n"

func ParseFile(path string) (*Dump, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse splits content into header and markup. Content without a leading
// marker is all markup. A MediaWiki rule ("----") is not a marker.
func Parse(content []byte) (*Dump, error) {
	trimmed := bytes.TrimPrefix(content, []byte("\ufeff"))
	if !bytes.HasPrefix(trimmed, []byte(marker)) {
		return &Dump{Markup: string(trimmed)}, nil
	}

	rest := trimmed[len(marker):]
	var yamlBytes, body []byte
	if bytes.HasPrefix(rest, []byte(marker)) {
		body = rest[len(marker):]
	} else {
		end := bytes.Index(rest, []byte("\n"+marker))
		if end == -1 {
			return nil, ErrUnterminatedHeader
		}
		yamlBytes = rest[:end+1]
		body = rest[end+1+len(marker):]
	}

	var header Header
	if err := yaml.Unmarshal(yamlBytes, &header); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}
	if header.Revision < 0 {
		return nil, ErrInvalidRevision
	}
	header.Title = strings.TrimSpace(header.Title)
	return &Dump{Header: header, HasHeader: true, Markup: string(body)}, nil
}
