package dumpfile

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func TestParse(t *testing.T) {
	t.Run("full header", func(t *testing.T) {
		content := []byte("---\ntitle: Raw beef\nrevision: 14820311\nsource_url: https://oldschool.runescape.wiki/w/Raw_beef\ntimestamp: 2024-05-01T12:00:00Z\n---\n{{Infobox Item\n|value=1\n}}\n")
		dump, err := Parse(content)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !dump.HasHeader {
			t.Fatalf("expected header")
		}
		if dump.Header.Title != "Raw beef" || dump.Header.Revision != 14820311 {
			t.Fatalf("unexpected header: %#v", dump.Header)
		}
		if !dump.Header.Timestamp.Equal(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)) {
			t.Fatalf("unexpected timestamp: %v", dump.Header.Timestamp)
		}
		if dump.Markup != "{{Infobox Item\n|value=1\n}}\n" {
			t.Fatalf("unexpected markup: %q", dump.Markup)
		}
	})

	t.Run("empty header", func(t *testing.T) {
		dump, err := Parse([]byte("---\n---\n{{Infobox Item}}"))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !dump.HasHeader || dump.Header.Title != "" || dump.Markup != "{{Infobox Item}}" {
			t.Fatalf("unexpected dump: %#v", dump)
		}
	})

	t.Run("no header", func(t *testing.T) {
		dump, err := Parse([]byte("{{Infobox Item}}\n---\nnot a header\n"))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if dump.HasHeader || dump.Markup != "{{Infobox Item}}\n---\nnot a header\n" {
			t.Fatalf("unexpected dump: %#v", dump)
		}
	})

	t.Run("horizontal rule is markup", func(t *testing.T) {
		dump, err := Parse([]byte("----\nBelow the rule\n"))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if dump.HasHeader {
			t.Fatalf("a rule must not start a header")
		}
	})

	t.Run("missing closing marker", func(t *testing.T) {
		_, err := Parse([]byte("---\ntitle: Missing\n"))
		if !errors.Is(err, ErrUnterminatedHeader) {
			t.Fatalf("expected ErrUnterminatedHeader, got %v", err)
		}
	})

	t.Run("invalid yaml", func(t *testing.T) {
		_, err := Parse([]byte("---\ntitle: [\n---\n"))
		if !errors.Is(err, ErrInvalidYAML) {
			t.Fatalf("expected ErrInvalidYAML, got %v", err)
		}
	})

	t.Run("negative revision", func(t *testing.T) {
		_, err := Parse([]byte("---\nrevision: -1\n---\n"))
		if !errors.Is(err, ErrInvalidRevision) {
			t.Fatalf("expected ErrInvalidRevision, got %v", err)
		}
	})
}

func TestParse_BOMTrim(t *testing.T) {
	dump, err := Parse([]byte("\ufeff---\ntitle: BOM\n---\nbody"))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if dump.Header.Title != "BOM" || dump.Markup != "body" {
		t.Fatalf("unexpected dump: %#v", dump)
	}
}

func TestParseFile(t *testing.T) {
	dump, err := ParseFile(filepath.Join("testdata", "Cooked_meat.wiki"))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if dump.Header.Title != "Cooked meat" || dump.Header.Revision != 42 {
		t.Fatalf("unexpected header: %#v", dump.Header)
	}

	if _, err := ParseFile(filepath.Join("testdata", "missing.wiki")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
