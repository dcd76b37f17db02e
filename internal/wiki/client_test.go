package wiki

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"
)

const revisionsResponse = `{
  "batchcomplete": true,
  "query": {
    "normalized": [{"fromencoded": false, "from": "raw_beef", "to": "Raw beef"}],
    "pages": [
      {
        "pageid": 1,
        "ns": 0,
        "title": "Raw beef",
        "revisions": [
          {
            "revid": 14216,
            "timestamp": "2024-03-01T10:00:00Z",
            "slots": {"main": {"contentmodel": "wikitext", "content": "{{Infobox Item\n|value=1\n}}"}}
          }
        ]
      },
      {"ns": 0, "title": "Nope", "missing": true}
    ]
  }
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(Options{APIURL: srv.URL + "/api.php", UserAgent: "wikifacts-test"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func TestRevisions(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("prop") != "revisions" || q.Get("rvslots") != "main" || q.Get("formatversion") != "2" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		if q.Get("titles") != "raw_beef|Nope" {
			t.Errorf("unexpected titles: %q", q.Get("titles"))
		}
		if r.Header.Get("User-Agent") != "wikifacts-test" {
			t.Errorf("missing user agent")
		}
		fmt.Fprint(w, revisionsResponse)
	})

	revs, err := c.Revisions(context.Background(), []string{"raw_beef", "Nope"})
	if err != nil {
		t.Fatalf("revisions: %v", err)
	}
	want := []Revision{
		{
			Requested: "raw_beef",
			Title:     "Raw beef",
			Markup:    "{{Infobox Item\n|value=1\n}}",
			RevID:     14216,
			Timestamp: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		},
		{Requested: "Nope", Title: "Nope", Missing: true},
	}
	if !reflect.DeepEqual(revs, want) {
		t.Fatalf("unexpected revisions:\n%#v", revs)
	}
}

func TestRevisions_Errors(t *testing.T) {
	t.Run("too many titles", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			t.Errorf("no request expected")
		})
		titles := make([]string, MaxTitlesPerRequest+1)
		if _, err := c.Revisions(context.Background(), titles); !errors.Is(err, ErrTooManyTitles) {
			t.Fatalf("expected ErrTooManyTitles, got %v", err)
		}
	})

	t.Run("api error", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"error":{"code":"ratelimited","info":"slow down"}}`)
		})
		_, err := c.Revisions(context.Background(), []string{"Cow"})
		if !errors.Is(err, ErrAPI) || !strings.Contains(err.Error(), "ratelimited") {
			t.Fatalf("expected api error, got %v", err)
		}
	})

	t.Run("http status", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
		if _, err := c.Revisions(context.Background(), []string{"Cow"}); !errors.Is(err, ErrAPI) {
			t.Fatalf("expected api error, got %v", err)
		}
	})

	t.Run("not json", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, "<html>maintenance</html>")
		})
		if _, err := c.Revisions(context.Background(), []string{"Cow"}); !errors.Is(err, ErrAPI) {
			t.Fatalf("expected api error, got %v", err)
		}
	})

	t.Run("no titles", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			t.Errorf("no request expected")
		})
		revs, err := c.Revisions(context.Background(), nil)
		if err != nil || revs != nil {
			t.Fatalf("expected nothing, got %#v, %v", revs, err)
		}
	})
}

func TestCategoryMembers(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("list") != "categorymembers" || q.Get("cmtitle") != "Category:Monsters" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		fmt.Fprint(w, `{"continue":{"cmcontinue":"page|x"},"query":{"categorymembers":[{"ns":0,"title":"Cow"},{"ns":0,"title":"Goblin"}]}}`)
	})

	titles, err := c.CategoryMembers(context.Background(), "Monsters", 0)
	if err != nil {
		t.Fatalf("category members: %v", err)
	}
	if !reflect.DeepEqual(titles, []string{"Cow", "Goblin"}) {
		t.Fatalf("unexpected titles: %#v", titles)
	}
}

func TestRateLimiterHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"query":{"pages":[]}}`)
	}))
	defer srv.Close()

	c, err := New(Options{APIURL: srv.URL + "/api.php", RequestsPerSecond: 0.001, Burst: 1})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if _, err := c.Revisions(context.Background(), []string{"Cow"}); err != nil {
		t.Fatalf("first request uses the burst: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := c.Revisions(ctx, []string{"Cow"}); err == nil {
		t.Fatalf("expected the limiter to give up on the deadline")
	}
}

func TestPageURL(t *testing.T) {
	c, err := New(Options{APIURL: "https://oldschool.runescape.wiki/api.php"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if got := c.PageURL("Raw beef"); got != "https://oldschool.runescape.wiki/w/Raw_beef" {
		t.Fatalf("unexpected url: %s", got)
	}
}

func TestBatches(t *testing.T) {
	titles := []string{"a", "b", "c", "d", "e"}
	got := Batches(titles, 2)
	want := [][]string{{"a", "b"}, {"c", "d"}, {"e"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected batches: %#v", got)
	}
	if got := Batches(make([]string, 120), 0); len(got) != 3 || len(got[0]) != MaxTitlesPerRequest {
		t.Fatalf("default batch size must be the api limit")
	}
	if Batches(nil, 10) != nil {
		t.Fatalf("expected no batches")
	}
}

func TestNew_InvalidURL(t *testing.T) {
	if _, err := New(Options{APIURL: "not a url"}); err == nil {
		t.Fatalf("expected error")
	}
}
