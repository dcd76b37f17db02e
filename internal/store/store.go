package store

import (
	"context"

	"wikifacts/internal/facts"
)

type Store interface {
	Close(ctx context.Context) error
	EnsureSchema(ctx context.Context) error

	UpsertPage(ctx context.Context, p Page) error
	GetPage(ctx context.Context, title string) (*Page, error)
	ListPageTitles(ctx context.Context) ([]string, error)
	SearchPages(ctx context.Context, query string, limit int) ([]SearchResult, error)

	GetFactHashes(ctx context.Context, kind facts.Kind) (map[string]string, error)
	UpsertFactRecord(ctx context.Context, rec facts.Record, sourceHash string) error
	GetFactRecord(ctx context.Context, kind facts.Kind, title string) (*facts.Record, error)
	ListFactRecords(ctx context.Context, kind facts.Kind) ([]facts.Record, error)
	DeleteFactRecord(ctx context.Context, kind facts.Kind, title string) (bool, error)

	ReplaceMultiValued(ctx context.Context, title string, kind facts.Kind, field string, values []string) (ReplaceResult, error)
	MultiValues(ctx context.Context, kind facts.Kind, title, field string) ([]string, error)
	TitlesWithValue(ctx context.Context, kind facts.Kind, field, value string) ([]string, error)
	ListDanglingValues(ctx context.Context, fields []string) ([]DanglingValue, error)

	RunSQL(ctx context.Context, query string, params map[string]any) ([]map[string]any, error)
}
