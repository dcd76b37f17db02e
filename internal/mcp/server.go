package mcp

import (
	"context"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"wikifacts/internal/query"
)

type Server struct {
	query *query.Service
	mcp   *sdk.Server
}

func NewServer(q *query.Service, version string) *Server {
	s := &Server{
		query: q,
		mcp: sdk.NewServer(&sdk.Implementation{
			Name:    "wikifacts",
			Version: version,
		}, nil),
	}
	s.registerTools()
	return s
}

func (s *Server) Run(ctx context.Context, transport sdk.Transport) error {
	return s.mcp.Run(ctx, transport)
}
