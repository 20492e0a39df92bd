package internal

import (
	"context"
	"log/slog"

	"github.com/starford/ansuz/internal/index"
	"github.com/starford/ansuz/internal/mcpserver"
)

// ServeMCP indexes the vault once and serves MCP tools over stdio until
// the client disconnects.
func ServeMCP(_ context.Context, opts ...Option) error {
	rt, err := newRuntime(opts...)
	if err != nil {
		return err
	}
	defer rt.close()

	if err := index.Sync(rt.db, rt.store, rt.cfg.Search.PreviewLength, rt.logger); err != nil {
		rt.logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	srv := mcpserver.New(rt.store, rt.svc)
	return srv.ServeStdio()
}
