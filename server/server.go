// Package server exposes exported conversations as a small HTTP feed so
// other tools on the machine can browse the catalog.
package server

import (
	"fmt"

	"go.uber.org/zap"

	"lunatui/config"
	"lunatui/storage"
)

// Run reindexes the export directory and serves the catalog until the
// listener fails. It blocks.
func Run(cfg *config.Config, logger *zap.Logger) error {
	index, err := storage.NewCatalogIndex(cfg.DataDir())
	if err != nil {
		return fmt.Errorf("failed to open catalog index: %w", err)
	}
	defer index.Close()

	// Pick up exports written while the server was down
	if err := index.Reindex(cfg.ExportDir()); err != nil {
		logger.Warn("catalog reindex failed", zap.Error(err))
	}

	h := NewHandlers(logger, cfg.ExportDir(), index)
	r := NewRouter(logger, h)

	logger.Info("catalog server listening",
		zap.String("addr", cfg.CatalogListen),
		zap.String("exports", cfg.ExportDir()),
	)
	return r.Run(cfg.CatalogListen)
}
