package store

import (
	"context"

	"github.com/SergeSyntax/mock-server/internal/config"
	"github.com/SergeSyntax/mock-server/internal/database"
	"github.com/SergeSyntax/mock-server/internal/models"
)

// DefaultOptions describes the mock API document: its five collections and
// unique user emails.
func DefaultOptions() Options {
	return Options{
		Collections: append([]string(nil), models.Collections...),
		Unique:      map[string]string{models.CollectionUsers: "email"},
	}
}

// Open returns the backend selected by cfg.StoreDriver.
func Open(ctx context.Context, cfg *config.Config, opts Options) (Store, error) {
	if !cfg.IsSQL() {
		return OpenFile(cfg.DBPath, opts)
	}
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, err
	}
	s, err := NewGormStore(ctx, db, opts)
	if err != nil {
		_ = database.Close(db)
		return nil, err
	}
	return s, nil
}
