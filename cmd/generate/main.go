package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/fatih/color"

	"github.com/SergeSyntax/mock-server/internal/auth"
	"github.com/SergeSyntax/mock-server/internal/config"
	"github.com/SergeSyntax/mock-server/internal/fixtures"
	"github.com/SergeSyntax/mock-server/internal/logging"
	"github.com/SergeSyntax/mock-server/internal/store"
)

func main() {
	if err := run(context.Background()); err != nil {
		slog.Error("fixture generation failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	logging.Setup("info")

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logging.Setup(cfg.LogLevel)
	if err := cfg.ValidateStore(); err != nil {
		return err
	}

	s, err := store.Open(ctx, cfg, store.DefaultOptions())
	if err != nil {
		return err
	}
	defer s.Close()

	gen := fixtures.NewGenerator(auth.Hasher{Cost: cfg.BcryptCost}, cfg.MockEmail, cfg.MockPassword)
	doc, creds, err := gen.Generate(ctx)
	if err != nil {
		return err
	}
	if err := s.Load(ctx, doc); err != nil {
		return fmt.Errorf("failed to write fixtures: %w", err)
	}

	target := cfg.DBPath
	if cfg.IsSQL() {
		target = cfg.StoreDriver + " store"
	}
	color.Green("%s created.", target)

	first := creds[0]
	fmt.Println("user generated:")
	fmt.Println("email:", color.CyanString(first.Email))
	fmt.Println("password:", color.CyanString(first.Password))
	return nil
}
