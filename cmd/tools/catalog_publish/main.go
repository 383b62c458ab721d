package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/pos-checkout/internal/catalog"
	"github.com/noah-isme/pos-checkout/internal/config"
	"github.com/noah-isme/pos-checkout/internal/obs"
)

func main() {
	file := flag.String("file", "", "catalog document to publish")
	name := flag.String("name", "", "catalog name (defaults to the file name without extension)")
	dir := flag.String("dir", "", "publish every *.json catalog in this directory")
	dryRun := flag.Bool("dry-run", false, "validate only")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	logger := obs.NewLogger(cfg.Obs.LogFormat, cfg.Obs.LogLevel)

	files, err := collect(*file, *dir)
	if err != nil {
		logger.Fatal().Err(err).Msg("select catalogs")
	}
	if *name != "" && len(files) != 1 {
		logger.Fatal().Msg("-name needs exactly one catalog file")
	}

	var store catalog.Publisher
	if !*dryRun {
		if cfg.RedisURL == "" {
			logger.Fatal().Msg("REDIS_URL is not set")
		}
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("parse redis url")
		}
		client := redis.NewClient(opts)
		defer func() { _ = client.Close() }()
		store = catalog.NewRedisStore(client, cfg.CatalogRedisPrefix, cfg.CatalogCacheTTL)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	failed := 0
	for _, path := range files {
		catalogName := *name
		if catalogName == "" {
			catalogName = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		}
		if err := publish(ctx, store, catalogName, path, logger); err != nil {
			failed++
			logger.Error().Err(err).Str("catalog", catalogName).Str("file", path).Msg("catalog rejected")
		}
	}
	if failed > 0 {
		logger.Error().Int("failed", failed).Int("total", len(files)).Msg("publish finished with errors")
		os.Exit(1)
	}
	logger.Info().Int("total", len(files)).Bool("dry_run", *dryRun).Msg("publish finished")
}

func collect(file, dir string) ([]string, error) {
	switch {
	case file != "" && dir != "":
		return nil, errors.New("use either -file or -dir")
	case file != "":
		return []string{file}, nil
	case dir != "":
		matches, err := filepath.Glob(filepath.Join(dir, "*.json"))
		if err != nil {
			return nil, err
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no catalogs in %s", dir)
		}
		return matches, nil
	default:
		return nil, errors.New("one of -file or -dir is required")
	}
}

// publish validates the document and, unless store is nil, stores it under name.
func publish(ctx context.Context, store catalog.Publisher, name, path string, logger zerolog.Logger) error {
	if !catalog.ValidName(name) {
		return fmt.Errorf("invalid catalog name %q", name)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	c, err := catalog.Parse(raw)
	if err != nil {
		return err
	}
	if store != nil {
		if err := store.Put(ctx, name, raw); err != nil {
			return err
		}
	}
	logger.Info().Str("catalog", name).Strs("items", c.Codes()).Str("currency", c.Display.Currency).Msg("catalog ok")
	return nil
}
