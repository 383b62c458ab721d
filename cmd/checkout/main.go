package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/noah-isme/pos-checkout/internal/catalog"
	"github.com/noah-isme/pos-checkout/internal/checkout"
	"github.com/noah-isme/pos-checkout/internal/config"
	"github.com/noah-isme/pos-checkout/internal/obs"
	"github.com/noah-isme/pos-checkout/internal/prompt"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	path := flag.String("catalog", cfg.CatalogPath, "pricing rules document")
	flag.Parse()

	logger := obs.NewLogger(cfg.Obs.LogFormat, cfg.Obs.LogLevel)

	c, err := catalog.LoadFile(*path)
	if err != nil {
		logger.Fatal().Err(err).Str("path", *path).Msg("load catalog")
	}
	session, err := checkout.New(c)
	if err != nil {
		logger.Fatal().Err(err).Msg("start checkout")
	}

	p := prompt.Prompt{In: os.Stdin, Out: os.Stdout, Session: session, Logger: logger}
	if err := p.Run(context.Background()); err != nil {
		logger.Fatal().Err(err).Msg("register prompt")
	}
}
