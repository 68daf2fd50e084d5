package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/internal/index"
	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/internal/index/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/pkg/blob"
	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/pkg/logger"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	input := flag.String("input", "", "JSON Lines corpus, one document per line")
	out := flag.String("out", "", "output directory (defaults to storage.dir)")
	blockSize := flag.Int("block-size", index.DefaultBlockSize, "maximum posting block size in bytes")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	if *input == "" {
		slog.Error("-input is required")
		os.Exit(2)
	}
	dir := *out
	if dir == "" {
		dir = cfg.Storage.Dir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		slog.Error("failed to create output directory", "dir", dir, "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	if err := run(ctx, cfg, *input, dir, *blockSize); err != nil {
		slog.Error("indexing failed", "error", err)
		os.Exit(1)
	}
	slog.Info("indexing complete", "dir", dir, "duration", time.Since(start))
}

func run(ctx context.Context, cfg *config.Config, input, dir string, blockSize int) error {
	store, err := blob.NewDirStore(dir)
	if err != nil {
		return err
	}
	ix, err := indexer.New(cfg.Fields, cfg.Metadata, tokenizer.New(tokenizer.Pattern(cfg.Tokenizer.Pattern)))
	if err != nil {
		return err
	}

	f, err := os.Open(input)
	if err != nil {
		return fmt.Errorf("opening corpus: %w", err)
	}
	defer f.Close()

	n, err := ix.ReadJSONL(ctx, f)
	if err != nil {
		return err
	}
	slog.Info("corpus read", "input", input, "documents", n)

	stats, err := ix.Write(ctx, store, blockSize)
	if err != nil {
		return err
	}
	slog.Info("index written", "fields", stats.Fields, "documents", stats.Documents, "blobs", stats.Blobs)
	return nil
}
