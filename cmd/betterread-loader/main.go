// Command betterread-loader loads Open Library author and work dumps into a
// SQLite or PostgreSQL record store.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"

	"github.com/DSverma/betterread-data-uploader/pkg/config"
	"github.com/DSverma/betterread-data-uploader/pkg/db"
	"github.com/DSverma/betterread-data-uploader/pkg/db/pgstore"
	"github.com/DSverma/betterread-data-uploader/pkg/dump"
	"github.com/DSverma/betterread-data-uploader/pkg/loader"
)

func main() {
	if err := mainImpl(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "betterread-loader: %v\n", err)
		os.Exit(1)
	}
}

func mainImpl() error {
	config.LoadEnvFiles()
	cfg := config.Load()

	flag.StringVar(&cfg.Authors.Path, "authors", cfg.Authors.Path, "Path to the authors dump (.txt or .txt.gz)")
	flag.StringVar(&cfg.Works.Path, "works", cfg.Works.Path, "Path to the works dump (.txt or .txt.gz)")
	flag.StringVar(&cfg.Authors.URL, "authors-url", cfg.Authors.URL, "Download the authors dump from this URL when it is missing")
	flag.StringVar(&cfg.Works.URL, "works-url", cfg.Works.URL, "Download the works dump from this URL when it is missing")
	flag.IntVar(&cfg.Authors.Skip, "authors-skip", cfg.Authors.Skip, "Leading author lines to skip")
	flag.IntVar(&cfg.Authors.Limit, "authors-limit", cfg.Authors.Limit, "Author lines to load after skipping (0 = all)")
	flag.IntVar(&cfg.Works.Skip, "works-skip", cfg.Works.Skip, "Leading work lines to skip")
	flag.IntVar(&cfg.Works.Limit, "works-limit", cfg.Works.Limit, "Work lines to load after skipping (0 = all)")
	flag.BoolVar(&cfg.Authors.Enabled, "load-authors", cfg.Authors.Enabled, "Run the author pipeline")
	flag.BoolVar(&cfg.Works.Enabled, "load-works", cfg.Works.Enabled, "Run the book pipeline")
	flag.StringVar(&cfg.StoreDSN, "db", cfg.StoreDSN, "SQLite database path or postgres:// URL")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	useLatest := flag.Bool("latest", false, "Download the latest Open Library dumps when the dump files are missing")
	flag.Parse()
	if len(flag.Args()) > 0 {
		return fmt.Errorf("unknown arguments: %v", flag.Args())
	}

	ll := &slog.LevelVar{}
	if err := ll.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	logger := slog.New(tint.NewHandler(colorable.NewColorable(os.Stderr), &tint.Options{
		Level:      ll,
		TimeFormat: "15:04:05.000",
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
	}))
	slog.SetDefault(logger)

	if *useLatest {
		if cfg.Authors.URL == "" {
			cfg.Authors.URL = dump.AuthorsDumpURL
		}
		if cfg.Works.URL == "" {
			cfg.Works.URL = dump.WorksDumpURL
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	l := loader.NewLoader(store, &loader.LogObserver{Logger: logger})
	l.Resolver = &loader.StoreResolver{
		Store: store,
		OnError: func(authorID string, err error) {
			logger.WarnContext(ctx, "Author lookup failed, using placeholder", "author_id", authorID, "err", err)
		},
	}

	return l.Run(ctx, loader.RunConfig{
		Authors: pipeline(cfg.Authors),
		Works:   pipeline(cfg.Works),
	})
}

// openStore connects to the record store selected by cfg.StoreDSN.
func openStore(ctx context.Context, cfg *config.Config) (loader.RecordStore, func(), error) {
	if cfg.IsPostgres() {
		s, err := pgstore.Connect(ctx, cfg.StoreDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		slog.InfoContext(ctx, "Connected to PostgreSQL store")
		return s, s.Close, nil
	}

	conn, err := db.Open(cfg.StoreDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("open sqlite store %s: %w", cfg.StoreDSN, err)
	}
	slog.InfoContext(ctx, "Database initialized", "path", cfg.StoreDSN)
	return db.NewStore(conn), func() { conn.Close() }, nil
}

func pipeline(d config.Dump) loader.Pipeline {
	return loader.Pipeline{
		Enabled: d.Enabled,
		Path:    d.Path,
		URL:     d.URL,
		Options: dump.Options{Skip: d.Skip, Limit: d.Limit},
	}
}
