package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/go-pkgz/lgr"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/pders01/wikan/internal/config"
	"github.com/pders01/wikan/internal/search"
	"github.com/pders01/wikan/internal/server"
	"github.com/pders01/wikan/internal/storage"
)

var (
	serveListen string
	serveDB     string
	serveDebug  bool
	serveNoIdx  bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the local saved-article server",
	Long: `serve exposes the personal article store over HTTP using the same
/articles routes as the analysis backend, backed by a local bbolt database
and a bleve full-text index.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&serveListen, "listen", "l", "", "Listen address (overrides config)")
	serveCmd.Flags().StringVar(&serveDB, "db", "", "Path to database file (overrides config)")
	serveCmd.Flags().BoolVar(&serveDebug, "dbg", false, "Debug mode")
	serveCmd.Flags().BoolVar(&serveNoIdx, "no-index", false, "Use the scanning search engine instead of the bleve index")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveListen != "" {
		cfg.Server.Listen = serveListen
	}
	if serveDB != "" {
		cfg.Store.Path = serveDB
	}

	setupLog(serveDebug)
	log.Printf("[INFO] starting wikan server version %s", Version)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return serve(ctx, cfg, Version, serveDebug, !serveNoIdx)
}

// serve runs the article server until ctx is canceled.
func serve(ctx context.Context, cfg *config.Config, version string, debug, useIndex bool) error {
	store, err := storage.NewStore(ctx, cfg.Store.Path, cfg.Store.Timeout)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer store.Close()
	if n, err := store.Count(); err == nil {
		log.Printf("[INFO] store %s holds %d articles", cfg.Store.Path, n)
	}

	searcher, closeSearch, err := openSearcher(store, cfg.Store.SearchIndex, useIndex)
	if err != nil {
		return err
	}
	defer closeSearch()

	srv := server.New(cfg.Server, store, searcher, version, debug)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(ctx)
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Print("[INFO] termination signal received")
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("[ERROR] server failed: %v", err)
		return err
	}
	log.Print("[INFO] shutdown complete")
	return nil
}

// openSearcher prefers the bleve index and falls back to scanning the store
// when no index path is configured or the index cannot be opened.
func openSearcher(store *storage.Store, indexPath string, useIndex bool) (search.Searcher, func(), error) {
	noop := func() {}
	if !useIndex || indexPath == "" {
		log.Print("[INFO] using scanning search engine")
		return search.NewEngine(store), noop, nil
	}

	idx, err := search.NewBleveEngine(store, indexPath)
	if err != nil {
		log.Printf("[WARN] search index unavailable, falling back to scan: %v", err)
		return search.NewEngine(store), noop, nil
	}
	logIndexStats(idx, indexPath)
	return idx, func() {
		if err := idx.Close(); err != nil {
			log.Printf("[WARN] closing search index: %v", err)
		}
	}, nil
}

func logIndexStats(s search.Searcher, indexPath string) {
	st, ok := s.(search.DebugStatser)
	if !ok {
		return
	}
	if n, err := st.DocCount(); err == nil {
		log.Printf("[INFO] search index %s has %d documents", indexPath, n)
	}
}

func setupLog(dbg bool, secs ...string) {
	logOpts := []lgr.Option{lgr.Msec, lgr.LevelBraces}
	if dbg {
		logOpts = []lgr.Option{lgr.Debug, lgr.CallerFile, lgr.CallerFunc, lgr.Msec, lgr.LevelBraces, lgr.StackTraceOnError}
	}

	colorizer := lgr.Mapper{
		ErrorFunc:  func(s string) string { return color.New(color.FgHiRed).Sprint(s) },
		WarnFunc:   func(s string) string { return color.New(color.FgRed).Sprint(s) },
		InfoFunc:   func(s string) string { return color.New(color.FgYellow).Sprint(s) },
		DebugFunc:  func(s string) string { return color.New(color.FgWhite).Sprint(s) },
		CallerFunc: func(s string) string { return color.New(color.FgBlue).Sprint(s) },
		TimeFunc:   func(s string) string { return color.New(color.FgCyan).Sprint(s) },
	}
	logOpts = append(logOpts, lgr.Map(colorizer))
	if len(secs) > 0 {
		logOpts = append(logOpts, lgr.Secret(secs...))
	}
	lgr.SetupStdLogger(logOpts...)
	lgr.Setup(logOpts...)
}
