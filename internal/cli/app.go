package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lazypower/newsletter/internal/analyzer"
	"github.com/lazypower/newsletter/internal/config"
	"github.com/lazypower/newsletter/internal/domain"
	"github.com/lazypower/newsletter/internal/engine"
	"github.com/lazypower/newsletter/internal/logger"
	"github.com/lazypower/newsletter/internal/store"
	"github.com/lazypower/newsletter/internal/store/boltstore"
)

// newTagger is replaced in tests to avoid loading prose models.
var newTagger = func() analyzer.Tagger { return analyzer.NewProseTagger() }

// app is what every command that touches the store needs.
type app struct {
	cfg    config.Config
	log    logger.Logger
	repo   domain.Repository
	engine *engine.Engine
	dbPath string
}

func openApp(cmd *cobra.Command) (*app, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	log, err := logger.New(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return nil, err
	}

	vocab := analyzer.DefaultVocabulary()
	if cfg.Analyzer.VocabularyFile != "" {
		if vocab, err = analyzer.LoadVocabulary(cfg.Analyzer.VocabularyFile); err != nil {
			return nil, err
		}
	}
	an := analyzer.New(newTagger(), vocab, analyzer.Options{
		MaxKeywords:      cfg.Analyzer.MaxKeywords,
		NormalizePhrases: cfg.Analyzer.NormalizePhrases,
	})

	repo, dbPath, err := openRepo(cfg.Database)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:    cfg,
		log:    log,
		repo:   repo,
		engine: engine.New(repo, an, cfg.Params(), log),
		dbPath: dbPath,
	}, nil
}

func (a *app) Close() {
	a.repo.Close()
	a.log.Sync()
}

// openRepo opens the configured backend, resolving an empty path to the
// default location for the driver.
func openRepo(cfg config.DatabaseConfig) (domain.Repository, string, error) {
	path := cfg.Path
	if path == "" {
		def, err := store.DefaultDBPath()
		if err != nil {
			return nil, "", fmt.Errorf("resolve db path: %w", err)
		}
		path = def
		if cfg.Driver == "bolt" {
			path = filepath.Join(filepath.Dir(def), "newsletter.bolt")
		}
	}

	switch cfg.Driver {
	case "bolt":
		db, err := boltstore.Open(path)
		if err != nil {
			return nil, "", fmt.Errorf("open database: %w", err)
		}
		return db, path, nil
	default:
		db, err := store.Open(path)
		if err != nil {
			return nil, "", fmt.Errorf("open database: %w", err)
		}
		return db, path, nil
	}
}

// readInput returns args joined, or stdin when no args are given.
func readInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok {
		if st, err := f.Stat(); err == nil && st.Mode()&os.ModeCharDevice != 0 {
			return "", errors.New("no text given: pass it as arguments or on stdin")
		}
	}
	buf, err := io.ReadAll(in)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(buf), nil
}
