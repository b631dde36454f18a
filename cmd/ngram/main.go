package main

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/natefinch/atomic"

	"github.com/Shubh-17-am/ml-intern-assessment/pkg/ngram"
)

// cliOptions holds the flags that select what the command does, as opposed
// to the model settings that live in Config.
type cliOptions struct {
	seed       int64
	saveName   string
	loadName   string
	deleteName string
	importPath string
	exportPath string
	list       bool
}

func main() {
	var (
		configPath = flag.String("config", "./config.json", "path to the JSON config file")
		corpusPath = flag.String("corpus", "", "path to the training corpus (overrides config)")
		dbPath     = flag.String("db", "", "path to the model database (overrides config)")
		order      = flag.Int("order", 0, "n-gram order, 3 for trigrams (overrides config)")
		minCount   = flag.Int("min-count", 0, "occurrences needed to keep a token out of <unk> (overrides config)")
		maxLength  = flag.Int("max-length", 0, "maximum tokens per generated sample (overrides config)")
		numSamples = flag.Int("num-samples", 0, "independent samples to generate (overrides config)")
		seed       = flag.Int64("seed", -1, "random seed for reproducible sampling, negative for random")
		saveName   = flag.String("save", "", "save the model to the database under this name")
		loadName   = flag.String("load", "", "load a saved model instead of training")
		deleteName = flag.String("delete", "", "delete a saved model and exit")
		importPath = flag.String("import", "", "import a model from a JSON export instead of training")
		exportPath = flag.String("export", "", "export the model as JSON to this path")
		list       = flag.Bool("list", false, "list saved models and exit")
	)
	flag.Parse()

	// A .env file is optional; absence is not an error.
	_ = godotenv.Load()

	config, err := LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	config.applyEnv()

	// Only flags the user actually set override the config, so an
	// explicit invalid value is rejected instead of silently replaced.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "corpus":
			config.CorpusPath = *corpusPath
		case "db":
			config.DatabasePath = *dbPath
		case "order":
			config.Order = *order
		case "min-count":
			config.MinCount = *minCount
		case "max-length":
			config.MaxLength = *maxLength
		case "num-samples":
			config.NumSamples = *numSamples
		}
	})

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLogLevel(config.LogLevel)}))

	opts := &cliOptions{
		seed:       *seed,
		saveName:   *saveName,
		loadName:   *loadName,
		deleteName: *deleteName,
		importPath: *importPath,
		exportPath: *exportPath,
		list:       *list,
	}

	if err := run(config, opts, logger); err != nil {
		logger.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

func run(config *Config, opts *cliOptions, logger *slog.Logger) error {
	if config.NumSamples < 1 {
		return fmt.Errorf("num samples must be >= 1, got %d", config.NumSamples)
	}
	if opts.loadName != "" && opts.importPath != "" {
		return errors.New("-load and -import are mutually exclusive")
	}

	ctx := context.Background()

	var store *ngram.Store
	if opts.list || opts.deleteName != "" || opts.saveName != "" || opts.loadName != "" {
		db, err := openDatabase(config.DatabasePath)
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()

		if store, err = ngram.NewStore(db); err != nil {
			return fmt.Errorf("failed to create model store: %w", err)
		}
		defer store.Close()
		store.SetLogger(logger)
	}

	if opts.list {
		return listModels(ctx, store)
	}
	if opts.deleteName != "" {
		return store.Delete(ctx, opts.deleteName)
	}

	model, err := buildModel(ctx, config, opts, store, logger)
	if err != nil {
		return err
	}

	if opts.saveName != "" {
		if err := store.Save(ctx, opts.saveName, model); err != nil {
			return fmt.Errorf("failed to save model '%s': %w", opts.saveName, err)
		}
	}

	if opts.exportPath != "" {
		var buf bytes.Buffer
		if err := model.Export(&buf); err != nil {
			return err
		}
		if err := atomic.WriteFile(opts.exportPath, &buf); err != nil {
			return fmt.Errorf("failed to write export to '%s': %w", opts.exportPath, err)
		}
		logger.Info("Model exported", "path", opts.exportPath)
	}

	// One shared source across samples keeps every sample independent
	// while the run as a whole stays reproducible for a fixed seed.
	rng := newRand(opts.seed)
	for i := 1; i <= config.NumSamples; i++ {
		tokens, err := model.Generate(ngram.WithMaxLength(config.MaxLength), ngram.WithRand(rng))
		if err != nil {
			return fmt.Errorf("generation failed: %w", err)
		}
		fmt.Printf("Generated Text #%d:\n", i)
		fmt.Println(ngram.Text(tokens))
		fmt.Println(strings.Repeat("-", 60))
	}

	return nil
}

// buildModel produces the model to work with: loaded from the store,
// imported from a JSON export, or trained fresh from the corpus file.
func buildModel(ctx context.Context, config *Config, opts *cliOptions, store *ngram.Store, logger *slog.Logger) (*ngram.Model, error) {
	if opts.loadName != "" {
		model, err := store.Load(ctx, opts.loadName)
		if err != nil {
			return nil, err
		}
		model.SetLogger(logger)
		return model, nil
	}

	if opts.importPath != "" {
		f, err := os.Open(opts.importPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open import file: %w", err)
		}
		defer func() { _ = f.Close() }()

		model, err := ngram.ImportModel(f)
		if err != nil {
			return nil, fmt.Errorf("failed to import model from '%s': %w", opts.importPath, err)
		}
		model.SetLogger(logger)
		return model, nil
	}

	model, err := ngram.NewModel(config.Order, config.MinCount)
	if err != nil {
		return nil, err
	}
	model.SetLogger(logger)

	corpus, err := os.ReadFile(config.CorpusPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read corpus '%s': %w", config.CorpusPath, err)
	}
	if err := model.Train(string(corpus)); err != nil {
		return nil, fmt.Errorf("failed to train on '%s': %w", config.CorpusPath, err)
	}

	stats := model.Stats()
	logger.Info("Model trained",
		"corpus", config.CorpusPath,
		"vocab_size", stats.VocabSize,
		"contexts", stats.Contexts,
		"transitions", stats.Transitions,
	)
	return model, nil
}

// openDatabase creates the database directory if needed, opens the
// connection and initializes the schema.
func openDatabase(dataSource string) (*sql.DB, error) {
	if dir := filepath.Dir(strings.SplitN(dataSource, "?", 2)[0]); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := initDB(dataSource)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if err = ngram.SetupSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set up schema: %w", err)
	}
	return db, nil
}

func listModels(ctx context.Context, store *ngram.Store) error {
	infos, err := store.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list models: %w", err)
	}
	if len(infos) == 0 {
		fmt.Println("no saved models")
		return nil
	}
	for _, info := range infos {
		fmt.Printf("%s\torder=%d\tmin_count=%d\n", info.Name, info.Order, info.MinCount)
	}
	return nil
}

// newRand builds the sampling source. Any non-negative seed gives a
// reproducible run; a negative seed draws a fresh one.
func newRand(seed int64) *rand.Rand {
	if seed >= 0 {
		return rand.New(rand.NewPCG(uint64(seed), uint64(seed)))
	}
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}
