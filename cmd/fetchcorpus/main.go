// Command fetchcorpus downloads a Project Gutenberg book, strips the
// license boilerplate and saves the cleaned text as a training corpus.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/natefinch/atomic"

	"github.com/Shubh-17-am/ml-intern-assessment/pkg/gutenberg"
)

func main() {
	var (
		bookID  = flag.Int("book-id", 0, "Project Gutenberg numeric ID (e.g. 11 for Alice in Wonderland)")
		output  = flag.String("output", "./data/corpus.txt", "where to store the cleaned text")
		timeout = flag.Duration("timeout", 60*time.Second, "overall download timeout")
	)
	flag.Parse()

	if *bookID < 1 {
		fmt.Fprintln(os.Stderr, "error: -book-id is required and must be >= 1")
		flag.Usage()
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if err := run(*bookID, *output, *timeout, logger); err != nil {
		logger.Error("Fetch failed", "error", err)
		os.Exit(1)
	}
}

func run(bookID int, output string, timeout time.Duration, logger *slog.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	client := gutenberg.NewClient(
		gutenberg.WithHTTPClient(&http.Client{Timeout: timeout}),
		gutenberg.WithLogger(logger),
	)

	raw, err := client.Download(ctx, bookID)
	if err != nil {
		return err
	}

	cleaned := gutenberg.Clean(raw)
	if cleaned == "" {
		return fmt.Errorf("book %d produced an empty corpus after cleaning", bookID)
	}

	if dir := filepath.Dir(output); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := atomic.WriteFile(output, strings.NewReader(cleaned)); err != nil {
		return fmt.Errorf("failed to write corpus to '%s': %w", output, err)
	}
	logger.Info("Corpus saved", "path", output, "bytes", len(cleaned))

	fmt.Printf("Saved cleaned corpus to %s\n", output)
	return nil
}
