package ngram

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

const (
	// StartToken is the reserved marker padded before every sentence.
	StartToken = "<s>"
	// EndToken is the reserved marker appended after every sentence.
	EndToken = "</s>"
	// UnknownToken is the reserved marker substituted for tokens whose
	// corpus frequency falls below the model's minimum count.
	UnknownToken = "<unk>"
)

var (
	// ErrEmptyCorpus is returned by Train when the corpus contains no
	// tokenizable sentences after cleaning. The model is left untouched.
	ErrEmptyCorpus = errors.New("corpus contains no tokenizable sentences")

	// ErrUntrained is returned by Generate and GenerateFrom when the model
	// has no trained context table.
	ErrUntrained = errors.New("model has not been trained")
)

// TokenCount is one entry in a context's histogram: a candidate next token
// and the number of times it followed the context during training.
type TokenCount struct {
	Token string
	Count int
}

// histogram accumulates next-token counts for a single context. Entries keep
// their first-seen order so the sampling walk is stable for the lifetime of
// the model, and the running total always equals the sum of the counts.
type histogram struct {
	entries []TokenCount
	index   map[string]int // token -> position in entries
	total   int
}

func newHistogram() *histogram {
	return &histogram{index: make(map[string]int)}
}

func (h *histogram) add(token string) {
	h.addN(token, 1)
}

func (h *histogram) addN(token string, n int) {
	if i, ok := h.index[token]; ok {
		h.entries[i].Count += n
	} else {
		h.index[token] = len(h.entries)
		h.entries = append(h.entries, TokenCount{Token: token, Count: n})
	}
	h.total += n
}

// Model is a trainable n-gram language model. It holds the vocabulary and
// the context tables and exposes Train for building them and Generate for
// sampling from them. The zero value is not usable; use NewModel.
type Model struct {
	order    int
	minCount int
	vocab    map[string]struct{}
	contexts map[string]*histogram
	startKey string
	logger   *slog.Logger
}

// NewModel returns an empty model of the given order. Order is the n-gram
// size (3 for a trigram model); minCount is the number of occurrences a
// token needs in a training corpus to be kept out of the unknown marker.
// Invalid configuration is rejected, never clamped.
func NewModel(order, minCount int) (*Model, error) {
	if order < 2 {
		return nil, fmt.Errorf("order must be >= 2 for an n-gram model, got %d", order)
	}
	if minCount < 1 {
		return nil, fmt.Errorf("min count must be >= 1, got %d", minCount)
	}
	m := &Model{
		order:    order,
		minCount: minCount,
		vocab: map[string]struct{}{
			StartToken:   {},
			EndToken:     {},
			UnknownToken: {},
		},
		contexts: make(map[string]*histogram),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	m.startKey = contextKey(m.startWindow())
	return m, nil
}

// SetLogger sets the logger for the model. By default, all logs are
// discarded.
func (m *Model) SetLogger(logger *slog.Logger) {
	if logger != nil {
		m.logger = logger
	}
}

// Order returns the configured n-gram size.
func (m *Model) Order() int { return m.order }

// MinCount returns the configured vocabulary admission threshold.
func (m *Model) MinCount() int { return m.minCount }

// VocabSize returns the number of tokens in the vocabulary, reserved
// markers included.
func (m *Model) VocabSize() int { return len(m.vocab) }

// InVocabulary reports whether a token is in the model's vocabulary.
func (m *Model) InVocabulary(token string) bool {
	_, ok := m.vocab[token]
	return ok
}

// NextTokens returns a copy of the histogram recorded for the given context
// window, in its stable walk order, together with the context's total count.
// The boolean reports whether the context was observed during training.
func (m *Model) NextTokens(context []string) ([]TokenCount, int, bool) {
	h, ok := m.contexts[contextKey(context)]
	if !ok {
		return nil, 0, false
	}
	out := make([]TokenCount, len(h.entries))
	copy(out, h.entries)
	return out, h.total, true
}

// contextKey encodes a context window as a map key. Tokens never contain
// spaces, so the space join is injective.
func contextKey(window []string) string {
	return strings.Join(window, " ")
}

// startWindow returns a fresh all-start-marker context window.
func (m *Model) startWindow() []string {
	w := make([]string, m.order-1)
	for i := range w {
		w[i] = StartToken
	}
	return w
}
