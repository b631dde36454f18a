package ngram

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
)

// DefaultMaxLength is the generation length cap used when WithMaxLength is
// not given.
const DefaultMaxLength = 50

// generateOptions is used by the generate functions to configure default
// options.
type generateOptions struct {
	maxLength int
	rng       *rand.Rand
}

// GenerateOption is a function that configures generation parameters. It's
// used as a variadic argument in Generate and GenerateFrom.
type GenerateOption func(*generateOptions)

// WithMaxLength sets the maximum number of tokens to generate. Generation
// stops earlier if the end marker is drawn. Values below 1 are rejected by
// Generate, never clamped.
func WithMaxLength(n int) GenerateOption {
	return func(o *generateOptions) { o.maxLength = n }
}

// WithSeed fixes the random source so that repeated calls with the same seed
// on the same trained model produce identical sequences.
func WithSeed(seed uint64) GenerateOption {
	return func(o *generateOptions) { o.rng = rand.New(rand.NewPCG(seed, seed)) }
}

// WithRand supplies a caller-owned random source. Successive calls sharing
// one source draw from the same stream, which makes a multi-sample run
// reproducible as a whole.
func WithRand(r *rand.Rand) GenerateOption {
	return func(o *generateOptions) { o.rng = r }
}

// Generate samples one token sequence from the trained model, starting from
// the all-start-marker context. The returned sequence includes the end
// marker when one is drawn; it is always the final token. Generation stops
// after the configured maximum length even if no end marker was drawn.
func (m *Model) Generate(opts ...GenerateOption) ([]string, error) {
	return m.GenerateFrom(nil, opts...)
}

// GenerateFrom samples one token sequence continuing from the given seed
// tokens. Seed tokens outside the vocabulary are treated as the unknown
// marker; the context window is the last order-1 of them, padded with start
// markers when the seed is shorter. Only newly generated tokens are
// returned, the seed is not echoed.
func (m *Model) GenerateFrom(seed []string, opts ...GenerateOption) ([]string, error) {
	options := &generateOptions{maxLength: DefaultMaxLength}
	for _, opt := range opts {
		opt(options)
	}

	if options.maxLength < 1 {
		return nil, fmt.Errorf("max length must be >= 1, got %d", options.maxLength)
	}
	if len(m.contexts) == 0 {
		return nil, ErrUntrained
	}
	if options.rng == nil {
		options.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	window := m.startWindow()
	for _, token := range seed {
		if _, ok := m.vocab[token]; !ok {
			token = UnknownToken
		}
		window = append(window[1:], token)
	}

	generated := make([]string, 0, options.maxLength)
	for len(generated) < options.maxLength {
		next := m.sampleNext(window, options.rng)
		generated = append(generated, next)
		if next == EndToken {
			break
		}
		window = append(window[1:], next)
	}

	if generated[len(generated)-1] == EndToken {
		m.logger.Debug("generation terminated by end marker",
			slog.Int("generated_length", len(generated)))
	} else {
		m.logger.Debug("generation terminated by length cap",
			slog.Int("max_length", options.maxLength),
			slog.Int("generated_length", len(generated)))
	}
	return generated, nil
}

// sampleNext draws the next token for the window by inverse-CDF sampling
// over the context's histogram: a uniform draw in [0, total) selects the
// first entry whose cumulative count exceeds it. A context never observed in
// training falls back to the all-start-marker context, which biases recovery
// toward sentence openings rather than failing.
func (m *Model) sampleNext(window []string, rng *rand.Rand) string {
	h, ok := m.contexts[contextKey(window)]
	if !ok {
		if h, ok = m.contexts[m.startKey]; !ok {
			// Only reachable on an empty table, which Generate rejects.
			return EndToken
		}
	}

	draw := rng.IntN(h.total)
	for _, tc := range h.entries {
		draw -= tc.Count
		if draw < 0 {
			return tc.Token
		}
	}
	// Totals always match the entry sums, so the walk cannot fall through.
	return EndToken
}

// Text renders a generated sequence as plain text: start and end markers are
// stripped and the remaining tokens joined with single spaces. Unknown
// markers are kept, they are part of what the model learned. Rendering is a
// presentation concern; the raw sequence is the sampling contract.
func Text(tokens []string) string {
	words := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if token == StartToken || token == EndToken {
			continue
		}
		words = append(words, token)
	}
	return strings.Join(words, " ")
}
