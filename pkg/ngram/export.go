package ngram

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
)

// ExportedModel is the JSON representation of a trained model. Vocabulary
// and contexts are sorted for stable output; transitions keep their
// histogram order, which Import preserves so a round-tripped model samples
// identically to the original.
type ExportedModel struct {
	Order      int               `json:"order"`
	MinCount   int               `json:"min_count"`
	Vocabulary []string          `json:"vocabulary"`
	Contexts   []ExportedContext `json:"contexts"`
}

// ExportedContext holds one context window and its outgoing transitions.
// The context is the space-joined token window.
type ExportedContext struct {
	Context     string               `json:"context"`
	Transitions []ExportedTransition `json:"transitions"`
}

// ExportedTransition is a single observed next-token with its frequency.
type ExportedTransition struct {
	Token string `json:"token"`
	Count int    `json:"count"`
}

// Export writes the model to w as indented JSON. The output is stable for a
// given model state and can be read back with ImportModel.
func (m *Model) Export(w io.Writer) error {
	exported := ExportedModel{
		Order:      m.order,
		MinCount:   m.minCount,
		Vocabulary: make([]string, 0, len(m.vocab)),
		Contexts:   make([]ExportedContext, 0, len(m.contexts)),
	}

	for token := range m.vocab {
		exported.Vocabulary = append(exported.Vocabulary, token)
	}
	sort.Strings(exported.Vocabulary)

	for key, h := range m.contexts {
		ec := ExportedContext{
			Context:     key,
			Transitions: make([]ExportedTransition, 0, len(h.entries)),
		}
		for _, tc := range h.entries {
			ec.Transitions = append(ec.Transitions, ExportedTransition{Token: tc.Token, Count: tc.Count})
		}
		exported.Contexts = append(exported.Contexts, ec)
	}
	sort.Slice(exported.Contexts, func(i, j int) bool {
		return exported.Contexts[i].Context < exported.Contexts[j].Context
	})

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(exported); err != nil {
		return fmt.Errorf("failed to encode model: %w", err)
	}
	return nil
}

// ImportModel reads a model previously written by Export. It validates the
// configuration and transition data before constructing the model and
// returns an error describing the first problem found.
func ImportModel(r io.Reader) (*Model, error) {
	var exported ExportedModel
	decoder := json.NewDecoder(r)
	if err := decoder.Decode(&exported); err != nil {
		return nil, fmt.Errorf("failed to decode model: %w", err)
	}

	m, err := NewModel(exported.Order, exported.MinCount)
	if err != nil {
		return nil, fmt.Errorf("imported model has invalid configuration: %w", err)
	}

	for _, token := range exported.Vocabulary {
		if token == "" {
			return nil, fmt.Errorf("imported vocabulary contains an empty token")
		}
		m.vocab[token] = struct{}{}
	}

	for _, ec := range exported.Contexts {
		window := strings.Fields(ec.Context)
		if len(window) != m.order-1 {
			return nil, fmt.Errorf("context '%s' has %d tokens, want %d for an order-%d model", ec.Context, len(window), m.order-1, m.order)
		}
		if len(ec.Transitions) == 0 {
			return nil, fmt.Errorf("context '%s' has no transitions", ec.Context)
		}
		h := newHistogram()
		for _, tr := range ec.Transitions {
			if tr.Token == "" {
				return nil, fmt.Errorf("context '%s' has a transition with an empty token", ec.Context)
			}
			if tr.Count < 1 {
				return nil, fmt.Errorf("transition (%s -> %s) has invalid count %d", ec.Context, tr.Token, tr.Count)
			}
			h.addN(tr.Token, tr.Count)
		}
		m.contexts[ec.Context] = h
	}

	return m, nil
}
