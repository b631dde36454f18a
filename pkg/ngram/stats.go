package ngram

// ModelStats holds aggregated size statistics for a trained model.
type ModelStats struct {
	VocabSize      int // tokens in the vocabulary, reserved markers included
	Contexts       int // distinct contexts observed during training
	Transitions    int // unique (context, next token) pairs
	TotalFrequency int // sum of all context totals; the number of trained windows
	StartingTokens int // distinct tokens recorded after the all-start context
}

// Stats walks the context table and returns a snapshot of the model's
// current size.
func (m *Model) Stats() ModelStats {
	s := ModelStats{
		VocabSize: len(m.vocab),
		Contexts:  len(m.contexts),
	}
	for _, h := range m.contexts {
		s.Transitions += len(h.entries)
		s.TotalFrequency += h.total
	}
	if h, ok := m.contexts[m.startKey]; ok {
		s.StartingTokens = len(h.entries)
	}
	return s
}
