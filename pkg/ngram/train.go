package ngram

import "log/slog"

// Train tokenizes the given text and folds it into the model's tables.
// Training is additive: repeated calls extend the vocabulary and the context
// counts, they never reset them. If cleaning leaves no tokenizable sentence,
// Train returns ErrEmptyCorpus and the model is left exactly as it was.
func (m *Model) Train(text string) error {
	sentences := Sentences(text)
	if len(sentences) == 0 {
		return ErrEmptyCorpus
	}

	m.extendVocabulary(sentences)

	var windows int
	for _, sentence := range sentences {
		windows += m.countSentence(sentence)
	}

	m.logger.Info("training pass complete",
		slog.Int("sentences", len(sentences)),
		slog.Int("windows", windows),
		slog.Int("vocab_size", len(m.vocab)),
		slog.Int("contexts", len(m.contexts)),
	)
	return nil
}

// extendVocabulary admits every token whose frequency in this training pass
// meets the minimum count. Frequencies are taken over the raw tokens, before
// padding and before unknown substitution, so the threshold applies to true
// corpus frequency.
func (m *Model) extendVocabulary(sentences [][]string) {
	freq := make(map[string]int)
	for _, sentence := range sentences {
		for _, token := range sentence {
			freq[token]++
		}
	}
	for token, count := range freq {
		if count >= m.minCount {
			m.vocab[token] = struct{}{}
		}
	}
}

// countSentence pads and normalizes one sentence, then slides the n-token
// window across it, updating the context histograms and their totals in
// lockstep. It returns the number of windows counted; padding guarantees at
// least one per sentence.
func (m *Model) countSentence(sentence []string) int {
	padded := make([]string, 0, m.order-1+len(sentence)+1)
	for i := 0; i < m.order-1; i++ {
		padded = append(padded, StartToken)
	}
	for _, token := range sentence {
		if _, ok := m.vocab[token]; ok {
			padded = append(padded, token)
		} else {
			padded = append(padded, UnknownToken)
		}
	}
	padded = append(padded, EndToken)

	windows := 0
	for i := 0; i+m.order <= len(padded); i++ {
		key := contextKey(padded[i : i+m.order-1])
		next := padded[i+m.order-1]
		h, ok := m.contexts[key]
		if !ok {
			h = newHistogram()
			m.contexts[key] = h
		}
		h.add(next)
		windows++
	}
	return windows
}
