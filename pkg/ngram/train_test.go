package ngram

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
)

func TestTrain(t *testing.T) {
	m, err := NewModel(3, 1)
	if err != nil {
		t.Fatalf("NewModel() error = %v", err)
	}

	if err := m.Train("a b c. a b d."); err != nil {
		t.Fatalf("Train() failed: %v", err)
	}

	// Verify that a specific context has the correct next-token counts.
	tokens, total, ok := m.NextTokens([]string{"a", "b"})
	if !ok {
		t.Fatal("expected context 'a b' to be known")
	}
	if total != 2 {
		t.Errorf("expected context 'a b' to have total frequency of 2, got %d", total)
	}
	if len(tokens) != 2 {
		t.Errorf("expected context 'a b' to lead to 2 unique next tokens, got %d", len(tokens))
	}

	// Both sentences open identically, so the start context is certain.
	tokens, total, ok = m.NextTokens([]string{StartToken, StartToken})
	if !ok {
		t.Fatal("expected the start context to be known")
	}
	expected := []TokenCount{{Token: "a", Count: 2}}
	if !reflect.DeepEqual(tokens, expected) {
		t.Errorf("expected start context %+v, got %+v", expected, tokens)
	}
	if total != 2 {
		t.Errorf("expected start context total of 2, got %d", total)
	}
}

func TestTrainEmptyCorpus(t *testing.T) {
	testCases := []struct {
		name  string
		input string
	}{
		{name: "empty string", input: ""},
		{name: "whitespace only", input: " \n\t "},
		{name: "punctuation only", input: "?!."},
		{name: "symbols only", input: ", @@ --"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m := newTrainedModel(t)
			before := m.Stats()

			err := m.Train(tc.input)
			if !errors.Is(err, ErrEmptyCorpus) {
				t.Errorf("expected ErrEmptyCorpus, got %v", err)
			}
			if after := m.Stats(); !reflect.DeepEqual(after, before) {
				t.Errorf("model changed on empty corpus: before %+v, after %+v", before, after)
			}
		})
	}
}

func TestMinCountSubstitution(t *testing.T) {
	m, err := NewModel(2, 3)
	if err != nil {
		t.Fatalf("NewModel() error = %v", err)
	}

	// Only "a" reaches the threshold; "b" and "c" collapse to the
	// unknown marker before any window is counted.
	if err := m.Train("a a a b b c."); err != nil {
		t.Fatalf("Train() failed: %v", err)
	}

	if !m.InVocabulary("a") {
		t.Error("expected 'a' in vocabulary")
	}
	for _, token := range []string{"b", "c"} {
		if m.InVocabulary(token) {
			t.Errorf("did not expect %q in vocabulary below threshold", token)
		}
	}

	tokens, total, ok := m.NextTokens([]string{"a"})
	if !ok {
		t.Fatal("expected context 'a' to be known")
	}
	expected := []TokenCount{{Token: "a", Count: 2}, {Token: UnknownToken, Count: 1}}
	if !reflect.DeepEqual(tokens, expected) {
		t.Errorf("expected context 'a' histogram %+v, got %+v", expected, tokens)
	}
	if total != 3 {
		t.Errorf("expected context 'a' total of 3, got %d", total)
	}

	tokens, _, ok = m.NextTokens([]string{UnknownToken})
	if !ok {
		t.Fatal("expected the unknown marker itself to appear as a context")
	}
	expected = []TokenCount{{Token: UnknownToken, Count: 2}, {Token: EndToken, Count: 1}}
	if !reflect.DeepEqual(tokens, expected) {
		t.Errorf("expected unknown context histogram %+v, got %+v", expected, tokens)
	}

	tokens, _, ok = m.NextTokens([]string{StartToken})
	if !ok {
		t.Fatal("expected the start context to be known")
	}
	expected = []TokenCount{{Token: "a", Count: 1}}
	if !reflect.DeepEqual(tokens, expected) {
		t.Errorf("expected start context histogram %+v, got %+v", expected, tokens)
	}

	// Sub-threshold tokens must never appear literally anywhere in the
	// tables, neither as context nor as next token.
	for key, h := range m.contexts {
		for _, token := range strings.Fields(key) {
			if token == "b" || token == "c" {
				t.Errorf("sub-threshold token %q appears in context %q", token, key)
			}
		}
		for _, tc := range h.entries {
			if tc.Token == "b" || tc.Token == "c" {
				t.Errorf("sub-threshold token %q appears as a next token of %q", tc.Token, key)
			}
		}
	}
}

func TestHistogramTotalsConsistent(t *testing.T) {
	m, err := NewModel(3, 2)
	if err != nil {
		t.Fatalf("NewModel() error = %v", err)
	}

	// Several passes with overlapping and fresh tokens, so histograms
	// grow both by new entries and by increments to existing ones.
	passes := []string{
		"one fish two fish. red fish blue fish.",
		"one fish two fish. one fish red fish.",
		"something else entirely. something else again.",
	}
	for _, text := range passes {
		if err := m.Train(text); err != nil {
			t.Fatalf("Train(%q) failed: %v", text, err)
		}

		for key, h := range m.contexts {
			sum := 0
			for _, tc := range h.entries {
				if tc.Count < 1 {
					t.Errorf("context %q has non-positive count for %q", key, tc.Token)
				}
				sum += tc.Count
			}
			if sum != h.total {
				t.Errorf("context %q total is %d, but entries sum to %d", key, h.total, sum)
			}
		}
	}
}

func TestTrainAccumulates(t *testing.T) {
	m := newTrainedModel(t)
	first := m.Stats()

	// A second pass over the same text doubles every count but adds no
	// new vocabulary, contexts or transitions.
	if err := m.Train("one fish two fish. red fish blue fish."); err != nil {
		t.Fatalf("second Train() failed: %v", err)
	}

	second := m.Stats()
	if second.VocabSize != first.VocabSize {
		t.Errorf("VocabSize changed: %d -> %d", first.VocabSize, second.VocabSize)
	}
	if second.Contexts != first.Contexts {
		t.Errorf("Contexts changed: %d -> %d", first.Contexts, second.Contexts)
	}
	if second.Transitions != first.Transitions {
		t.Errorf("Transitions changed: %d -> %d", first.Transitions, second.Transitions)
	}
	if second.TotalFrequency != 2*first.TotalFrequency {
		t.Errorf("TotalFrequency = %d, want %d", second.TotalFrequency, 2*first.TotalFrequency)
	}

	_, total, _ := m.NextTokens([]string{"fish"})
	if total != 8 {
		t.Errorf("expected context 'fish' total of 8 after two passes, got %d", total)
	}
}

func TestMinCountAppliesPerCall(t *testing.T) {
	m, err := NewModel(2, 2)
	if err != nil {
		t.Fatalf("NewModel() error = %v", err)
	}

	// One occurrence per call never reaches a threshold of 2, no matter
	// how many calls are made.
	for i := 0; i < 2; i++ {
		if err := m.Train("rare word."); err != nil {
			t.Fatalf("Train() pass %d failed: %v", i+1, err)
		}
	}
	if m.InVocabulary("rare") {
		t.Error("did not expect 'rare' in vocabulary from repeated single occurrences")
	}

	// Two occurrences within one call do.
	if err := m.Train("rare rare."); err != nil {
		t.Fatalf("Train() failed: %v", err)
	}
	if !m.InVocabulary("rare") {
		t.Error("expected 'rare' in vocabulary after meeting the threshold in one call")
	}

	// Earlier passes stay counted as the unknown marker.
	tokens, total, _ := m.NextTokens([]string{StartToken})
	expected := []TokenCount{{Token: UnknownToken, Count: 2}, {Token: "rare", Count: 1}}
	if !reflect.DeepEqual(tokens, expected) {
		t.Errorf("expected start context %+v, got %+v", expected, tokens)
	}
	if total != 3 {
		t.Errorf("expected start context total of 3, got %d", total)
	}
}

func TestVocabularyNeverShrinks(t *testing.T) {
	m, err := NewModel(2, 2)
	if err != nil {
		t.Fatalf("NewModel() error = %v", err)
	}

	if err := m.Train("fish fish."); err != nil {
		t.Fatalf("Train() failed: %v", err)
	}
	if !m.InVocabulary("fish") {
		t.Fatal("expected 'fish' in vocabulary")
	}

	// "fish" appears only once here, below the threshold, but an admitted
	// token stays admitted and is counted as itself.
	if err := m.Train("fish chips chips."); err != nil {
		t.Fatalf("Train() failed: %v", err)
	}
	if !m.InVocabulary("fish") {
		t.Error("expected 'fish' to remain in vocabulary")
	}
	if !m.InVocabulary("chips") {
		t.Error("expected 'chips' in vocabulary")
	}

	tokens, _, _ := m.NextTokens([]string{"fish"})
	expected := []TokenCount{{Token: "fish", Count: 1}, {Token: EndToken, Count: 1}, {Token: "chips", Count: 1}}
	if !reflect.DeepEqual(tokens, expected) {
		t.Errorf("expected context 'fish' histogram %+v, got %+v", expected, tokens)
	}
}

func BenchmarkTrain(b *testing.B) {
	corpus := createBenchmarkCorpus()

	for _, order := range []int{2, 3, 4, 5} {
		b.Run(fmt.Sprintf("Order%d", order), func(b *testing.B) {
			m, err := NewModel(order, 2)
			if err != nil {
				b.Fatalf("NewModel() error = %v", err)
			}

			b.SetBytes(int64(len(corpus)))
			b.ReportAllocs()
			b.ResetTimer()

			for i := 0; i < b.N; i++ {
				if err := m.Train(corpus); err != nil {
					b.Fatalf("Train() failed: %v", err)
				}
			}
		})
	}
}
