package ngram

import (
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seqRand replays fixed values for Float64.
type seqRand struct {
	vals []float64
	i    int
}

func (s *seqRand) Float64() float64 {
	v := s.vals[s.i%len(s.vals)]
	s.i++
	return v
}

func words(preds []Prediction) []string {
	out := make([]string, len(preds))
	for i, p := range preds {
		out[i] = p.Word
	}
	return out
}

func TestNewModelClampsOrder(t *testing.T) {
	assert.Equal(t, 2, NewModel(0).Order())
	assert.Equal(t, 2, NewModel(1).Order())
	assert.Equal(t, 3, NewModel(3).Order())
}

func TestPredictNextBigram(t *testing.T) {
	m := NewModel(2)
	m.Train("the cat sat. the dog sat.")

	preds := m.PredictNext([]string{"the"}, 2)
	require.Len(t, preds, 2)
	assert.ElementsMatch(t, []string{"cat", "dog"}, words(preds))
	for _, p := range preds {
		assert.InDelta(t, 0.5, p.Probability, 1e-12)
		assert.False(t, p.Reserved)
	}

	// first-seen order breaks the tie
	assert.Equal(t, []string{"cat", "dog"}, words(preds))
}

func TestPredictNextEndMarker(t *testing.T) {
	m := NewModel(2)
	m.Train("the cat sat. the dog sat.")

	preds := m.PredictNext([]string{"sat"}, 5)
	require.Len(t, preds, 2)
	assert.Equal(t, []string{"the", EndToken}, words(preds))
	assert.False(t, preds[0].Reserved)
	assert.True(t, preds[1].Reserved)
}

func TestPredictNextPadsShortContext(t *testing.T) {
	m := NewModel(3)
	m.Train("the cat sat")

	preds := m.PredictNext(nil, 5)
	require.Len(t, preds, 1)
	assert.Equal(t, "the", preds[0].Word)
	assert.InDelta(t, 1.0, preds[0].Probability, 1e-12)

	preds = m.PredictNext([]string{"the"}, 5)
	require.Len(t, preds, 1)
	assert.Equal(t, "cat", preds[0].Word)

	// only the last n-1 tokens matter
	preds = m.PredictNext([]string{"whatever", "the", "cat"}, 5)
	require.Len(t, preds, 1)
	assert.Equal(t, "sat", preds[0].Word)
}

func TestPredictNextUnseenContext(t *testing.T) {
	m := NewModel(2)
	m.Train("the cat sat")

	assert.Empty(t, m.PredictNext([]string{"zebra"}, 5))
	assert.Empty(t, NewModel(2).PredictNext([]string{"the"}, 5))
}

func TestPredictNextTopK(t *testing.T) {
	m := NewModel(2)
	m.Train("x a x a x a x b x b x c")

	preds := m.PredictNext([]string{"x"}, 2)
	require.Len(t, preds, 2)
	assert.Equal(t, []string{"a", "b"}, words(preds))
	assert.InDelta(t, 0.5, preds[0].Probability, 1e-12)
	assert.InDelta(t, 2.0/6.0, preds[1].Probability, 1e-12)

	assert.Empty(t, m.PredictNext([]string{"x"}, 0))
	assert.Len(t, m.PredictNext([]string{"x"}, 100), 3)
}

func TestDistributionSumsToOne(t *testing.T) {
	m := NewModel(3)
	m.Train("The quick brown fox jumps over the lazy dog. The fox is quick and agile.")
	m.Train("Text prediction is useful for autocomplete features. Text completion saves time.")

	require.NotEmpty(t, m.contexts)
	for _, ctx := range m.contexts {
		sum := 0.0
		for _, p := range m.Distribution(ctx) {
			assert.Greater(t, p.Probability, 0.0)
			sum += p.Probability
		}
		assert.InDelta(t, 1.0, sum, 1e-9, "context %v", ctx)
	}
}

func TestTrainAccumulates(t *testing.T) {
	m := NewModel(2)
	m.Train("a b")
	first := m.Stats()
	m.Train("a c")
	second := m.Stats()

	assert.Equal(t, 3, first.NGrams)
	assert.Equal(t, 6, second.NGrams)
	assert.Equal(t, 3, second.Vocabulary)

	preds := m.PredictNext([]string{"a"}, 5)
	assert.Equal(t, []string{"b", "c"}, words(preds))
	assert.InDelta(t, 0.5, preds[0].Probability, 1e-12)
}

func TestTrainEmptyText(t *testing.T) {
	m := NewModel(2)
	m.Train("")

	preds := m.PredictNext(nil, 5)
	require.Len(t, preds, 1)
	assert.Equal(t, EndToken, preds[0].Word)
	assert.True(t, preds[0].Reserved)
	assert.Empty(t, m.Vocabulary())
}

func TestVocabularyExcludesMarkers(t *testing.T) {
	m := NewModel(2)
	m.Train("Hello hello world")

	assert.Equal(t, []string{"hello", "world"}, m.Vocabulary())
	assert.True(t, m.HasWord("hello"))
	assert.False(t, m.HasWord(StartToken))
	assert.True(t, m.IsReserved(StartToken))
	assert.True(t, m.IsReserved(EndToken))
	assert.False(t, m.IsReserved("hello"))
}

func TestGenerateDeterministicChain(t *testing.T) {
	m := NewModel(2)
	m.Train("a b c")

	r := rand.New(rand.NewPCG(1, 2))
	assert.Equal(t, "a b c "+EndToken, m.Generate(r, "", 10))
	assert.Equal(t, "a b", m.Generate(r, "A", 1))
	assert.Equal(t, "a", m.Generate(r, "a", 0))
}

func TestGenerateStopsOnUnseenContext(t *testing.T) {
	m := NewModel(2)
	m.Train("a b c")

	assert.Equal(t, "zebra", m.Generate(&seqRand{vals: []float64{0.5}}, "Zebra!", 10))
}

func TestGenerateWeightedChoice(t *testing.T) {
	m := NewModel(2)
	m.Train("the cat")
	m.Train("the dog")

	assert.Equal(t, "the cat", m.Generate(&seqRand{vals: []float64{0.1}}, "the", 1))
	assert.Equal(t, "the dog", m.Generate(&seqRand{vals: []float64{0.9}}, "the", 1))
}

func TestGenerateRespectsMaxLength(t *testing.T) {
	m := NewModel(2)
	m.Train("a a a a a a")

	out := m.Generate(&seqRand{vals: []float64{0.0}}, "a", 4)
	assert.Equal(t, 5, len(strings.Fields(out)))
}

func TestGenerateTextUsesGlobalSource(t *testing.T) {
	m := NewModel(2)
	m.Train("one two three")

	assert.Equal(t, "one two three "+EndToken, m.GenerateText("", 20))
}

func TestContextsWithSeparatorBytesStayDistinct(t *testing.T) {
	m := NewModel(3)
	m.Train("a\x1fb c x")
	m.Train("a b\x1fc y")

	preds := m.PredictNext([]string{"a", "b\x1fc"}, 5)
	require.Len(t, preds, 1)
	assert.Equal(t, "y", preds[0].Word)
	assert.InDelta(t, 1.0, preds[0].Probability, 1e-12)

	preds = m.PredictNext([]string{"a\x1fb", "c"}, 5)
	require.Len(t, preds, 1)
	assert.Equal(t, "x", preds[0].Word)

	tests := []struct {
		name    string
		a, b    []string
		collide bool
	}{
		{"separator inside token", []string{"a\x1fb", "c"}, []string{"a", "b\x1fc"}, false},
		{"digits and colon", []string{"1:a", "b"}, []string{"1", "a:b"}, false},
		{"empty token", []string{"", "ab"}, []string{"ab", ""}, false},
		{"equal tuples", []string{"a", "b"}, []string{"a", "b"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.collide, contextKey(tt.a) == contextKey(tt.b))
		})
	}
}
