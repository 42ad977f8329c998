// Package ngram is the statistical core: it counts word n-grams from text,
// predicts the next word for a context and samples text from the counts.
//
// Probabilities are raw maximum-likelihood estimates (count / context total).
// There is no smoothing and no back-off, an unseen context simply has no
// predictions.
//
// A Model is built by one or more Train calls and is then read-only. Train
// must not run concurrently with anything else on the same Model; any number
// of goroutines may query a Model that is no longer being trained.
package ngram

import (
	"math/rand/v2"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
)

const (
	// StartToken pads contexts shorter than n-1. It is uppercase and
	// Tokenize lowercases everything, so no input text can produce it.
	StartToken = "<START>"
	// EndToken marks the end of every training text.
	EndToken = "<END>"

	DefaultOrder     = 2
	DefaultTopK      = 5
	DefaultMaxLength = 20
)

// contextKey encodes context tokens as a table key. Each token is prefixed
// with its byte length, so two different token tuples never share a key
// whatever bytes the tokens hold.
func contextKey(context []string) string {
	var b strings.Builder
	for _, tok := range context {
		b.WriteString(strconv.Itoa(len(tok)))
		b.WriteByte(':')
		b.WriteString(tok)
	}
	return b.String()
}

// Prediction is a candidate next word and its probability.
type Prediction struct {
	Word        string  `msgpack:"w"`
	Probability float64 `msgpack:"p"`
	// Reserved is set for the START/END markers.
	Reserved bool `msgpack:"r,omitempty"`
}

// Rand is the randomness used by Generate. *rand.Rand from math/rand/v2 satisfies it.
type Rand interface {
	Float64() float64
}

// followers holds the next-token counts of one context in first-seen order.
type followers struct {
	order  []string
	counts map[string]int
	total  int
}

func newFollowers() *followers {
	return &followers{counts: make(map[string]int)}
}

func (f *followers) add(token string, count int) {
	if _, ok := f.counts[token]; !ok {
		f.order = append(f.order, token)
	}
	f.counts[token] += count
	f.total += count
}

// Model is a sparse n-gram table: context (n-1 tokens) -> next token -> count.
type Model struct {
	n        int
	table    map[string]*followers
	contexts [][]string
	vocab    map[string]struct{}
	start    string
	end      string
}

// Stats summarizes the size of a trained model.
type Stats struct {
	Order      int `msgpack:"order"`
	Contexts   int `msgpack:"contexts"`
	NGrams     int `msgpack:"ngrams"`
	Vocabulary int `msgpack:"vocabulary"`
}

// NewModel creates an empty model of order n. Orders below 2 have no
// context to condition on and are raised to 2.
func NewModel(n int) *Model {
	if n < 2 {
		log.Warnf("n-gram order %d is too small, using %d", n, DefaultOrder)
		n = DefaultOrder
	}
	return &Model{
		n:     n,
		table: make(map[string]*followers),
		vocab: make(map[string]struct{}),
		start: StartToken,
		end:   EndToken,
	}
}

// Order returns n.
func (m *Model) Order() int { return m.n }

// StartToken returns the padding marker used by this model.
func (m *Model) StartToken() string { return m.start }

// EndToken returns the end-of-text marker used by this model.
func (m *Model) EndToken() string { return m.end }

// IsReserved reports whether token is one of the model's markers.
func (m *Model) IsReserved(token string) bool {
	return token == m.start || token == m.end
}

// HasWord reports whether token was seen in training text.
func (m *Model) HasWord(token string) bool {
	_, ok := m.vocab[token]
	return ok
}

// Vocabulary returns all training tokens, sorted.
func (m *Model) Vocabulary() []string {
	words := make([]string, 0, len(m.vocab))
	for w := range m.vocab {
		words = append(words, w)
	}
	sort.Strings(words)
	return words
}

// Stats returns table sizes.
func (m *Model) Stats() Stats {
	ngrams := 0
	for _, f := range m.table {
		ngrams += f.total
	}
	return Stats{
		Order:      m.n,
		Contexts:   len(m.table),
		NGrams:     ngrams,
		Vocabulary: len(m.vocab),
	}
}

// Train tokenizes text and accumulates its n-gram counts.
// Repeated calls add to the existing counts.
func (m *Model) Train(text string) {
	m.TrainTokens(Tokenize(text))
}

// TrainTokens accumulates counts for an already tokenized text.
func (m *Model) TrainTokens(tokens []string) {
	for _, tok := range tokens {
		m.vocab[tok] = struct{}{}
	}

	padded := make([]string, 0, len(tokens)+m.n)
	for i := 0; i < m.n-1; i++ {
		padded = append(padded, m.start)
	}
	padded = append(padded, tokens...)
	padded = append(padded, m.end)

	for i := 0; i+m.n <= len(padded); i++ {
		m.add(padded[i:i+m.n-1], padded[i+m.n-1], 1)
	}
	log.Debugf("Trained %d tokens into order-%d model (%d contexts)", len(tokens), m.n, len(m.table))
}

func (m *Model) add(context []string, token string, count int) {
	key := contextKey(context)
	f, ok := m.table[key]
	if !ok {
		f = newFollowers()
		m.table[key] = f
		m.contexts = append(m.contexts, append([]string(nil), context...))
	}
	f.add(token, count)
}

// lookupKey left-pads context with START and keeps its last n-1 tokens.
func (m *Model) lookupKey(context []string) string {
	k := m.n - 1
	if len(context) < k {
		padded := make([]string, 0, k)
		for i := len(context); i < k; i++ {
			padded = append(padded, m.start)
		}
		context = append(padded, context...)
	}
	return contextKey(context[len(context)-k:])
}

// Distribution returns every candidate for context with its probability,
// highest first. Equal probabilities keep first-seen order. An unseen
// context returns nil.
func (m *Model) Distribution(context []string) []Prediction {
	f, ok := m.table[m.lookupKey(context)]
	if !ok || f.total == 0 {
		return nil
	}

	preds := make([]Prediction, 0, len(f.order))
	for _, tok := range f.order {
		preds = append(preds, Prediction{
			Word:        tok,
			Probability: float64(f.counts[tok]) / float64(f.total),
			Reserved:    m.IsReserved(tok),
		})
	}
	sort.SliceStable(preds, func(i, j int) bool {
		return preds[i].Probability > preds[j].Probability
	})
	return preds
}

// PredictNext returns at most topK candidates for context.
// The slice is a truncated distribution and only sums to 1 when it holds
// every candidate.
func (m *Model) PredictNext(context []string, topK int) []Prediction {
	if topK <= 0 {
		return nil
	}
	preds := m.Distribution(context)
	if len(preds) > topK {
		preds = preds[:topK]
	}
	return preds
}

// GenerateText samples up to maxLength tokens after startText using the
// global random source.
func (m *Model) GenerateText(startText string, maxLength int) string {
	return m.Generate(globalRand{}, startText, maxLength)
}

// Generate samples up to maxLength tokens after startText, drawing each one
// from the top DefaultTopK candidates weighted by probability. It stops early
// on an unseen context or after emitting the end marker. The result is the
// seed tokens plus the generated ones, joined by spaces.
func (m *Model) Generate(r Rand, startText string, maxLength int) string {
	tokens := Tokenize(startText)

	for i := 0; i < maxLength; i++ {
		preds := m.PredictNext(tokens, DefaultTopK)
		if len(preds) == 0 {
			break
		}
		next := weightedChoice(r, preds)
		tokens = append(tokens, next)
		if next == m.end {
			break
		}
	}
	return strings.Join(tokens, " ")
}

func weightedChoice(r Rand, preds []Prediction) string {
	total := 0.0
	for _, p := range preds {
		total += p.Probability
	}
	x := r.Float64() * total
	for _, p := range preds {
		x -= p.Probability
		if x < 0 {
			return p.Word
		}
	}
	return preds[len(preds)-1].Word
}

type globalRand struct{}

func (globalRand) Float64() float64 { return rand.Float64() }
