// Package predict layers the custom dictionary over n-gram predictions:
// candidates the user has added as custom words are boosted, the list is
// renormalized, and text with no usable context falls back to a ranking of
// the custom words themselves.
package predict

import (
	"sort"

	"github.com/bastiangx/wordnext/pkg/dictionary"
	"github.com/bastiangx/wordnext/pkg/ngram"
	"github.com/charmbracelet/log"
)

// BoostFactor scales a custom word's frequency into a multiplier:
// p' = p * (1 + frequency*BoostFactor).
const BoostFactor = 0.1

// IPredictor is what the server and CLI query.
type IPredictor interface {
	PredictWithContext(text string, topK int) []ngram.Prediction
}

var _ IPredictor = (*ContextAwarePredictor)(nil)

// ContextAwarePredictor combines one model with one custom dictionary.
// It holds references, so training the model or editing the dictionary is
// visible to the next query.
type ContextAwarePredictor struct {
	model *ngram.Model
	dict  *dictionary.Dictionary
}

// New creates a predictor. A nil dictionary is replaced with an empty one.
func New(model *ngram.Model, dict *dictionary.Dictionary) *ContextAwarePredictor {
	if dict == nil {
		dict = dictionary.New("")
	}
	return &ContextAwarePredictor{model: model, dict: dict}
}

// Model returns the model queried for candidates, possibly nil.
func (p *ContextAwarePredictor) Model() *ngram.Model { return p.model }

// Dictionary returns the custom dictionary used for boosting and fallback.
func (p *ContextAwarePredictor) Dictionary() *dictionary.Dictionary { return p.dict }

// PredictWithContext tokenizes text, takes the model's topK candidates,
// boosts custom words and renormalizes. Reserved markers are never boosted.
// Empty text ranks the dictionary.
func (p *ContextAwarePredictor) PredictWithContext(text string, topK int) []ngram.Prediction {
	if topK <= 0 {
		return []ngram.Prediction{}
	}

	tokens := ngram.Tokenize(text)
	if len(tokens) == 0 {
		return p.fallback(topK)
	}
	if p.model == nil {
		return []ngram.Prediction{}
	}

	candidates := p.model.PredictNext(tokens, topK)
	sum := 0.0
	for i := range candidates {
		if candidates[i].Reserved {
			sum += candidates[i].Probability
			continue
		}
		if freq := p.dict.GetFrequency(candidates[i].Word); freq > 0 {
			candidates[i].Probability *= 1 + float64(freq)*BoostFactor
		}
		sum += candidates[i].Probability
	}

	if sum > 0 {
		for i := range candidates {
			candidates[i].Probability /= sum
		}
	}

	sortByProbability(candidates)
	if len(candidates) > topK {
		candidates = candidates[:topK]
	}
	log.Debugf("Context %v: %d candidates", tokens, len(candidates))
	return candidates
}

// fallback converts the custom dictionary into a distribution,
// highest frequency first.
func (p *ContextAwarePredictor) fallback(topK int) []ngram.Prediction {
	entries := p.dict.Entries()
	total := p.dict.TotalFrequency()

	if len(entries) > topK {
		entries = entries[:topK]
	}
	preds := make([]ngram.Prediction, 0, len(entries))
	for _, e := range entries {
		prob := 0.0
		if total > 0 {
			prob = float64(e.Frequency) / float64(total)
		}
		preds = append(preds, ngram.Prediction{Word: e.Word, Probability: prob})
	}
	return preds
}

func sortByProbability(preds []ngram.Prediction) {
	sort.SliceStable(preds, func(i, j int) bool {
		return preds[i].Probability > preds[j].Probability
	})
}
