package predict

import (
	"sort"
	"strings"

	"github.com/bastiangx/wordnext/pkg/ngram"
)

// Source is a named model taking part in Suggest.
type Source struct {
	Name  string
	Model *ngram.Model
}

// Suggestion is a merged candidate. Sources lists the models that
// proposed it, in source order, joined by ", ".
type Suggestion struct {
	Word        string  `msgpack:"w"`
	Probability float64 `msgpack:"p"`
	Sources     string  `msgpack:"src"`
	Reserved    bool    `msgpack:"r,omitempty"`
}

// Suggest asks every source for perModel candidates after text and merges
// them by word, keeping the highest probability. The merged list is sorted
// by probability and cut to limit; a negative limit keeps everything.
// No boosting is applied.
func Suggest(text string, sources []Source, perModel, limit int) []Suggestion {
	tokens := ngram.Tokenize(text)

	index := make(map[string]int)
	var merged []Suggestion
	for _, src := range sources {
		if src.Model == nil {
			continue
		}
		for _, p := range src.Model.PredictNext(tokens, perModel) {
			i, seen := index[p.Word]
			if !seen {
				index[p.Word] = len(merged)
				merged = append(merged, Suggestion{
					Word:        p.Word,
					Probability: p.Probability,
					Sources:     src.Name,
					Reserved:    p.Reserved,
				})
				continue
			}
			s := &merged[i]
			s.Probability = max(s.Probability, p.Probability)
			if !containsSource(s.Sources, src.Name) {
				s.Sources += ", " + src.Name
			}
		}
	}

	sortSuggestions(merged)
	if limit >= 0 && len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}

func containsSource(joined, name string) bool {
	for _, s := range strings.Split(joined, ", ") {
		if s == name {
			return true
		}
	}
	return false
}

func sortSuggestions(s []Suggestion) {
	sort.SliceStable(s, func(i, j int) bool {
		return s[i].Probability > s[j].Probability
	})
}
