// Package corpus trains, saves and loads the set of n-gram models named in
// the config, and carries a small built-in corpus for first runs and demos.
package corpus

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"github.com/bastiangx/wordnext/pkg/config"
	"github.com/bastiangx/wordnext/pkg/dictionary"
	"github.com/bastiangx/wordnext/pkg/ngram"
	"github.com/bastiangx/wordnext/pkg/persist"
	"github.com/bastiangx/wordnext/pkg/predict"
	"github.com/charmbracelet/log"
)

// Sample is a short English text about language technology.
//
//go:embed sample_text.txt
var Sample string

// SeedWords are custom words for a demo dictionary.
var SeedWords = []dictionary.Entry{
	{Word: "python", Frequency: 10},
	{Word: "javascript", Frequency: 8},
	{Word: "react", Frequency: 7},
	{Word: "nodejs", Frequency: 6},
	{Word: "tensorflow", Frequency: 5},
	{Word: "pytorch", Frequency: 5},
	{Word: "github", Frequency: 9},
	{Word: "vscode", Frequency: 8},
	{Word: "docker", Frequency: 6},
	{Word: "kubernetes", Frequency: 4},
	{Word: "aws", Frequency: 7},
	{Word: "azure", Frequency: 5},
}

// TestContexts are printed after training as a smoke test.
var TestContexts = []string{"the", "machine learning", "artificial intelligence", "text"}

// Seed adds the SeedWords that d does not hold yet, so seeding twice is a no-op.
func Seed(d *dictionary.Dictionary) {
	for _, e := range SeedWords {
		if !d.Contains(e.Word) {
			d.AddWord(e.Word, e.Frequency)
		}
	}
}

// Train builds one model per order from texts, in order.
func Train(orders []int, texts ...string) []predict.Source {
	sources := make([]predict.Source, 0, len(orders))
	for _, n := range orders {
		m := ngram.NewModel(n)
		for _, t := range texts {
			m.Train(t)
		}
		st := m.Stats()
		log.Debugf("Trained %s: %d contexts, %d n-grams, %d words", config.ModelName(n), st.Contexts, st.NGrams, st.Vocabulary)
		sources = append(sources, predict.Source{Name: config.ModelName(m.Order()), Model: m})
	}
	return sources
}

// TrainFiles reads every file and trains on all of them.
func TrainFiles(orders []int, paths ...string) ([]predict.Source, error) {
	texts := make([]string, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("failed to read training file: %w", err)
		}
		texts = append(texts, string(data))
	}
	return Train(orders, texts...), nil
}

// Save writes every model to cfg.ModelPath and returns the paths.
func Save(cfg *config.Config, sources []predict.Source) ([]string, error) {
	paths := make([]string, 0, len(sources))
	for _, src := range sources {
		path := cfg.ModelPath(src.Model.Order())
		if err := src.Model.Save(path); err != nil {
			return paths, fmt.Errorf("failed to save %s: %w", src.Name, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// Load reads the model of every configured order. Missing models are
// skipped with a warning; any other failure is returned.
func Load(cfg *config.Config) ([]predict.Source, error) {
	var sources []predict.Source
	for _, n := range cfg.Model.Orders {
		path := cfg.ModelPath(n)
		m, err := ngram.Load(path)
		if errors.Is(err, persist.ErrNotFound) {
			log.Warnf("No %s model at %s, run with -train first", config.ModelName(n), path)
			continue
		}
		if err != nil {
			return nil, err
		}
		if m.Order() != n {
			return nil, fmt.Errorf("%w: %s holds an order %d model", persist.ErrCorrupt, path, m.Order())
		}
		sources = append(sources, predict.Source{Name: config.ModelName(n), Model: m})
	}
	return sources, nil
}
