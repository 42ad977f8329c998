package corpus

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bastiangx/wordnext/pkg/config"
	"github.com/bastiangx/wordnext/pkg/dictionary"
	"github.com/bastiangx/wordnext/pkg/ngram"
	"github.com/bastiangx/wordnext/pkg/persist"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSampleTrains(t *testing.T) {
	require.NotEmpty(t, Sample)

	sources := Train([]int{2, 3}, Sample)
	require.Len(t, sources, 2)
	assert.Equal(t, "bigram", sources[0].Name)
	assert.Equal(t, "trigram", sources[1].Name)

	for _, ctx := range TestContexts {
		preds := sources[0].Model.PredictNext(ngram.Tokenize(ctx), 3)
		assert.NotEmpty(t, preds, ctx)
	}
	assert.Equal(t, "models", sources[0].Model.PredictNext([]string{"language"}, 1)[0].Word)
}

func TestSeed(t *testing.T) {
	d := dictionary.New("")
	Seed(d)

	assert.Equal(t, len(SeedWords), d.Len())
	assert.Equal(t, 80, d.TotalFrequency())
	assert.Equal(t, "python", d.Entries()[0].Word)

	d.AddWord("python", 5)
	Seed(d)
	assert.Equal(t, 85, d.TotalFrequency())
}

func TestSaveLoad(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Model.Dir = filepath.Join(t.TempDir(), "models")
	cfg.Model.Orders = []int{2, 3, 4}

	paths, err := Save(cfg, Train([]int{2, 3}, Sample))
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(cfg.Model.Dir, "bigram_model.mpk"),
		filepath.Join(cfg.Model.Dir, "trigram_model.mpk"),
	}, paths)

	sources, err := Load(cfg)
	require.NoError(t, err)
	require.Len(t, sources, 2)
	assert.Equal(t, 3, sources[1].Model.Order())
}

func TestLoadRejectsWrongOrder(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Model.Dir = t.TempDir()
	cfg.Model.Orders = []int{2}

	m := ngram.NewModel(3)
	m.Train("a b c")
	require.NoError(t, m.Save(cfg.ModelPath(2)))

	_, err := Load(cfg)
	assert.ErrorIs(t, err, persist.ErrCorrupt)
}

func TestTrainFiles(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	b := filepath.Join(dir, "b.txt")
	require.NoError(t, os.WriteFile(a, []byte("the cat sat"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("the dog sat"), 0o644))

	sources, err := TrainFiles([]int{2}, a, b)
	require.NoError(t, err)
	assert.Len(t, sources[0].Model.PredictNext([]string{"the"}, 5), 2)

	_, err = TrainFiles([]int{2}, filepath.Join(dir, "missing.txt"))
	assert.Error(t, err)
}
