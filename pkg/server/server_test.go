package server

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bastiangx/wordnext/pkg/config"
	"github.com/bastiangx/wordnext/pkg/dictionary"
	"github.com/bastiangx/wordnext/pkg/ngram"
	"github.com/bastiangx/wordnext/pkg/predict"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

type constRand float64

func (c constRand) Float64() float64 { return float64(c) }

func intPtr(n int) *int { return &n }

type harness struct {
	srv  *Server
	dict *dictionary.Dictionary
	dec  *msgpack.Decoder
}

// run feeds reqs to a fresh server and returns a decoder positioned after
// the ready frame.
func run(t *testing.T, cfg *config.Config, reqs ...Request) harness {
	t.Helper()

	bigram := ngram.NewModel(2)
	bigram.Train("the cat sat. the dog sat.")
	trigram := ngram.NewModel(3)
	trigram.Train("the cat sat. the dog sat.")

	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	cfg.Dict.Path = filepath.Join(t.TempDir(), "dict.json")
	dict := dictionary.New(cfg.Dict.Path)

	var in, out bytes.Buffer
	enc := msgpack.NewEncoder(&in)
	for _, r := range reqs {
		require.NoError(t, enc.Encode(r))
	}

	srv := NewServer([]predict.Source{{Name: "bigram", Model: bigram}, {Name: "trigram", Model: trigram}}, dict, cfg, "").
		WithIO(&in, &out).
		WithRand(constRand(0))
	require.NoError(t, srv.Start(context.Background()))

	dec := msgpack.NewDecoder(&out)
	var ready HealthResponse
	require.NoError(t, dec.Decode(&ready))
	assert.Equal(t, "ready", ready.Status)
	assert.Equal(t, []string{"bigram", "trigram"}, ready.Models)
	assert.Equal(t, "bigram", ready.DefaultModel)

	return harness{srv: srv, dict: dict, dec: dec}
}

func (h harness) next(t *testing.T, v any) {
	t.Helper()
	require.NoError(t, h.dec.Decode(v))
}

func TestPredictAction(t *testing.T) {
	h := run(t, nil,
		Request{ID: "1", Action: "predict", Text: "the"},
		Request{ID: "2", Action: "predict", Text: "cat sat", Model: "trigram", Limit: 1},
		Request{ID: "3", Action: "predict", Text: "the", Model: "fourgram"},
	)

	var r1 PredictResponse
	h.next(t, &r1)
	assert.Equal(t, "1", r1.ID)
	assert.Equal(t, "bigram", r1.Model)
	require.Equal(t, 2, r1.Count)
	assert.Equal(t, "cat", r1.Predictions[0].Word)
	assert.InDelta(t, 0.5, r1.Predictions[0].Probability, 1e-12)

	var r2 PredictResponse
	h.next(t, &r2)
	assert.Equal(t, "trigram", r2.Model)
	require.Equal(t, 1, r2.Count)
	assert.Equal(t, "the", r2.Predictions[0].Word)

	var r3 ErrorResponse
	h.next(t, &r3)
	assert.Equal(t, "3", r3.ID)
	assert.Equal(t, 404, r3.Code)
}

func TestPredictFallbackAndBoost(t *testing.T) {
	h := run(t, nil,
		Request{ID: "e", Action: "predict", Text: ""},
		Request{ID: "a", Action: "dict_add", Word: "Dog", Freq: intPtr(10)},
		Request{ID: "p", Action: "predict", Text: "the"},
		Request{ID: "f", Action: "predict", Text: "   "},
	)

	var empty PredictResponse
	h.next(t, &empty)
	assert.Equal(t, 0, empty.Count)

	var added DictionaryResponse
	h.next(t, &added)
	assert.Equal(t, "dog", added.Word)
	assert.Equal(t, 10, added.Frequency)
	assert.True(t, added.Saved)

	var boosted PredictResponse
	h.next(t, &boosted)
	require.Equal(t, 2, boosted.Count)
	assert.Equal(t, "dog", boosted.Predictions[0].Word)
	assert.InDelta(t, 2.0/3.0, boosted.Predictions[0].Probability, 1e-12)

	var fallback PredictResponse
	h.next(t, &fallback)
	require.Equal(t, 1, fallback.Count)
	assert.Equal(t, "dog", fallback.Predictions[0].Word)
	assert.InDelta(t, 1.0, fallback.Predictions[0].Probability, 1e-12)

	assert.FileExists(t, h.dict.Path())
}

func TestNextAndLimitClamp(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Predict.MaxTopK = 1

	h := run(t, cfg,
		Request{ID: "n", Action: "next", Text: "sat", Limit: 50},
		Request{ID: "blank", Action: "next", Text: ""},
	)

	var r PredictResponse
	h.next(t, &r)
	require.Equal(t, 1, r.Count)
	assert.Equal(t, "the", r.Predictions[0].Word)

	var blank PredictResponse
	h.next(t, &blank)
	assert.Equal(t, 0, blank.Count)
}

func TestGenerateAction(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Predict.MaxLengthLimit = 3

	h := run(t, cfg, Request{ID: "g", Action: "generate", Text: "The", MaxLength: 100})

	var r GenerateResponse
	h.next(t, &r)
	assert.Equal(t, "bigram", r.Model)
	assert.Equal(t, "the cat sat the", r.Text)
}

func TestSuggestAction(t *testing.T) {
	h := run(t, nil, Request{ID: "s", Action: "suggest", Text: "the"})

	var r SuggestResponse
	h.next(t, &r)
	require.Equal(t, 2, r.Count)
	assert.Equal(t, "cat", r.Suggestions[0].Word)
	assert.Equal(t, "bigram, trigram", r.Suggestions[0].Sources)
}

func TestDictionaryActions(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Dict.Autosave = false

	h := run(t, cfg,
		Request{ID: "1", Action: "dict_add", Word: "python"},
		Request{ID: "2", Action: "dict_add", Word: "pytorch", Freq: intPtr(4)},
		Request{ID: "3", Action: "dict_add", Word: "two words"},
		Request{ID: "4", Action: "dict_add", Word: "rust", Freq: intPtr(-1)},
		Request{ID: "5", Action: "complete", Text: "PY"},
		Request{ID: "6", Action: "dict_remove", Word: "python"},
		Request{ID: "7", Action: "dict_remove", Word: ""},
		Request{ID: "8", Action: "dict_save"},
		Request{ID: "9", Action: "complete"},
	)

	var add1, add2 DictionaryResponse
	h.next(t, &add1)
	assert.Equal(t, 1, add1.Frequency)
	assert.False(t, add1.Saved)
	h.next(t, &add2)
	assert.Equal(t, 2, add2.Words)

	for _, id := range []string{"3", "4"} {
		var e ErrorResponse
		h.next(t, &e)
		assert.Equal(t, id, e.ID)
		assert.Equal(t, 400, e.Code)
	}

	var comp CompleteResponse
	h.next(t, &comp)
	assert.Equal(t, []dictionary.Entry{{Word: "pytorch", Frequency: 4}, {Word: "python", Frequency: 1}}, comp.Words)

	var rm DictionaryResponse
	h.next(t, &rm)
	assert.Equal(t, 0, rm.Frequency)
	assert.Equal(t, 1, rm.Words)

	var rmErr ErrorResponse
	h.next(t, &rmErr)
	assert.Equal(t, 400, rmErr.Code)

	var saved DictionaryResponse
	h.next(t, &saved)
	assert.True(t, saved.Saved)

	var compErr ErrorResponse
	h.next(t, &compErr)
	assert.Equal(t, "9", compErr.ID)

	reloaded := dictionary.New(h.dict.Path())
	require.NoError(t, reloaded.LoadStrict())
	assert.Equal(t, 4, reloaded.GetFrequency("pytorch"))
	assert.False(t, reloaded.Contains("python"))
}

func TestHealthConfigAndUnknown(t *testing.T) {
	h := run(t, nil,
		Request{ID: "h", Action: "health"},
		Request{ID: "c", Action: "config"},
		Request{ID: "x", Action: "explode"},
	)

	var health HealthResponse
	h.next(t, &health)
	assert.Equal(t, "h", health.ID)
	assert.Equal(t, "ok", health.Status)

	var cfg ConfigResponse
	h.next(t, &cfg)
	assert.Equal(t, 5, cfg.DefaultTopK)
	assert.Equal(t, 64, cfg.MaxTopK)

	var unknown ErrorResponse
	h.next(t, &unknown)
	assert.Equal(t, 400, unknown.Code)
	assert.Contains(t, unknown.Error, "explode")
}

func TestStartRejectsGarbage(t *testing.T) {
	var out bytes.Buffer
	srv := NewServer(nil, dictionary.New(""), config.DefaultConfig(), "").
		WithIO(bytes.NewReader([]byte{0xc1}), &out)

	assert.Error(t, srv.Start(context.Background()))

	dec := msgpack.NewDecoder(&out)
	var ready HealthResponse
	require.NoError(t, dec.Decode(&ready))
	var e ErrorResponse
	require.NoError(t, dec.Decode(&e))
	assert.Equal(t, 400, e.Code)
}

func TestWatchConfigReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg, err := config.InitConfig(path)
	require.NoError(t, err)

	srv := NewServer(nil, dictionary.New(""), cfg, path)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, srv.WatchConfig(ctx))

	require.NoError(t, os.WriteFile(path, []byte("[predict]\nmax_top_k = 7\n"), 0o644))

	assert.Eventually(t, func() bool {
		return srv.Config().Predict.MaxTopK == 7
	}, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, 5, srv.Config().Predict.DefaultTopK)
}
