package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/bastiangx/wordnext/internal/logger"
	"github.com/bastiangx/wordnext/internal/utils"
	"github.com/bastiangx/wordnext/pkg/config"
	"github.com/bastiangx/wordnext/pkg/dictionary"
	"github.com/bastiangx/wordnext/pkg/ngram"
	"github.com/bastiangx/wordnext/pkg/predict"
	"github.com/charmbracelet/log"
	"github.com/vmihailenco/msgpack/v5"
)

// Server handles the IPC for next-word predictions
type Server struct {
	sources []predict.Source
	models  map[string]*ngram.Model
	dict    *dictionary.Dictionary
	rand    ngram.Rand

	mu         sync.RWMutex
	config     *config.Config
	configPath string

	reader       io.Reader
	writer       io.Writer
	enc          *msgpack.Encoder
	logger       *log.Logger
	requestCount int
}

// NewServer creates a prediction server using stdin/stdout for IPC.
// sources are the loaded models in preference order; configPath may be
// empty when the config did not come from a file.
func NewServer(sources []predict.Source, dict *dictionary.Dictionary, cfg *config.Config, configPath string) *Server {
	models := make(map[string]*ngram.Model, len(sources))
	for _, src := range sources {
		models[src.Name] = src.Model
	}
	if dict == nil {
		dict = dictionary.New(cfg.Dict.Path)
	}
	s := &Server{
		sources:    sources,
		models:     models,
		dict:       dict,
		config:     cfg,
		configPath: configPath,
		logger:     logger.New("wordnext"),
	}
	return s.WithIO(os.Stdin, os.Stdout)
}

// WithIO replaces stdin/stdout.
func (s *Server) WithIO(r io.Reader, w io.Writer) *Server {
	s.reader = r
	s.writer = w
	s.enc = msgpack.NewEncoder(w)
	return s
}

// WithRand makes generate draw from r instead of the global source.
func (s *Server) WithRand(r ngram.Rand) *Server {
	s.rand = r
	return s
}

// Config returns the active config.
func (s *Server) Config() *config.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config
}

func (s *Server) setConfig(cfg *config.Config) {
	s.mu.Lock()
	s.config = cfg
	s.mu.Unlock()
}

// Start announces readiness and serves requests until the input ends or
// ctx is cancelled. A frame that cannot be decoded ends the stream.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Debug("Starting Server.")
	s.send(s.health("", "ready"))

	dec := msgpack.NewDecoder(bufio.NewReader(s.reader))
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		var req Request
		if err := dec.Decode(&req); err != nil {
			if errors.Is(err, io.EOF) {
				s.logger.Debug("Input closed, stopping server")
				return nil
			}
			s.logger.Errorf("Decoding request: %v", err)
			s.sendError("", "invalid msgpack request", 400)
			return fmt.Errorf("decode request: %w", err)
		}
		s.handleRequest(req)
	}
}

// handleRequest dispatches one request by action.
func (s *Server) handleRequest(req Request) {
	s.requestCount++
	s.logger.Debugf("Request #%d id=%s action=%s", s.requestCount, req.ID, req.Action)
	cfg := s.Config()

	switch req.Action {
	case "predict", "":
		s.handlePredict(req, cfg)
	case "next":
		s.handleNext(req, cfg)
	case "generate":
		s.handleGenerate(req, cfg)
	case "suggest":
		s.handleSuggest(req, cfg)
	case "complete":
		s.handleComplete(req, cfg)
	case "dict_add":
		s.handleDictAdd(req, cfg)
	case "dict_remove":
		s.handleDictRemove(req, cfg)
	case "dict_save":
		s.handleDictSave(req)
	case "config":
		s.send(ConfigResponse{
			ID:               req.ID,
			Status:           "ok",
			DefaultTopK:      cfg.Predict.DefaultTopK,
			MaxTopK:          cfg.Predict.MaxTopK,
			DefaultMaxLength: cfg.Predict.DefaultMaxLength,
			MaxLengthLimit:   cfg.Predict.MaxLengthLimit,
			SuggestLimit:     cfg.Predict.SuggestLimit,
		})
	case "health":
		s.send(s.health(req.ID, "ok"))
	default:
		s.sendError(req.ID, fmt.Sprintf("Unknown action: %s", req.Action), 400)
	}
}

// model picks the requested model, or the configured default order, or
// the first loaded model.
func (s *Server) model(name string, cfg *config.Config) (string, *ngram.Model, bool) {
	if name != "" {
		m, ok := s.models[name]
		return name, m, ok && m != nil
	}
	def := config.ModelName(cfg.Model.DefaultOrder)
	if m, ok := s.models[def]; ok && m != nil {
		return def, m, true
	}
	for _, src := range s.sources {
		if src.Model != nil {
			return src.Name, src.Model, true
		}
	}
	return "", nil, false
}

func (s *Server) handlePredict(req Request, cfg *config.Config) {
	topK := clamp(req.Limit, cfg.Predict.DefaultTopK, cfg.Predict.MaxTopK)
	name, m, ok := s.model(req.Model, cfg)
	if !ok && req.Model != "" {
		s.sendError(req.ID, fmt.Sprintf("Unknown model: %s", req.Model), 404)
		return
	}

	start := time.Now()
	preds := predict.New(m, s.dict).PredictWithContext(req.Text, topK)
	s.sendPredictions(req.ID, name, preds, time.Since(start))
}

func (s *Server) handleNext(req Request, cfg *config.Config) {
	topK := clamp(req.Limit, cfg.Predict.DefaultTopK, cfg.Predict.MaxTopK)
	name, m, ok := s.model(req.Model, cfg)
	if !ok {
		s.sendError(req.ID, fmt.Sprintf("Unknown model: %s", req.Model), 404)
		return
	}

	start := time.Now()
	var preds []ngram.Prediction
	if tokens := ngram.Tokenize(req.Text); len(tokens) > 0 {
		preds = m.PredictNext(tokens, topK)
	}
	s.sendPredictions(req.ID, name, preds, time.Since(start))
}

func (s *Server) sendPredictions(id, model string, preds []ngram.Prediction, elapsed time.Duration) {
	if preds == nil {
		preds = []ngram.Prediction{}
	}
	s.send(PredictResponse{
		ID:          id,
		Model:       model,
		Predictions: preds,
		Count:       len(preds),
		TimeTaken:   elapsed.Microseconds(),
	})
}

func (s *Server) handleGenerate(req Request, cfg *config.Config) {
	maxLength := clamp(req.MaxLength, cfg.Predict.DefaultMaxLength, cfg.Predict.MaxLengthLimit)
	name, m, ok := s.model(req.Model, cfg)
	if !ok {
		s.sendError(req.ID, fmt.Sprintf("Unknown model: %s", req.Model), 404)
		return
	}

	start := time.Now()
	var text string
	if s.rand != nil {
		text = m.Generate(s.rand, req.Text, maxLength)
	} else {
		text = m.GenerateText(req.Text, maxLength)
	}
	s.send(GenerateResponse{
		ID:        req.ID,
		Model:     name,
		Text:      text,
		TimeTaken: time.Since(start).Microseconds(),
	})
}

func (s *Server) handleSuggest(req Request, cfg *config.Config) {
	limit := clamp(req.Limit, cfg.Predict.SuggestLimit, cfg.Predict.MaxTopK)

	start := time.Now()
	suggestions := predict.Suggest(req.Text, s.sources, cfg.Predict.SuggestPerModel, limit)
	if suggestions == nil {
		suggestions = []predict.Suggestion{}
	}
	s.send(SuggestResponse{
		ID:          req.ID,
		Suggestions: suggestions,
		Count:       len(suggestions),
		TimeTaken:   time.Since(start).Microseconds(),
	})
}

func (s *Server) handleComplete(req Request, cfg *config.Config) {
	if dictionary.Normalize(req.Text) == "" {
		s.sendError(req.ID, "Missing 'text' prefix", 400)
		return
	}
	limit := clamp(req.Limit, cfg.Predict.DefaultTopK, cfg.Predict.MaxTopK)

	start := time.Now()
	entries := s.dict.Complete(req.Text, limit)
	if entries == nil {
		entries = []dictionary.Entry{}
	}
	s.send(CompleteResponse{
		ID:        req.ID,
		Words:     entries,
		Count:     len(entries),
		TimeTaken: time.Since(start).Microseconds(),
	})
}

func (s *Server) handleDictAdd(req Request, cfg *config.Config) {
	word := dictionary.Normalize(req.Word)
	if !utils.IsValidWord(word) {
		s.sendError(req.ID, fmt.Sprintf("Invalid word: '%s'", req.Word), 400)
		return
	}
	freq := 1
	if req.Freq != nil {
		freq = *req.Freq
	}
	if freq < 0 {
		s.sendError(req.ID, fmt.Sprintf("Invalid frequency: %d", freq), 400)
		return
	}

	s.dict.AddWord(word, freq)
	s.sendDictChange(req.ID, word, cfg.Dict.Autosave)
}

func (s *Server) handleDictRemove(req Request, cfg *config.Config) {
	word := dictionary.Normalize(req.Word)
	if word == "" {
		s.sendError(req.ID, "Missing 'word'", 400)
		return
	}

	s.dict.RemoveWord(word)
	s.sendDictChange(req.ID, word, cfg.Dict.Autosave)
}

func (s *Server) sendDictChange(id, word string, autosave bool) {
	resp := DictionaryResponse{
		ID:        id,
		Status:    "ok",
		Word:      word,
		Frequency: s.dict.GetFrequency(word),
		Words:     s.dict.Len(),
	}
	if autosave {
		if err := s.dict.Save(); err != nil {
			s.logger.Errorf("Autosaving dictionary: %v", err)
			resp.Error = err.Error()
		} else {
			resp.Saved = true
		}
	}
	s.send(resp)
}

func (s *Server) handleDictSave(req Request) {
	if err := s.dict.Save(); err != nil {
		s.logger.Errorf("Saving dictionary: %v", err)
		s.sendError(req.ID, fmt.Sprintf("Failed to save dictionary: %v", err), 500)
		return
	}
	s.send(DictionaryResponse{
		ID:     req.ID,
		Status: "ok",
		Words:  s.dict.Len(),
		Saved:  true,
	})
}

func (s *Server) health(id, status string) HealthResponse {
	names := make([]string, 0, len(s.sources))
	for _, src := range s.sources {
		if src.Model != nil {
			names = append(names, src.Name)
		}
	}
	def, _, _ := s.model("", s.Config())
	return HealthResponse{
		ID:           id,
		Status:       status,
		Models:       names,
		DefaultModel: def,
		CustomWords:  s.dict.Len(),
	}
}

// send marshals the response and writes it as one msgpack frame.
func (s *Server) send(response any) {
	if err := s.enc.Encode(response); err != nil {
		s.logger.Errorf("Encoding response: %v", err)
	}
}

// sendError sends an error response
func (s *Server) sendError(id, message string, code int) {
	s.logger.Debugf("Request %s failed (%d): %s", id, code, message)
	s.send(ErrorResponse{ID: id, Error: message, Code: code})
}

// clamp returns def for non-positive values and caps the rest at limit.
func clamp(v, def, limit int) int {
	if v < 1 {
		v = def
	}
	return min(v, limit)
}
