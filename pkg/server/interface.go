/*
Package server implements msgpack IPC for next-word prediction.

The server reads a stream of msgpack-encoded requests from stdin and writes
one msgpack response per request to stdout. Logs never go to stdout.

# IPC

Every request is a map with an ID and an action; the remaining fields
depend on the action:

	{"id": "r1", "action": "predict", "text": "machine learning", "l": 5}

Predictions come back ranked, with probabilities summing to 1:

	{"id": "r1", "p": [{"w": "models", "p": 0.62}, {"w": "can", "p": 0.38}], "c": 2, "t": 41}

Actions:

	predict      context-aware prediction (custom words boosted)
	next         raw model prediction, no dictionary
	generate     sample text from a seed ("text"), up to "max_length" words
	suggest      candidates merged from every loaded model
	complete     custom words starting with "text"
	dict_add     add "word" with "freq" (default 1)
	dict_remove  remove "word"
	dict_save    persist the custom dictionary
	config       current request limits
	health       liveness and what is loaded

"model" picks a loaded model by name (bigram, trigram, ...); empty means
the configured default. Limits are clamped to the [predict] maxima of the
config file, which the server reloads when it changes on disk.

Failures are answered with an ErrorResponse carrying an HTTP-like code.
*/
package server

import (
	"github.com/bastiangx/wordnext/pkg/dictionary"
	"github.com/bastiangx/wordnext/pkg/ngram"
	"github.com/bastiangx/wordnext/pkg/predict"
)

// Request is the single request shape for every action.
type Request struct {
	ID        string `msgpack:"id"`
	Action    string `msgpack:"action"`
	Text      string `msgpack:"text,omitempty"`
	Model     string `msgpack:"model,omitempty"`
	Limit     int    `msgpack:"l,omitempty"`
	MaxLength int    `msgpack:"max_length,omitempty"`
	Word      string `msgpack:"word,omitempty"`
	Freq      *int   `msgpack:"freq,omitempty"`
}

// PredictResponse answers predict and next.
type PredictResponse struct {
	ID          string             `msgpack:"id"`
	Model       string             `msgpack:"m"`
	Predictions []ngram.Prediction `msgpack:"p"`
	Count       int                `msgpack:"c"`
	TimeTaken   int64              `msgpack:"t"`
}

// GenerateResponse answers generate.
type GenerateResponse struct {
	ID        string `msgpack:"id"`
	Model     string `msgpack:"m"`
	Text      string `msgpack:"text"`
	TimeTaken int64  `msgpack:"t"`
}

// SuggestResponse answers suggest.
type SuggestResponse struct {
	ID          string               `msgpack:"id"`
	Suggestions []predict.Suggestion `msgpack:"s"`
	Count       int                  `msgpack:"c"`
	TimeTaken   int64                `msgpack:"t"`
}

// CompleteResponse answers complete.
type CompleteResponse struct {
	ID        string             `msgpack:"id"`
	Words     []dictionary.Entry `msgpack:"s"`
	Count     int                `msgpack:"c"`
	TimeTaken int64              `msgpack:"t"`
}

// DictionaryResponse answers dict_add, dict_remove and dict_save.
type DictionaryResponse struct {
	ID        string `msgpack:"id"`
	Status    string `msgpack:"status"`
	Word      string `msgpack:"word,omitempty"`
	Frequency int    `msgpack:"freq"`
	Words     int    `msgpack:"words"`
	Saved     bool   `msgpack:"saved"`
	Error     string `msgpack:"error,omitempty"`
}

// ConfigResponse answers config.
type ConfigResponse struct {
	ID               string `msgpack:"id"`
	Status           string `msgpack:"status"`
	DefaultTopK      int    `msgpack:"default_top_k"`
	MaxTopK          int    `msgpack:"max_top_k"`
	DefaultMaxLength int    `msgpack:"default_max_length"`
	MaxLengthLimit   int    `msgpack:"max_length_limit"`
	SuggestLimit     int    `msgpack:"suggest_limit"`
}

// HealthResponse answers health and is sent once, without an ID, when the
// server is ready.
type HealthResponse struct {
	ID           string   `msgpack:"id,omitempty"`
	Status       string   `msgpack:"status"`
	Models       []string `msgpack:"models"`
	DefaultModel string   `msgpack:"default_model"`
	CustomWords  int      `msgpack:"custom_words"`
}

// ErrorResponse holds basic error information for a failed request
type ErrorResponse struct {
	ID    string `msgpack:"id"`
	Error string `msgpack:"e"`
	Code  int    `msgpack:"c"`
}
