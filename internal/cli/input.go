// Package cli handles cmd line input and predictions for DBG and testing various features
package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bastiangx/wordnext/internal/logger"
	"github.com/bastiangx/wordnext/internal/utils"
	"github.com/bastiangx/wordnext/pkg/dictionary"
	"github.com/bastiangx/wordnext/pkg/ngram"
	"github.com/bastiangx/wordnext/pkg/predict"
	"github.com/charmbracelet/log"
)

const helpText = `commands:
  <text>              predict the next word (custom words boosted)
  :gen <seed>         generate text from seed
  :all <text>         suggestions merged from every loaded model
  :add <word> [freq]  add a custom word (freq defaults to 1)
  :rm <word>          remove a custom word
  :complete <prefix>  complete a custom word
  :dict               list custom words
  :save               save the custom dictionary
  :stats              model statistics
  :help               this text`

// InputHandler reads lines from stdin and answers them with predictions.
// Lines starting with ':' are commands, everything else is context text.
type InputHandler struct {
	predictor    *predict.ContextAwarePredictor
	sources      []predict.Source
	limit        int
	maxLength    int
	rand         ngram.Rand
	in           io.Reader
	out          *log.Logger
	requestCount int
}

// NewInputHandler handles initialization of the InputHandler with basic parameters.
// sources are the models used by :all; the predictor's own model answers plain text.
func NewInputHandler(predictor *predict.ContextAwarePredictor, sources []predict.Source, limit, maxLength int) *InputHandler {
	return &InputHandler{
		predictor: predictor,
		sources:   sources,
		limit:     limit,
		maxLength: maxLength,
		in:        os.Stdin,
		out:       logger.Default(""),
	}
}

// WithIO swaps stdin/stderr for the given reader and writer.
func (h *InputHandler) WithIO(in io.Reader, out io.Writer) *InputHandler {
	h.in = in
	h.out = logger.NewWithConfig(out, "", log.GetLevel(), false, false, log.TextFormatter)
	return h
}

// WithRand makes :gen draw from r instead of the global source.
func (h *InputHandler) WithRand(r ngram.Rand) *InputHandler {
	h.rand = r
	return h
}

// Start begins the interface loop. It returns nil when input ends.
func (h *InputHandler) Start() error {
	h.out.Print("WordNext CLI [BETA]")
	h.out.Print("type some text and press Enter to see the next word (:help for commands, Ctrl+C to exit):")

	reader := bufio.NewReader(h.in)
	for {
		h.out.Print("> ")
		line, err := reader.ReadString('\n')
		if line = strings.TrimSpace(line); line != "" {
			h.handleInput(line)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

func (h *InputHandler) handleInput(line string) {
	h.requestCount++
	log.Debugf("Request #%d: '%s'", h.requestCount, line)
	if !strings.HasPrefix(line, ":") {
		h.predict(line)
		return
	}

	cmd, arg, _ := strings.Cut(line[1:], " ")
	arg = strings.TrimSpace(arg)
	switch cmd {
	case "gen", "generate":
		h.generate(arg)
	case "all":
		h.suggest(arg)
	case "add":
		h.addWord(arg)
	case "rm", "remove":
		h.predictor.Dictionary().RemoveWord(arg)
		h.out.Printf("removed '%s'", dictionary.Normalize(arg))
	case "complete":
		h.complete(arg)
	case "dict":
		h.listDictionary()
	case "save":
		if err := h.predictor.Dictionary().Save(); err != nil {
			h.out.Errorf("Failed to save dictionary: %v", err)
			return
		}
		h.out.Printf("saved %d words to %s", h.predictor.Dictionary().Len(), h.predictor.Dictionary().Path())
	case "stats":
		h.stats()
	case "help", "h", "?":
		h.out.Print(helpText)
	default:
		h.out.Errorf("Unknown command ':%s' (try :help)", cmd)
	}
}

func (h *InputHandler) predict(text string) {
	start := time.Now()
	preds := h.predictor.PredictWithContext(text, h.limit)
	log.Debugf("Took [ %v ] for '%s'", time.Since(start), text)

	if len(preds) == 0 {
		h.out.Warnf("No predictions for '%s'", text)
		return
	}
	h.out.Printf("Top %d predictions after '%s':", len(preds), text)
	for i, p := range preds {
		h.out.Printf("%2d. %-30s %8s", i+1, colorWord(p.Word, p.Reserved), utils.FormatPercent(p.Probability))
	}
}

func (h *InputHandler) generate(seed string) {
	m := h.predictor.Model()
	if m == nil {
		h.out.Error("No model loaded")
		return
	}
	var text string
	if h.rand != nil {
		text = m.Generate(h.rand, seed, h.maxLength)
	} else {
		text = m.GenerateText(seed, h.maxLength)
	}
	h.out.Print(text)
}

func (h *InputHandler) suggest(text string) {
	suggestions := predict.Suggest(text, h.sources, h.limit, h.limit)
	if len(suggestions) == 0 {
		h.out.Warnf("No suggestions for '%s'", text)
		return
	}
	for i, s := range suggestions {
		h.out.Printf("%2d. %-30s %8s  (%s)", i+1, colorWord(s.Word, s.Reserved), utils.FormatPercent(s.Probability), s.Sources)
	}
}

func (h *InputHandler) addWord(arg string) {
	fields := strings.Fields(arg)
	if len(fields) == 0 || len(fields) > 2 {
		h.out.Error("usage: :add <word> [freq]")
		return
	}
	freq := 1
	if len(fields) == 2 {
		n, err := strconv.Atoi(fields[1])
		if err != nil || n < 0 {
			h.out.Errorf("Invalid frequency '%s'", fields[1])
			return
		}
		freq = n
	}
	d := h.predictor.Dictionary()
	d.AddWord(fields[0], freq)
	h.out.Printf("'%s' now has frequency %s", dictionary.Normalize(fields[0]), utils.FormatWithCommas(d.GetFrequency(fields[0])))
}

func (h *InputHandler) complete(prefix string) {
	entries := h.predictor.Dictionary().Complete(prefix, h.limit)
	if len(entries) == 0 {
		h.out.Warnf("No custom words start with '%s'", prefix)
		return
	}
	for i, e := range entries {
		h.out.Printf("%2d. %-30s (freq: %8s)", i+1, colorWord(e.Word, false), utils.FormatWithCommas(e.Frequency))
	}
}

func (h *InputHandler) listDictionary() {
	d := h.predictor.Dictionary()
	h.out.Printf("%d custom words, total frequency %s", d.Len(), utils.FormatWithCommas(d.TotalFrequency()))
	for i, e := range d.Entries() {
		h.out.Printf("%2d. %-30s (freq: %8s)", i+1, colorWord(e.Word, false), utils.FormatWithCommas(e.Frequency))
	}
}

func (h *InputHandler) stats() {
	for _, src := range h.sources {
		if src.Model == nil {
			continue
		}
		s := src.Model.Stats()
		h.out.Printf("%-8s n=%d contexts=%s ngrams=%s vocab=%s", src.Name, s.Order,
			utils.FormatWithCommas(s.Contexts), utils.FormatWithCommas(s.NGrams), utils.FormatWithCommas(s.Vocabulary))
	}
}

func colorWord(word string, reserved bool) string {
	if reserved {
		return fmt.Sprintf("\033[2m%s\033[0m", word)
	}
	return fmt.Sprintf("\033[38;5;75m%s\033[0m", word)
}

