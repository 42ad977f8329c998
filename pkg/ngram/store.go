package ngram

import (
	"github.com/bastiangx/wordnext/pkg/persist"
)

// modelRecord is the persisted form of a Model. Contexts and their
// followers keep first-seen order so ties rank the same after a reload.
// Vocab and Contexts are pointers so an absent key is told apart from an
// empty list.
type modelRecord struct {
	N          int              `msgpack:"n" json:"n" yaml:"n" toml:"n"`
	StartToken string           `msgpack:"start_token" json:"start_token" yaml:"start_token" toml:"start_token"`
	EndToken   string           `msgpack:"end_token" json:"end_token" yaml:"end_token" toml:"end_token"`
	Vocab      *[]string        `msgpack:"vocab" json:"vocab" yaml:"vocab" toml:"vocab"`
	Contexts   *[]contextRecord `msgpack:"contexts" json:"contexts" yaml:"contexts" toml:"contexts"`
}

type contextRecord struct {
	Context []string      `msgpack:"context" json:"context" yaml:"context" toml:"context"`
	Next    []countRecord `msgpack:"next" json:"next" yaml:"next" toml:"next"`
}

type countRecord struct {
	Token string `msgpack:"token" json:"token" yaml:"token" toml:"token"`
	Count int    `msgpack:"count" json:"count" yaml:"count" toml:"count"`
}

// Save writes the model to path. The encoding follows the file extension.
func (m *Model) Save(path string) error {
	return persist.Save(path, m.record())
}

// Load reads a model saved by Save. A missing file is persist.ErrNotFound,
// a malformed one persist.ErrCorrupt.
func Load(path string) (*Model, error) {
	var rec modelRecord
	if err := persist.Load(path, &rec); err != nil {
		return nil, err
	}
	return fromRecord(rec)
}

func (m *Model) record() modelRecord {
	vocab := m.Vocabulary()
	contexts := make([]contextRecord, 0, len(m.contexts))
	for _, ctx := range m.contexts {
		f := m.table[contextKey(ctx)]
		cr := contextRecord{
			Context: ctx,
			Next:    make([]countRecord, 0, len(f.order)),
		}
		for _, tok := range f.order {
			cr.Next = append(cr.Next, countRecord{Token: tok, Count: f.counts[tok]})
		}
		contexts = append(contexts, cr)
	}
	return modelRecord{
		N:          m.n,
		StartToken: m.start,
		EndToken:   m.end,
		Vocab:      &vocab,
		Contexts:   &contexts,
	}
}

func fromRecord(rec modelRecord) (*Model, error) {
	if rec.N < 2 {
		return nil, persist.Corruptf("order %d is below 2", rec.N)
	}
	if rec.StartToken == "" || rec.EndToken == "" {
		return nil, persist.Corruptf("missing reserved tokens")
	}
	if rec.StartToken == rec.EndToken {
		return nil, persist.Corruptf("start and end tokens are both %q", rec.StartToken)
	}
	if rec.Vocab == nil {
		return nil, persist.Corruptf("missing vocab")
	}
	if rec.Contexts == nil {
		return nil, persist.Corruptf("missing contexts")
	}
	vocab, contexts := *rec.Vocab, *rec.Contexts

	m := &Model{
		n:     rec.N,
		table: make(map[string]*followers, len(contexts)),
		vocab: make(map[string]struct{}, len(vocab)),
		start: rec.StartToken,
		end:   rec.EndToken,
	}
	for _, w := range vocab {
		m.vocab[w] = struct{}{}
	}

	for i, cr := range contexts {
		if len(cr.Context) != rec.N-1 {
			return nil, persist.Corruptf("context %d has %d tokens, want %d", i, len(cr.Context), rec.N-1)
		}
		if len(cr.Next) == 0 {
			return nil, persist.Corruptf("context %d has no followers", i)
		}
		key := contextKey(cr.Context)
		if _, dup := m.table[key]; dup {
			return nil, persist.Corruptf("context %d is duplicated", i)
		}
		seen := make(map[string]struct{}, len(cr.Next))
		for _, c := range cr.Next {
			if c.Count < 1 {
				return nil, persist.Corruptf("context %d: count %d for %q is not positive", i, c.Count, c.Token)
			}
			if _, dup := seen[c.Token]; dup {
				return nil, persist.Corruptf("context %d: token %q is duplicated", i, c.Token)
			}
			seen[c.Token] = struct{}{}
			m.add(cr.Context, c.Token, c.Count)
		}
	}
	return m, nil
}
