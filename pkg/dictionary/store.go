package dictionary

import (
	"errors"
	"sort"

	"github.com/bastiangx/wordnext/pkg/persist"
	"github.com/charmbracelet/log"
	"github.com/tchap/go-patricia/v2/patricia"
)

// dictRecord is the persisted document. Both fields are required, so they
// are pointers: a missing key decodes to nil and is reported as corrupt.
type dictRecord struct {
	Words       *[]string       `msgpack:"words" json:"words" yaml:"words" toml:"words"`
	Frequencies *map[string]int `msgpack:"frequencies" json:"frequencies" yaml:"frequencies" toml:"frequencies"`
}

// Save writes the whole dictionary to its path.
func (d *Dictionary) Save() error {
	words := make([]string, 0, len(d.freqs))
	freqs := make(map[string]int, len(d.freqs))
	for w, f := range d.freqs {
		words = append(words, w)
		freqs[w] = f
	}
	sort.Strings(words)

	if err := persist.Save(d.path, dictRecord{Words: &words, Frequencies: &freqs}); err != nil {
		return err
	}
	log.Debugf("Saved %d custom words to %s", len(words), d.path)
	return nil
}

// Load replaces the in-memory dictionary with the stored one. A missing
// store is a first run: the dictionary is left empty and no error is returned.
func (d *Dictionary) Load() error {
	err := d.LoadStrict()
	if errors.Is(err, persist.ErrNotFound) {
		log.Debugf("No custom dictionary at %s, starting empty", d.path)
		d.reset()
		return nil
	}
	return err
}

// LoadStrict is Load for callers that expect the store to exist: a missing
// file returns persist.ErrNotFound. On any error the dictionary is unchanged.
func (d *Dictionary) LoadStrict() error {
	var rec dictRecord
	if err := persist.Load(d.path, &rec); err != nil {
		return err
	}

	trie, freqs, err := fromRecord(rec)
	if err != nil {
		return err
	}
	d.words = trie
	d.freqs = freqs
	log.Debugf("Loaded %d custom words from %s", len(freqs), d.path)
	return nil
}

func fromRecord(rec dictRecord) (*patricia.Trie, map[string]int, error) {
	if rec.Words == nil {
		return nil, nil, persist.Corruptf("missing words")
	}
	if rec.Frequencies == nil {
		return nil, nil, persist.Corruptf("missing frequencies")
	}
	words, stored := *rec.Words, *rec.Frequencies
	if len(words) != len(stored) {
		return nil, nil, persist.Corruptf("%d words but %d frequencies", len(words), len(stored))
	}

	trie := patricia.NewTrie()
	freqs := make(map[string]int, len(stored))
	seen := make(map[string]struct{}, len(words))
	for _, raw := range words {
		if _, dup := seen[raw]; dup {
			return nil, nil, persist.Corruptf("word %q is listed twice", raw)
		}
		seen[raw] = struct{}{}
		f, ok := stored[raw]
		if !ok {
			return nil, nil, persist.Corruptf("word %q has no frequency", raw)
		}
		if f < 0 {
			return nil, nil, persist.Corruptf("word %q has negative frequency %d", raw, f)
		}
		w := Normalize(raw)
		if w == "" {
			return nil, nil, persist.Corruptf("empty word")
		}
		trie.Set(patricia.Prefix(w), true)
		freqs[w] += f
	}
	return trie, freqs, nil
}
