// Package dictionary holds the user's custom vocabulary: words with a
// cumulative frequency, kept apart from any trained model's vocabulary.
//
// Words are normalized (trimmed, lowercased) on every call, so "Python",
// " python " and "PYTHON" all address the same entry. Membership is a
// patricia trie, which also serves prefix completion over custom words.
package dictionary

import (
	"sort"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/tchap/go-patricia/v2/patricia"
)

// DefaultPath is where the dictionary lives unless configured otherwise.
const DefaultPath = "data/custom_dictionary.json"

// Entry is a custom word and its accumulated frequency.
type Entry struct {
	Word      string `msgpack:"w"`
	Frequency int    `msgpack:"f"`
}

// Dictionary is a custom word -> frequency mapping bound to one store path.
// Mutations are not synchronized; readers may share a Dictionary that is
// not being modified.
type Dictionary struct {
	path  string
	words *patricia.Trie
	freqs map[string]int
}

// New creates an empty dictionary persisted at path.
func New(path string) *Dictionary {
	if path == "" {
		path = DefaultPath
	}
	return &Dictionary{
		path:  path,
		words: patricia.NewTrie(),
		freqs: make(map[string]int),
	}
}

// Normalize trims and lowercases a word.
func Normalize(word string) string {
	return strings.ToLower(strings.TrimSpace(word))
}

// Path returns the store location.
func (d *Dictionary) Path() string {
	return d.path
}

// AddWord adds frequency to word, creating it if needed.
// Empty words and negative frequencies are ignored.
func (d *Dictionary) AddWord(word string, frequency int) {
	w := Normalize(word)
	if w == "" {
		log.Debug("Ignoring empty custom word")
		return
	}
	if frequency < 0 {
		log.Warnf("Ignoring negative frequency %d for '%s'", frequency, w)
		return
	}
	d.words.Set(patricia.Prefix(w), true)
	d.freqs[w] += frequency
}

// RemoveWord deletes word. Removing an absent word is a no-op.
func (d *Dictionary) RemoveWord(word string) {
	w := Normalize(word)
	if _, ok := d.freqs[w]; !ok {
		return
	}
	d.words.Delete(patricia.Prefix(w))
	delete(d.freqs, w)
}

// GetFrequency returns the frequency of word, or 0 if it is absent.
func (d *Dictionary) GetFrequency(word string) int {
	return d.freqs[Normalize(word)]
}

// Contains reports whether word is in the dictionary.
func (d *Dictionary) Contains(word string) bool {
	w := Normalize(word)
	return w != "" && d.words.Match(patricia.Prefix(w))
}

// Len returns the number of words.
func (d *Dictionary) Len() int {
	return len(d.freqs)
}

// TotalFrequency returns the sum of all frequencies.
func (d *Dictionary) TotalFrequency() int {
	total := 0
	for _, f := range d.freqs {
		total += f
	}
	return total
}

// Entries returns all words, highest frequency first, ties by word.
func (d *Dictionary) Entries() []Entry {
	entries := make([]Entry, 0, len(d.freqs))
	for w, f := range d.freqs {
		entries = append(entries, Entry{Word: w, Frequency: f})
	}
	sortEntries(entries)
	return entries
}

// Complete returns custom words starting with prefix, excluding the prefix
// itself, ranked like Entries. A limit <= 0 returns every match.
func (d *Dictionary) Complete(prefix string, limit int) []Entry {
	p := Normalize(prefix)
	if p == "" {
		return nil
	}

	var entries []Entry
	err := d.words.VisitSubtree(patricia.Prefix(p), func(key patricia.Prefix, _ patricia.Item) error {
		word := string(key)
		if word == p {
			return nil
		}
		entries = append(entries, Entry{Word: word, Frequency: d.freqs[word]})
		return nil
	})
	if err != nil {
		log.Errorf("Error visiting custom words under '%s': %v", p, err)
		return nil
	}

	sortEntries(entries)
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}

func (d *Dictionary) reset() {
	d.words = patricia.NewTrie()
	d.freqs = make(map[string]int)
}

func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Frequency != entries[j].Frequency {
			return entries[i].Frequency > entries[j].Frequency
		}
		return entries[i].Word < entries[j].Word
	})
}
