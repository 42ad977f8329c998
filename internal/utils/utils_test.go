package utils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsValidWord(t *testing.T) {
	tests := []struct {
		word string
		want bool
	}{
		{"python", true},
		{"c++", true},
		{"k8s", true},
		{"", false},
		{"two words", false},
		{"tab\there", false},
		{"12345", false},
		{"aaaa", false},
		{"aa", true},
		{strings.Repeat("ab", MaxWordLen/2+1), false},
	}

	for _, tt := range tests {
		t.Run(tt.word, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidWord(tt.word))
		})
	}
}

func TestParseTOMLWithRecoveryExtractors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	doc := `
[model]
dir = "trained"
orders = [2, 4]
mixed = [2, "x"]

[dict]
autosave = false
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	data, err := ParseTOMLWithRecovery(path)
	require.NoError(t, err)

	model, ok := ExtractSection(data, "model")
	require.True(t, ok)

	dir, ok := ExtractString(model, "dir")
	assert.True(t, ok)
	assert.Equal(t, "trained", dir)

	orders, ok := ExtractIntSlice(model, "orders")
	assert.True(t, ok)
	assert.Equal(t, []int{2, 4}, orders)

	_, ok = ExtractIntSlice(model, "mixed")
	assert.False(t, ok)
	_, ok = ExtractInt64(model, "dir")
	assert.False(t, ok)

	dict, ok := ExtractSection(data, "dict")
	require.True(t, ok)
	autosave, ok := ExtractBool(dict, "autosave")
	assert.True(t, ok)
	assert.False(t, autosave)

	_, ok = ExtractSection(data, "server")
	assert.False(t, ok)
}

func TestLoadTOMLFile(t *testing.T) {
	type predict struct {
		MaxTopK int `toml:"max_top_k"`
	}
	type cfg struct {
		Predict predict `toml:"predict"`
	}

	dir := t.TempDir()
	good := filepath.Join(dir, "good.toml")
	require.NoError(t, os.WriteFile(good, []byte("cli = 3\n[predict]\nmax_top_k = 9\nspeed = 2\n"), 0o644))

	var c cfg
	require.NoError(t, LoadTOMLFile(good, &c))
	assert.Equal(t, 9, c.Predict.MaxTopK)

	bad := filepath.Join(dir, "bad.toml")
	require.NoError(t, os.WriteFile(bad, []byte("[predict]\nmax_top_k = \"lots\"\n"), 0o644))
	assert.Error(t, LoadTOMLFile(bad, &c))

	data, err := ParseTOMLWithRecovery(bad)
	require.NoError(t, err)
	section, ok := ExtractSection(data, "predict")
	require.True(t, ok)
	_, ok = ExtractInt64(section, "max_top_k")
	assert.False(t, ok)

	_, ok = ExtractSection(map[string]any{"predict": 5}, "predict")
	assert.False(t, ok)
}

func TestPathResolver(t *testing.T) {
	pr := NewPathResolver()

	abs := filepath.Join(t.TempDir(), "models")
	assert.Equal(t, abs, pr.Resolve(abs))

	cwd, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cwd, "does-not-exist"), pr.Resolve("does-not-exist"))
	assert.Equal(t, filepath.Join(cwd, "utils_test.go"), pr.Resolve("utils_test.go"))
}

func TestFormatWithCommas(t *testing.T) {
	tests := []struct {
		in   int
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{1234567, "1,234,567"},
		{-4500, "-4,500"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatWithCommas(tt.in))
	}
	assert.Equal(t, "50.00%", FormatPercent(0.5))
}

func TestFileHelpers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.toml")

	require.NoError(t, SaveTOMLFile(map[string]any{"predict": map[string]any{"max_top_k": 9}}, path))
	assert.True(t, FileExists(path))
	assert.False(t, FileExists(filepath.Dir(path)))
	assert.True(t, PathExists(filepath.Dir(path)))

	data, err := ParseTOMLWithRecovery(path)
	require.NoError(t, err)
	section, ok := ExtractSection(data, "predict")
	require.True(t, ok)
	v, ok := ExtractInt64(section, "max_top_k")
	require.True(t, ok)
	assert.Equal(t, 9, v)

	require.NoError(t, WriteFileAtomic(path, []byte("x = 1\n"), 0o600))
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	status := CheckDirStatus(filepath.Join(dir, "fresh"))
	assert.True(t, status.Exists)
	assert.True(t, status.Writable)
	assert.NoError(t, status.Error)
}
