package utils

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"
)

// LoadTOMLFile decodes a TOML file into config. Keys that match no field
// are reported by name and otherwise ignored.
func LoadTOMLFile(configPath string, config any) error {
	md, err := toml.DecodeFile(configPath, config)
	if err != nil {
		log.Warnf("TOML parsing error in config file %s: %v. Attempting partial recovery...", configPath, err)
		return fmt.Errorf("decode %s: %w", configPath, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		log.Warnf("Unknown keys in %s: %s", configPath, strings.Join(keys, ", "))
	}
	return nil
}

// ParseTOMLWithRecovery decodes a TOML file into a generic map so that the
// sections which still hold valid values can be read one by one.
func ParseTOMLWithRecovery(configPath string) (map[string]any, error) {
	raw := make(map[string]any)
	if _, err := toml.DecodeFile(configPath, &raw); err != nil {
		log.Warnf("Could not parse any valid configuration from %s: %v", configPath, err)
		return nil, err
	}
	return raw, nil
}

// ExtractSection returns the [sectionName] table. A key of that name that
// is not a table is reported and skipped.
func ExtractSection(data map[string]any, sectionName string) (map[string]any, bool) {
	v, present := data[sectionName]
	if !present {
		return nil, false
	}
	section, ok := v.(map[string]any)
	if !ok {
		log.Warnf("Ignoring [%s]: expected a table, got %T", sectionName, v)
	}
	return section, ok
}

// typed reads key from data as T, warning when it is present with another type.
func typed[T any](data map[string]any, key, want string) (T, bool) {
	var zero T
	v, present := data[key]
	if !present {
		return zero, false
	}
	val, ok := v.(T)
	if !ok {
		log.Warnf("Ignoring %s = %v: expected %s, keeping the default", key, v, want)
	}
	return val, ok
}

// ExtractInt64 reads an integer (TOML integers decode as int64).
func ExtractInt64(data map[string]any, key string) (int, bool) {
	val, ok := typed[int64](data, key, "an integer")
	return int(val), ok
}

// ExtractBool reads a boolean.
func ExtractBool(data map[string]any, key string) (bool, bool) {
	return typed[bool](data, key, "true or false")
}

// ExtractString reads a string.
func ExtractString(data map[string]any, key string) (string, bool) {
	return typed[string](data, key, "a string")
}

// ExtractIntSlice extracts an array of integers. Any non-integer element
// rejects the whole array.
func ExtractIntSlice(data map[string]any, key string) ([]int, bool) {
	raw, ok := typed[[]any](data, key, "an array of integers")
	if !ok {
		return nil, false
	}
	out := make([]int, 0, len(raw))
	for _, v := range raw {
		n, ok := v.(int64)
		if !ok {
			log.Warnf("Ignoring %s: element %v is not an integer", key, v)
			return nil, false
		}
		out = append(out, int(n))
	}
	return out, true
}
