/*
Package persist reads and writes whole-object stores for models and dictionaries.

A store is a single document on disk. Its encoding is picked from the file
extension, so the same record type can live in a compact msgpack file for
production and in a JSON, YAML or TOML file for hand editing:

	.mpk .msgpack   MessagePack (default for trained models)
	.json           JSON, indented
	.yaml .yml      YAML
	.toml           TOML

Loads and saves replace the whole object; there is no partial update.
Callers tell the two failure modes apart with errors.Is:

	ErrNotFound  the file does not exist
	ErrCorrupt   the file exists but could not be decoded or failed validation
*/
package persist

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"
)

var (
	// ErrNotFound is returned when a store file does not exist.
	ErrNotFound = errors.New("store not found")
	// ErrCorrupt is returned when a store decodes to the wrong shape.
	ErrCorrupt = errors.New("corrupt store")
	// ErrUnsupported is returned for file extensions with no known format.
	ErrUnsupported = errors.New("unsupported store format")
)

// Format represents a store encoding.
type Format int

const (
	FormatUnknown Format = iota
	FormatMsgpack
	FormatJSON
	FormatYAML
	FormatTOML
)

// FormatInfo contains metadata about a store format
type FormatInfo struct {
	Format      Format
	Description string
	Extensions  []string
}

var supportedFormats = map[Format]FormatInfo{
	FormatMsgpack: {
		Format:      FormatMsgpack,
		Description: "MessagePack store",
		Extensions:  []string{".mpk", ".msgpack"},
	},
	FormatJSON: {
		Format:      FormatJSON,
		Description: "JSON store",
		Extensions:  []string{".json"},
	},
	FormatYAML: {
		Format:      FormatYAML,
		Description: "YAML store",
		Extensions:  []string{".yaml", ".yml"},
	},
	FormatTOML: {
		Format:      FormatTOML,
		Description: "TOML store",
		Extensions:  []string{".toml"},
	},
}

func (f Format) String() string {
	if info, ok := supportedFormats[f]; ok {
		return info.Description
	}
	return "unknown"
}

// DetectFormat picks a format from the extension of path.
func DetectFormat(path string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	for format, info := range supportedFormats {
		for _, e := range info.Extensions {
			if ext == e {
				return format, nil
			}
		}
	}
	return FormatUnknown, fmt.Errorf("%w: %q", ErrUnsupported, ext)
}

// GetFormatInfo returns information about a specific format
func GetFormatInfo(format Format) (FormatInfo, bool) {
	info, exists := supportedFormats[format]
	return info, exists
}

// Encode serializes v in the given format.
func Encode(format Format, v any) ([]byte, error) {
	switch format {
	case FormatMsgpack:
		return msgpack.Marshal(v)
	case FormatJSON:
		return json.MarshalIndent(v, "", "  ")
	case FormatYAML:
		return yaml.Marshal(v)
	case FormatTOML:
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(v); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	return nil, fmt.Errorf("%w: %v", ErrUnsupported, format)
}

// Decode parses data in the given format into v.
// Decoder failures are reported as ErrCorrupt.
func Decode(format Format, data []byte, v any) error {
	var err error
	switch format {
	case FormatMsgpack:
		err = msgpack.Unmarshal(data, v)
	case FormatJSON:
		err = json.Unmarshal(data, v)
	case FormatYAML:
		err = yaml.Unmarshal(data, v)
	case FormatTOML:
		_, err = toml.Decode(string(data), v)
	default:
		return fmt.Errorf("%w: %v", ErrUnsupported, format)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return nil
}
