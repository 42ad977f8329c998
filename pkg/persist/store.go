package persist

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/bastiangx/wordnext/internal/utils"
	"github.com/charmbracelet/log"
)

// Save encodes v in the format implied by path and writes it atomically.
func Save(path string, v any) error {
	format, err := DetectFormat(path)
	if err != nil {
		return err
	}
	data, err := Encode(format, v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	if err := utils.WriteFileAtomic(path, data, 0o644); err != nil {
		return err
	}
	log.Debugf("Saved %s (%d bytes, %s)", path, len(data), format)
	return nil
}

// Load reads path and decodes it into v.
func Load(path string, v any) error {
	format, err := DetectFormat(path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := Decode(format, data, v); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	log.Debugf("Loaded %s (%d bytes, %s)", path, len(data), format)
	return nil
}

// Corruptf builds an ErrCorrupt error for a record that decoded but failed validation.
func Corruptf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrCorrupt, fmt.Sprintf(format, args...))
}
