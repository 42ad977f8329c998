package logger

import (
	"os"

	"github.com/charmbracelet/log"
)

// Default creates a charm log without timestamps that respects the global log level
func Default(prefix string) *log.Logger {
	return NewWithConfig(os.Stderr, prefix, log.GetLevel(), false, false, log.TextFormatter)
}
