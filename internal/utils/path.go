package utils

import (
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
)

// PathResolver resolves relative data paths (model dir, dictionary file)
// against the working directory and the binary's own directory.
type PathResolver struct {
	executableDir string
	workDir       string
}

// NewPathResolver creates a resolver. A binary location that cannot be
// determined falls back to the working directory.
func NewPathResolver() *PathResolver {
	cwd, err := os.Getwd()
	if err != nil {
		log.Warnf("Could not determine working directory: %v", err)
		cwd = "."
	}

	execDir, err := GetExecutableDir()
	if err != nil {
		log.Debugf("Could not determine executable path: %v", err)
		execDir = cwd
	}

	log.Debugf("PathResolver initialized: cwd=%s, execDir=%s", cwd, execDir)
	return &PathResolver{executableDir: execDir, workDir: cwd}
}

// Resolve returns path unchanged when absolute. Otherwise it prefers an
// existing file or dir under the working directory, then under the
// executable directory, and falls back to the working directory for
// paths that do not exist yet.
func (pr *PathResolver) Resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	candidates := []string{
		filepath.Join(pr.workDir, path),
		filepath.Join(pr.executableDir, path),
	}
	for _, c := range candidates {
		if PathExists(c) {
			return c
		}
		log.Debugf("Path candidate not found: %s", c)
	}
	return candidates[0]
}
