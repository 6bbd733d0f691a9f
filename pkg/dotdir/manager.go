// Package dotdir manages the .ambient/ and ~/.ambient directories.
//
// The dotdir holds the config.toml, the ledger SQLite database, the vector
// database, and daemon log files. Resolution prefers an explicit override,
// then a project-local .ambient/ directory, then the home directory.
package dotdir

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// dirName is the name of the ambient directory.
	dirName = ".ambient"
)

type Manager struct{}

func NewManager() *Manager {
	return &Manager{}
}

// Target returns the target absolute path to a .ambient/ directory.
// Order of precedence is as follows:
//  1. Provided override
//  2. Local ./.ambient/ dir
//  3. Home ~/.ambient/ dir
//  4. If none found, attempt to create ~/.ambient/ dir
func (m *Manager) Target(overrideDir string) (string, error) {
	var dir string

	switch {
	case overrideDir != "":
		dir = overrideDir

	case m.localDirExists():
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getting current directory: %w", err)
		}
		dir = filepath.Join(cwd, dirName)

	default:
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting home directory: %w", err)
		}
		dir = filepath.Join(home, dirName)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating ambient directory %s: %w", dir, err)
	}

	return filepath.Abs(dir)
}

// DefaultLedgerPath returns the default path for the ledger SQLite database
// inside the resolved dotdir.
func (m *Manager) DefaultLedgerPath(overrideDir string) (string, error) {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "ledger.db"), nil
}

// DefaultVectorPath returns the default path for the vector SQLite database
// inside the resolved dotdir.
func (m *Manager) DefaultVectorPath(overrideDir string) (string, error) {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "vectors.db"), nil
}

// localDirExists checks whether a .ambient/ directory exists in the current
// working directory.
func (m *Manager) localDirExists() bool {
	cwd, err := os.Getwd()
	if err != nil {
		return false
	}

	info, err := os.Stat(filepath.Join(cwd, dirName))
	return err == nil && info.IsDir()
}
