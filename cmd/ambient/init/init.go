// Package initcmder provides the init command for initializing a local
// .ambient directory in the current working directory.
package initcmder

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

const (
	dirName = ".ambient"
)

const initLongDesc string = `Initialize a new .ambient/ directory in the current working directory.

Creates a local .ambient/ directory that takes precedence over the default
~/.ambient/ directory for the turn ledger, anchor vectors, configuration,
and other ambient state.

This is useful for maintaining a separate memory substrate per project
or per agent.

Examples:
  ambient init`

const initShortDesc string = "Initialize a local .ambient/ directory"

func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runInit()
		},
	}

	return cmd
}

func runInit() error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	dir := filepath.Join(cwd, dirName)

	info, err := os.Stat(dir)
	if err == nil && info.IsDir() {
		fmt.Printf("Already initialized: %s\n", dir)
		return nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating .ambient directory: %w", err)
	}

	fmt.Printf("Initialized .ambient directory: %s\n", dir)
	return nil
}
