// Package extract implements the "extract" subcommand: read every entry out
// of an archive and write it to an output directory, preserving relative
// paths.
package extract

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/lstgretroarc/archive/internal/archive"
)

// Cmd is the "extract" subcommand.
var Cmd = &cobra.Command{
	Use:   "extract <archive> <outputDir>",
	Short: "Extract every file in an LSTGRETROARC archive to a directory",
	Args:  cobra.ExactArgs(2),
	RunE:  run,
}

func run(cmd *cobra.Command, args []string) error {
	archivePath, outputDir := args[0], args[1]

	r, err := archive.Open(archivePath, 0, slog.Default())
	if err != nil {
		return fmt.Errorf("extract %s: %w", archivePath, err)
	}
	defer r.Close()

	e := r.NewEnumerator("", true)
	defer e.Close()

	count := 0
	for e.Next() {
		if e.NodeType() != archive.NodeFile {
			continue
		}

		data, err := e.ReadFile()
		if err != nil {
			return fmt.Errorf("extract %s: %w", e.Name(), err)
		}

		dest := filepath.Join(outputDir, e.Name())
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return fmt.Errorf("extract %s: %w", e.Name(), err)
		}
		if err := os.WriteFile(dest, data, 0o644); err != nil {
			return fmt.Errorf("extract %s: %w", e.Name(), err)
		}
		count++
	}

	fmt.Fprintf(os.Stdout, "extracted %d files to %s\n", count, outputDir)
	return nil
}
