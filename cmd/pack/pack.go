// Package pack implements the "pack" subcommand: walk a source directory
// and build a new LSTGRETROARC archive from its contents.
package pack

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/lstgretroarc/archive/internal/archive"
)

// Cmd is the "pack" subcommand.
var Cmd = &cobra.Command{
	Use:   "pack <sourceDir> <outputPath>",
	Short: "Pack a directory into a new LSTGRETROARC archive",
	Args:  cobra.ExactArgs(2),
	RunE:  run,
}

func run(cmd *cobra.Command, args []string) error {
	sourceDir, outputPath := args[0], args[1]

	creator := archive.NewCreator(nil, slog.Default())

	err := filepath.WalkDir(sourceDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(sourceDir, path)
		if err != nil {
			return err
		}
		creator.AddFile(filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return fmt.Errorf("pack %s: %w", sourceDir, err)
	}

	onStatus := func(msg string) { fmt.Fprintf(os.Stdout, "%s\n", msg) }
	onProgress := func(v float64) { fmt.Fprintf(os.Stdout, "progress: %.0f%%\n", v*100) }

	if err := creator.Create(sourceDir, outputPath, onStatus, onProgress); err != nil {
		return fmt.Errorf("pack %s: %w", sourceDir, err)
	}

	return nil
}
