// Package inspect implements the "inspect" subcommand: open an archive and
// print its header and directory contents without extracting anything.
package inspect

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/lstgretroarc/archive/internal/archive"
)

var (
	directory string
	recursive bool
	quiet     bool
)

// Cmd is the "inspect" subcommand.
var Cmd = &cobra.Command{
	Use:   "inspect <archive>",
	Short: "List the entries and directories inside an LSTGRETROARC archive",
	Args:  cobra.ExactArgs(1),
	RunE:  run,
}

func init() {
	Cmd.Flags().StringVarP(&directory, "dir", "d", "", "archive directory to scope the listing to (default: root)")
	Cmd.Flags().BoolVarP(&recursive, "recursive", "r", true, "descend into subdirectories")
	Cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "print only paths, one per line")
}

func run(cmd *cobra.Command, args []string) error {
	path := args[0]

	r, err := archive.Open(path, 0, slog.Default())
	if err != nil {
		return fmt.Errorf("inspect %s: %w", path, err)
	}
	defer r.Close()

	fmt.Fprintf(os.Stdout, "archive: %s\n", r.ArchivePath())

	e := r.NewEnumerator(directory, recursive)
	defer e.Close()

	for e.Next() {
		if e.NodeType() == archive.NodeDirectory {
			if quiet {
				fmt.Fprintf(os.Stdout, "%s\n", e.Name())
			} else {
				fmt.Fprintf(os.Stdout, "  [dir]  %s\n", e.Name())
			}
			continue
		}
		if quiet {
			fmt.Fprintf(os.Stdout, "%s\n", e.Name())
		} else {
			fmt.Fprintf(os.Stdout, "  [file] %-40s %8d bytes\n", e.Name(), e.FileSize())
		}
	}

	return nil
}
