// Package version implements the "version" subcommand.
package version

import (
	"fmt"

	"github.com/spf13/cobra"
)

// BuildVersion is overridden at build time with -ldflags.
var BuildVersion = "dev"

// Cmd is the "version" subcommand.
var Cmd = &cobra.Command{
	Use:   "version",
	Short: "Print the lstgretroarc tool version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(BuildVersion)
	},
}
