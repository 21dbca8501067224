// Package cli assembles the romconverto command tree.
package cli

import (
	"github.com/sargunv/romconverto/internal/cli/chd"
	"github.com/sargunv/romconverto/internal/cli/ctr"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "romconverto",
	Short: "Compress CD images to CHD and pack/decrypt 3DS CIA archives",
}

func init() {
	rootCmd.AddCommand(chd.Cmd)
	rootCmd.AddCommand(ctr.Cmd)
}

// Execute runs the romconverto CLI, returning any error from the matched
// subcommand.
func Execute() error {
	return rootCmd.Execute()
}
