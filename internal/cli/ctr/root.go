// Package ctr wires the CIA/NCCH crypto pipeline to the command line.
package ctr

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	ctrlib "github.com/sargunv/romconverto/lib/ctr"

	"github.com/spf13/cobra"
)

var (
	cleanup            bool
	recursive          bool
	ensureTicketExists bool
	decrypt            bool
)

// Cmd is the "ctr" command subtree.
var Cmd = &cobra.Command{
	Use:   "ctr",
	Short: "Pack and decrypt Nintendo 3DS CIA/NCCH archives",
}

var cdnToCIACmd = &cobra.Command{
	Use:   "cdn-to-cia <cdn_dir> [output.cia]",
	Short: "Pack a Nintendo CDN content directory into a CIA archive",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runCDNToCIA,
}

var generateTicketCmd = &cobra.Command{
	Use:   "generate-cdn-ticket <cdn_dir> [output.tik]",
	Short: "Derive a standalone CETK ticket file for a CDN content directory",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runGenerateTicket,
}

var decryptCIACmd = &cobra.Command{
	Use:   "decrypt-cia <input.cia> <output.cia>",
	Short: "Repack an encrypted CIA with all content decrypted",
	Args:  cobra.ExactArgs(2),
	RunE:  runDecryptCIA,
}

func init() {
	cdnToCIACmd.Flags().BoolVar(&cleanup, "cleanup", false, "remove the CDN directory once the CIA has been written")
	cdnToCIACmd.Flags().BoolVar(&recursive, "recursive", false, "pack every CDN directory found under cdn_dir")
	cdnToCIACmd.Flags().BoolVar(&ensureTicketExists, "ensure-ticket-exists", false, "generate a ticket if the CDN directory has none")
	cdnToCIACmd.Flags().BoolVar(&decrypt, "decrypt", false, "re-encode the packed CIA as a decrypted archive")

	Cmd.AddCommand(cdnToCIACmd, generateTicketCmd, decryptCIACmd)
}

func runCDNToCIA(cmd *cobra.Command, args []string) error {
	cdnDir := args[0]
	output := ""
	if len(args) == 2 {
		output = args[1]
	}

	dirs := []string{cdnDir}
	if recursive {
		found, err := findCDNDirs(cdnDir)
		if err != nil {
			return fmt.Errorf("find cdn directories: %w", err)
		}
		dirs = found
	}

	for _, dir := range dirs {
		out := output
		if recursive {
			out = ""
		}
		path, err := ctrlib.ConvertCDNToCIA(ctrlib.ConvertCDNToCIAOptions{
			CDNDir:             dir,
			Output:             out,
			EnsureTicketExists: ensureTicketExists,
			Decrypt:            decrypt,
			Cleanup:            cleanup,
		})
		if err != nil {
			return fmt.Errorf("convert %s: %w", dir, err)
		}
		fmt.Println(path)
	}
	return nil
}

func runGenerateTicket(cmd *cobra.Command, args []string) error {
	cdnDir := args[0]
	output := filepath.Join(cdnDir, "ticket.tik")
	if len(args) == 2 {
		output = args[1]
	}
	return ctrlib.GenerateTicketFromCDN(cdnDir, output)
}

func runDecryptCIA(cmd *cobra.Command, args []string) error {
	return ctrlib.DecryptFromEncryptedCIA(args[0], args[1])
}

// findCDNDirs walks dir for subdirectories containing a recognizable TMD
// file, used by --recursive to pack a tree of CDN content directories in
// one invocation.
func findCDNDirs(dir string) ([]string, error) {
	seen := map[string]bool{}
	var dirs []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		name := strings.TrimSuffix(d.Name(), filepath.Ext(d.Name()))
		if name == "tmd" || d.Name() == "cetk" {
			parent := filepath.Dir(path)
			if !seen[parent] {
				seen[parent] = true
				dirs = append(dirs, parent)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dirs, nil
}
