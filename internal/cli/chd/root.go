// Package chd wires the CHD v5 writer to the command line.
package chd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sargunv/romconverto/lib/chdwriter"
	"github.com/sargunv/romconverto/lib/cuesheet"

	"github.com/spf13/cobra"
)

var force bool

// Cmd is the "chd" command subtree.
var Cmd = &cobra.Command{
	Use:   "chd",
	Short: "Work with MAME Compressed Hunks of Data (CHD) files",
}

var compressCmd = &cobra.Command{
	Use:   "compress <input.cue> <output.chd>",
	Short: "Compress a CUE/BIN CD image into a CHD v5 file",
	Args:  cobra.ExactArgs(2),
	RunE:  runCompress,
}

func init() {
	compressCmd.Flags().BoolVar(&force, "force", false, "overwrite output.chd if it already exists")
	Cmd.AddCommand(compressCmd)
}

func runCompress(cmd *cobra.Command, args []string) error {
	cuePath, outPath := args[0], args[1]

	cueFile, err := os.Open(cuePath)
	if err != nil {
		return fmt.Errorf("open cue sheet: %w", err)
	}
	sheet, err := cuesheet.Parse(cueFile)
	cueFile.Close()
	if err != nil {
		return fmt.Errorf("parse cue sheet: %w", err)
	}

	binPath := filepath.Join(filepath.Dir(cuePath), sheet.Files[0].Name)
	binFile, err := os.Open(binPath)
	if err != nil {
		return fmt.Errorf("open bin file: %w", err)
	}
	defer binFile.Close()

	info, err := binFile.Stat()
	if err != nil {
		return fmt.Errorf("stat bin file: %w", err)
	}
	if info.Size()%chdwriter.SectorSize != 0 {
		return fmt.Errorf("bin file size %d is not a multiple of the sector size %d", info.Size(), chdwriter.SectorSize)
	}
	totalFrames := uint32(info.Size() / chdwriter.SectorSize)

	w, err := chdwriter.Create(outPath, force, sheet.Tracks, totalFrames)
	if err != nil {
		return fmt.Errorf("create chd: %w", err)
	}

	sector := make([]byte, chdwriter.SectorSize)
	for i := uint32(0); i < totalFrames; i++ {
		if _, err := io.ReadFull(binFile, sector); err != nil {
			return fmt.Errorf("read sector %d: %w", i, err)
		}
		if err := w.WriteSector(sector); err != nil {
			return fmt.Errorf("write sector %d: %w", i, err)
		}
	}

	if err := w.Finalize(); err != nil {
		return fmt.Errorf("finalize chd: %w", err)
	}
	return nil
}
