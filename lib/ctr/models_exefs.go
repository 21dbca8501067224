package ctr

import (
	"encoding/binary"
	"fmt"
	"io"
)

// ExeFSHeaderEntryCount is the fixed number of file entries in an ExeFS
// header, grounded on original_source/src/nintendo/ctr/models/exe_fs_header.rs.
const ExeFSHeaderEntryCount = 10

// ExeFSFileEntry describes one file packed into an ExeFS section. FileOffset
// and FileSize are kept as raw little-endian byte arrays (mirroring the
// Rust model) rather than decoded at parse time, since the decrypt pipeline
// only needs to compare FileName against "icon"/"banner" and otherwise
// treats the fields as opaque until it re-derives the decoded offsets.
type ExeFSFileEntry struct {
	FileName   [8]byte
	FileOffset [4]byte
	FileSize   [4]byte
}

// Offset decodes the little-endian file offset.
func (e ExeFSFileEntry) Offset() uint32 { return binary.LittleEndian.Uint32(e.FileOffset[:]) }

// Size decodes the little-endian file size.
func (e ExeFSFileEntry) Size() uint32 { return binary.LittleEndian.Uint32(e.FileSize[:]) }

// Name trims trailing NUL padding from FileName.
func (e ExeFSFileEntry) Name() string {
	n := 0
	for n < len(e.FileName) && e.FileName[n] != 0 {
		n++
	}
	return string(e.FileName[:n])
}

// ExeFSHeader is the fixed-size header at the start of an ExeFS section:
// 10 file entries followed by 10 file hashes (stored in reverse order of
// the entries, per the NCCH ExeFS format).
type ExeFSHeader struct {
	FileHeaders [ExeFSHeaderEntryCount]ExeFSFileEntry
	Reserved    [0x20]byte
	FileHashes  [ExeFSHeaderEntryCount][0x20]byte
}

// ReadExeFSHeader reads a 0x200-byte ExeFSHeader from r.
func ReadExeFSHeader(r io.Reader) (ExeFSHeader, error) {
	var h ExeFSHeader
	for i := range h.FileHeaders {
		if _, err := io.ReadFull(r, h.FileHeaders[i].FileName[:]); err != nil {
			return ExeFSHeader{}, fmt.Errorf("ctr: read exefs entry %d name: %w", i, err)
		}
		if _, err := io.ReadFull(r, h.FileHeaders[i].FileOffset[:]); err != nil {
			return ExeFSHeader{}, fmt.Errorf("ctr: read exefs entry %d offset: %w", i, err)
		}
		if _, err := io.ReadFull(r, h.FileHeaders[i].FileSize[:]); err != nil {
			return ExeFSHeader{}, fmt.Errorf("ctr: read exefs entry %d size: %w", i, err)
		}
	}
	if _, err := io.ReadFull(r, h.Reserved[:]); err != nil {
		return ExeFSHeader{}, fmt.Errorf("ctr: read exefs reserved: %w", err)
	}
	for i := range h.FileHashes {
		if _, err := io.ReadFull(r, h.FileHashes[i][:]); err != nil {
			return ExeFSHeader{}, fmt.Errorf("ctr: read exefs hash %d: %w", i, err)
		}
	}
	return h, nil
}

// Write serializes h back to its 0x200-byte wire format.
func (h ExeFSHeader) Write(w io.Writer) error {
	for _, e := range h.FileHeaders {
		if _, err := w.Write(e.FileName[:]); err != nil {
			return err
		}
		if _, err := w.Write(e.FileOffset[:]); err != nil {
			return err
		}
		if _, err := w.Write(e.FileSize[:]); err != nil {
			return err
		}
	}
	if _, err := w.Write(h.Reserved[:]); err != nil {
		return err
	}
	for _, hash := range h.FileHashes {
		if _, err := w.Write(hash[:]); err != nil {
			return err
		}
	}
	return nil
}

// usesExtraCryptoName reports whether a file name is exempt from the
// alternate extra/seed-crypto key when decrypting an ExeFS section: icon
// and banner sections are always decrypted with the NCCH's primary key.
func usesExtraCryptoName(name string) bool {
	return name != "icon" && name != "banner"
}
