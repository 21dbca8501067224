package ctr

import (
	"encoding/binary"
	"fmt"
	"io"
)

// CiaHeaderSize is the fixed size of a CiaHeader (0x2020 bytes), grounded
// on original_source/src/nintendo/ctr/models/cia.rs's CIA_HEADER_SIZE.
const CiaHeaderSize = 0x2020

// CiaHeader is the little-endian archive header at the start of a CIA
// file, naming the size of each following section.
type CiaHeader struct {
	HeaderSize    uint32
	CiaType       uint16
	Version       uint16
	CertChainSize uint32
	TicketSize    uint32
	TmdSize       uint32
	MetaSize      uint32
	ContentSize   uint64
	ContentIndex  [0x2000]byte
}

// SetContentIndex marks content index as present in the bitmask.
func (h *CiaHeader) SetContentIndex(index int) {
	byteIndex := index / 8
	bitIndex := 7 - (index % 8)
	if byteIndex < len(h.ContentIndex) {
		h.ContentIndex[byteIndex] |= 1 << uint(bitIndex)
	}
}

// ReadCiaHeader reads a little-endian CiaHeader from r.
func ReadCiaHeader(r io.Reader) (CiaHeader, error) {
	var h CiaHeader
	for _, v := range []any{&h.HeaderSize, &h.CiaType, &h.Version, &h.CertChainSize, &h.TicketSize, &h.TmdSize, &h.MetaSize, &h.ContentSize} {
		if err := binary.Read(r, binary.LittleEndian, v); err != nil {
			return CiaHeader{}, fmt.Errorf("ctr: read cia header: %w", err)
		}
	}
	if _, err := io.ReadFull(r, h.ContentIndex[:]); err != nil {
		return CiaHeader{}, fmt.Errorf("ctr: read cia content index: %w", err)
	}
	return h, nil
}

// Write serializes h in the little-endian wire format.
func (h CiaHeader) Write(w io.Writer) error {
	for _, v := range []any{h.HeaderSize, h.CiaType, h.Version, h.CertChainSize, h.TicketSize, h.TmdSize, h.MetaSize, h.ContentSize} {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	_, err := w.Write(h.ContentIndex[:])
	return err
}

// Align64 rounds offset up to the next multiple of 64, the alignment CIA
// sections are packed at.
func Align64(offset uint64) uint64 {
	return (offset + 63) &^ 63
}
