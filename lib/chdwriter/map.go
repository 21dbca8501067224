package chdwriter

import (
	"encoding/binary"
	"fmt"
)

// V5 map compression types, matching lib/chd/map.go's decoder exactly so
// a round-trip through that package would reproduce the same tuples.
const (
	compressionType0      = 0
	compressionType1      = 1
	compressionType2      = 2
	compressionType3      = 3
	compressionNone       = 4
	compressionSelf       = 5
	compressionParent     = 6
	compressionRLESmall   = 7
	compressionRLELarge   = 8
	compressionSelf0      = 9
	compressionSelf1      = 10
	compressionParentSelf = 11
	compressionParent0    = 12
	compressionParent1    = 13
)

// mapEntry is one hunk's raw (pre-compression) map record.
type mapEntry struct {
	compression uint8
	length      uint32
	offset      uint64
	crc16       uint16
}

// labeledEntry is a mapEntry after Stage 1's self/parent back-reference
// substitution: label is the symbol actually written to the Huffman
// stream, which may differ from entry.compression for Self/Parent kinds
// rewritten to one of the five back-reference markers.
type labeledEntry struct {
	label uint8
	entry mapEntry
}

const mapHeaderSize = 16

// bitsForValue returns the number of bits needed to represent value (0 for
// value == 0).
func bitsForValue(value uint64) uint8 {
	var bits uint8
	for value > 0 {
		bits++
		value >>= 1
	}
	return bits
}

func writeUint48BE(b []byte, v uint64) {
	b[0] = byte(v >> 40)
	b[1] = byte(v >> 32)
	b[2] = byte(v >> 24)
	b[3] = byte(v >> 16)
	b[4] = byte(v >> 8)
	b[5] = byte(v)
}

// encodeRawMap serializes entries into the 12-byte-per-entry raw form used
// for the map CRC, matching calculateMapCRC in lib/chd/map.go.
func encodeRawMap(entries []mapEntry) []byte {
	data := make([]byte, len(entries)*12)
	for i, e := range entries {
		off := i * 12
		data[off] = e.compression
		data[off+1] = byte(e.length >> 16)
		data[off+2] = byte(e.length >> 8)
		data[off+3] = byte(e.length)
		writeUint48BE(data[off+4:off+10], e.offset)
		binary.BigEndian.PutUint16(data[off+10:off+12], e.crc16)
	}
	return data
}

// labelEntries runs Stage 1: walk entries in order tracking last_self and
// last_parent, rewriting Self/Parent entries to their back-reference
// marker where applicable and tracking the max value seen for each
// variable-width payload field.
func labelEntries(entries []mapEntry, hunkBytes, unitBytes uint32) ([]labeledEntry, uint32, uint64, uint64, error) {
	labels := make([]labeledEntry, len(entries))

	var lastSelf, lastParent uint64
	var maxSelf, maxParent uint64
	var maxComplen uint32
	hunksPerUnit := uint64(hunkBytes) / uint64(unitBytes)

	for i, e := range entries {
		switch e.compression {
		case compressionType0, compressionType1, compressionType2, compressionType3:
			if e.length > maxComplen {
				maxComplen = e.length
			}
			labels[i] = labeledEntry{label: e.compression, entry: e}

		case compressionNone:
			labels[i] = labeledEntry{label: compressionNone, entry: e}

		case compressionSelf:
			switch {
			case e.offset == lastSelf:
				labels[i] = labeledEntry{label: compressionSelf0, entry: e}
			case e.offset == lastSelf+1:
				labels[i] = labeledEntry{label: compressionSelf1, entry: e}
			default:
				labels[i] = labeledEntry{label: compressionSelf, entry: e}
				if e.offset > maxSelf {
					maxSelf = e.offset
				}
			}
			lastSelf = e.offset

		case compressionParent:
			parentSelfOffset := uint64(i) * hunksPerUnit
			switch {
			case e.offset == parentSelfOffset:
				labels[i] = labeledEntry{label: compressionParentSelf, entry: e}
			case e.offset == lastParent:
				labels[i] = labeledEntry{label: compressionParent0, entry: e}
			case e.offset == lastParent+hunksPerUnit:
				labels[i] = labeledEntry{label: compressionParent1, entry: e}
			default:
				labels[i] = labeledEntry{label: compressionParent, entry: e}
				if e.offset > maxParent {
					maxParent = e.offset
				}
			}
			lastParent = e.offset

		default:
			return nil, 0, 0, 0, fmt.Errorf("chdwriter: unexpected raw compression kind %d", e.compression)
		}
	}

	return labels, maxComplen, maxSelf, maxParent, nil
}

// rleEncodeLabels runs Stage 2: emit one literal label per run, then
// collapse the run's remaining repeats into RLE markers. An RLE marker
// carries no value of its own — per lib/chd/map.go's decodeMapEntries, it
// only extends lastComp, the label most recently set by a literal symbol
// — so a run must always start with one literal occurrence before any
// marker, with the marker(s) covering only the run's remaining
// occurrences: 3..18 extra via RLE_SMALL, 19..274 extra via RLE_LARGE
// (longer runs are split into successive RLE_LARGE chunks). Every emitted
// byte is histogrammed into huff.
func rleEncodeLabels(labels []labeledEntry, huff *huffmanEncoder) []uint8 {
	var symbols []uint8
	emit := func(b uint8) {
		symbols = append(symbols, b)
		huff.addSymbol(b)
	}

	i := 0
	for i < len(labels) {
		label := labels[i].label
		run := 1
		for i+run < len(labels) && labels[i+run].label == label {
			run++
		}

		emit(label)
		extra := run - 1
		for extra > 18 {
			chunk := min(extra, 274)
			n := chunk - 3 - 16
			emit(compressionRLELarge)
			emit(uint8(n >> 4))
			emit(uint8(n & 0xF))
			extra -= chunk
		}
		switch {
		case extra >= 3:
			emit(compressionRLESmall)
			emit(uint8(extra - 3))
		default:
			for range extra {
				emit(label)
			}
		}

		i += run
	}
	return symbols
}

// compressV5Map runs the six-stage hunk-map compression algorithm
// described in spec.md §4.1, ported from the authoritative Rust encoder
// (original_source/src/chd/writer/map.rs: compress_v5_map).
func compressV5Map(entries []mapEntry, hunkBytes, unitBytes uint32) ([]byte, error) {
	rawMap := encodeRawMap(entries)
	mapCRC := crc16CCITT(rawMap)

	labels, maxComplen, maxSelf, maxParent, err := labelEntries(entries, hunkBytes, unitBytes)
	if err != nil {
		return nil, err
	}

	huff := newHuffmanEncoder()
	symbols := rleEncodeLabels(labels, huff)

	// Stage 3: Huffman tree over the 16 symbols.
	if err := huff.computeTreeFromHisto(); err != nil {
		return nil, err
	}

	lengthBits := bitsForValue(uint64(maxComplen))
	selfBits := bitsForValue(maxSelf)
	parentBits := bitsForValue(maxParent)

	bw := &bitWriter{}

	// Stage 4: serialize the tree, then the RLE-marker symbol stream
	// itself, both via the Huffman code.
	huff.exportTreeRLE(bw)
	for _, s := range symbols {
		huff.encodeOne(bw, s)
	}

	// Stage 5: interleaved per-entry payload.
	var firstOffs uint64
	haveFirstOffs := false
	for _, le := range labels {
		e := le.entry
		switch le.label {
		case compressionType0, compressionType1, compressionType2, compressionType3:
			if !haveFirstOffs {
				firstOffs = e.offset
				haveFirstOffs = true
			}
			bw.write(e.length, lengthBits)
			bw.write(uint32(e.crc16), 16)
		case compressionNone:
			if !haveFirstOffs {
				firstOffs = e.offset
				haveFirstOffs = true
			}
			bw.write(uint32(e.crc16), 16)
		case compressionSelf:
			bw.write(uint32(e.offset), selfBits)
		case compressionParent:
			bw.write(uint32(e.offset), parentBits)
		default:
			// SELF_0/SELF_1/PARENT_SELF/PARENT_0/PARENT_1: no payload.
		}
	}

	payload := bw.finish()

	// Stage 6: 16-byte header.
	header := make([]byte, mapHeaderSize)
	binary.BigEndian.PutUint32(header[0:4], uint32(len(payload)))
	writeUint48BE(header[4:10], firstOffs)
	binary.BigEndian.PutUint16(header[10:12], mapCRC)
	header[12] = lengthBits
	header[13] = selfBits
	header[14] = parentBits
	header[15] = 0

	return append(header, payload...), nil
}
