package chdwriter

import (
	"bufio"
	"crypto/sha1"
	"encoding/binary"
	"errors"
	"fmt"
	"hash"
	"os"
	"sort"

	"github.com/sargunv/romconverto/lib/cuesheet"
	"golang.org/x/sync/errgroup"
)

const (
	// SectorSize is the size in bytes of one raw CD sector.
	SectorSize = 2352
	// SubcodeSize is the size in bytes of the synthesized subcode channel.
	SubcodeSize = 96
	// FrameSize is SectorSize + SubcodeSize, the CHD "unit" size.
	FrameSize = SectorSize + SubcodeSize
	// FramesPerHunk is the number of frames packed into one hunk.
	FramesPerHunk = 8
	// DefaultHunkBytes is FramesPerHunk * FrameSize, the writer's default
	// (and only supported) hunk size.
	DefaultHunkBytes = FramesPerHunk * FrameSize

	headerSize     = 124
	chdVersion5    = 5
	headerMagic    = "MComprHD"
	metaTagCHT2    = "CHT2"
	metaFlagHashed = 0x01
)

// ErrOutputAlreadyExists is returned by Create when the destination file
// already exists and the caller did not request an overwrite.
var ErrOutputAlreadyExists = errors.New("chdwriter: output already exists")

// ErrInvalidHunkSize is returned when the current partial-hunk buffer
// would overflow hunk_bytes, or hunk_bytes isn't a multiple of the frame
// size.
var ErrInvalidHunkSize = errors.New("chdwriter: invalid hunk size")

// Writer is a streaming, append-only CHD v5 encoder. It owns the output
// file, the running raw-SHA-1 accumulator, the current partial-hunk
// buffer and the monotonically growing map-entry list. A Writer must not
// be used from more than one goroutine concurrently.
type Writer struct {
	f   *os.File
	buf *bufio.Writer

	hunkBytes uint32
	unitBytes uint32
	codecs    [4]compressor

	rawSHA1    hash.Hash
	buffer     []byte
	mapEntries []mapEntry
	streamPos  uint64

	metadataBlocks []metadataBlock
	totalSectors   uint64
}

type metadataBlock struct {
	tag   [4]byte
	flags uint8
	data  []byte
}

// defaultCodecs returns the four CD-aware codecs used in header-position
// order: CdZl, CdLz, CdZs, CdFl. These are the natural choice for a
// CD-ROM hunk (sector+subcode interleaved data), matching the codec set
// libchdr-derived tools use for CD CHDs.
func defaultCodecs() [4]compressor {
	return [4]compressor{
		{name: "cdzl", tag: fourCC("cdzl"), fn: func(d []byte) ([]byte, error) { return compressCDZlib(d, DefaultHunkBytes) }},
		{name: "cdlz", tag: fourCC("cdlz"), fn: func(d []byte) ([]byte, error) { return compressCDLZMA(d, DefaultHunkBytes) }},
		{name: "cdzs", tag: fourCC("cdzs"), fn: func(d []byte) ([]byte, error) { return compressCDZstd(d, DefaultHunkBytes) }},
		{name: "cdfl", tag: fourCC("cdfl"), fn: func(d []byte) ([]byte, error) { return compressCDFLAC(d, DefaultHunkBytes) }},
	}
}

// Create opens path for writing, fails if it already exists (unless
// force is set), writes a placeholder header, writes the CD metadata
// block immediately after it, and initializes an 8 MiB buffered writer.
func Create(path string, force bool, tracks []cuesheet.Track, totalFrames uint32) (*Writer, error) {
	if DefaultHunkBytes%FrameSize != 0 {
		return nil, ErrInvalidHunkSize
	}

	flags := os.O_RDWR | os.O_CREATE
	if force {
		flags |= os.O_TRUNC
	} else {
		flags |= os.O_EXCL
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, ErrOutputAlreadyExists
		}
		return nil, fmt.Errorf("chdwriter: create %s: %w", path, err)
	}

	w := &Writer{
		f:         f,
		buf:       bufio.NewWriterSize(f, 8<<20),
		hunkBytes: DefaultHunkBytes,
		unitBytes: FrameSize,
		codecs:    defaultCodecs(),
		rawSHA1:   sha1.New(),
	}

	// Placeholder header, rewritten at Finalize.
	placeholder := make([]byte, headerSize)
	if _, err := w.buf.Write(placeholder); err != nil {
		return nil, fmt.Errorf("chdwriter: write placeholder header: %w", err)
	}
	w.streamPos = headerSize

	metaString, err := generateCDMetadataString(tracks, totalFrames)
	if err != nil {
		return nil, fmt.Errorf("chdwriter: generate metadata: %w", err)
	}
	block := metadataBlock{tag: fourCC(metaTagCHT2), flags: metaFlagHashed, data: []byte(metaString)}
	if err := w.writeMetadataBlock(block); err != nil {
		return nil, err
	}
	w.metadataBlocks = append(w.metadataBlocks, block)

	return w, nil
}

func (w *Writer) writeMetadataBlock(b metadataBlock) error {
	rec := make([]byte, 16+len(b.data))
	copy(rec[0:4], b.tag[:])
	rec[4] = b.flags
	length := uint32(len(b.data))
	rec[5] = byte(length >> 16)
	rec[6] = byte(length >> 8)
	rec[7] = byte(length)
	copy(rec[16:], b.data)

	if _, err := w.buf.Write(rec); err != nil {
		return fmt.Errorf("chdwriter: write metadata block: %w", err)
	}
	w.streamPos += uint64(len(rec))

	if pad := (4 - len(rec)%4) % 4; pad > 0 {
		if _, err := w.buf.Write(make([]byte, pad)); err != nil {
			return fmt.Errorf("chdwriter: pad metadata block: %w", err)
		}
		w.streamPos += uint64(pad)
	}
	return nil
}

// WriteSector appends one raw sector to the current hunk buffer (paired
// with a zero subcode), updates the running raw-SHA-1 over (sector ‖
// zero-subcode), and flushes a hunk whenever the buffer fills.
func (w *Writer) WriteSector(sector []byte) error {
	if len(sector) != SectorSize {
		return fmt.Errorf("chdwriter: sector must be %d bytes, got %d", SectorSize, len(sector))
	}

	var frame [FrameSize]byte
	copy(frame[:SectorSize], sector)
	// frame[SectorSize:] is already zero (synthesized subcode).

	if _, err := w.rawSHA1.Write(frame[:]); err != nil {
		return fmt.Errorf("chdwriter: hash sector: %w", err)
	}
	w.buffer = append(w.buffer, frame[:]...)
	w.totalSectors++

	if uint32(len(w.buffer)) == w.hunkBytes {
		return w.flushHunk()
	}
	if uint32(len(w.buffer)) > w.hunkBytes {
		return ErrInvalidHunkSize
	}
	return nil
}

// flushHunk implements the hunk flush protocol: compute the raw CRC,
// race every configured codec concurrently, keep the smallest result
// strictly smaller than the raw hunk (ties broken by lower codec index),
// else emit the hunk uncompressed, and record the map entry.
func (w *Writer) flushHunk() error {
	hunk := w.buffer
	crc := crc16CCITT(hunk)

	results := make([][]byte, len(w.codecs))
	var g errgroup.Group
	for i, c := range w.codecs {
		i, c := i, c
		g.Go(func() error {
			out, err := c.fn(hunk)
			if err != nil {
				// A codec failing to compress this hunk is not fatal —
				// it simply can't beat raw storage, so it loses the race.
				return nil
			}
			results[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	bestIdx := -1
	for i, r := range results {
		if r == nil || len(r) >= len(hunk) {
			continue
		}
		if bestIdx == -1 || len(r) < len(results[bestIdx]) {
			bestIdx = i
		}
	}

	var payload []byte
	var kind uint8
	if bestIdx == -1 {
		payload = hunk
		kind = compressionNone
	} else {
		payload = results[bestIdx]
		kind = uint8(bestIdx) // compressionType0..3 == 0..3
	}

	if _, err := w.buf.Write(payload); err != nil {
		return fmt.Errorf("chdwriter: write hunk: %w", err)
	}

	w.mapEntries = append(w.mapEntries, mapEntry{
		compression: kind,
		length:      uint32(len(payload)),
		offset:      w.streamPos,
		crc16:       crc,
	})
	w.streamPos += uint64(len(payload))
	w.buffer = w.buffer[:0]
	return nil
}

// Finalize flushes any partial hunk (zero-padded to hunk_bytes), encodes
// and appends the compressed hunk map, computes the overall SHA-1, and
// rewrites the 124-byte header with real offsets and hashes.
func (w *Writer) Finalize() error {
	if len(w.buffer) > 0 {
		pad := int(w.hunkBytes) - len(w.buffer)
		w.buffer = append(w.buffer, make([]byte, pad)...)
		if err := w.flushHunk(); err != nil {
			return err
		}
	}

	mapOffset := w.streamPos
	compressedMap, err := compressV5Map(w.mapEntries, w.hunkBytes, w.unitBytes)
	if err != nil {
		return fmt.Errorf("chdwriter: compress map: %w", err)
	}
	if _, err := w.buf.Write(compressedMap); err != nil {
		return fmt.Errorf("chdwriter: write map: %w", err)
	}
	w.streamPos += uint64(len(compressedMap))

	rawSHA1 := w.rawSHA1.Sum(nil)
	overallSHA1 := computeOverallSHA1(rawSHA1, w.metadataBlocks)

	header := make([]byte, headerSize)
	copy(header[0:8], headerMagic)
	binary.BigEndian.PutUint32(header[8:12], headerSize)
	binary.BigEndian.PutUint32(header[12:16], chdVersion5)
	for i, c := range w.codecs {
		off := 16 + i*4
		copy(header[off:off+4], c.tag[:])
	}
	logicalBytes := w.totalSectors * FrameSize
	binary.BigEndian.PutUint64(header[32:40], logicalBytes)
	binary.BigEndian.PutUint64(header[40:48], mapOffset)
	binary.BigEndian.PutUint64(header[48:56], headerSize) // metadata immediately follows the header
	binary.BigEndian.PutUint32(header[56:60], w.hunkBytes)
	binary.BigEndian.PutUint32(header[60:64], w.unitBytes)
	copy(header[64:84], rawSHA1)
	copy(header[84:104], overallSHA1)
	// header[104:124] (parent SHA-1) stays zero: no parent CHD.

	if err := w.buf.Flush(); err != nil {
		return fmt.Errorf("chdwriter: flush: %w", err)
	}
	if _, err := w.f.WriteAt(header, 0); err != nil {
		return fmt.Errorf("chdwriter: rewrite header: %w", err)
	}
	return w.f.Close()
}

// computeOverallSHA1 hashes raw_sha1 followed by every hashable metadata
// block's (tag ‖ sha1-of-payload), sorted by (tag, sha1), matching
// spec.md §4.1's overall-hash formula.
func computeOverallSHA1(rawSHA1 []byte, blocks []metadataBlock) []byte {
	type entry struct {
		tag  [4]byte
		hash [20]byte
	}
	var entries []entry
	for _, b := range blocks {
		if b.flags&metaFlagHashed == 0 {
			continue
		}
		e := entry{tag: b.tag}
		sum := sha1.Sum(b.data)
		e.hash = sum
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].tag != entries[j].tag {
			return string(entries[i].tag[:]) < string(entries[j].tag[:])
		}
		return string(entries[i].hash[:]) < string(entries[j].hash[:])
	})

	h := sha1.New()
	h.Write(rawSHA1)
	for _, e := range entries {
		h.Write(e.tag[:])
		h.Write(e.hash[:])
	}
	return h.Sum(nil)
}
