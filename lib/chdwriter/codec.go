package chdwriter

import (
	"bytes"
	"compress/flate"
	"encoding/binary"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/meta"
	"github.com/ulikunitz/xz/lzma"
)

// compressor is the capability set every codec exposes: a human-readable
// name, the 4-byte FourCC tag stored in the CHD header, and a pure
// compress function. Codecs never mutate shared state.
type compressor struct {
	name string
	tag  [4]byte
	fn   func(data []byte) ([]byte, error)
}

func fourCC(tag string) [4]byte {
	if len(tag) != 4 {
		panic("chdwriter: codec tag must be 4 bytes: " + tag)
	}
	return [4]byte{tag[0], tag[1], tag[2], tag[3]}
}

// compressDeflate compresses data as raw DEFLATE (no zlib/gzip wrapper) -
// this is what CHD calls its "zlib" codec, matching the teacher's
// decompressZlib which reads with flate.NewReader.
func compressDeflate(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		return nil, fmt.Errorf("deflate: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("deflate: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("deflate: %w", err)
	}
	return buf.Bytes(), nil
}

// lzmaDictSize returns the next power of two of n, clamped to [2^16, 2^24].
func lzmaDictSize(n int) uint32 {
	dict := uint32(1 << 16)
	for dict < uint32(n) && dict < 1<<24 {
		dict <<= 1
	}
	if dict > 1<<24 {
		dict = 1 << 24
	}
	return dict
}

// compressLZMA produces the CHD-flavored LZMA1 stream: a standard encoder
// emits a 13-byte header (1 props byte + 4-byte LE dict size + 8-byte LE
// uncompressed size) before the literal/length stream; CHD expects only
// the first 5 bytes of that header, so the 8-byte size field is stripped.
func compressLZMA(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	cfg := lzma.WriterConfig{
		DictCap:      int(lzmaDictSize(len(data))),
		SizeInHeader: true,
		Size:         int64(len(data)),
	}
	w, err := cfg.NewWriter(&buf)
	if err != nil {
		return nil, fmt.Errorf("lzma: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("lzma: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("lzma: %w", err)
	}
	encoded := buf.Bytes()
	if len(encoded) < 13 {
		return nil, fmt.Errorf("lzma: encoder produced short header (%d bytes)", len(encoded))
	}
	out := make([]byte, 0, len(encoded)-8)
	out = append(out, encoded[:5]...)
	out = append(out, encoded[13:]...)
	return out, nil
}

var zstdEncoder *zstd.Encoder

func init() {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic(err)
	}
	zstdEncoder = enc
}

func compressZstd(data []byte) ([]byte, error) {
	return zstdEncoder.EncodeAll(data, nil), nil
}

// flacBlockSize clamps samplesPerChannel to FLAC's legal block-size range.
func flacBlockSize(samplesPerChannel int) int {
	const minBlock, maxBlock = 16, 65535
	if samplesPerChannel < minBlock {
		return minBlock
	}
	if samplesPerChannel > maxBlock {
		return maxBlock
	}
	return samplesPerChannel
}

// encodeFLACSamples writes the interleaved int32 samples (nchannels per
// frame) as a standalone FLAC stream at the given sample rate, splitting
// into consecutive frames of at most blockSize samples per channel.
func encodeFLACSamples(samples [][]int32, nchannels int, sampleRate uint32, blockSize int) ([]byte, error) {
	var buf bytes.Buffer
	info := &meta.StreamInfo{
		MinBlockSize:  uint16(blockSize),
		MaxBlockSize:  uint16(blockSize),
		SampleRate:    sampleRate,
		ChannelCount:  uint8(nchannels),
		BitsPerSample: 16,
	}
	enc, err := flac.NewEncoder(&buf, info)
	if err != nil {
		return nil, fmt.Errorf("flac: new encoder: %w", err)
	}
	total := len(samples[0])
	for start := 0; start < total; start += blockSize {
		end := min(start+blockSize, total)
		block := make([][]int32, nchannels)
		for ch := range block {
			block[ch] = samples[ch][start:end]
		}
		if end-start < 16 {
			// FLAC frames require at least 16 samples per channel; pad
			// the final short block by repeating the last sample.
			padded := make([][]int32, nchannels)
			for ch := range padded {
				padded[ch] = make([]int32, 16)
				copy(padded[ch], block[ch])
				for i := len(block[ch]); i < 16; i++ {
					padded[ch][i] = block[ch][len(block[ch])-1]
				}
			}
			block = padded
		}
		if err := enc.Write(block); err != nil {
			return nil, fmt.Errorf("flac: write frame: %w", err)
		}
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("flac: close: %w", err)
	}
	return buf.Bytes(), nil
}

// pcm16ToSamples unpacks little- or big-endian 16-bit PCM byte pairs into
// per-channel int32 sample slices.
func pcm16ToSamples(data []byte, nchannels int, bigEndian bool) [][]int32 {
	frames := len(data) / 2 / nchannels
	out := make([][]int32, nchannels)
	for ch := range out {
		out[ch] = make([]int32, frames)
	}
	pos := 0
	for i := range frames {
		for ch := range nchannels {
			var v int16
			if bigEndian {
				v = int16(binary.BigEndian.Uint16(data[pos : pos+2]))
			} else {
				v = int16(binary.LittleEndian.Uint16(data[pos : pos+2]))
			}
			out[ch][i] = int32(v)
			pos += 2
		}
	}
	return out
}

// compressFLAC implements CHD's plain (non-CD) FLAC codec: mono 16-bit PCM
// at 44100Hz, tried as both little- and big-endian sample interpretations,
// keeping the shorter result with a 1-byte endian flag prepended (0=LE,
// 1=BE).
func compressFLAC(data []byte) ([]byte, error) {
	if len(data)%2 != 0 {
		return nil, fmt.Errorf("flac: odd byte length %d", len(data))
	}
	samplesPerChannel := len(data) / 2
	blockSize := flacBlockSize(samplesPerChannel)

	le := pcm16ToSamples(data, 1, false)
	leOut, err := encodeFLACSamples(le, 1, 44100, blockSize)
	if err != nil {
		return nil, err
	}
	be := pcm16ToSamples(data, 1, true)
	beOut, err := encodeFLACSamples(be, 1, 44100, blockSize)
	if err != nil {
		return nil, err
	}

	if len(leOut) <= len(beOut) {
		return append([]byte{0}, leOut...), nil
	}
	return append([]byte{1}, beOut...), nil
}

// compressFLACStereoBE implements the base-stream codec used by CD-FLAC:
// 2-channel, big-endian 16-bit PCM stereo CD audio, no endian flag (the
// CD-FLAC wrapper always interprets the sector stream as big-endian
// stereo per spec).
func compressFLACStereoBE(data []byte) ([]byte, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("flac: stereo data not a multiple of 4 bytes: %d", len(data))
	}
	samplesPerChannel := len(data) / 4
	blockSize := flacBlockSize(samplesPerChannel)
	samples := pcm16ToSamples(data, 2, true)
	return encodeFLACSamples(samples, 2, 44100, blockSize)
}
