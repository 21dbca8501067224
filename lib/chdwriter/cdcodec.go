package chdwriter

import "fmt"

// CD-ROM frame constants, matching the teacher's decompressCDCodec layout
// byte-for-byte (lib/chd/internal/codec/cdrom.go, now used as the writer's
// grounding for the inverse operation).
const (
	cdMaxSectorData  = 2352
	cdMaxSubcodeData = 96
	cdFrameSize      = cdMaxSectorData + cdMaxSubcodeData
)

// compressCDHunk implements the CD-aware wrapper format shared by CdZl,
// CdLz, CdZs and CdFl: split the hunk into an interleaved sector stream and
// subcode stream, compress each (subcode always via Deflate regardless of
// the chosen base codec), and emit
//
//	[ecc zero bytes] [base length, 2 or 3 bytes BE] [base] [subcode]
//
// ecc_bytes = ceil(frames/8) and are always zero in this writer (readers
// must tolerate that). The length field is 2 bytes when hunkBytes < 65536,
// else 3 bytes.
func compressCDHunk(hunk []byte, hunkBytes uint32, compressBase func([]byte) ([]byte, error)) ([]byte, error) {
	frames := int(hunkBytes) / cdFrameSize
	if frames == 0 || int(hunkBytes)%cdFrameSize != 0 {
		return nil, fmt.Errorf("cd codec: hunk size %d is not a multiple of frame size %d", hunkBytes, cdFrameSize)
	}

	base := make([]byte, frames*cdMaxSectorData)
	subcode := make([]byte, frames*cdMaxSubcodeData)
	for i := range frames {
		src := hunk[i*cdFrameSize:]
		copy(base[i*cdMaxSectorData:], src[:cdMaxSectorData])
		copy(subcode[i*cdMaxSubcodeData:], src[cdMaxSectorData:cdFrameSize])
	}

	baseCompressed, err := compressBase(base)
	if err != nil {
		return nil, fmt.Errorf("cd codec: base compress: %w", err)
	}
	subcodeCompressed, err := compressDeflate(subcode)
	if err != nil {
		return nil, fmt.Errorf("cd codec: subcode compress: %w", err)
	}

	eccBytes := (frames + 7) / 8
	complenBytes := 2
	if hunkBytes >= 65536 {
		complenBytes = 3
	}

	out := make([]byte, eccBytes, eccBytes+complenBytes+len(baseCompressed)+len(subcodeCompressed))
	baseLen := len(baseCompressed)
	if complenBytes == 2 {
		out = append(out, byte(baseLen>>8), byte(baseLen))
	} else {
		out = append(out, byte(baseLen>>16), byte(baseLen>>8), byte(baseLen))
	}
	out = append(out, baseCompressed...)
	out = append(out, subcodeCompressed...)
	return out, nil
}

func compressCDZlib(hunk []byte, hunkBytes uint32) ([]byte, error) {
	return compressCDHunk(hunk, hunkBytes, compressDeflate)
}

func compressCDLZMA(hunk []byte, hunkBytes uint32) ([]byte, error) {
	return compressCDHunk(hunk, hunkBytes, compressLZMA)
}

func compressCDZstd(hunk []byte, hunkBytes uint32) ([]byte, error) {
	return compressCDHunk(hunk, hunkBytes, compressZstd)
}

// compressCDFLAC splits the hunk the same way as the other CD codecs, but
// compresses the base (sector) stream with the stereo-big-endian FLAC
// codec instead of a generic byte compressor; the subcode stream is still
// Deflate, matching every other CD-aware wrapper.
func compressCDFLAC(hunk []byte, hunkBytes uint32) ([]byte, error) {
	return compressCDHunk(hunk, hunkBytes, compressFLACStereoBE)
}
