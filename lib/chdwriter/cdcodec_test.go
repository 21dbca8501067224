package chdwriter

import (
	"bytes"
	"compress/flate"
	"io"
	"testing"
)

func buildCDHunk(frames int) ([]byte, uint32) {
	hunkBytes := uint32(frames * cdFrameSize)
	hunk := make([]byte, hunkBytes)
	for f := 0; f < frames; f++ {
		base := f * cdFrameSize
		for i := 0; i < cdMaxSectorData; i++ {
			hunk[base+i] = byte(f*7 + i)
		}
		for i := 0; i < cdMaxSubcodeData; i++ {
			hunk[base+cdMaxSectorData+i] = byte(0xA0 + i)
		}
	}
	return hunk, hunkBytes
}

func inflate(t *testing.T, data []byte, outLen int) []byte {
	t.Helper()
	r := flate.NewReader(bytes.NewReader(data))
	defer r.Close()
	got := make([]byte, outLen)
	if _, err := io.ReadFull(r, got); err != nil {
		t.Fatalf("inflate: %v", err)
	}
	return got
}

func TestCompressCDHunkSplitsSectorAndSubcode(t *testing.T) {
	hunk, hunkBytes := buildCDHunk(4)
	frames := 4

	out, err := compressCDZlib(hunk, hunkBytes)
	if err != nil {
		t.Fatalf("compressCDZlib: %v", err)
	}

	eccBytes := (frames + 7) / 8
	for i := 0; i < eccBytes; i++ {
		if out[i] != 0 {
			t.Errorf("ecc byte %d = %#x, want 0", i, out[i])
		}
	}

	pos := eccBytes
	complenBytes := 2
	if hunkBytes >= 65536 {
		complenBytes = 3
	}
	var baseLen int
	if complenBytes == 2 {
		baseLen = int(out[pos])<<8 | int(out[pos+1])
	} else {
		baseLen = int(out[pos])<<16 | int(out[pos+1])<<8 | int(out[pos+2])
	}
	pos += complenBytes

	baseCompressed := out[pos : pos+baseLen]
	subcodeCompressed := out[pos+baseLen:]

	gotBase := inflate(t, baseCompressed, frames*cdMaxSectorData)
	gotSubcode := inflate(t, subcodeCompressed, frames*cdMaxSubcodeData)

	wantBase := make([]byte, frames*cdMaxSectorData)
	wantSubcode := make([]byte, frames*cdMaxSubcodeData)
	for f := 0; f < frames; f++ {
		src := hunk[f*cdFrameSize:]
		copy(wantBase[f*cdMaxSectorData:], src[:cdMaxSectorData])
		copy(wantSubcode[f*cdMaxSubcodeData:], src[cdMaxSectorData:cdFrameSize])
	}

	if !bytes.Equal(gotBase, wantBase) {
		t.Error("recovered sector stream does not match original")
	}
	if !bytes.Equal(gotSubcode, wantSubcode) {
		t.Error("recovered subcode stream does not match original")
	}
}

func TestCompressCDHunkRejectsNonFrameAligned(t *testing.T) {
	hunk := make([]byte, cdFrameSize+10)
	if _, err := compressCDHunk(hunk, uint32(len(hunk)), compressDeflate); err == nil {
		t.Error("expected error for a hunk size not a multiple of the frame size")
	}
}

func TestCompressCDHunkRejectsZeroFrames(t *testing.T) {
	if _, err := compressCDHunk(nil, 0, compressDeflate); err == nil {
		t.Error("expected error for a zero-length hunk")
	}
}

func TestCompressCDHunkLengthFieldWidth(t *testing.T) {
	small, smallBytes := buildCDHunk(2)
	out, err := compressCDZlib(small, smallBytes)
	if err != nil {
		t.Fatalf("compressCDZlib: %v", err)
	}
	eccBytes := (2 + 7) / 8
	// With a tiny hunk (well under 65536 bytes), the length prefix must be 2 bytes.
	if smallBytes >= 65536 {
		t.Fatalf("test hunk unexpectedly >= 65536 bytes: %d", smallBytes)
	}
	baseLen := int(out[eccBytes])<<8 | int(out[eccBytes+1])
	if eccBytes+2+baseLen > len(out) {
		t.Errorf("2-byte length prefix does not account for the full output: baseLen=%d out=%d", baseLen, len(out))
	}
}

func TestCompressCDZstdUsesZstdForBase(t *testing.T) {
	hunk, hunkBytes := buildCDHunk(3)
	out, err := compressCDZstd(hunk, hunkBytes)
	if err != nil {
		t.Fatalf("compressCDZstd: %v", err)
	}
	if len(out) == 0 {
		t.Fatal("compressCDZstd produced empty output")
	}
}

func TestCompressCDLZMAUsesLZMAForBase(t *testing.T) {
	hunk, hunkBytes := buildCDHunk(3)
	out, err := compressCDLZMA(hunk, hunkBytes)
	if err != nil {
		t.Fatalf("compressCDLZMA: %v", err)
	}
	if len(out) == 0 {
		t.Fatal("compressCDLZMA produced empty output")
	}
}

func TestCompressCDFLACUsesStereoBEForBase(t *testing.T) {
	hunk, hunkBytes := buildCDHunk(2)
	out, err := compressCDFLAC(hunk, hunkBytes)
	if err != nil {
		t.Fatalf("compressCDFLAC: %v", err)
	}
	if len(out) == 0 {
		t.Fatal("compressCDFLAC produced empty output")
	}
}
