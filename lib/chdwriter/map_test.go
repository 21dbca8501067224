package chdwriter

import "testing"

func TestCompressV5MapProducesHeader(t *testing.T) {
	entries := []mapEntry{
		{compression: compressionType0, length: 1000, offset: 124, crc16: 0x1234},
		{compression: compressionType0, length: 1100, offset: 1124, crc16: 0x5678},
		{compression: compressionNone, length: DefaultHunkBytes, offset: 2224, crc16: 0x9abc},
		{compression: compressionSelf, offset: 0, crc16: 0},
	}
	out, err := compressV5Map(entries, DefaultHunkBytes, FrameSize)
	if err != nil {
		t.Fatalf("compressV5Map: %v", err)
	}
	if len(out) < mapHeaderSize {
		t.Fatalf("output too short: %d bytes", len(out))
	}
	lengthBits := out[12]
	if lengthBits == 0 {
		t.Errorf("expected nonzero lengthbits given type0 entries with length>0")
	}
}

func TestBitsForValue(t *testing.T) {
	tests := []struct {
		v    uint64
		want uint8
	}{
		{0, 0},
		{1, 1},
		{2, 2},
		{255, 8},
		{256, 9},
	}
	for _, tt := range tests {
		if got := bitsForValue(tt.v); got != tt.want {
			t.Errorf("bitsForValue(%d) = %d, want %d", tt.v, got, tt.want)
		}
	}
}

func TestLabelEntriesSelfBackReference(t *testing.T) {
	entries := []mapEntry{
		{compression: compressionSelf, offset: 5},
		{compression: compressionSelf, offset: 5},
		{compression: compressionSelf, offset: 6},
	}
	labels, _, _, _, err := labelEntries(entries, DefaultHunkBytes, FrameSize)
	if err != nil {
		t.Fatalf("labelEntries: %v", err)
	}
	if labels[0].label != compressionSelf {
		t.Errorf("first self entry should stay SELF, got %d", labels[0].label)
	}
	if labels[1].label != compressionSelf0 {
		t.Errorf("repeat offset should become SELF0, got %d", labels[1].label)
	}
	if labels[2].label != compressionSelf1 {
		t.Errorf("offset+1 should become SELF1, got %d", labels[2].label)
	}
}
