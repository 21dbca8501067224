package chdwriter

import "testing"

func TestHuffmanEncoderSingleSymbol(t *testing.T) {
	e := newHuffmanEncoder()
	for range 10 {
		e.addSymbol(3)
	}
	if err := e.computeTreeFromHisto(); err != nil {
		t.Fatalf("computeTreeFromHisto: %v", err)
	}
	if e.nodes[3].numBits == 0 {
		t.Errorf("expected symbol 3 to receive a code")
	}
}

func TestHuffmanEncoderCanonicalCodesUnique(t *testing.T) {
	e := newHuffmanEncoder()
	weights := []uint32{50, 20, 10, 8, 4, 3, 2, 1}
	for sym, w := range weights {
		for range w {
			e.addSymbol(uint8(sym))
		}
	}
	if err := e.computeTreeFromHisto(); err != nil {
		t.Fatalf("computeTreeFromHisto: %v", err)
	}

	seen := map[uint32]bool{}
	for sym := range weights {
		n := e.nodes[sym]
		if n.numBits == 0 {
			t.Fatalf("symbol %d got zero-length code", sym)
		}
		if n.numBits > huffmanMaxBits {
			t.Fatalf("symbol %d code length %d exceeds max %d", sym, n.numBits, huffmanMaxBits)
		}
		key := uint32(n.numBits)<<24 | n.bits
		if seen[key] {
			t.Fatalf("duplicate canonical code for symbol %d", sym)
		}
		seen[key] = true
	}
}

func TestBitWriterRoundTripsLength(t *testing.T) {
	bw := &bitWriter{}
	bw.write(0b101, 3)
	bw.write(0b11110000, 8)
	out := bw.finish()
	if len(out) != 2 {
		t.Fatalf("expected 2 bytes, got %d (% x)", len(out), out)
	}
}
