package ctr

import (
	"bytes"
	"testing"
)

func TestGenIV(t *testing.T) {
	iv := GenIV(0x0102)
	want := [16]byte{0x01, 0x02}
	if iv != want {
		t.Errorf("GenIV(0x0102) = %x, want %x", iv, want)
	}
}

func TestCTRStreamRoundTrips(t *testing.T) {
	var key, counter [16]byte
	for i := range key {
		key[i] = byte(i)
	}
	counter = GenIV(5)

	plain := []byte("the quick brown fox jumps over the lazy dog!!!")

	enc, err := NewCTRStream(key, counter)
	if err != nil {
		t.Fatalf("NewCTRStream: %v", err)
	}
	cipherText := make([]byte, len(plain))
	enc.XORKeyStream(cipherText, plain)

	if bytes.Equal(cipherText, plain) {
		t.Fatal("ciphertext should differ from plaintext")
	}

	dec, err := NewCTRStream(key, counter)
	if err != nil {
		t.Fatalf("NewCTRStream: %v", err)
	}
	roundTripped := make([]byte, len(cipherText))
	dec.XORKeyStream(roundTripped, cipherText)

	if !bytes.Equal(roundTripped, plain) {
		t.Errorf("round trip = %q, want %q", roundTripped, plain)
	}
}
