package ctr

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"
)

// ensureSeedDB seeds the process-wide seed database used by loadSeedDB,
// bypassing seeddb.bin/network lookups so GetNewKey can be tested in
// isolation.
func ensureSeedDB(t *testing.T, titleID string, seed [16]byte) {
	t.Helper()
	seedDBOnce.Do(func() {
		seedDBMap = map[string][16]byte{}
	})
	seedDBMap[titleID] = seed
}

func ncchHeaderWithSeedCheck(t *testing.T, seedCheck [4]byte) NcchHeader {
	t.Helper()
	data := make([]byte, NcchHeaderSize)
	copy(data[0x100:0x104], "NCCH")
	copy(data[0x114:0x118], seedCheck[:])
	for i := 0; i < 16; i++ {
		data[i] = byte(0x10 + i)
	}
	h, err := ParseNCCHHeader(data)
	if err != nil {
		t.Fatalf("ParseNCCHHeader: %v", err)
	}
	return h
}

func TestGetNewKeyDerivesFromSeedDB(t *testing.T) {
	const titleIDHex = "4523010000000401"
	var seed [16]byte
	for i := range seed {
		seed[i] = byte(i + 1)
	}
	ensureSeedDB(t, titleIDHex, seed)

	revTID, err := hex.DecodeString(titleIDHex)
	if err != nil {
		t.Fatalf("decode title id: %v", err)
	}
	for i, j := 0, len(revTID)-1; i < j; i, j = i+1, j-1 {
		revTID[i], revTID[j] = revTID[j], revTID[i]
	}
	sum := sha256.Sum256(append(append([]byte{}, seed[:]...), revTID...))
	var seedCheck [4]byte
	copy(seedCheck[:], sum[0:4])

	header := ncchHeaderWithSeedCheck(t, seedCheck)
	keyY := header.KeyY()

	got, err := GetNewKey(keyY, header, titleIDHex)
	if err != nil {
		t.Fatalf("GetNewKey: %v", err)
	}

	wantSum := sha256.Sum256(append(append([]byte{}, keyY[:]...), seed[:]...))
	var want [16]byte
	copy(want[:], wantSum[0:16])
	if got != want {
		t.Errorf("GetNewKey = %x, want %x", got, want)
	}
}

func TestGetNewKeySeedCheckMismatch(t *testing.T) {
	const titleIDHex = "4523010000000402"
	var seed [16]byte
	for i := range seed {
		seed[i] = byte(0xAA)
	}
	ensureSeedDB(t, titleIDHex, seed)

	header := ncchHeaderWithSeedCheck(t, [4]byte{0, 0, 0, 0})
	got, err := GetNewKey(header.KeyY(), header, titleIDHex)
	if err != nil {
		t.Fatalf("GetNewKey: %v", err)
	}
	if got != ([16]byte{}) {
		t.Errorf("GetNewKey on seedcheck mismatch = %x, want zero key", got)
	}
}
