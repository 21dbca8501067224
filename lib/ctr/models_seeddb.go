package ctr

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
)

// SeedEntry is one title's seed record in a seeddb.bin: Key is the
// (byte-reversed, then hex-encoded) title ID, Value is the 16-byte seed.
// Grounded on original_source/src/nintendo/ctr/models/seeddb.rs, which
// stores the on-disk 8-byte title ID reversed before hex-encoding it into
// the lookup map key.
type SeedEntry struct {
	Key   string
	Value [16]byte
}

// SeedDatabase is the parsed contents of a seeddb.bin file.
type SeedDatabase struct {
	Seeds []SeedEntry
}

// ReadSeedDatabase reads a little-endian seeddb.bin: a uint32 seed count,
// 12 bytes of padding, then that many 32-byte records (8-byte title ID +
// 16-byte seed + 8 bytes padding).
func ReadSeedDatabase(r io.Reader) (SeedDatabase, error) {
	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return SeedDatabase{}, fmt.Errorf("ctr: read seeddb count: %w", err)
	}
	var pad [12]byte
	if _, err := io.ReadFull(r, pad[:]); err != nil {
		return SeedDatabase{}, fmt.Errorf("ctr: read seeddb padding: %w", err)
	}

	seeds := make([]SeedEntry, count)
	for i := range seeds {
		var titleIDBytes [8]byte
		if _, err := io.ReadFull(r, titleIDBytes[:]); err != nil {
			return SeedDatabase{}, fmt.Errorf("ctr: read seed entry %d title id: %w", i, err)
		}
		var value [16]byte
		if _, err := io.ReadFull(r, value[:]); err != nil {
			return SeedDatabase{}, fmt.Errorf("ctr: read seed entry %d value: %w", i, err)
		}
		var entryPad [8]byte
		if _, err := io.ReadFull(r, entryPad[:]); err != nil {
			return SeedDatabase{}, fmt.Errorf("ctr: read seed entry %d padding: %w", i, err)
		}

		reversed := reverseBytes(titleIDBytes[:])
		seeds[i] = SeedEntry{Key: hex.EncodeToString(reversed), Value: value}
	}

	return SeedDatabase{Seeds: seeds}, nil
}

// ToMap collapses a SeedDatabase into a lookup table keyed by the
// hex-encoded, byte-reversed title ID.
func (db SeedDatabase) ToMap() map[string][16]byte {
	m := make(map[string][16]byte, len(db.Seeds))
	for _, s := range db.Seeds {
		m[s.Key] = s.Value
	}
	return m
}

func reverseBytes(b []byte) []byte {
	out := make([]byte, len(b))
	for i, v := range b {
		out[len(b)-1-i] = v
	}
	return out
}
