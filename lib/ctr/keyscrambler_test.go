package ctr

import "testing"

func TestU128RotateRoundTrips(t *testing.T) {
	v := u128{hi: 0x0102030405060708, lo: 0x1112131415161718}
	for _, bits := range []uint{0, 1, 2, 63, 64, 65, 87, 127} {
		rolled := v.rol(bits)
		back := rolled.rol(128 - bits)
		if bits == 0 {
			back = rolled
		}
		if back != v {
			t.Errorf("rol(%d) then rol(%d) did not round-trip: got %+v, want %+v", bits, 128-bits, back, v)
		}
	}
}

func TestScrambleDeterministic(t *testing.T) {
	a := Scramble(Key0x2C, FixedSys)
	b := Scramble(Key0x2C, FixedSys)
	if a != b {
		t.Errorf("Scramble is not deterministic: %x vs %x", a, b)
	}

	c := Scramble(Key0x25, FixedSys)
	if a == c {
		t.Errorf("different KeyX values produced the same scrambled key")
	}
}

func TestU128BytesRoundTrip(t *testing.T) {
	var b [16]byte
	for i := range b {
		b[i] = byte(i * 17)
	}
	v := u128FromBytes(b)
	if got := v.bytes(); got != b {
		t.Errorf("bytes round trip failed: got %x, want %x", got, b)
	}
}
