package ctr

// scramblerConstant is the KeyScrambler addition constant, represented as
// (hi, lo) 64-bit halves of the 128-bit value
// 0x1FF9E9AAC5FE0408024591DC5D52768A.
const (
	scramblerConstHi uint64 = 0x1FF9E9AAC5FE0408
	scramblerConstLo uint64 = 0x024591DC5D52768A
)

// u128 is a big-endian 128-bit value split into high/low 64-bit halves,
// used only for the KeyScrambler's rotate-and-add arithmetic (no pack
// library or the standard library's math/big models fixed-width 128-bit
// wraparound arithmetic directly, and introducing math/big's arbitrary
// precision type for a single fixed-size primitive would be heavier than
// the two-uint64 representation used here).
type u128 struct{ hi, lo uint64 }

func u128FromBytes(b [16]byte) u128 {
	var hi, lo uint64
	for i := 0; i < 8; i++ {
		hi = hi<<8 | uint64(b[i])
	}
	for i := 8; i < 16; i++ {
		lo = lo<<8 | uint64(b[i])
	}
	return u128{hi: hi, lo: lo}
}

func (v u128) bytes() [16]byte {
	var out [16]byte
	for i := 0; i < 8; i++ {
		out[i] = byte(v.hi >> (56 - 8*i))
	}
	for i := 0; i < 8; i++ {
		out[8+i] = byte(v.lo >> (56 - 8*i))
	}
	return out
}

func (v u128) xor(o u128) u128 {
	return u128{hi: v.hi ^ o.hi, lo: v.lo ^ o.lo}
}

// add performs 128-bit addition modulo 2^128 (wrapping, matching Rust's
// u128::wrapping_add).
func (v u128) add(o u128) u128 {
	lo := v.lo + o.lo
	carry := uint64(0)
	if lo < v.lo {
		carry = 1
	}
	hi := v.hi + o.hi + carry
	return u128{hi: hi, lo: lo}
}

// rol rotates v left by bits (1..127) within the full 128-bit width.
func (v u128) rol(bits uint) u128 {
	bits %= 128
	if bits == 0 {
		return v
	}
	if bits == 64 {
		return u128{hi: v.lo, lo: v.hi}
	}
	if bits < 64 {
		hi := (v.hi << bits) | (v.lo >> (64 - bits))
		lo := (v.lo << bits) | (v.hi >> (64 - bits))
		return u128{hi: hi, lo: lo}
	}
	// bits in (64, 128): rotate by (bits-64) after swapping halves.
	shift := bits - 64
	hi := (v.lo << shift) | (v.hi >> (64 - shift))
	lo := (v.hi << shift) | (v.lo >> (64 - shift))
	return u128{hi: hi, lo: lo}
}

// Scramble implements the 3DS KeyScrambler:
//
//	normalKey = rol(rol(keyX, 2) ^ keyY + C, 87) mod 2^128
//
// grounded on original_source/src/nintendo/ctr/decrypt/cia.rs:scramblekey.
func Scramble(keyX, keyY [16]byte) [16]byte {
	x := u128FromBytes(keyX)
	y := u128FromBytes(keyY)
	c := u128{hi: scramblerConstHi, lo: scramblerConstLo}

	value := x.rol(2).xor(y)
	result := value.add(c).rol(87)
	return result.bytes()
}
