package ctr

import (
	"encoding/binary"
	"fmt"

	"github.com/sargunv/romconverto/internal/util"
)

// NcchHeaderSize is the fixed size of an NCCH header.
const NcchHeaderSize = 512

// NcchHeader is the fixed 512-byte header at the start of every NCCH
// partition, laid out per the publicly documented 3DS NCCH format:
// RSA-2048 signature, magic, per-section offsets/sizes in media units,
// and the crypto-selection flag byte array.
type NcchHeader struct {
	Signature        [0x100]byte
	Magic            [4]byte
	ContentSize      uint32 // media units
	PartitionID      uint64
	MakerCode        [2]byte
	FormatVersion    uint16
	ContentLockSeed  [4]byte
	ProgramID        [8]byte
	Reserved1        [0x10]byte
	LogoHash         [0x20]byte
	ProductCode      [0x10]byte
	ExHeaderHash     [0x20]byte
	ExHeaderSize     uint32
	Reserved2        uint32
	Flags            [8]byte
	PlainRegionOff   uint32
	PlainRegionSize  uint32
	LogoRegionOff    uint32
	LogoRegionSize   uint32
	ExeFSOffset      uint32
	ExeFSSize        uint32
	ExeFSHashSize    uint32
	Reserved3        uint32
	RomFSOffset      uint32
	RomFSSize        uint32
	RomFSHashSize    uint32
	Reserved4        uint32
	ExeFSSuperHash   [0x20]byte
	RomFSSuperHash   [0x20]byte

	// TitleID mirrors ProgramID (the 3DS NCCH format stores a single
	// program/title identifier; callers that need it reversed for AES
	// counter construction use TitleID()).
}

// ParseNCCHHeader parses a 512-byte NCCH header, matching the field order
// used by decrypt logic in original_source/src/nintendo/ctr/decrypt/cia.rs
// (header.signature, header.programid/titleid, header.exhdrsize,
// header.exefsoffset/exefssize, header.romfsoffset/romfssize,
// header.flags, header.formatversion, header.seedcheck).
func ParseNCCHHeader(data []byte) (NcchHeader, error) {
	if len(data) < NcchHeaderSize {
		return NcchHeader{}, fmt.Errorf("ctr: ncch header short: %d bytes", len(data))
	}
	var h NcchHeader
	copy(h.Signature[:], data[0x000:0x100])
	copy(h.Magic[:], data[0x100:0x104])
	h.ContentSize = binary.LittleEndian.Uint32(data[0x104:0x108])
	h.PartitionID = binary.LittleEndian.Uint64(data[0x108:0x110])
	copy(h.MakerCode[:], data[0x110:0x112])
	h.FormatVersion = binary.LittleEndian.Uint16(data[0x112:0x114])
	copy(h.ContentLockSeed[:], data[0x114:0x118])
	copy(h.ProgramID[:], data[0x118:0x120])
	copy(h.Reserved1[:], data[0x120:0x130])
	copy(h.LogoHash[:], data[0x130:0x150])
	copy(h.ProductCode[:], data[0x150:0x160])
	copy(h.ExHeaderHash[:], data[0x160:0x180])
	h.ExHeaderSize = binary.LittleEndian.Uint32(data[0x180:0x184])
	h.Reserved2 = binary.LittleEndian.Uint32(data[0x184:0x188])
	copy(h.Flags[:], data[0x188:0x190])
	h.PlainRegionOff = binary.LittleEndian.Uint32(data[0x190:0x194])
	h.PlainRegionSize = binary.LittleEndian.Uint32(data[0x194:0x198])
	h.LogoRegionOff = binary.LittleEndian.Uint32(data[0x198:0x19C])
	h.LogoRegionSize = binary.LittleEndian.Uint32(data[0x19C:0x1A0])
	h.ExeFSOffset = binary.LittleEndian.Uint32(data[0x1A0:0x1A4])
	h.ExeFSSize = binary.LittleEndian.Uint32(data[0x1A4:0x1A8])
	h.ExeFSHashSize = binary.LittleEndian.Uint32(data[0x1A8:0x1AC])
	h.Reserved3 = binary.LittleEndian.Uint32(data[0x1AC:0x1B0])
	h.RomFSOffset = binary.LittleEndian.Uint32(data[0x1B0:0x1B4])
	h.RomFSSize = binary.LittleEndian.Uint32(data[0x1B4:0x1B8])
	h.RomFSHashSize = binary.LittleEndian.Uint32(data[0x1B8:0x1BC])
	h.Reserved4 = binary.LittleEndian.Uint32(data[0x1BC:0x1C0])
	copy(h.ExeFSSuperHash[:], data[0x1C0:0x1E0])
	copy(h.RomFSSuperHash[:], data[0x1E0:0x200])
	return h, nil
}

// TitleID returns the NCCH's 8-byte program/title identifier.
func (h NcchHeader) TitleID() [8]byte { return h.ProgramID }

// ProductCodeString returns the NCCH's null-terminated ASCII product code
// (e.g. "CTR-P-AREE"), trimmed of its trailing padding.
func (h NcchHeader) ProductCodeString() string { return util.ExtractASCII(h.ProductCode[:]) }

// SeedCheck returns the content-lock-seed hash check value (the first 4
// bytes of SHA-256 of the title's seed concatenated with its reversed
// title ID) stored at header offset 0x114, used to verify a looked-up or
// fetched seed before deriving 9.6 NCCH seed-crypto's KeyY.
func (h NcchHeader) SeedCheck() uint32 {
	return binary.BigEndian.Uint32(h.ContentLockSeed[:])
}

// KeyY returns the NCCH's KeyY, the first 16 bytes of its RSA signature.
func (h NcchHeader) KeyY() [16]byte {
	var y [16]byte
	copy(y[:], h.Signature[0:16])
	return y
}

// NCCH header flag bit positions within Flags[7] (the crypto-method byte).
const (
	ncchFlagFixedKey  = 1 << 0
	ncchFlagNoCrypto  = 1 << 2
	ncchFlagUsesSeed  = 1 << 5
)

// UsesExtraCrypto reports the "9.3 NCCH crypto" selector byte (Flags[3]).
func (h NcchHeader) UsesExtraCrypto() uint8 { return h.Flags[3] }

// FixedCryptoKeySlot returns 0 (not fixed-key), 1 or 2, matching the
// programid-bit-4 selection in parse_ncch.
func (h NcchHeader) FixedCryptoKeySlot(titleIDReversed [8]byte) uint8 {
	if h.Flags[7]&ncchFlagFixedKey == 0 {
		return 0
	}
	if titleIDReversed[3]&0x10 != 0 {
		return 2
	}
	return 1
}

// Encrypted reports whether this NCCH's sections are AES-encrypted.
func (h NcchHeader) Encrypted() bool {
	return h.Flags[7]&ncchFlagNoCrypto == 0
}

// UsesSeedCrypto reports the "9.6 NCCH seed crypto" flag bit.
func (h NcchHeader) UsesSeedCrypto() bool {
	return h.Flags[7]&ncchFlagUsesSeed != 0
}
