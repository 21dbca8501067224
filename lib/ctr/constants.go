// Package ctr implements the Nintendo 3DS CIA/NCCH crypto pipeline: title
// key generation and unwrapping, NCCH/ExeFS section decryption, seed
// lookup, and CIA/CDN repackaging.
package ctr

import "encoding/hex"

// CommonKeysHex are the six known CTR common keys (KeySlot 0x3D), indexed
// by the ticket's common-key-index byte.
var CommonKeysHex = [6][16]byte{
	mustHex("64c5fd55dd3ad988325baaec5243db98"),
	mustHex("4aaa3d0e27d4d728d0b1b433f0f9cbc8"),
	mustHex("fbb0ef8cdbb0d8e453cd99344371697f"),
	mustHex("25959b7ad0409f72684198ba2ecd7dc6"),
	mustHex("7ada22caffc476cc8297a0c7ceeeeebe"),
	mustHex("a5051ca1b37dcf3afbcf8cc1edd9ce02"),
}

// TitleKeySecret salts title-key generation/encryption.
const TitleKeySecret = "fd040105060b111c2d49"

// DefaultTitleKeyPassword is used when the caller supplies none.
const DefaultTitleKeyPassword = "mypass"

// Fixed KeyX/KeyY system keys used by KeyScrambler for NCCH crypto,
// matching original_source/src/nintendo/ctr/constants.rs.
var (
	Key0x2C  = mustHex("b98e95ceca3e4d171f76a94de934c053")
	Key0x25  = mustHex("cee7d8ab30c00dae850ef5e382ac5af3")
	Key0x18  = mustHex("82e9c9bebfb8bdb875ecc0a07d474374")
	Key0x1B  = mustHex("45ad04953992c7c893724a9a7bce6182")
	FixedSys = mustHex("527ce630a9ca305f3696f3cde954194b")
)

// Keys0 and Keys1 are indexed by NCCH format-version-derived KeyX/KeyY
// selection (see keyYForSection).
var (
	Keys0 = [4][16]byte{Key0x2C, Key0x25, Key0x18, Key0x1B}
	Keys1 = [2][16]byte{{}, FixedSys}
)

// NCSDPartitionNames labels the 8 NCSD partitions by index.
var NCSDPartitionNames = [8]string{
	"Main",
	"Manual",
	"Download Play",
	"Partition4",
	"Partition5",
	"Partition6",
	"N3DSUpdateData",
	"UpdateData",
}

// MediaUnitSize is the block size NCCH/NCSD offsets and lengths are
// expressed in media units of.
const MediaUnitSize = 512

func mustHex(s string) [16]byte {
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != 16 {
		panic("ctr: bad key literal: " + s)
	}
	var out [16]byte
	copy(out[:], b)
	return out
}
