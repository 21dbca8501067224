package ctr

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"
)

// GenIV builds the 16-byte AES-CBC IV used to decrypt a CIA content item,
// the content index left-padded into the high two bytes of a big-endian
// block, grounded on original_source/src/nintendo/ctr/decrypt/util.rs's
// gen_iv helper.
func GenIV(contentIndex uint16) [16]byte {
	var iv [16]byte
	iv[0] = byte(contentIndex >> 8)
	iv[1] = byte(contentIndex)
	return iv
}

// CTRStream wraps crypto/cipher's CTR-mode stream for a single NCCH
// section, matching the Rust ctr::Ctr128BE<Aes128> cipher used by
// get_ncch_aes_counter-derived keys.
type CTRStream struct {
	stream cipher.Stream
}

// NewCTRStream creates an AES-128-CTR stream with the given key and
// 16-byte big-endian counter.
func NewCTRStream(key, counter [16]byte) (*CTRStream, error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("ctr: new ctr stream: %w", err)
	}
	return &CTRStream{stream: cipher.NewCTR(block, counter[:])}, nil
}

// XORKeyStream decrypts (or encrypts, AES-CTR being symmetric) src into dst.
func (s *CTRStream) XORKeyStream(dst, src []byte) {
	s.stream.XORKeyStream(dst, src)
}
