package ctr

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

// trimTitleID strips an optional "0x" prefix and the leading category byte
// (the first two hex digits), matching the original's
// `title_id.strip_prefix("0x")` followed by `&title_id[2..]` slice.
func trimTitleID(titleID string) (string, error) {
	titleID = strings.TrimPrefix(titleID, "0x")
	if len(titleID) < 2 {
		return "", fmt.Errorf("ctr: title id %q too short", titleID)
	}
	return titleID[2:], nil
}

// GenerateKey derives the unencrypted per-title key: PBKDF2-HMAC-SHA1 over
// password, salted with MD5(secret‖trimmed-title-id), 20 iterations, 16
// bytes of output, hex-encoded. Grounded on
// original_source/src/nintendo/ctr/title_key/mod.rs:generate_key.
//
// Test vector: GenerateKey("0x00040000001adc00", "mypass") ==
// "3dbe05484b3c5033c2cefd81e27b0d95".
func GenerateKey(titleID, password string) (string, error) {
	tid, err := trimTitleID(titleID)
	if err != nil {
		return "", err
	}
	secretBytes, err := hex.DecodeString(TitleKeySecret + tid)
	if err != nil {
		return "", fmt.Errorf("ctr: decode title key secret: %w", err)
	}
	salt := md5.Sum(secretBytes)
	key := pbkdf2.Key([]byte(password), salt[:], 20, 16, sha1.New)
	return hex.EncodeToString(key), nil
}

// encryptTitleKey wraps a 16-byte unencrypted title key in AES-CBC under
// ckey, with the IV formed from the (non-"0x"-stripped-further) title ID
// hex digits, right-padded with zeros to 32 hex chars (16 bytes). The
// plaintext is exactly one AES block, so no padding scheme is needed.
func encryptTitleKey(titleID string, titleKey, ckey [16]byte) ([16]byte, error) {
	tid := strings.TrimPrefix(titleID, "0x")
	if len(tid) > 32 {
		return [16]byte{}, fmt.Errorf("ctr: title id %q too long", titleID)
	}
	ivHex := tid + strings.Repeat("0", 32-len(tid))
	iv, err := hex.DecodeString(ivHex)
	if err != nil {
		return [16]byte{}, fmt.Errorf("ctr: decode title id iv: %w", err)
	}

	block, err := aes.NewCipher(ckey[:])
	if err != nil {
		return [16]byte{}, fmt.Errorf("ctr: new cipher: %w", err)
	}
	var out [16]byte
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out[:], titleKey[:])
	return out, nil
}

// GenerateTitleKey generates an unencrypted title key for titleID and
// password (CTR_DEFAULT_TITLE_KEY_PASSWORD if password is ""), then wraps
// it under the first common key, returning the hex-encoded encrypted key.
// Grounded on title_key/mod.rs:generate_title_key.
//
// Test vector: GenerateTitleKey("0004008c0f70cd00", "") ==
// "3c7faeff5b1d784d25011149f33f50a7".
func GenerateTitleKey(titleID, password string) (string, error) {
	if password == "" {
		password = DefaultTitleKeyPassword
	}

	unencryptedHex, err := GenerateKey(titleID, password)
	if err != nil {
		return "", err
	}
	unencryptedBytes, err := hex.DecodeString(unencryptedHex)
	if err != nil {
		return "", fmt.Errorf("ctr: decode generated key: %w", err)
	}
	var unencrypted [16]byte
	copy(unencrypted[:], unencryptedBytes)

	encrypted, err := encryptTitleKey(titleID, unencrypted, CommonKeysHex[0])
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(encrypted[:]), nil
}
