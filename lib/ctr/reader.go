package ctr

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"
	"io"
	"os"
)

// CiaReader streams a single CIA content's bytes off disk, transparently
// CBC-decrypting them as they're read. Grounded on
// original_source/src/nintendo/ctr/decrypt/reader.rs.
//
// The decryptor re-keys from the stored iv field on every Read call rather
// than chaining continuously across calls (as a single streaming CBC
// decrypt normally would), so the first block of every call except the
// very first needs its chaining manually patched: the block is XORed with
// the previous call's last ciphertext block to undo the stale-IV decrypt
// and reapply the real cross-call chaining value.
type CiaReader struct {
	file       *os.File
	encrypted  bool
	path       string
	key        [16]byte
	contentID  uint32
	cidx       uint16
	iv         [16]byte
	contentOff uint64

	SingleNCCH bool
	FromNCSD   bool

	lastEncBlock [16]byte
}

// NewCiaReader opens a streaming, content-scoped reader over an already
// open CIA file handle.
func NewCiaReader(file *os.File, encrypted bool, path string, key [16]byte, contentID uint32, cidx uint16, contentOff uint64, singleNCCH, fromNCSD bool) *CiaReader {
	return &CiaReader{
		file:       file,
		encrypted:  encrypted,
		path:       path,
		key:        key,
		contentID:  contentID,
		cidx:       cidx,
		iv:         GenIV(cidx),
		contentOff: contentOff,
		SingleNCCH: singleNCCH,
		FromNCSD:   fromNCSD,
	}
}

// Path returns the backing CIA/NCCH file path.
func (r *CiaReader) Path() string { return r.path }

// ContentID returns the CDN content ID this reader streams.
func (r *CiaReader) ContentID() uint32 { return r.contentID }

// ContentIndex returns the ticket content index this reader streams.
func (r *CiaReader) ContentIndex() uint16 { return r.cidx }

// Seek repositions the reader. offs is relative to the content start
// (ignored for single-NCCH/NCSD-partition readers, which seek absolutely):
// offset 0 resets to the content's initial IV, any other offset reads the
// real preceding ciphertext block off disk to seed the chain. Note this
// does not reset lastEncBlock, matching reader.rs's seek exactly — a
// Read immediately following a nonzero Seek still patches its first block
// against whatever the reader's last Read left behind.
func (r *CiaReader) Seek(offs uint64) error {
	if r.SingleNCCH || r.FromNCSD {
		_, err := r.file.Seek(int64(offs), io.SeekStart)
		return err
	}
	if offs == 0 {
		if _, err := r.file.Seek(int64(r.contentOff), io.SeekStart); err != nil {
			return err
		}
		r.iv = GenIV(r.cidx)
		return nil
	}
	if _, err := r.file.Seek(int64(r.contentOff+offs-16), io.SeekStart); err != nil {
		return err
	}
	if _, err := io.ReadFull(r.file, r.iv[:]); err != nil {
		return fmt.Errorf("ctr: seed cia reader iv: %w", err)
	}
	return nil
}

// Read fills data from the underlying file, decrypting it in place when
// this reader's content is encrypted.
func (r *CiaReader) Read(data []byte) error {
	if _, err := io.ReadFull(r.file, data); err != nil {
		return fmt.Errorf("ctr: cia reader read: %w", err)
	}
	if !r.encrypted {
		return nil
	}
	if len(data)%aes.BlockSize != 0 {
		return fmt.Errorf("ctr: cia reader read: length %d not block aligned", len(data))
	}

	var lastEncBlockThisCall [16]byte
	copy(lastEncBlockThisCall[:], data[len(data)-16:])

	block, err := aes.NewCipher(r.key[:])
	if err != nil {
		return fmt.Errorf("ctr: cia reader cipher: %w", err)
	}
	cipher.NewCBCDecrypter(block, r.iv[:]).CryptBlocks(data, data)

	for i := 0; i < 16; i++ {
		data[i] ^= r.lastEncBlock[i]
	}

	r.lastEncBlock = lastEncBlockThisCall
	return nil
}
