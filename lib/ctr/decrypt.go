package ctr

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// DecryptedPartition names one decrypted NCCH output produced while
// unpacking a CIA.
type DecryptedPartition struct {
	ContentIndex uint16
	ContentID    uint32
	Path         string
}

// ParseAndDecryptCIA reads a CIA archive and writes one decrypted .ncch
// file per content whose first 512 bytes begin with the "NCCH" magic,
// alongside the source file. If partition is non-nil, only the matching
// content index is unpacked.
//
// Rather than replaying the original tool's hardcoded byte offsets into
// the ticket/TMD regions (which assume one specific signature type), this
// walks the ticket and title metadata structurally via ReadTicket/
// ReadTitleMetadata, which is correct regardless of which signature type a
// given CIA's certificate chain actually uses.
func ParseAndDecryptCIA(input string, partition *uint8) ([]DecryptedPartition, error) {
	f, err := os.Open(input)
	if err != nil {
		return nil, fmt.Errorf("ctr: open cia: %w", err)
	}
	defer f.Close()

	header, err := ReadCiaHeader(f)
	if err != nil {
		return nil, err
	}

	cachainOff := Align64(uint64(header.HeaderSize))
	tikOff := Align64(cachainOff + uint64(header.CertChainSize))
	tmdOff := Align64(tikOff + uint64(header.TicketSize))
	contentOffs := Align64(tmdOff + uint64(header.TmdSize))

	if _, err := f.Seek(int64(tikOff), io.SeekStart); err != nil {
		return nil, fmt.Errorf("ctr: seek to ticket: %w", err)
	}
	ticket, err := ReadTicket(f)
	if err != nil {
		return nil, fmt.Errorf("ctr: read ticket: %w", err)
	}

	var tid [16]byte
	binary.BigEndian.PutUint64(tid[0:8], ticket.Data.TitleID)
	tidHex := hex.EncodeToString(tid[0:8])
	if len(tidHex) >= 5 && tidHex[:5] == "00048" {
		return nil, fmt.Errorf("ctr: unsupported cia file (title id %s)", tidHex)
	}

	titleKey := ticket.Data.TitleKey
	if err := decryptTitleKeyInPlace(&titleKey, tid, ticket.Data.CommonKeyIndex); err != nil {
		return nil, fmt.Errorf("ctr: unwrap title key: %w", err)
	}

	if _, err := f.Seek(int64(tmdOff), io.SeekStart); err != nil {
		return nil, fmt.Errorf("ctr: seek to tmd: %w", err)
	}
	tmd, err := ReadTitleMetadata(f)
	if err != nil {
		return nil, fmt.Errorf("ctr: read title metadata: %w", err)
	}

	var results []DecryptedPartition
	var nextContentOffs uint64

	for i, chunk := range tmd.ContentChunkRecords {
		contentStart := contentOffs + nextContentOffs
		nextContentOffs += Align64(chunk.ContentSize)

		if partition != nil && uint8(i) != *partition {
			continue
		}

		if _, err := f.Seek(int64(contentStart), io.SeekStart); err != nil {
			return nil, fmt.Errorf("ctr: seek to content %d: %w", i, err)
		}
		peek := make([]byte, 512)
		if _, err := io.ReadFull(f, peek); err != nil {
			return nil, fmt.Errorf("ctr: read content %d header: %w", i, err)
		}

		encrypted := chunk.ContentType&ContentTypeEncrypted != 0
		iv := GenIV(chunk.ContentIndex)
		if encrypted {
			if err := cbcDecryptBlock(titleKey, iv, peek); err != nil {
				return nil, fmt.Errorf("ctr: decrypt content %d header: %w", i, err)
			}
		}

		if !bytes.Equal(peek[256:260], []byte("NCCH")) {
			return nil, fmt.Errorf("ctr: content %d is not an NCCH partition", i)
		}

		nativeFile, err := os.Open(input)
		if err != nil {
			return nil, fmt.Errorf("ctr: reopen cia for content %d: %w", i, err)
		}
		if _, err := nativeFile.Seek(int64(contentStart), io.SeekStart); err != nil {
			nativeFile.Close()
			return nil, fmt.Errorf("ctr: seek reopened cia: %w", err)
		}

		cia := NewCiaReader(nativeFile, encrypted, input, titleKey, chunk.ContentID, chunk.ContentIndex, contentStart, false, false)

		var titleIDBytes [8]byte
		copy(titleIDBytes[:], tid[0:8])
		outPath, err := ParseNCCH(cia, 0, titleIDBytes, chunk.ContentID, chunk.ContentIndex, false)
		nativeFile.Close()
		if err != nil {
			return nil, fmt.Errorf("ctr: parse ncch for content %d: %w", i, err)
		}

		results = append(results, DecryptedPartition{
			ContentIndex: chunk.ContentIndex,
			ContentID:    chunk.ContentID,
			Path:         outPath,
		})
	}

	return results, nil
}

// decryptTitleKeyInPlace unwraps an encrypted title key under the common
// key selected by cmnKeyIndex, IV'd with the zero-padded title ID.
func decryptTitleKeyInPlace(titleKey *[16]byte, iv [16]byte, cmnKeyIndex uint8) error {
	if int(cmnKeyIndex) >= len(CommonKeysHex) {
		return fmt.Errorf("ctr: common key index %d out of range", cmnKeyIndex)
	}
	return cbcDecryptBlock(CommonKeysHex[cmnKeyIndex], iv, titleKey[:])
}

// cbcDecryptBlock decrypts data in place with a single AES-128-CBC pass
// (no cross-call chaining), used for the small fixed-size buffers (a
// title key, a content's peeked header) that parse_and_decrypt_cia
// decrypts independently of the streaming CiaReader.
func cbcDecryptBlock(key, iv [16]byte, data []byte) error {
	if len(data)%aes.BlockSize != 0 {
		return fmt.Errorf("ctr: cbc decrypt: length %d not block aligned", len(data))
	}
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return err
	}
	cipher.NewCBCDecrypter(block, iv[:]).CryptBlocks(data, data)
	return nil
}
