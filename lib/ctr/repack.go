package ctr

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// DecryptFromEncryptedCIA unpacks the NCCH partitions inside an encrypted
// CIA, then repacks them with the original CIA's header, certificate
// chain, ticket and title metadata, marking every content chunk
// unencrypted and recomputing the TMD's hash tree over the decrypted
// contents. Grounded on cia.rs's decrypt_from_encrypted_cia.
func DecryptFromEncryptedCIA(input, output string) error {
	if _, err := ParseAndDecryptCIA(input, nil); err != nil {
		return err
	}

	f, err := os.Open(input)
	if err != nil {
		return fmt.Errorf("ctr: open cia: %w", err)
	}
	header, err := ReadCiaHeader(f)
	if err != nil {
		f.Close()
		return err
	}

	cachainOff := Align64(uint64(header.HeaderSize))
	tikOff := Align64(cachainOff + uint64(header.CertChainSize))
	tmdOff := Align64(tikOff + uint64(header.TicketSize))

	certChainBuf := make([]byte, header.CertChainSize)
	if _, err := f.Seek(int64(cachainOff), io.SeekStart); err != nil {
		f.Close()
		return err
	}
	if _, err := io.ReadFull(f, certChainBuf); err != nil {
		f.Close()
		return fmt.Errorf("ctr: read cert chain: %w", err)
	}

	if _, err := f.Seek(int64(tikOff), io.SeekStart); err != nil {
		f.Close()
		return err
	}
	ticket, err := ReadTicket(f)
	if err != nil {
		f.Close()
		return fmt.Errorf("ctr: read ticket: %w", err)
	}

	if _, err := f.Seek(int64(tmdOff), io.SeekStart); err != nil {
		f.Close()
		return err
	}
	tmd, err := ReadTitleMetadata(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("ctr: read title metadata: %w", err)
	}

	dir := filepath.Dir(input)
	stem := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))

	ncchPath := func(chunk ContentChunkRecord) string {
		return filepath.Join(dir, fmt.Sprintf("%s.%d.%08X.ncch", stem, chunk.ContentIndex, chunk.ContentID))
	}

	for i := range tmd.ContentChunkRecords {
		chunk := &tmd.ContentChunkRecords[i]
		chunk.ContentType &^= ContentTypeEncrypted

		data, err := os.ReadFile(ncchPath(*chunk))
		if err != nil {
			return fmt.Errorf("ctr: read decrypted ncch %d: %w", i, err)
		}
		chunk.Hash = sha256.Sum256(data)
	}

	for i := range tmd.ContentInfoRecords {
		rec := &tmd.ContentInfoRecords[i]
		start := int(rec.ContentIndexOffset)
		count := int(rec.ContentCommandCount)
		if count == 0 {
			continue
		}
		if start+count > len(tmd.ContentChunkRecords) {
			return fmt.Errorf("ctr: content info record %d out of range", i)
		}

		var buf bytes.Buffer
		for _, chunk := range tmd.ContentChunkRecords[start : start+count] {
			for _, v := range []any{chunk.ContentID, chunk.ContentIndex, chunk.ContentType, chunk.ContentSize} {
				if err := binary.Write(&buf, binary.BigEndian, v); err != nil {
					return err
				}
			}
			buf.Write(chunk.Hash[:])
		}
		rec.Hash = sha256.Sum256(buf.Bytes())
	}

	var topHasher bytes.Buffer
	for _, rec := range tmd.ContentInfoRecords {
		if err := binary.Write(&topHasher, binary.BigEndian, rec.ContentIndexOffset); err != nil {
			return err
		}
		if err := binary.Write(&topHasher, binary.BigEndian, rec.ContentCommandCount); err != nil {
			return err
		}
		topHasher.Write(rec.Hash[:])
	}
	tmd.Header.ContentInfoRecordsHash = sha256.Sum256(topHasher.Bytes())

	out, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("ctr: create decrypted cia: %w", err)
	}
	w := bufio.NewWriter(out)

	var tmdBuf bytes.Buffer
	if err := tmd.Write(&tmdBuf); err != nil {
		out.Close()
		return err
	}
	var tikBuf bytes.Buffer
	if err := ticket.Write(&tikBuf); err != nil {
		out.Close()
		return err
	}

	newHeader := header
	newHeader.TmdSize = uint32(tmdBuf.Len())
	newHeader.TicketSize = uint32(tikBuf.Len())

	writeErr := func() error {
		if err := newHeader.Write(w); err != nil {
			return err
		}
		offset := int64(header.HeaderSize)
		if err := writePadded(w, &offset, certChainBuf); err != nil {
			return err
		}
		if err := writePadded(w, &offset, tikBuf.Bytes()); err != nil {
			return err
		}
		if err := writePadded(w, &offset, tmdBuf.Bytes()); err != nil {
			return err
		}
		for _, chunk := range tmd.ContentChunkRecords {
			path := ncchPath(chunk)
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("ctr: read decrypted ncch: %w", err)
			}
			if _, err := w.Write(data); err != nil {
				return err
			}
		}
		return nil
	}()

	flushErr := w.Flush()
	closeErr := out.Close()
	if writeErr != nil {
		return writeErr
	}
	if flushErr != nil {
		return flushErr
	}
	if closeErr != nil {
		return closeErr
	}

	for _, chunk := range tmd.ContentChunkRecords {
		if err := os.Remove(ncchPath(chunk)); err != nil {
			return fmt.Errorf("ctr: remove temporary ncch: %w", err)
		}
	}

	return nil
}
