package ctr

import (
	"bufio"
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"os"
	"path/filepath"
	"testing"
)

// buildMinimalNCCHHeader returns a 512-byte plaintext NCCH header with no
// ExHeader/ExeFS/RomFS sections, so ParseNCCH only has to copy and patch the
// header itself — enough to exercise DecryptFromEncryptedCIA end to end
// without needing valid section payloads.
func buildMinimalNCCHHeader(programID [8]byte) []byte {
	data := make([]byte, NcchHeaderSize)
	copy(data[0x100:0x104], "NCCH")
	copy(data[0x118:0x120], programID[:])
	return data
}

func buildEncryptedCIA(t *testing.T, titleID uint64, titleKey [16]byte, plainHeader []byte) []byte {
	t.Helper()

	content := make([]byte, len(plainHeader))
	block, err := aes.NewCipher(titleKey[:])
	if err != nil {
		t.Fatalf("aes.NewCipher: %v", err)
	}
	iv := GenIV(0)
	cipher.NewCBCEncrypter(block, iv[:]).CryptBlocks(content, plainHeader)

	var wrappedKey [16]byte
	var tid [16]byte
	for i := 0; i < 8; i++ {
		tid[i] = byte(titleID >> (56 - 8*i))
	}
	wrapBlock, err := aes.NewCipher(CommonKeysHex[0][:])
	if err != nil {
		t.Fatalf("aes.NewCipher: %v", err)
	}
	cipher.NewCBCEncrypter(wrapBlock, tid[:]).CryptBlocks(wrappedKey[:], titleKey[:])

	tik := testTicket()
	tik.Data.TitleID = titleID
	tik.Data.CommonKeyIndex = 0
	tik.Data.TitleKey = wrappedKey

	tmd := testTMD()
	tmd.Header.TitleID = titleID
	tmd.Header.ContentCount = 1
	tmd.ContentChunkRecords = []ContentChunkRecord{
		{ContentID: 0, ContentIndex: 0, ContentType: ContentTypeEncrypted, ContentSize: uint64(len(content))},
	}
	tmd.ContentInfoRecords[0] = ContentInfoRecord{ContentIndexOffset: 0, ContentCommandCount: 1}

	var tikBuf, tmdBuf bytes.Buffer
	if err := tik.Write(&tikBuf); err != nil {
		t.Fatalf("write ticket: %v", err)
	}
	if err := tmd.Write(&tmdBuf); err != nil {
		t.Fatalf("write tmd: %v", err)
	}

	header := CiaHeader{
		HeaderSize:    CiaHeaderSize,
		CertChainSize: 0,
		TicketSize:    uint32(tikBuf.Len()),
		TmdSize:       uint32(tmdBuf.Len()),
		ContentSize:   uint64(len(content)),
	}
	header.SetContentIndex(0)

	var out bytes.Buffer
	w := bufio.NewWriter(&out)
	if err := header.Write(w); err != nil {
		t.Fatalf("write cia header: %v", err)
	}
	offset := int64(CiaHeaderSize)
	if err := writePadded(w, &offset, nil); err != nil {
		t.Fatalf("pad cert chain: %v", err)
	}
	if err := writePadded(w, &offset, tikBuf.Bytes()); err != nil {
		t.Fatalf("pad ticket: %v", err)
	}
	if err := writePadded(w, &offset, tmdBuf.Bytes()); err != nil {
		t.Fatalf("pad tmd: %v", err)
	}
	if _, err := w.Write(content); err != nil {
		t.Fatalf("write content: %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	return out.Bytes()
}

func TestDecryptFromEncryptedCIA(t *testing.T) {
	const titleID = 0x0004000000012345
	var titleKey [16]byte
	for i := range titleKey {
		titleKey[i] = byte(i + 1)
	}

	plainHeader := buildMinimalNCCHHeader([8]byte{0x45, 0x23, 0x01, 0x00, 0x00, 0x00, 0x04, 0x00})
	ciaBytes := buildEncryptedCIA(t, titleID, titleKey, plainHeader)

	dir := t.TempDir()
	input := filepath.Join(dir, "title.cia")
	if err := os.WriteFile(input, ciaBytes, 0o644); err != nil {
		t.Fatalf("write input cia: %v", err)
	}
	output := filepath.Join(dir, "title-decrypted.cia")

	if err := DecryptFromEncryptedCIA(input, output); err != nil {
		t.Fatalf("DecryptFromEncryptedCIA: %v", err)
	}

	f, err := os.Open(output)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer f.Close()

	outHeader, err := ReadCiaHeader(f)
	if err != nil {
		t.Fatalf("ReadCiaHeader: %v", err)
	}

	wantHeader := make([]byte, len(plainHeader))
	copy(wantHeader, plainHeader)
	wantHeader[399] = wantHeader[399]&2 | 4
	wantHash := sha256.Sum256(wantHeader)

	cachainOff := Align64(uint64(outHeader.HeaderSize))
	tikOff := Align64(cachainOff + uint64(outHeader.CertChainSize))
	tmdOff := Align64(tikOff + uint64(outHeader.TicketSize))

	if _, err := f.Seek(int64(tikOff), 0); err != nil {
		t.Fatalf("seek to ticket: %v", err)
	}
	if _, err := ReadTicket(f); err != nil {
		t.Fatalf("read repacked ticket: %v", err)
	}
	if _, err := f.Seek(int64(tmdOff), 0); err != nil {
		t.Fatalf("seek to tmd: %v", err)
	}
	tmdAfterTicket, err := ReadTitleMetadata(f)
	if err != nil {
		t.Fatalf("read repacked tmd: %v", err)
	}

	if len(tmdAfterTicket.ContentChunkRecords) != 1 {
		t.Fatalf("got %d content chunks, want 1", len(tmdAfterTicket.ContentChunkRecords))
	}
	chunk := tmdAfterTicket.ContentChunkRecords[0]
	if chunk.ContentType&ContentTypeEncrypted != 0 {
		t.Error("repacked content chunk should have the encrypted bit cleared")
	}
	if chunk.Hash != wantHash {
		t.Errorf("repacked content hash = %x, want %x", chunk.Hash, wantHash)
	}
}
