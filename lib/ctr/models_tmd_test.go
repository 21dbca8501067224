package ctr

import (
	"bytes"
	"testing"
)

func testTMD() TitleMetadata {
	h := TitleMetadataHeader{
		Version:                1,
		TitleID:                0x0004000000012345,
		TitleType:              0x40,
		SaveDataSize:           0x00100000,
		SRLPrivateSaveDataSize: 0,
		AccessRights:           0,
		TitleVersion:           3,
		ContentCount:           2,
	}

	chunks := []ContentChunkRecord{
		{ContentID: 0, ContentIndex: 0, ContentType: ContentTypeEncrypted | ContentTypeHashed, ContentSize: 0x2000},
		{ContentID: 1, ContentIndex: 1, ContentType: ContentTypeEncrypted, ContentSize: 0x4000},
	}
	for i := range chunks {
		chunks[i].Hash[0] = byte(i + 1)
	}

	var infoRecords [64]ContentInfoRecord
	infoRecords[0] = ContentInfoRecord{ContentIndexOffset: 0, ContentCommandCount: 2}

	return TitleMetadata{
		Signature: SignatureData{
			Type:      SignatureRsa2048Sha256,
			Signature: make([]byte, SignatureRsa2048Sha256.SignatureSize()),
			Padding:   make([]byte, SignatureRsa2048Sha256.PaddingSize()),
		},
		Header:              h,
		ContentInfoRecords:  infoRecords,
		ContentChunkRecords: chunks,
	}
}

func TestTitleMetadataRoundTrip(t *testing.T) {
	want := testTMD()

	var buf bytes.Buffer
	if err := want.Write(&buf); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := ReadTitleMetadata(&buf)
	if err != nil {
		t.Fatalf("ReadTitleMetadata: %v", err)
	}

	if got.Header.TitleID != want.Header.TitleID || got.Header.SaveDataSize != want.Header.SaveDataSize {
		t.Errorf("header mismatch: got %+v", got.Header)
	}
	if len(got.ContentChunkRecords) != len(want.ContentChunkRecords) {
		t.Fatalf("content chunk count = %d, want %d", len(got.ContentChunkRecords), len(want.ContentChunkRecords))
	}
	for i := range got.ContentChunkRecords {
		if got.ContentChunkRecords[i] != want.ContentChunkRecords[i] {
			t.Errorf("chunk %d mismatch: got %+v, want %+v", i, got.ContentChunkRecords[i], want.ContentChunkRecords[i])
		}
	}
	if got.ContentInfoRecords[0] != want.ContentInfoRecords[0] {
		t.Errorf("info record 0 mismatch: got %+v, want %+v", got.ContentInfoRecords[0], want.ContentInfoRecords[0])
	}
}

func TestContentChunkRecordTypeBits(t *testing.T) {
	c := ContentChunkRecord{ContentType: ContentTypeEncrypted | ContentTypeOptional}
	if c.ContentType&ContentTypeEncrypted == 0 {
		t.Error("expected encrypted bit set")
	}
	if c.ContentType&ContentTypeHashed != 0 {
		t.Error("did not expect hashed bit set")
	}
	c.ContentType &^= ContentTypeEncrypted
	if c.ContentType&ContentTypeEncrypted != 0 {
		t.Error("encrypted bit should have been cleared")
	}
}
