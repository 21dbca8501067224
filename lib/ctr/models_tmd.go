package ctr

import (
	"encoding/binary"
	"fmt"
	"io"
)

// TitleMetadataHeader is the fixed-size portion of a TitleMetadata,
// grounded on original_source/src/nintendo/ctr/models/title_metadata.rs.
// The struct is big-endian throughout except SaveDataSize and
// SRLPrivateSaveDataSize, which the original source explicitly marks
// little-endian — a documented quirk of the TMD format, not a mistake.
type TitleMetadataHeader struct {
	SignatureIssuer         [0x40]byte
	Version                 uint8
	CACRLVersion            uint8
	SignerCRLVersion        uint8
	Reserved1               uint8
	SystemVersion           uint64
	TitleID                 uint64
	TitleType               uint32
	GroupID                 uint16
	SaveDataSize            uint32 // little-endian
	SRLPrivateSaveDataSize  uint32 // little-endian
	Reserved2               [4]byte
	SRLFlag                 uint8
	Reserved3               [0x31]byte
	AccessRights            uint32
	TitleVersion            uint16
	ContentCount            uint16
	BootContent             uint16
	Padding                 uint16
	ContentInfoRecordsHash  [0x20]byte
}

// ContentInfoRecord summarizes a contiguous run of ContentChunkRecords.
// There are always exactly 64 of these in a TitleMetadata.
type ContentInfoRecord struct {
	ContentIndexOffset  uint16
	ContentCommandCount uint16
	Hash                [0x20]byte
}

// ContentType is the bitmask describing one content item (encrypted,
// hash-tree protected, optional, shared).
type ContentType uint16

const (
	ContentTypeEncrypted  ContentType = 1 << 0
	ContentTypeHashed     ContentType = 1 << 1
	ContentTypeOptional   ContentType = 1 << 14
	ContentTypeShared     ContentType = 1 << 15
)

// ContentChunkRecord describes one content item within a title: its CDN
// content ID, index, type bitmask, size and SHA-256 hash.
type ContentChunkRecord struct {
	ContentID    uint32
	ContentIndex uint16
	ContentType  ContentType
	ContentSize  uint64
	Hash         [0x20]byte
}

// TitleMetadata is a signed list of a title's content items.
type TitleMetadata struct {
	Signature           SignatureData
	Header              TitleMetadataHeader
	ContentInfoRecords  [64]ContentInfoRecord
	ContentChunkRecords []ContentChunkRecord
}

// ReadTitleMetadata reads a big-endian TitleMetadata sequentially from r.
func ReadTitleMetadata(r io.Reader) (TitleMetadata, error) {
	sig, err := readSignatureData(r)
	if err != nil {
		return TitleMetadata{}, err
	}

	var h TitleMetadataHeader
	if _, err := io.ReadFull(r, h.SignatureIssuer[:]); err != nil {
		return TitleMetadata{}, fmt.Errorf("ctr: read tmd issuer: %w", err)
	}
	for _, v := range []any{&h.Version, &h.CACRLVersion, &h.SignerCRLVersion, &h.Reserved1, &h.SystemVersion, &h.TitleID, &h.TitleType, &h.GroupID} {
		if err := readBE(r, v); err != nil {
			return TitleMetadata{}, fmt.Errorf("ctr: read tmd header: %w", err)
		}
	}
	if err := binary.Read(r, binary.LittleEndian, &h.SaveDataSize); err != nil {
		return TitleMetadata{}, fmt.Errorf("ctr: read tmd save data size: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &h.SRLPrivateSaveDataSize); err != nil {
		return TitleMetadata{}, fmt.Errorf("ctr: read tmd srl save data size: %w", err)
	}
	if _, err := io.ReadFull(r, h.Reserved2[:]); err != nil {
		return TitleMetadata{}, fmt.Errorf("ctr: read tmd reserved2: %w", err)
	}
	if err := readBE(r, &h.SRLFlag); err != nil {
		return TitleMetadata{}, err
	}
	if _, err := io.ReadFull(r, h.Reserved3[:]); err != nil {
		return TitleMetadata{}, fmt.Errorf("ctr: read tmd reserved3: %w", err)
	}
	for _, v := range []any{&h.AccessRights, &h.TitleVersion, &h.ContentCount, &h.BootContent, &h.Padding} {
		if err := readBE(r, v); err != nil {
			return TitleMetadata{}, fmt.Errorf("ctr: read tmd header tail: %w", err)
		}
	}
	if _, err := io.ReadFull(r, h.ContentInfoRecordsHash[:]); err != nil {
		return TitleMetadata{}, fmt.Errorf("ctr: read tmd content info hash: %w", err)
	}

	var infoRecords [64]ContentInfoRecord
	for i := range infoRecords {
		if err := readBE(r, &infoRecords[i].ContentIndexOffset); err != nil {
			return TitleMetadata{}, fmt.Errorf("ctr: read content info record %d: %w", i, err)
		}
		if err := readBE(r, &infoRecords[i].ContentCommandCount); err != nil {
			return TitleMetadata{}, fmt.Errorf("ctr: read content info record %d: %w", i, err)
		}
		if _, err := io.ReadFull(r, infoRecords[i].Hash[:]); err != nil {
			return TitleMetadata{}, fmt.Errorf("ctr: read content info record %d hash: %w", i, err)
		}
	}

	chunks := make([]ContentChunkRecord, h.ContentCount)
	for i := range chunks {
		if err := readBE(r, &chunks[i].ContentID); err != nil {
			return TitleMetadata{}, fmt.Errorf("ctr: read content chunk %d: %w", i, err)
		}
		if err := readBE(r, &chunks[i].ContentIndex); err != nil {
			return TitleMetadata{}, fmt.Errorf("ctr: read content chunk %d: %w", i, err)
		}
		if err := readBE(r, &chunks[i].ContentType); err != nil {
			return TitleMetadata{}, fmt.Errorf("ctr: read content chunk %d: %w", i, err)
		}
		if err := readBE(r, &chunks[i].ContentSize); err != nil {
			return TitleMetadata{}, fmt.Errorf("ctr: read content chunk %d: %w", i, err)
		}
		if _, err := io.ReadFull(r, chunks[i].Hash[:]); err != nil {
			return TitleMetadata{}, fmt.Errorf("ctr: read content chunk %d hash: %w", i, err)
		}
	}

	return TitleMetadata{Signature: sig, Header: h, ContentInfoRecords: infoRecords, ContentChunkRecords: chunks}, nil
}

// Write serializes t in the big/little mixed-endian wire format.
func (t TitleMetadata) Write(w io.Writer) error {
	if err := t.Signature.write(w); err != nil {
		return err
	}
	h := t.Header
	if _, err := w.Write(h.SignatureIssuer[:]); err != nil {
		return err
	}
	for _, v := range []any{h.Version, h.CACRLVersion, h.SignerCRLVersion, h.Reserved1, h.SystemVersion, h.TitleID, h.TitleType, h.GroupID} {
		if err := binary.Write(w, binary.BigEndian, v); err != nil {
			return err
		}
	}
	if err := binary.Write(w, binary.LittleEndian, h.SaveDataSize); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, h.SRLPrivateSaveDataSize); err != nil {
		return err
	}
	if _, err := w.Write(h.Reserved2[:]); err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, h.SRLFlag); err != nil {
		return err
	}
	if _, err := w.Write(h.Reserved3[:]); err != nil {
		return err
	}
	for _, v := range []any{h.AccessRights, h.TitleVersion, h.ContentCount, h.BootContent, h.Padding} {
		if err := binary.Write(w, binary.BigEndian, v); err != nil {
			return err
		}
	}
	if _, err := w.Write(h.ContentInfoRecordsHash[:]); err != nil {
		return err
	}
	for _, rec := range t.ContentInfoRecords {
		if err := binary.Write(w, binary.BigEndian, rec.ContentIndexOffset); err != nil {
			return err
		}
		if err := binary.Write(w, binary.BigEndian, rec.ContentCommandCount); err != nil {
			return err
		}
		if _, err := w.Write(rec.Hash[:]); err != nil {
			return err
		}
	}
	for _, c := range t.ContentChunkRecords {
		for _, v := range []any{c.ContentID, c.ContentIndex, c.ContentType, c.ContentSize} {
			if err := binary.Write(w, binary.BigEndian, v); err != nil {
				return err
			}
		}
		if _, err := w.Write(c.Hash[:]); err != nil {
			return err
		}
	}
	return nil
}
