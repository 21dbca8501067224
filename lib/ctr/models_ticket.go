package ctr

import (
	"encoding/binary"
	"fmt"
	"io"
)

// TicketData is the body of a Ticket: issuer chain, encrypted title key,
// and the title/console identifiers it applies to. Field order and sizes
// are grounded on original_source/src/nintendo/ctr/models/ticket.rs.
type TicketData struct {
	Issuer             [0x40]byte
	ECCPublicKey       [0x3C]byte
	Version            uint8
	CACRLVersion       uint8
	SignerCRLVersion   uint8
	TitleKey           [16]byte
	Reserved1          uint8
	TicketID           uint64
	ConsoleID          uint32
	TitleID            uint64
	Reserved2          uint16
	TicketTitleVersion uint16
	Reserved3          uint64
	LicenseType        uint8
	CommonKeyIndex     uint8
	Reserved4          [0x2A]byte
	EshopAccountID     uint32
	Reserved5          uint8
	Audit              uint8
	Reserved6          [0x42]byte
	Limits             [0x40]byte
	ContentIndex       ContentIndexData
}

// ContentIndexData is the variable-length tail of a TicketData.
type ContentIndexData struct {
	HeaderWord uint32
	TotalSize  uint32
	Data       []byte
}

// Ticket is a signed TicketData, storing the CBC-wrapped title key used to
// decrypt a title's contents.
type Ticket struct {
	Signature SignatureData
	Data      TicketData
}

// ReadTicket reads a big-endian Ticket sequentially from r.
func ReadTicket(r io.Reader) (Ticket, error) {
	sig, err := readSignatureData(r)
	if err != nil {
		return Ticket{}, err
	}

	var d TicketData
	if _, err := io.ReadFull(r, d.Issuer[:]); err != nil {
		return Ticket{}, fmt.Errorf("ctr: read ticket issuer: %w", err)
	}
	if _, err := io.ReadFull(r, d.ECCPublicKey[:]); err != nil {
		return Ticket{}, fmt.Errorf("ctr: read ticket ecc key: %w", err)
	}
	if err := readBE(r, &d.Version); err != nil {
		return Ticket{}, err
	}
	if err := readBE(r, &d.CACRLVersion); err != nil {
		return Ticket{}, err
	}
	if err := readBE(r, &d.SignerCRLVersion); err != nil {
		return Ticket{}, err
	}
	if _, err := io.ReadFull(r, d.TitleKey[:]); err != nil {
		return Ticket{}, fmt.Errorf("ctr: read title key: %w", err)
	}
	if err := readBE(r, &d.Reserved1); err != nil {
		return Ticket{}, err
	}
	if err := readBE(r, &d.TicketID); err != nil {
		return Ticket{}, err
	}
	if err := readBE(r, &d.ConsoleID); err != nil {
		return Ticket{}, err
	}
	if err := readBE(r, &d.TitleID); err != nil {
		return Ticket{}, err
	}
	if err := readBE(r, &d.Reserved2); err != nil {
		return Ticket{}, err
	}
	if err := readBE(r, &d.TicketTitleVersion); err != nil {
		return Ticket{}, err
	}
	if err := readBE(r, &d.Reserved3); err != nil {
		return Ticket{}, err
	}
	if err := readBE(r, &d.LicenseType); err != nil {
		return Ticket{}, err
	}
	if err := readBE(r, &d.CommonKeyIndex); err != nil {
		return Ticket{}, err
	}
	if _, err := io.ReadFull(r, d.Reserved4[:]); err != nil {
		return Ticket{}, fmt.Errorf("ctr: read ticket reserved4: %w", err)
	}
	if err := readBE(r, &d.EshopAccountID); err != nil {
		return Ticket{}, err
	}
	if err := readBE(r, &d.Reserved5); err != nil {
		return Ticket{}, err
	}
	if err := readBE(r, &d.Audit); err != nil {
		return Ticket{}, err
	}
	if _, err := io.ReadFull(r, d.Reserved6[:]); err != nil {
		return Ticket{}, fmt.Errorf("ctr: read ticket reserved6: %w", err)
	}
	if _, err := io.ReadFull(r, d.Limits[:]); err != nil {
		return Ticket{}, fmt.Errorf("ctr: read ticket limits: %w", err)
	}
	if err := readBE(r, &d.ContentIndex.HeaderWord); err != nil {
		return Ticket{}, err
	}
	if err := readBE(r, &d.ContentIndex.TotalSize); err != nil {
		return Ticket{}, err
	}
	if d.ContentIndex.TotalSize < 8 {
		return Ticket{}, fmt.Errorf("ctr: invalid content index size %d", d.ContentIndex.TotalSize)
	}
	d.ContentIndex.Data = make([]byte, d.ContentIndex.TotalSize-8)
	if _, err := io.ReadFull(r, d.ContentIndex.Data); err != nil {
		return Ticket{}, fmt.Errorf("ctr: read content index data: %w", err)
	}

	return Ticket{Signature: sig, Data: d}, nil
}

// readBE reads a fixed-width big-endian value into dst.
func readBE(r io.Reader, dst any) error {
	return binary.Read(r, binary.BigEndian, dst)
}

// Write serializes t in the big-endian wire format.
func (t Ticket) Write(w io.Writer) error {
	if err := t.Signature.write(w); err != nil {
		return err
	}
	d := t.Data
	if _, err := w.Write(d.Issuer[:]); err != nil {
		return err
	}
	if _, err := w.Write(d.ECCPublicKey[:]); err != nil {
		return err
	}
	vals := []any{
		d.Version, d.CACRLVersion, d.SignerCRLVersion,
	}
	for _, v := range vals {
		if err := binary.Write(w, binary.BigEndian, v); err != nil {
			return err
		}
	}
	if _, err := w.Write(d.TitleKey[:]); err != nil {
		return err
	}
	vals = []any{
		d.Reserved1, d.TicketID, d.ConsoleID, d.TitleID, d.Reserved2,
		d.TicketTitleVersion, d.Reserved3, d.LicenseType, d.CommonKeyIndex,
	}
	for _, v := range vals {
		if err := binary.Write(w, binary.BigEndian, v); err != nil {
			return err
		}
	}
	if _, err := w.Write(d.Reserved4[:]); err != nil {
		return err
	}
	vals = []any{d.EshopAccountID, d.Reserved5, d.Audit}
	for _, v := range vals {
		if err := binary.Write(w, binary.BigEndian, v); err != nil {
			return err
		}
	}
	if _, err := w.Write(d.Reserved6[:]); err != nil {
		return err
	}
	if _, err := w.Write(d.Limits[:]); err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, d.ContentIndex.HeaderWord); err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, d.ContentIndex.TotalSize); err != nil {
		return err
	}
	_, err := w.Write(d.ContentIndex.Data)
	return err
}
