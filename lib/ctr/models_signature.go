package ctr

import (
	"encoding/binary"
	"fmt"
	"io"
)

// SignatureType identifies the signing algorithm used by a Certificate,
// Ticket or TitleMetadata signature block.
type SignatureType uint32

const (
	SignatureRsa4096Sha1       SignatureType = 0x010000
	SignatureRsa2048Sha1       SignatureType = 0x010001
	SignatureEllipticCurveSha1 SignatureType = 0x010002
	SignatureRsa4096Sha256     SignatureType = 0x010003
	SignatureRsa2048Sha256     SignatureType = 0x010004
	SignatureEcdsaSha256       SignatureType = 0x010005
)

// SignatureSize returns the byte length of the signature payload for t.
func (t SignatureType) SignatureSize() int {
	switch t {
	case SignatureRsa4096Sha1, SignatureRsa4096Sha256:
		return 0x200
	case SignatureRsa2048Sha1, SignatureRsa2048Sha256:
		return 0x100
	case SignatureEllipticCurveSha1, SignatureEcdsaSha256:
		return 0x3C
	default:
		return 0
	}
}

// PaddingSize returns the byte length of the padding following the
// signature payload for t.
func (t SignatureType) PaddingSize() int {
	switch t {
	case SignatureRsa4096Sha1, SignatureRsa4096Sha256, SignatureRsa2048Sha1, SignatureRsa2048Sha256:
		return 0x3C
	case SignatureEllipticCurveSha1, SignatureEcdsaSha256:
		return 0x40
	default:
		return 0
	}
}

// IsValid reports whether v is one of the six known signature type values,
// used by CIA parsing to detect the end of a certificate chain.
func IsValidSignatureType(v uint32) bool {
	return v >= uint32(SignatureRsa4096Sha1) && v <= uint32(SignatureEcdsaSha256)
}

// SignatureData is the signature-type-tagged signature block shared by
// Certificate, Ticket and TitleMetadata.
type SignatureData struct {
	Type      SignatureType
	Signature []byte
	Padding   []byte
}

func readSignatureData(r io.Reader) (SignatureData, error) {
	var typeBuf [4]byte
	if _, err := io.ReadFull(r, typeBuf[:]); err != nil {
		return SignatureData{}, fmt.Errorf("ctr: read signature type: %w", err)
	}
	t := SignatureType(binary.BigEndian.Uint32(typeBuf[:]))

	sig := make([]byte, t.SignatureSize())
	if _, err := io.ReadFull(r, sig); err != nil {
		return SignatureData{}, fmt.Errorf("ctr: read signature: %w", err)
	}
	pad := make([]byte, t.PaddingSize())
	if _, err := io.ReadFull(r, pad); err != nil {
		return SignatureData{}, fmt.Errorf("ctr: read signature padding: %w", err)
	}
	return SignatureData{Type: t, Signature: sig, Padding: pad}, nil
}

func (s SignatureData) write(w io.Writer) error {
	var typeBuf [4]byte
	binary.BigEndian.PutUint32(typeBuf[:], uint32(s.Type))
	if _, err := w.Write(typeBuf[:]); err != nil {
		return err
	}
	if _, err := w.Write(s.Signature); err != nil {
		return err
	}
	_, err := w.Write(s.Padding)
	return err
}
