package ctr

import (
	"encoding/binary"
	"fmt"
	"io"
)

// KeyType identifies the shape of a Certificate's PublicKey.
type KeyType uint32

const (
	KeyRsa4096       KeyType = 0x0
	KeyRsa2048       KeyType = 0x1
	KeyEllipticCurve KeyType = 0x2
)

// PublicKey holds one of the three certificate key shapes. Exactly one of
// RSA4096, RSA2048 or EC is populated, selected by Type.
type PublicKey struct {
	Type KeyType

	// RSA4096/RSA2048
	Modulus        []byte
	PublicExponent uint32
	RSAPadding     []byte

	// EllipticCurve
	ECPublicKey []byte
	ECPadding   []byte
}

func readPublicKey(r io.Reader, keyType KeyType) (PublicKey, error) {
	switch keyType {
	case KeyRsa4096:
		return readRSAPublicKey(r, KeyRsa4096, 0x200)
	case KeyRsa2048:
		return readRSAPublicKey(r, KeyRsa2048, 0x100)
	case KeyEllipticCurve:
		pub := make([]byte, 0x3C)
		if _, err := io.ReadFull(r, pub); err != nil {
			return PublicKey{}, fmt.Errorf("ctr: read ec public key: %w", err)
		}
		pad := make([]byte, 0x3C)
		if _, err := io.ReadFull(r, pad); err != nil {
			return PublicKey{}, fmt.Errorf("ctr: read ec padding: %w", err)
		}
		return PublicKey{Type: KeyEllipticCurve, ECPublicKey: pub, ECPadding: pad}, nil
	default:
		return PublicKey{}, fmt.Errorf("ctr: unknown key type %#x", uint32(keyType))
	}
}

func readRSAPublicKey(r io.Reader, keyType KeyType, modulusSize int) (PublicKey, error) {
	modulus := make([]byte, modulusSize)
	if _, err := io.ReadFull(r, modulus); err != nil {
		return PublicKey{}, fmt.Errorf("ctr: read rsa modulus: %w", err)
	}
	var expBuf [4]byte
	if _, err := io.ReadFull(r, expBuf[:]); err != nil {
		return PublicKey{}, fmt.Errorf("ctr: read rsa exponent: %w", err)
	}
	pad := make([]byte, 0x34)
	if _, err := io.ReadFull(r, pad); err != nil {
		return PublicKey{}, fmt.Errorf("ctr: read rsa padding: %w", err)
	}
	return PublicKey{
		Type:           keyType,
		Modulus:        modulus,
		PublicExponent: binary.BigEndian.Uint32(expBuf[:]),
		RSAPadding:     pad,
	}, nil
}

func (p PublicKey) write(w io.Writer) error {
	switch p.Type {
	case KeyRsa4096, KeyRsa2048:
		if _, err := w.Write(p.Modulus); err != nil {
			return err
		}
		var expBuf [4]byte
		binary.BigEndian.PutUint32(expBuf[:], p.PublicExponent)
		if _, err := w.Write(expBuf[:]); err != nil {
			return err
		}
		_, err := w.Write(p.RSAPadding)
		return err
	case KeyEllipticCurve:
		if _, err := w.Write(p.ECPublicKey); err != nil {
			return err
		}
		_, err := w.Write(p.ECPadding)
		return err
	default:
		return fmt.Errorf("ctr: unknown key type %#x", uint32(p.Type))
	}
}

// Certificate is one link (Root, CA, TMD-signer, Ticket-signer, ...) of a
// CIA's certificate chain.
type Certificate struct {
	Signature      SignatureData
	Issuer         []byte
	KeyType        KeyType
	Name           []byte
	ExpirationTime uint32
	PublicKey      PublicKey
}

// ReadCertificate reads one Certificate, used while walking a CIA's
// certificate chain until a non-signature-type value is found.
func ReadCertificate(r io.Reader) (Certificate, error) {
	sig, err := readSignatureData(r)
	if err != nil {
		return Certificate{}, err
	}
	issuer := make([]byte, 0x40)
	if _, err := io.ReadFull(r, issuer); err != nil {
		return Certificate{}, fmt.Errorf("ctr: read certificate issuer: %w", err)
	}
	var keyTypeBuf [4]byte
	if _, err := io.ReadFull(r, keyTypeBuf[:]); err != nil {
		return Certificate{}, fmt.Errorf("ctr: read certificate key type: %w", err)
	}
	keyType := KeyType(binary.BigEndian.Uint32(keyTypeBuf[:]))
	name := make([]byte, 0x40)
	if _, err := io.ReadFull(r, name); err != nil {
		return Certificate{}, fmt.Errorf("ctr: read certificate name: %w", err)
	}
	var expBuf [4]byte
	if _, err := io.ReadFull(r, expBuf[:]); err != nil {
		return Certificate{}, fmt.Errorf("ctr: read certificate expiration: %w", err)
	}
	pub, err := readPublicKey(r, keyType)
	if err != nil {
		return Certificate{}, err
	}

	return Certificate{
		Signature:      sig,
		Issuer:         issuer,
		KeyType:        keyType,
		Name:           name,
		ExpirationTime: binary.BigEndian.Uint32(expBuf[:]),
		PublicKey:      pub,
	}, nil
}

// Write serializes c in the big-endian wire format.
func (c Certificate) Write(w io.Writer) error {
	if err := c.Signature.write(w); err != nil {
		return err
	}
	if _, err := w.Write(c.Issuer); err != nil {
		return err
	}
	var keyTypeBuf [4]byte
	binary.BigEndian.PutUint32(keyTypeBuf[:], uint32(c.KeyType))
	if _, err := w.Write(keyTypeBuf[:]); err != nil {
		return err
	}
	if _, err := w.Write(c.Name); err != nil {
		return err
	}
	var expBuf [4]byte
	binary.BigEndian.PutUint32(expBuf[:], c.ExpirationTime)
	if _, err := w.Write(expBuf[:]); err != nil {
		return err
	}
	return c.PublicKey.write(w)
}
