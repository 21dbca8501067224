package ctr

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"strings"
)

// ReadCertificateChain reads the certificate chain trailing a TMD or
// Ticket file: it skips past whichever structure parses first, then reads
// Certificate entries back to back until EOF or an invalid signature type
// is seen. Grounded on cia.rs's read_certificate_chain.
func ReadCertificateChain(path string) ([]Certificate, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ctr: read certificate chain: %w", err)
	}

	r := bytes.NewReader(content)
	if _, err := ReadTitleMetadata(r); err != nil {
		if _, err := r.Seek(0, 0); err != nil {
			return nil, err
		}
		if _, err := ReadTicket(r); err != nil {
			return nil, fmt.Errorf("ctr: %s is neither a tmd nor a ticket", path)
		}
	}

	return readCertificateSequence(r), nil
}

// readCertificateSequence reads Certificate entries back to back from r's
// current position until EOF or an invalid signature type is seen.
func readCertificateSequence(r *bytes.Reader) []Certificate {
	var certs []Certificate
	for r.Len() >= 4 {
		pos, _ := r.Seek(0, 1)
		var typeBuf [4]byte
		if _, err := r.Read(typeBuf[:]); err != nil {
			break
		}
		if _, err := r.Seek(pos, 0); err != nil {
			break
		}
		sigType := binary.BigEndian.Uint32(typeBuf[:])
		if !IsValidSignatureType(sigType) {
			break
		}
		cert, err := ReadCertificate(r)
		if err != nil {
			break
		}
		certs = append(certs, cert)
	}
	return certs
}

// MergeCertificateChains picks exactly one CA, one XS (ticket-signer) and
// one CP (TMD-signer) certificate out of the TMD's and ticket's chains,
// deduplicating by name. Grounded on cia.rs's merge_certificate_chains.
func MergeCertificateChains(tmdCerts, tikCerts []Certificate) []Certificate {
	var merged []Certificate
	seen := make(map[string]bool)

	certName := func(c Certificate) string {
		return strings.TrimRight(string(c.Name), "\x00")
	}

	all := append(append([]Certificate{}, tmdCerts...), tikCerts...)
	for _, c := range all {
		name := certName(c)
		if strings.HasPrefix(name, "CA") && !seen[name] {
			seen[name] = true
			merged = append(merged, c)
			break
		}
	}

	for _, c := range tikCerts {
		name := certName(c)
		if strings.HasPrefix(name, "XS") && !seen[name] {
			seen[name] = true
			merged = append(merged, c)
			break
		}
	}

	for _, c := range tmdCerts {
		name := certName(c)
		if strings.HasPrefix(name, "CP") && !seen[name] {
			seen[name] = true
			merged = append(merged, c)
			break
		}
	}

	return merged
}
