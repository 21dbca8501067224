package ctr

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ConvertCDNToCIAOptions configures a CDN-directory-to-CIA conversion.
type ConvertCDNToCIAOptions struct {
	CDNDir             string
	Output             string // defaults to CDNDir's base name + ".cia" alongside CDNDir
	EnsureTicketExists bool   // generate a ticket.tik via GenerateTicketFromCDN if none is found
	Decrypt            bool   // re-encode the CIA as a decrypted archive after packing
	Cleanup            bool   // remove CDNDir once the CIA has been written
}

// ConvertCDNToCIA packs a Nintendo CDN content directory (a TMD, a ticket,
// and numbered content files) into a single CIA archive. Grounded on
// original_source/src/nintendo/ctr/mod.rs's convert_cdn_to_cia_single.
func ConvertCDNToCIA(opts ConvertCDNToCIAOptions) (string, error) {
	output := opts.Output
	if output == "" {
		name := filepath.Base(opts.CDNDir) + ".cia"
		output = filepath.Join(filepath.Dir(opts.CDNDir), name)
	}

	ticketPath, err := FindTitleFile(opts.CDNDir)
	if err != nil {
		if !opts.EnsureTicketExists {
			return "", err
		}
		ticketPath = filepath.Join(opts.CDNDir, "ticket.tik")
		if err := GenerateTicketFromCDN(opts.CDNDir, ticketPath); err != nil {
			return "", err
		}
	}

	tmdPath, err := FindTMDFile(opts.CDNDir)
	if err != nil {
		return "", err
	}

	tmdFile, err := os.Open(tmdPath)
	if err != nil {
		return "", fmt.Errorf("ctr: open tmd: %w", err)
	}
	tmd, err := ReadTitleMetadata(tmdFile)
	tmdFile.Close()
	if err != nil {
		return "", fmt.Errorf("ctr: read tmd: %w", err)
	}

	tikFile, err := os.Open(ticketPath)
	if err != nil {
		return "", fmt.Errorf("ctr: open ticket: %w", err)
	}
	ticket, err := ReadTicket(tikFile)
	tikFile.Close()
	if err != nil {
		return "", fmt.Errorf("ctr: read ticket: %w", err)
	}

	if ticket.Data.TitleID != tmd.Header.TitleID {
		fmt.Fprintf(os.Stderr, "warning: ticket and tmd title ids do not match: ticket=0x%016X tmd=0x%016X\n", ticket.Data.TitleID, tmd.Header.TitleID)
	}

	out, err := os.Create(output)
	if err != nil {
		return "", fmt.Errorf("ctr: create cia: %w", err)
	}
	w := bufio.NewWriter(out)
	writeErr := WriteCIA(opts.CDNDir, w, tmdPath, ticketPath, tmd, ticket)
	flushErr := w.Flush()
	closeErr := out.Close()
	if writeErr != nil {
		return "", writeErr
	}
	if flushErr != nil {
		return "", flushErr
	}
	if closeErr != nil {
		return "", closeErr
	}

	if opts.Decrypt {
		decryptedPath := strings.TrimSuffix(output, filepath.Ext(output)) + "-decrypted.cia"
		if err := DecryptFromEncryptedCIA(output, decryptedPath); err != nil {
			return "", err
		}
		if err := os.Remove(output); err != nil {
			return "", err
		}
		if err := os.Rename(decryptedPath, output); err != nil {
			return "", err
		}
	}

	if opts.Cleanup {
		if err := os.RemoveAll(opts.CDNDir); err != nil {
			return "", err
		}
	}

	return output, nil
}

// writePadded writes buf to w, then pads w's running offset up to the
// next 64-byte boundary. *offset tracks bytes written so far.
func writePadded(w *bufio.Writer, offset *int64, buf []byte) error {
	if _, err := w.Write(buf); err != nil {
		return err
	}
	*offset += int64(len(buf))
	aligned := int64(Align64(uint64(*offset)))
	if gap := aligned - *offset; gap > 0 {
		if _, err := w.Write(make([]byte, gap)); err != nil {
			return err
		}
		*offset = aligned
	}
	return nil
}

// WriteCIA assembles a CIA archive from a CDN content directory's TMD and
// ticket, concatenating the numbered content files it lists and merging
// the two files' embedded certificate chains. Grounded on
// original_source/src/nintendo/ctr/cia.rs's write_cia.
func WriteCIA(cdnDir string, w *bufio.Writer, tmdPath, tikPath string, tmd TitleMetadata, tik Ticket) error {
	var content []byte
	for _, chunk := range tmd.ContentChunkRecords {
		contentPath := filepath.Join(cdnDir, fmt.Sprintf("%08x", chunk.ContentID))
		bytes, err := os.ReadFile(contentPath)
		if err != nil {
			return fmt.Errorf("ctr: read content %08x: %w", chunk.ContentID, err)
		}
		content = append(content, bytes...)
	}

	tmdCerts, err := ReadCertificateChain(tmdPath)
	if err != nil {
		return err
	}
	tikCerts, err := ReadCertificateChain(tikPath)
	if err != nil {
		return err
	}
	certChain := MergeCertificateChains(tmdCerts, tikCerts)

	var tmdBuf bytes.Buffer
	if err := tmd.Write(&tmdBuf); err != nil {
		return fmt.Errorf("ctr: serialize tmd: %w", err)
	}
	var tikBuf bytes.Buffer
	if err := tik.Write(&tikBuf); err != nil {
		return fmt.Errorf("ctr: serialize ticket: %w", err)
	}
	var certBuf bytes.Buffer
	for _, cert := range certChain {
		if err := cert.Write(&certBuf); err != nil {
			return fmt.Errorf("ctr: serialize certificate: %w", err)
		}
	}

	const certChainSize = 2560

	header := CiaHeader{
		HeaderSize:    CiaHeaderSize,
		CiaType:       0,
		Version:       0,
		CertChainSize: certChainSize,
		TicketSize:    uint32(tikBuf.Len()),
		TmdSize:       uint32(tmdBuf.Len()),
		MetaSize:      0,
		ContentSize:   uint64(len(content)),
	}
	for _, chunk := range tmd.ContentChunkRecords {
		header.SetContentIndex(int(chunk.ContentIndex))
	}

	if err := header.Write(w); err != nil {
		return err
	}
	offset := int64(CiaHeaderSize)

	certPadded := make([]byte, certChainSize)
	copy(certPadded, certBuf.Bytes())
	if err := writePadded(w, &offset, certPadded); err != nil {
		return err
	}
	if err := writePadded(w, &offset, tikBuf.Bytes()); err != nil {
		return err
	}
	if err := writePadded(w, &offset, tmdBuf.Bytes()); err != nil {
		return err
	}
	if _, err := w.Write(content); err != nil {
		return err
	}

	return nil
}
