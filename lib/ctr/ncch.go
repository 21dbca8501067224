package ctr

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// NCCHSection identifies one of an NCCH partition's three AES-CTR-keyed
// regions, and doubles as the section byte baked into the v0/v2 AES
// counter construction.
type NCCHSection uint8

const (
	SectionExHeader NCCHSection = 1
	SectionExeFS    NCCHSection = 2
	SectionRomFS    NCCHSection = 3
)

const ncchChunkSize = 32 * 1024 * 1024

// ExtraCryptoIndex maps an NCCH's flags[3] extra-crypto selector byte onto
// an index into Keys0, grounded on decrypt/cia.rs's extra_crypto_index.
func ExtraCryptoIndex(usesExtraCrypto uint8) int {
	switch usesExtraCrypto {
	case 0:
		return 0
	case 1:
		return 1
	case 10:
		return 2
	case 11:
		return 3
	default:
		return 0
	}
}

// DeriveCTRKey scrambles keyX/keyY into the AES-CTR key used for an
// NCCH section, equivalent to derive_ctr_key in decrypt/cia.rs.
func DeriveCTRKey(keyX, keyY [16]byte) [16]byte {
	return Scramble(keyX, keyY)
}

// FixedKey returns the raw (unscrambled) fixed-crypto key for slot 1 or 2,
// or ok=false when fixedCrypto is 0 (fixed-key crypto unused).
func FixedKey(fixedCrypto uint8) (key [16]byte, ok bool) {
	if fixedCrypto == 0 {
		return [16]byte{}, false
	}
	return Keys1[fixedCrypto-1], true
}

// GetNCCHAESCounter builds the 16-byte big-endian AES-CTR counter for one
// NCCH section, following the format-version-dependent construction in
// decrypt/cia.rs's get_ncch_aes_counter.
func GetNCCHAESCounter(hdr NcchHeader, section NCCHSection) [16]byte {
	var counter [16]byte
	switch hdr.FormatVersion {
	case 0, 2:
		titleID := hdr.ProgramID
		reversed := reverseBytes8(titleID)
		copy(counter[0:8], reversed[:])
		counter[8] = byte(section)
	case 1:
		var x uint32
		switch section {
		case SectionExHeader:
			x = 512
		case SectionExeFS:
			x = hdr.ExeFSOffset * MediaUnitSize
		case SectionRomFS:
			x = hdr.RomFSOffset * MediaUnitSize
		}
		copy(counter[0:8], hdr.ProgramID[:])
		for i := 0; i < 4; i++ {
			counter[12+i] = byte(x >> ((3 - i) * 8))
		}
	}
	return counter
}

func reverseBytes8(b [8]byte) [8]byte {
	var out [8]byte
	for i := range b {
		out[7-i] = b[i]
	}
	return out
}

// advanceToOffset reads and forwards the gap between the writer's current
// position and targetOffset unmodified, except for a single-byte patch at
// stream position 512 (the NCCH header's crypto-flags byte, cleared so the
// repacked file's header reflects its now-decrypted contents).
func advanceToOffset(w *bufio.Writer, written *int64, cia *CiaReader, targetOffset int64) error {
	gap := targetOffset - *written
	if gap <= 0 {
		return nil
	}
	buf := make([]byte, gap)
	if err := cia.Read(buf); err != nil {
		return fmt.Errorf("ctr: read gap before section: %w", err)
	}
	if *written == 512 {
		buf[1] = 0x00
	}
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("ctr: write gap before section: %w", err)
	}
	*written += gap
	return nil
}

func copyPlainSection(cia *CiaReader, w *bufio.Writer, written *int64, size uint32) error {
	remaining := size
	for remaining > ncchChunkSize {
		buf := make([]byte, ncchChunkSize)
		if err := cia.Read(buf); err != nil {
			return fmt.Errorf("ctr: read plain chunk: %w", err)
		}
		if _, err := w.Write(buf); err != nil {
			return fmt.Errorf("ctr: write plain chunk: %w", err)
		}
		remaining -= ncchChunkSize
		*written += ncchChunkSize
	}
	if remaining > 0 {
		buf := make([]byte, remaining)
		if err := cia.Read(buf); err != nil {
			return fmt.Errorf("ctr: read final plain chunk: %w", err)
		}
		if _, err := w.Write(buf); err != nil {
			return fmt.Errorf("ctr: write final plain chunk: %w", err)
		}
		*written += int64(remaining)
	}
	return nil
}

func writeExHeaderSection(cia *CiaReader, w *bufio.Writer, written *int64, size uint32, ctr [16]byte, baseKey [16]byte, fixedCrypto uint8) error {
	key := baseKey
	if fixed, ok := FixedKey(fixedCrypto); ok {
		key = fixed
	}

	buf := make([]byte, size)
	if err := cia.Read(buf); err != nil {
		return fmt.Errorf("ctr: read exheader: %w", err)
	}
	stream, err := NewCTRStream(key, ctr)
	if err != nil {
		return err
	}
	stream.XORKeyStream(buf, buf)
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("ctr: write exheader: %w", err)
	}
	*written += int64(size)
	return nil
}

type exefsDecryptOptions struct {
	size             uint32
	ctr              [16]byte
	baseKey          [16]byte
	usesExtraCrypto  uint8
	fixedCrypto      uint8
	useSeedCrypto    bool
	keyY             [16]byte
}

func writeExeFSSection(cia *CiaReader, w *bufio.Writer, written *int64, opts exefsDecryptOptions) error {
	workingKey := opts.baseKey
	if fixed, ok := FixedKey(opts.fixedCrypto); ok {
		workingKey = fixed
	}

	encrypted := make([]byte, opts.size)
	if err := cia.Read(encrypted); err != nil {
		return fmt.Errorf("ctr: read exefs: %w", err)
	}

	decrypted := make([]byte, len(encrypted))
	copy(decrypted, encrypted)
	stream, err := NewCTRStream(workingKey, opts.ctr)
	if err != nil {
		return err
	}
	stream.XORKeyStream(decrypted, decrypted)

	if opts.usesExtraCrypto != 0 || opts.useSeedCrypto {
		extraDecrypted := make([]byte, len(encrypted))
		copy(extraDecrypted, encrypted)
		extraKey := DeriveCTRKey(Keys0[ExtraCryptoIndex(opts.usesExtraCrypto)], opts.keyY)
		extraStream, err := NewCTRStream(extraKey, opts.ctr)
		if err != nil {
			return err
		}
		extraStream.XORKeyStream(extraDecrypted, extraDecrypted)

		for i := 0; i < ExeFSHeaderEntryCount; i++ {
			var fe ExeFSFileEntry
			copy(fe.FileName[:], decrypted[i*16:i*16+8])
			copy(fe.FileOffset[:], decrypted[i*16+8:i*16+12])
			copy(fe.FileSize[:], decrypted[i*16+12:i*16+16])

			offset := int(fe.Offset()) + 512
			size := int(fe.Size())
			if size == 0 || offset+size > len(decrypted) {
				continue
			}
			if usesExtraCryptoName(fe.Name()) {
				copy(decrypted[offset:offset+size], extraDecrypted[offset:offset+size])
			}
		}
	}

	if _, err := w.Write(decrypted); err != nil {
		return fmt.Errorf("ctr: write exefs: %w", err)
	}
	*written += int64(len(decrypted))
	return nil
}

func writeRomFSSection(cia *CiaReader, w *bufio.Writer, written *int64, size uint32, ctr [16]byte, usesExtraCrypto, fixedCrypto uint8, keyY [16]byte) error {
	key := DeriveCTRKey(Keys0[ExtraCryptoIndex(usesExtraCrypto)], keyY)
	if fixed, ok := FixedKey(fixedCrypto); ok {
		key = fixed
	}

	stream, err := NewCTRStream(key, ctr)
	if err != nil {
		return err
	}

	remaining := size
	for remaining > ncchChunkSize {
		buf := make([]byte, ncchChunkSize)
		if err := cia.Read(buf); err != nil {
			return fmt.Errorf("ctr: read romfs chunk: %w", err)
		}
		if cia.cidx > 0 && !(cia.SingleNCCH || cia.FromNCSD) {
			buf[1] ^= byte(cia.cidx)
		}
		stream.XORKeyStream(buf, buf)
		if _, err := w.Write(buf); err != nil {
			return fmt.Errorf("ctr: write romfs chunk: %w", err)
		}
		remaining -= ncchChunkSize
		*written += ncchChunkSize
	}
	if remaining > 0 {
		buf := make([]byte, remaining)
		if err := cia.Read(buf); err != nil {
			return fmt.Errorf("ctr: read final romfs chunk: %w", err)
		}
		if cia.cidx > 0 && !(cia.SingleNCCH || cia.FromNCSD) {
			buf[1] ^= byte(cia.cidx)
		}
		stream.XORKeyStream(buf, buf)
		if _, err := w.Write(buf); err != nil {
			return fmt.Errorf("ctr: write final romfs chunk: %w", err)
		}
		*written += int64(remaining)
	}
	return nil
}

type ncchWriteOptions struct {
	offset          int64
	size            uint32
	section         NCCHSection
	counter         [16]byte
	usesExtraCrypto uint8
	fixedCrypto     uint8
	useSeedCrypto   bool
	encrypted       bool
	keyX            [16]byte
	keyY            [16]byte
}

func writeNCCHSection(ncch *os.File, cia *CiaReader, written *int64, opts ncchWriteOptions) error {
	w := bufio.NewWriter(ncch)

	if err := advanceToOffset(w, written, cia, opts.offset); err != nil {
		return err
	}

	if !opts.encrypted {
		if err := copyPlainSection(cia, w, written, opts.size); err != nil {
			return err
		}
		return w.Flush()
	}

	baseKey := DeriveCTRKey(Keys0[0], opts.keyX)

	var err error
	switch opts.section {
	case SectionExHeader:
		err = writeExHeaderSection(cia, w, written, opts.size, opts.counter, baseKey, opts.fixedCrypto)
	case SectionExeFS:
		err = writeExeFSSection(cia, w, written, exefsDecryptOptions{
			size:            opts.size,
			ctr:             opts.counter,
			baseKey:         baseKey,
			usesExtraCrypto: opts.usesExtraCrypto,
			fixedCrypto:     opts.fixedCrypto,
			useSeedCrypto:   opts.useSeedCrypto,
			keyY:            opts.keyY,
		})
	case SectionRomFS:
		err = writeRomFSSection(cia, w, written, opts.size, opts.counter, opts.usesExtraCrypto, opts.fixedCrypto, opts.keyY)
	}
	if err != nil {
		return err
	}
	return w.Flush()
}

// ParseNCCH streams one NCCH partition out of cia (positioned via offs,
// relative to the content start) into a freshly created, fully decrypted
// .ncch file alongside the source CIA/3DS file. titleID is the outer CIA's
// title ID, used as a fallback when the NCCH's own program ID is zeroed.
func ParseNCCH(cia *CiaReader, offs uint64, titleID [8]byte, contentID uint32, cidx uint16, fromNCSD bool) (string, error) {
	if err := cia.Seek(offs); err != nil {
		return "", fmt.Errorf("ctr: seek to ncch: %w", err)
	}

	tmp := make([]byte, NcchHeaderSize)
	if err := cia.Read(tmp); err != nil {
		return "", fmt.Errorf("ctr: read ncch header: %w", err)
	}
	header, err := ParseNCCHHeader(tmp)
	if err != nil {
		return "", err
	}

	if titleID == ([8]byte{}) {
		titleID = reverseBytes8(header.ProgramID)
	}

	ncchKeyY := header.KeyY()
	tid := reverseBytes8(header.ProgramID)

	usesExtraCrypto := header.UsesExtraCrypto()
	fixedCrypto := header.FixedCryptoKeySlot(tid)
	encrypted := header.Encrypted()
	useSeedCrypto := header.UsesSeedCrypto()

	keyY := ncchKeyY
	if useSeedCrypto {
		keyY, err = GetNewKey(ncchKeyY, header, hex.EncodeToString(titleID[:]))
		if err != nil {
			return "", fmt.Errorf("ctr: derive seed key: %w", err)
		}
	}

	base := strings.TrimSuffix(filepath.Base(cia.Path()), filepath.Ext(cia.Path()))
	partLabel := strconv.Itoa(int(cidx))
	if fromNCSD && int(cidx) < len(NCSDPartitionNames) {
		partLabel = NCSDPartitionNames[cidx]
	}
	outPath := filepath.Join(filepath.Dir(cia.Path()), fmt.Sprintf("%s.%s.%08X.ncch", base, partLabel, contentID))

	ncch, err := os.Create(outPath)
	if err != nil {
		return "", fmt.Errorf("ctr: create ncch output: %w", err)
	}
	defer ncch.Close()

	tmp[399] = tmp[399]&2 | 4
	if _, err := ncch.Write(tmp); err != nil {
		return "", fmt.Errorf("ctr: write ncch header: %w", err)
	}
	written := int64(NcchHeaderSize)

	if header.ExHeaderSize != 0 {
		counter := GetNCCHAESCounter(header, SectionExHeader)
		if err := writeNCCHSection(ncch, cia, &written, ncchWriteOptions{
			offset: 512, size: header.ExHeaderSize * 2, section: SectionExHeader, counter: counter,
			usesExtraCrypto: usesExtraCrypto, fixedCrypto: fixedCrypto, useSeedCrypto: useSeedCrypto,
			encrypted: encrypted, keyX: ncchKeyY, keyY: keyY,
		}); err != nil {
			return "", err
		}
	}

	if header.ExeFSSize != 0 {
		counter := GetNCCHAESCounter(header, SectionExeFS)
		if err := writeNCCHSection(ncch, cia, &written, ncchWriteOptions{
			offset: int64(header.ExeFSOffset) * MediaUnitSize, size: header.ExeFSSize * MediaUnitSize,
			section: SectionExeFS, counter: counter,
			usesExtraCrypto: usesExtraCrypto, fixedCrypto: fixedCrypto, useSeedCrypto: useSeedCrypto,
			encrypted: encrypted, keyX: ncchKeyY, keyY: keyY,
		}); err != nil {
			return "", err
		}
	}

	if header.RomFSSize != 0 {
		counter := GetNCCHAESCounter(header, SectionRomFS)
		if err := writeNCCHSection(ncch, cia, &written, ncchWriteOptions{
			offset: int64(header.RomFSOffset) * MediaUnitSize, size: header.RomFSSize * MediaUnitSize,
			section: SectionRomFS, counter: counter,
			usesExtraCrypto: usesExtraCrypto, fixedCrypto: fixedCrypto, useSeedCrypto: useSeedCrypto,
			encrypted: encrypted, keyX: ncchKeyY, keyY: keyY,
		}); err != nil {
			return "", err
		}
	}

	return outPath, nil
}
