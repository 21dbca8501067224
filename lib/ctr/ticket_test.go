package ctr

import (
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"
)

func TestGenerateTicketFromCDN(t *testing.T) {
	dir := t.TempDir()

	tmd := testTMD()
	tmd.Header.TitleID = 0x000400000001ABCD
	tmd.Header.TitleVersion = 0x2A

	f, err := os.Create(filepath.Join(dir, "tmd"))
	if err != nil {
		t.Fatalf("create tmd: %v", err)
	}
	if err := tmd.Write(f); err != nil {
		f.Close()
		t.Fatalf("write tmd: %v", err)
	}
	f.Close()

	outPath := filepath.Join(dir, "ticket.tik")
	if err := GenerateTicketFromCDN(dir, outPath); err != nil {
		t.Fatalf("GenerateTicketFromCDN: %v", err)
	}

	tikFile, err := os.Open(outPath)
	if err != nil {
		t.Fatalf("open generated ticket: %v", err)
	}
	defer tikFile.Close()

	ticket, err := ReadTicket(tikFile)
	if err != nil {
		t.Fatalf("ReadTicket: %v", err)
	}
	if ticket.Data.TitleID != tmd.Header.TitleID {
		t.Errorf("ticket TitleID = %#x, want %#x", ticket.Data.TitleID, tmd.Header.TitleID)
	}
	if ticket.Data.TicketTitleVersion != tmd.Header.TitleVersion {
		t.Errorf("ticket TicketTitleVersion = %d, want %d", ticket.Data.TicketTitleVersion, tmd.Header.TitleVersion)
	}
	if ticket.Data.CommonKeyIndex != 0 {
		t.Errorf("ticket CommonKeyIndex = %d, want 0", ticket.Data.CommonKeyIndex)
	}

	wantTitleKey, err := GenerateTitleKey("000400000001ABCD", "")
	if err != nil {
		t.Fatalf("GenerateTitleKey: %v", err)
	}
	gotTitleKey := hex.EncodeToString(ticket.Data.TitleKey[:])
	if gotTitleKey != wantTitleKey {
		t.Errorf("ticket TitleKey = %s, want %s", gotTitleKey, wantTitleKey)
	}
}

func TestGenerateTicketFromCDNMissingTMD(t *testing.T) {
	if err := GenerateTicketFromCDN(t.TempDir(), filepath.Join(t.TempDir(), "ticket.tik")); err == nil {
		t.Error("expected error when no tmd file is present")
	}
}
