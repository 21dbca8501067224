package cuesheet

import (
	"strings"
	"testing"
)

const sampleCue = `FILE "game.bin" BINARY
  TRACK 01 AUDIO
    INDEX 01 00:00:00
  TRACK 02 MODE1/2352
    PREGAP 00:02:00
    INDEX 01 00:04:50
`

func TestParse(t *testing.T) {
	sheet, err := Parse(strings.NewReader(sampleCue))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(sheet.Files) != 1 || sheet.Files[0].Name != "game.bin" || sheet.Files[0].Type != FileBinary {
		t.Fatalf("unexpected files: %+v", sheet.Files)
	}
	if len(sheet.Tracks) != 2 {
		t.Fatalf("expected 2 tracks, got %d", len(sheet.Tracks))
	}
	if sheet.Tracks[0].Type != TrackAudio || sheet.Tracks[0].Index1LBA() != 0 {
		t.Errorf("track 1: %+v", sheet.Tracks[0])
	}
	if sheet.Tracks[1].Type != TrackMode1_2352 {
		t.Errorf("track 2 type: %v", sheet.Tracks[1].Type)
	}
	if sheet.Tracks[1].Pregap == nil || sheet.Tracks[1].Pregap.ToLBA() != 150 {
		t.Errorf("track 2 pregap: %+v", sheet.Tracks[1].Pregap)
	}
	if lba := sheet.Tracks[1].Index1LBA(); lba != 350 {
		t.Errorf("track 2 index1 LBA = %d, want 350", lba)
	}
}

func TestParseNoFile(t *testing.T) {
	_, err := Parse(strings.NewReader("TRACK 01 AUDIO\n  INDEX 01 00:00:00\n"))
	if err != ErrNoFileReferenced {
		t.Fatalf("expected ErrNoFileReferenced, got %v", err)
	}
}

func TestParseTrackNumberingGap(t *testing.T) {
	bad := `FILE "a.bin" BINARY
  TRACK 01 AUDIO
    INDEX 01 00:00:00
  TRACK 03 AUDIO
    INDEX 01 00:05:00
`
	if _, err := Parse(strings.NewReader(bad)); err == nil {
		t.Fatal("expected error for non-sequential track numbers")
	}
}

func TestParseMissingIndex1(t *testing.T) {
	bad := `FILE "a.bin" BINARY
  TRACK 01 AUDIO
    INDEX 00 00:00:00
`
	if _, err := Parse(strings.NewReader(bad)); err == nil {
		t.Fatal("expected error for missing INDEX 01")
	}
}

func TestMSFToLBA(t *testing.T) {
	m := MSF{Minutes: 0, Seconds: 2, Frames: 0}
	if got := m.ToLBA(); got != 0 {
		t.Errorf("00:02:00 -> LBA = %d, want 0", got)
	}
}
