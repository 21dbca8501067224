package chdwriter

import (
	"strings"
	"testing"

	"github.com/sargunv/romconverto/lib/cuesheet"
)

func TestGenerateCDMetadataString(t *testing.T) {
	pregap := cuesheet.MSF{Minutes: 0, Seconds: 2, Frames: 0}
	tracks := []cuesheet.Track{
		{
			Number: 1,
			Type:   cuesheet.TrackAudio,
			Indices: []cuesheet.Index{
				{Number: 1, Position: cuesheet.MSF{Minutes: 0, Seconds: 0, Frames: 0}},
			},
		},
		{
			Number: 2,
			Type:   cuesheet.TrackMode1_2352,
			Pregap: &pregap,
			Indices: []cuesheet.Index{
				{Number: 1, Position: cuesheet.MSF{Minutes: 0, Seconds: 4, Frames: 50}},
			},
		},
	}

	got, err := generateCDMetadataString(tracks, 500)
	if err != nil {
		t.Fatalf("generateCDMetadataString: %v", err)
	}

	if !strings.Contains(got, "TRACK:1 TYPE:AUDIO SUBTYPE:NONE FRAMES:350 PREGAP:0 PGTYPE:V PGSUB:NONE POSTGAP:0") {
		t.Errorf("track 1 token missing or wrong: %s", got)
	}
	if !strings.Contains(got, "TRACK:2 TYPE:MODE1_RAW SUBTYPE:NONE FRAMES:150 PREGAP:150 PGTYPE:MODE1 PGSUB:NONE POSTGAP:0") {
		t.Errorf("track 2 token missing or wrong: %s", got)
	}
}

func TestGenerateCDMetadataStringNoTracks(t *testing.T) {
	if _, err := generateCDMetadataString(nil, 0); err == nil {
		t.Fatal("expected error for empty track list")
	}
}
