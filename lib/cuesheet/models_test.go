package cuesheet

import "testing"

func TestTrackTypeString(t *testing.T) {
	tests := []struct {
		tt   TrackType
		want string
	}{
		{TrackAudio, "AUDIO"},
		{TrackCDG, "CDG"},
		{TrackMode1_2048, "MODE1"},
		{TrackMode1_2352, "MODE1_RAW"},
		{TrackMode2_2336, "MODE2_FORM1"},
		{TrackMode2_2352, "MODE2_RAW"},
		{TrackCDI2336, "CDI/2336"},
		{TrackCDI2352, "CDI/2352"},
		{TrackUnknown, "MODE1_RAW"},
	}
	for _, tt := range tests {
		if got := tt.tt.String(); got != tt.want {
			t.Errorf("TrackType(%d).String() = %q, want %q", tt.tt, got, tt.want)
		}
	}
}

func TestTrackTypeSectorSize(t *testing.T) {
	tests := []struct {
		tt   TrackType
		want int
	}{
		{TrackAudio, 2352},
		{TrackMode1_2352, 2352},
		{TrackMode2_2352, 2352},
		{TrackCDI2352, 2352},
		{TrackMode1_2048, 2048},
		{TrackMode2_2336, 2336},
		{TrackCDG, 2336},
		{TrackCDI2336, 2336},
		{TrackUnknown, 2352},
	}
	for _, tt := range tests {
		if got := tt.tt.SectorSize(); got != tt.want {
			t.Errorf("TrackType(%d).SectorSize() = %d, want %d", tt.tt, got, tt.want)
		}
	}
}

func TestMSFToLBA(t *testing.T) {
	tests := []struct {
		m    MSF
		want int32
	}{
		{MSF{0, 2, 0}, 0},
		{MSF{0, 0, 0}, -150},
		{MSF{1, 0, 0}, 4350},
		{MSF{0, 4, 50}, 200},
	}
	for _, tt := range tests {
		if got := tt.m.ToLBA(); got != tt.want {
			t.Errorf("%+v.ToLBA() = %d, want %d", tt.m, got, tt.want)
		}
	}
}

func TestMSFString(t *testing.T) {
	m := MSF{Minutes: 1, Seconds: 2, Frames: 3}
	if got, want := m.String(), "01:02:03"; got != want {
		t.Errorf("MSF.String() = %q, want %q", got, want)
	}
}

func TestTrackIndex1LBA(t *testing.T) {
	tr := Track{
		Indices: []Index{
			{Number: 0, Position: MSF{0, 0, 0}},
			{Number: 1, Position: MSF{0, 4, 50}},
		},
	}
	if got, want := tr.Index1LBA(), int32(200); got != want {
		t.Errorf("Index1LBA() = %d, want %d", got, want)
	}
}

func TestTrackIndex1LBAAbsent(t *testing.T) {
	tr := Track{Indices: []Index{{Number: 0, Position: MSF{0, 0, 0}}}}
	if got := tr.Index1LBA(); got != 0 {
		t.Errorf("Index1LBA() = %d, want 0 when INDEX 01 is absent", got)
	}
}
