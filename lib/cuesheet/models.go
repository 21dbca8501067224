// Package cuesheet parses the line-oriented CUE descriptor format that
// describes a CD-ROM image's track layout: the binary file reference and
// an ordered list of tracks, each with indices and optional pre/post-gaps.
package cuesheet

import "fmt"

// FileType is the storage format named by a CUE sheet's FILE command.
// Only Binary files are consumed by the CHD writer; the others are
// recognized but rejected at the point of use.
type FileType int

const (
	FileUnknown FileType = iota
	FileBinary
	FileMotorola
	FileAiff
	FileWave
	FileMP3
)

// File is one CUE FILE entry.
type File struct {
	Name string
	Type FileType
}

// TrackType is the sector layout named by a CUE TRACK command.
type TrackType int

const (
	TrackUnknown TrackType = iota
	TrackAudio
	TrackCDG
	TrackMode1_2048
	TrackMode1_2352
	TrackMode2_2336
	TrackMode2_2352
	TrackCDI2336
	TrackCDI2352
)

// String renders the CHD metadata TYPE token for t.
func (t TrackType) String() string {
	switch t {
	case TrackAudio:
		return "AUDIO"
	case TrackCDG:
		return "CDG"
	case TrackMode1_2048:
		return "MODE1"
	case TrackMode1_2352:
		return "MODE1_RAW"
	case TrackMode2_2336:
		return "MODE2_FORM1"
	case TrackMode2_2352:
		return "MODE2_RAW"
	case TrackCDI2336:
		return "CDI/2336"
	case TrackCDI2352:
		return "CDI/2352"
	default:
		return "MODE1_RAW"
	}
}

// SectorSize returns the on-disk sector size in bytes for t.
func (t TrackType) SectorSize() int {
	switch t {
	case TrackAudio, TrackMode1_2352, TrackMode2_2352, TrackCDI2352:
		return 2352
	case TrackMode1_2048:
		return 2048
	case TrackMode2_2336, TrackCDG, TrackCDI2336:
		return 2336
	default:
		return 2352
	}
}

// MSF is a minutes:seconds:frames CD position.
type MSF struct {
	Minutes, Seconds, Frames uint8
}

// ToLBA converts m to a linear block address: LBA = (m*60+s)*75+f-150.
func (m MSF) ToLBA() int32 {
	return int32(m.Minutes)*60*75 + int32(m.Seconds)*75 + int32(m.Frames) - 150
}

func (m MSF) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", m.Minutes, m.Seconds, m.Frames)
}

// Index is one INDEX command within a track.
type Index struct {
	Number   uint8
	Position MSF
}

// Track is one TRACK command and its associated indices/gaps.
type Track struct {
	Number  uint8
	Type    TrackType
	Indices []Index
	Pregap  *MSF
	Postgap *MSF
}

// Index1LBA returns the LBA of this track's INDEX 01, or 0 if absent.
func (t Track) Index1LBA() int32 {
	for _, idx := range t.Indices {
		if idx.Number == 1 {
			return idx.Position.ToLBA()
		}
	}
	return 0
}

// Sheet is a fully parsed CUE descriptor.
type Sheet struct {
	Files  []File
	Tracks []Track
}
