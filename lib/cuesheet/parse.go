package cuesheet

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrNoFileReferenced is returned by Parse when the descriptor names no
// binary file.
var ErrNoFileReferenced = fmt.Errorf("cuesheet: no file referenced in descriptor")

// Parse reads a CUE sheet from r, recognizing FILE, TRACK, INDEX, PREGAP,
// POSTGAP commands and REM comments (anything else is ignored, matching
// the "only the first referenced binary file is consumed" contract from
// spec.md §6). Invariants are validated before returning: track numbers
// strictly increase from 1, every track has an INDEX 1, and indices
// within a track are non-decreasing by MSF.
func Parse(r io.Reader) (*Sheet, error) {
	sheet := &Sheet{}
	var cur *Track

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields, err := tokenize(line)
		if err != nil {
			return nil, fmt.Errorf("cuesheet: line %d: %w", lineNo, err)
		}
		if len(fields) == 0 {
			continue
		}

		switch strings.ToUpper(fields[0]) {
		case "REM":
			continue

		case "FILE":
			if len(fields) < 3 {
				return nil, fmt.Errorf("cuesheet: line %d: malformed FILE command", lineNo)
			}
			ft, err := parseFileType(fields[2])
			if err != nil {
				return nil, fmt.Errorf("cuesheet: line %d: %w", lineNo, err)
			}
			sheet.Files = append(sheet.Files, File{Name: fields[1], Type: ft})

		case "TRACK":
			if len(fields) < 3 {
				return nil, fmt.Errorf("cuesheet: line %d: malformed TRACK command", lineNo)
			}
			if cur != nil {
				sheet.Tracks = append(sheet.Tracks, *cur)
			}
			num, err := strconv.ParseUint(fields[1], 10, 8)
			if err != nil {
				return nil, fmt.Errorf("cuesheet: line %d: invalid track number: %w", lineNo, err)
			}
			tt, err := parseTrackType(fields[2])
			if err != nil {
				return nil, fmt.Errorf("cuesheet: line %d: %w", lineNo, err)
			}
			cur = &Track{Number: uint8(num), Type: tt}

		case "INDEX":
			if cur == nil {
				return nil, fmt.Errorf("cuesheet: line %d: INDEX outside of TRACK", lineNo)
			}
			if len(fields) < 3 {
				return nil, fmt.Errorf("cuesheet: line %d: malformed INDEX command", lineNo)
			}
			num, err := strconv.ParseUint(fields[1], 10, 8)
			if err != nil {
				return nil, fmt.Errorf("cuesheet: line %d: invalid index number: %w", lineNo, err)
			}
			msf, err := parseMSF(fields[2])
			if err != nil {
				return nil, fmt.Errorf("cuesheet: line %d: %w", lineNo, err)
			}
			cur.Indices = append(cur.Indices, Index{Number: uint8(num), Position: msf})

		case "PREGAP":
			if cur == nil {
				return nil, fmt.Errorf("cuesheet: line %d: PREGAP outside of TRACK", lineNo)
			}
			if len(fields) < 2 {
				return nil, fmt.Errorf("cuesheet: line %d: malformed PREGAP command", lineNo)
			}
			msf, err := parseMSF(fields[1])
			if err != nil {
				return nil, fmt.Errorf("cuesheet: line %d: %w", lineNo, err)
			}
			cur.Pregap = &msf

		case "POSTGAP":
			if cur == nil {
				return nil, fmt.Errorf("cuesheet: line %d: POSTGAP outside of TRACK", lineNo)
			}
			if len(fields) < 2 {
				return nil, fmt.Errorf("cuesheet: line %d: malformed POSTGAP command", lineNo)
			}
			msf, err := parseMSF(fields[1])
			if err != nil {
				return nil, fmt.Errorf("cuesheet: line %d: %w", lineNo, err)
			}
			cur.Postgap = &msf

		default:
			// unrecognized command: ignored.
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("cuesheet: %w", err)
	}
	if cur != nil {
		sheet.Tracks = append(sheet.Tracks, *cur)
	}

	if len(sheet.Files) == 0 {
		return nil, ErrNoFileReferenced
	}
	if err := validate(sheet); err != nil {
		return nil, err
	}
	return sheet, nil
}

func validate(sheet *Sheet) error {
	var expected uint8 = 1
	for _, t := range sheet.Tracks {
		if t.Number != expected {
			return fmt.Errorf("cuesheet: track numbers must strictly increase from 1 (got %d, expected %d)", t.Number, expected)
		}
		expected++

		var haveIndex1 bool
		var last MSF
		haveLast := false
		for _, idx := range t.Indices {
			if idx.Number == 1 {
				haveIndex1 = true
			}
			if haveLast && idx.Position.ToLBA() < last.ToLBA() {
				return fmt.Errorf("cuesheet: track %d: indices must be non-decreasing by MSF", t.Number)
			}
			last = idx.Position
			haveLast = true
		}
		if !haveIndex1 {
			return fmt.Errorf("cuesheet: track %d: missing INDEX 01", t.Number)
		}
	}
	return nil
}

// tokenize splits a line into whitespace-separated fields, treating
// "double quoted strings" as a single field.
func tokenize(line string) ([]string, error) {
	var fields []string
	var cur strings.Builder
	inQuote := false
	flush := func() {
		if cur.Len() > 0 {
			fields = append(fields, cur.String())
			cur.Reset()
		}
	}
	for _, r := range line {
		switch {
		case r == '"':
			if inQuote {
				flush()
			}
			inQuote = !inQuote
		case r == ' ' && !inQuote:
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	if inQuote {
		return nil, fmt.Errorf("unterminated quoted string")
	}
	flush()
	return fields, nil
}

func parseFileType(s string) (FileType, error) {
	switch strings.ToUpper(s) {
	case "BINARY":
		return FileBinary, nil
	case "MOTOROLA":
		return FileMotorola, nil
	case "AIFF":
		return FileAiff, nil
	case "WAVE":
		return FileWave, nil
	case "MP3":
		return FileMP3, nil
	default:
		return FileUnknown, fmt.Errorf("unknown file type: %s", s)
	}
}

func parseTrackType(s string) (TrackType, error) {
	switch strings.ToUpper(s) {
	case "AUDIO":
		return TrackAudio, nil
	case "CDG":
		return TrackCDG, nil
	case "MODE1/2048":
		return TrackMode1_2048, nil
	case "MODE1/2352":
		return TrackMode1_2352, nil
	case "MODE2/2336":
		return TrackMode2_2336, nil
	case "MODE2/2352":
		return TrackMode2_2352, nil
	case "CDI/2336":
		return TrackCDI2336, nil
	case "CDI/2352":
		return TrackCDI2352, nil
	default:
		return TrackUnknown, fmt.Errorf("unknown track type: %s", s)
	}
}

func parseMSF(s string) (MSF, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return MSF{}, fmt.Errorf("invalid MSF format: %s", s)
	}
	var vals [3]uint64
	for i, p := range parts {
		v, err := strconv.ParseUint(p, 10, 8)
		if err != nil {
			return MSF{}, fmt.Errorf("invalid MSF format: %s", s)
		}
		vals[i] = v
	}
	return MSF{Minutes: uint8(vals[0]), Seconds: uint8(vals[1]), Frames: uint8(vals[2])}, nil
}
