package chdwriter

import (
	"fmt"
	"strings"

	"github.com/sargunv/romconverto/lib/cuesheet"
)

// generateCDMetadataString builds the CHT2 metadata payload: one
// space-separated "TRACK:n TYPE:t SUBTYPE:NONE FRAMES:f PREGAP:p
// PGTYPE:g PGSUB:NONE POSTGAP:0" token per track, grounded on
// original_source/src/chd/writer/metadata.rs's generate_cd_metadata.
func generateCDMetadataString(tracks []cuesheet.Track, totalFrames uint32) (string, error) {
	if len(tracks) == 0 {
		return "", fmt.Errorf("chdwriter: no tracks in descriptor")
	}

	var parts []string
	for i, t := range tracks {
		start := t.Index1LBA()

		var end int32
		if i+1 < len(tracks) {
			end = tracks[i+1].Index1LBA()
		} else {
			end = int32(totalFrames)
		}
		frames := end - start
		if frames < 0 {
			return "", fmt.Errorf("chdwriter: track %d: negative frame count", t.Number)
		}

		var pregap int32
		if t.Pregap != nil {
			pregap = t.Pregap.ToLBA()
		}
		pgtype := "V"
		if pregap > 0 {
			pgtype = "MODE1"
		}

		parts = append(parts, fmt.Sprintf(
			"TRACK:%d TYPE:%s SUBTYPE:NONE FRAMES:%d PREGAP:%d PGTYPE:%s PGSUB:NONE POSTGAP:0",
			t.Number, t.Type.String(), frames, pregap, pgtype,
		))
	}

	return strings.Join(parts, " "), nil
}
