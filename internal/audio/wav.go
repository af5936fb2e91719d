// Package audio contains helpers for inspecting the WAV containers produced
// by the synthesis engine.
package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var ErrInvalidWAV = errors.New("invalid WAV data")

// DurationSeconds computes the playback duration of a WAV file from its frame
// count and sample rate, walking the RIFF chunks to find fmt and data. The
// duration is exact container math, not an estimate from the text length.
func DurationSeconds(data []byte) (float64, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return 0, fmt.Errorf("%w: missing RIFF/WAVE header", ErrInvalidWAV)
	}

	var sampleRate uint32
	var blockAlign uint16
	var dataSize uint32
	haveFmt, haveData := false, false

	offset := 12
	for offset+8 <= len(data) {
		chunkID := string(data[offset : offset+4])
		chunkSize := binary.LittleEndian.Uint32(data[offset+4 : offset+8])
		body := offset + 8

		switch chunkID {
		case "fmt ":
			if body+16 > len(data) {
				return 0, fmt.Errorf("%w: truncated fmt chunk", ErrInvalidWAV)
			}
			sampleRate = binary.LittleEndian.Uint32(data[body+4 : body+8])
			blockAlign = binary.LittleEndian.Uint16(data[body+12 : body+14])
			haveFmt = true
		case "data":
			dataSize = chunkSize
			haveData = true
		}

		// Chunks are word-aligned.
		offset = body + int(chunkSize)
		if chunkSize%2 == 1 {
			offset++
		}
	}

	if !haveFmt || !haveData {
		return 0, fmt.Errorf("%w: missing fmt or data chunk", ErrInvalidWAV)
	}
	if sampleRate == 0 || blockAlign == 0 {
		return 0, fmt.Errorf("%w: zero sample rate or block align", ErrInvalidWAV)
	}

	frames := dataSize / uint32(blockAlign)
	return float64(frames) / float64(sampleRate), nil
}
