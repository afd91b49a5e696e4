package audio

import (
	"bytes"

	"github.com/codebuildervaibhav/audio-spectrogram/internal/types"
)

// HeaderSize is how many leading bytes are needed to tell the supported
// containers apart.
const HeaderSize = 261

// MIME types of the accepted containers.
const (
	MimeMP3 = "audio/mpeg"
	MimeWAV = "audio/x-wav"
)

// ErrUnsupportedFormat is returned for any prefix that is neither MP3 nor WAV.
var ErrUnsupportedFormat = types.ErrUnsupportedFormat

var (
	id3Magic  = []byte("ID3")
	riffMagic = []byte("RIFF")
	waveMagic = []byte("WAVE")
)

// Detect sniffs the container from a file prefix and returns its MIME type.
// Only the first HeaderSize bytes are ever inspected.
func Detect(header []byte) (string, error) {
	if len(header) > HeaderSize {
		header = header[:HeaderSize]
	}
	switch {
	case isMP3(header):
		return MimeMP3, nil
	case isWAV(header):
		return MimeWAV, nil
	default:
		return "", ErrUnsupportedFormat
	}
}

func isMP3(b []byte) bool {
	if len(b) < 3 {
		return false
	}
	if bytes.HasPrefix(b, id3Magic) {
		return true
	}
	// MPEG-1 Layer III and MPEG-2/2.5 Layer III frame sync without an ID3 tag.
	return b[0] == 0xFF && (b[1] == 0xFB || b[1] == 0xF3 || b[1] == 0xF2)
}

func isWAV(b []byte) bool {
	return len(b) >= 12 && bytes.Equal(b[0:4], riffMagic) && bytes.Equal(b[8:12], waveMagic)
}
