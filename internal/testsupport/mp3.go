package testsupport

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// MP3 loads a fixture from internal/audio/testdata: "mono.mp3" (22.05 kHz,
// MPEG-2) or "stereo.mp3" (44.1 kHz, MPEG-1).
func MP3(t testing.TB, name string) []byte {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("locate testsupport package")
	}
	path := filepath.Join(filepath.Dir(file), "..", "audio", "testdata", name)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read mp3 fixture: %v", err)
	}
	return data
}

// WithID3 prefixes data with an empty ID3v2.3 tag of padding bytes.
func WithID3(data []byte, padding int) []byte {
	out := []byte{'I', 'D', '3', 3, 0, 0}
	for shift := 21; shift >= 0; shift -= 7 {
		out = append(out, byte(padding>>shift)&0x7F)
	}
	out = append(out, make([]byte, padding)...)
	return append(out, data...)
}
