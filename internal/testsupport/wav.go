package testsupport

import (
	"bytes"
	"encoding/binary"
	"math"
)

// Sine returns seconds of a unit-amplitude tone at freq Hz.
func Sine(rate int, freq, seconds float64) []float64 {
	n := int(float64(rate) * seconds)
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Sin(2 * math.Pi * freq * float64(i) / float64(rate))
	}
	return out
}

// WAV encodes samples as a 16-bit PCM RIFF/WAVE file. Every channel carries
// the same signal, attenuated a little more per channel index so channels
// stay distinguishable.
func WAV(rate, channels int, samples []float64) []byte {
	const bitsPerSample = 16
	blockAlign := channels * bitsPerSample / 8
	dataSize := len(samples) * blockAlign

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(36+dataSize))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(channels))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(rate))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(rate*blockAlign))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(blockAlign))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(bitsPerSample))

	buf.WriteString("data")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(dataSize))
	for _, s := range samples {
		for ch := 0; ch < channels; ch++ {
			gain := 0.8 / float64(ch+1)
			_ = binary.Write(&buf, binary.LittleEndian, int16(s*gain*math.MaxInt16))
		}
	}
	return buf.Bytes()
}

// MP3Header returns an ID3-tagged byte prefix padded to n bytes. It passes
// signature sniffing but is not decodable audio.
func MP3Header(n int) []byte {
	out := make([]byte, n)
	copy(out, "ID3")
	return out
}
