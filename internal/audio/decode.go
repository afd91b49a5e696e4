package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
)

// PCM is decoded audio at its original sample rate, one slice per channel,
// samples scaled to [-1, 1].
type PCM struct {
	SampleRate int
	Channels   [][]float64
}

// Frames is the number of samples per channel.
func (p *PCM) Frames() int {
	if p == nil || len(p.Channels) == 0 {
		return 0
	}
	return len(p.Channels[0])
}

var errNoSamples = errors.New("no audio samples")

// Decode turns MP3 or WAV bytes into PCM without resampling or downmixing.
// Third-party decoders panic on some malformed inputs; those are reported as
// errors.
func Decode(data []byte) (pcm *PCM, err error) {
	mime, err := Detect(data)
	if err != nil {
		return nil, err
	}

	defer func() {
		if r := recover(); r != nil {
			pcm = nil
			err = fmt.Errorf("decode %s: %v", mime, r)
		}
	}()

	switch mime {
	case MimeWAV:
		pcm, err = decodeWAV(data)
	default:
		pcm, err = decodeMP3(data)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", mime, err)
	}
	if pcm.Frames() == 0 {
		return nil, fmt.Errorf("decode %s: %w", mime, errNoSamples)
	}
	return pcm, nil
}

func decodeWAV(data []byte) (*PCM, error) {
	d := wav.NewDecoder(bytes.NewReader(data))
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, err
	}
	if buf == nil || buf.Format == nil || buf.Format.NumChannels < 1 || buf.Format.SampleRate <= 0 {
		return nil, errors.New("missing format chunk")
	}
	return deinterleave(buf), nil
}

func deinterleave(buf *goaudio.IntBuffer) *PCM {
	channels := buf.Format.NumChannels
	frames := len(buf.Data) / channels

	depth := buf.SourceBitDepth
	if depth <= 0 {
		depth = 16
	}
	scale := float64(int64(1) << (depth - 1))

	out := make([][]float64, channels)
	for ch := range out {
		out[ch] = make([]float64, frames)
	}
	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			v := float64(buf.Data[i*channels+ch])
			if depth == 8 {
				// 8-bit WAV is unsigned.
				v -= 128
			}
			out[ch][i] = v / scale
		}
	}
	return &PCM{SampleRate: buf.Format.SampleRate, Channels: out}
}

func decodeMP3(data []byte) (*PCM, error) {
	d, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	raw, err := io.ReadAll(d)
	if err != nil {
		return nil, err
	}

	// go-mp3 always yields interleaved 16-bit little endian stereo.
	frames := len(raw) / 4
	left := make([]float64, frames)
	right := make([]float64, frames)
	for i := 0; i < frames; i++ {
		left[i] = float64(int16(binary.LittleEndian.Uint16(raw[i*4:]))) / 32768
		right[i] = float64(int16(binary.LittleEndian.Uint16(raw[i*4+2:]))) / 32768
	}

	pcm := &PCM{SampleRate: d.SampleRate(), Channels: [][]float64{left, right}}
	if mp3Mono(data) {
		pcm.Channels = pcm.Channels[:1]
	}
	return pcm, nil
}

// mp3Mono reports whether the first MPEG frame header after any ID3v2 tag
// declares single channel mode.
func mp3Mono(data []byte) bool {
	off := 0
	if len(data) >= 10 && bytes.HasPrefix(data, id3Magic) {
		size := int(data[6]&0x7F)<<21 | int(data[7]&0x7F)<<14 | int(data[8]&0x7F)<<7 | int(data[9]&0x7F)
		off = 10 + size
		if data[5]&0x10 != 0 {
			off += 10
		}
	}
	for i := off; i+3 < len(data); i++ {
		if data[i] == 0xFF && data[i+1]&0xE0 == 0xE0 {
			return data[i+3]>>6 == 3
		}
	}
	return false
}
