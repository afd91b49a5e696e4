// Package spectrogram renders time-frequency power plots of audio.
package spectrogram

import (
	"fmt"

	"github.com/codebuildervaibhav/audio-spectrogram/internal/audio"
	"github.com/codebuildervaibhav/audio-spectrogram/internal/types"
)

// Generator renders PNG spectrograms. The zero value is ready to use.
type Generator struct{}

// Generate decodes audioBytes and renders one stacked plot per channel
// titled with label. Output depends only on its inputs.
func (Generator) Generate(audioBytes []byte, label string) ([]byte, error) {
	return Generate(audioBytes, label)
}

// Generate is the package-level form of Generator.Generate.
func Generate(audioBytes []byte, label string) ([]byte, error) {
	if len(audioBytes) == 0 {
		return nil, fmt.Errorf("%w: empty audio", types.ErrGeneration)
	}

	pcm, err := audio.Decode(audioBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read audio data: %v", types.ErrGeneration, err)
	}

	channels := make([]Power, len(pcm.Channels))
	for ch, samples := range pcm.Channels {
		channels[ch] = Compute(samples, pcm.SampleRate)
	}

	duration := float64(pcm.Frames()) / float64(pcm.SampleRate)
	nyquist := float64(pcm.SampleRate) / 2

	img, err := render(label, duration, nyquist, channels)
	if err != nil {
		return nil, fmt.Errorf("%w: render: %v", types.ErrGeneration, err)
	}
	return img, nil
}
