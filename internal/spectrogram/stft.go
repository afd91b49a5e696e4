package spectrogram

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

const (
	segmentSize = 256
	tukeyAlpha  = 0.25
)

// Power is a one-sided power spectral density over time.
// Sxx[t][f] is the density of frequency bin f in segment t.
type Power struct {
	Freqs []float64
	Times []float64
	Sxx   [][]float64
}

// Compute splits x into Tukey-windowed segments of 256 samples with 32
// samples overlap, removes each segment's mean and returns density-scaled
// power per segment. Inputs shorter than one segment use a single segment of
// their own length.
func Compute(x []float64, sampleRate int) Power {
	n := segmentSize
	if len(x) < n {
		n = len(x)
	}
	if n == 0 || sampleRate <= 0 {
		return Power{}
	}
	overlap := n / 8
	hop := n - overlap

	win := tukey(n, tukeyAlpha)
	var winPower float64
	for _, w := range win {
		winPower += w * w
	}
	scale := 1 / (float64(sampleRate) * winPower)

	fft := fourier.NewFFT(n)
	bins := n/2 + 1

	freqs := make([]float64, bins)
	for k := range freqs {
		freqs[k] = float64(k) * float64(sampleRate) / float64(n)
	}

	frames := 1 + (len(x)-n)/hop
	times := make([]float64, frames)
	sxx := make([][]float64, frames)
	buf := make([]float64, n)
	coeffs := make([]complex128, bins)

	for i := 0; i < frames; i++ {
		start := i * hop
		segment := x[start : start+n]

		var mean float64
		for _, v := range segment {
			mean += v
		}
		mean /= float64(n)
		for k, v := range segment {
			buf[k] = (v - mean) * win[k]
		}

		coeffs = fft.Coefficients(coeffs, buf)
		row := make([]float64, bins)
		for k, c := range coeffs {
			p := cmplx.Abs(c)
			p = p * p * scale
			// Fold negative frequencies into the one-sided spectrum; DC and
			// Nyquist have no mirror.
			if k != 0 && !(n%2 == 0 && k == bins-1) {
				p *= 2
			}
			row[k] = p
		}
		sxx[i] = row
		times[i] = (float64(start) + float64(n)/2) / float64(sampleRate)
	}

	return Power{Freqs: freqs, Times: times, Sxx: sxx}
}

// tukey returns a periodic Tukey window, the DFT-even form suitable for
// spectral analysis.
func tukey(n int, alpha float64) []float64 {
	if n == 1 {
		return []float64{1}
	}
	m := n + 1
	sym := make([]float64, m)
	width := int(math.Floor(alpha * float64(m-1) / 2))
	for i := range sym {
		switch {
		case i <= width:
			sym[i] = 0.5 * (1 + math.Cos(math.Pi*(-1+2*float64(i)/alpha/float64(m-1))))
		case i >= m-width-1:
			sym[i] = 0.5 * (1 + math.Cos(math.Pi*(-2/alpha+1+2*float64(i)/alpha/float64(m-1))))
		default:
			sym[i] = 1
		}
	}
	return sym[:n]
}

// Decibels maps power to 10*log10(p + 1e-10).
func Decibels(p float64) float64 {
	return 10 * math.Log10(p+1e-10)
}
