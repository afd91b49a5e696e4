package spectrogram

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

const (
	dpi          = 100
	plotWidth    = 10 * vg.Inch
	plotHeight   = 4 * vg.Inch
	titleHeight  = 0.6 * vg.Inch
	titleSize    = 16
	maxColumns   = 2000
	paletteSteps = 256
)

var colors = palette.Heat(paletteSteps, 1).Colors()

// render draws one sub-plot per channel, stacked top to bottom, under a
// single title and encodes the result as PNG.
func render(label string, duration, nyquist float64, channels []Power) ([]byte, error) {
	plots := make([][]*plot.Plot, len(channels))
	for ch, pw := range channels {
		p := plot.New()
		p.Title.Text = fmt.Sprintf("Channel %d", ch+1)
		p.X.Label.Text = "Time [s]"
		p.Y.Label.Text = "Frequency [Hz]"
		p.X.Min, p.X.Max = 0, duration
		p.Y.Min, p.Y.Max = 0, nyquist
		p.Add(plotter.NewImage(heatImage(pw), 0, 0, duration, nyquist))
		plots[ch] = []*plot.Plot{p}
	}

	height := plotHeight*vg.Length(len(channels)) + titleHeight
	canvas := vgimg.NewWith(vgimg.UseWH(plotWidth, height), vgimg.UseDPI(dpi))
	dc := draw.New(canvas)

	body := dc
	body.Rectangle.Max.Y -= titleHeight
	tiles := draw.Tiles{
		Rows:      len(channels),
		Cols:      1,
		PadY:      vg.Millimeter * 4,
		PadTop:    vg.Millimeter * 2,
		PadBottom: vg.Millimeter * 2,
		PadLeft:   vg.Millimeter * 2,
		PadRight:  vg.Millimeter * 4,
	}
	canvases := plot.Align(plots, tiles, body)
	for i := range plots {
		plots[i][0].Draw(canvases[i][0])
	}

	sty := plots[0][0].Title.TextStyle
	sty.Font.Size = titleSize
	sty.XAlign = text.XCenter
	sty.YAlign = text.YCenter
	dc.FillText(sty, vg.Point{
		X: (dc.Min.X + dc.Max.X) / 2,
		Y: dc.Max.Y - titleHeight/2,
	}, label)

	var buf bytes.Buffer
	if _, err := (vgimg.PngCanvas{Canvas: canvas}).WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// heatImage maps decibel power to palette colours. Columns are time segments
// (averaged down to maxColumns), rows are frequency bins with the highest
// frequency on top.
func heatImage(pw Power) image.Image {
	cols := pooledColumns(pw.Sxx, maxColumns)
	bins := len(cols[0])

	db := make([][]float64, len(cols))
	lo, hi := math.Inf(1), math.Inf(-1)
	for x, col := range cols {
		db[x] = make([]float64, bins)
		for f, p := range col {
			v := Decibels(p)
			db[x][f] = v
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}

	img := image.NewRGBA(image.Rect(0, 0, len(cols), bins))
	span := hi - lo
	for x := range db {
		for f, v := range db[x] {
			idx := 0
			if span > 0 {
				idx = int((v - lo) / span * float64(len(colors)-1))
			}
			img.Set(x, bins-1-f, colorAt(idx))
		}
	}
	return img
}

func colorAt(idx int) color.Color {
	if idx < 0 {
		idx = 0
	}
	if idx >= len(colors) {
		idx = len(colors) - 1
	}
	return colors[idx]
}

func pooledColumns(sxx [][]float64, limit int) [][]float64 {
	if len(sxx) <= limit {
		return sxx
	}
	bins := len(sxx[0])
	out := make([][]float64, limit)
	for x := range out {
		start := x * len(sxx) / limit
		end := (x + 1) * len(sxx) / limit
		col := make([]float64, bins)
		for _, row := range sxx[start:end] {
			for f, v := range row {
				col[f] += v
			}
		}
		for f := range col {
			col[f] /= float64(end - start)
		}
		out[x] = col
	}
	return out
}
