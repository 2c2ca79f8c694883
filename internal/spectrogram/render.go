package spectrogram

import (
	"os"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/satindergrewal/tailortune/internal/errors"
)

// Image size of rendered spectrograms.
const (
	ImageWidth  = 10 * vg.Inch
	ImageHeight = 4 * vg.Inch
)

// grid adapts a Matrix to plotter.GridXYZ: columns are time in seconds,
// rows are mel band indexes.
type grid struct {
	m *Matrix
}

func (g grid) Dims() (c, r int) { return g.m.Frames(), g.m.Bands() }

func (g grid) Z(c, r int) float64 { return g.m.Power[c][r] }

func (g grid) X(c int) float64 {
	return float64(c*g.m.HopSize) / float64(g.m.SampleRate)
}

func (g grid) Y(r int) float64 { return float64(r) }

// Plot builds a heatmap of m with the given title.
func Plot(m *Matrix, title string) (*plot.Plot, error) {
	if m.Frames() == 0 || m.Bands() == 0 {
		return nil, errors.Validation("empty spectrogram")
	}

	pal := moreland.SmoothBlueRed().Palette(64)
	h := plotter.NewHeatMap(grid{m: m}, pal)
	h.Rasterized = true

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = "Mel band"
	p.X.Padding = 0
	p.Y.Padding = 0
	p.Add(h)
	return p, nil
}

// SavePNG renders p to a PNG file at path, overwriting it.
func SavePNG(p *plot.Plot, path string, width, height vg.Length) error {
	img := vgimg.New(width, height)
	dc := draw.New(img)
	p.Draw(dc)

	f, err := os.Create(path)
	if err != nil {
		return errors.FileSystem(err, "create %s", path)
	}
	png := vgimg.PngCanvas{Canvas: img}
	if _, err := png.WriteTo(f); err != nil {
		f.Close()
		return errors.FileSystem(err, "write %s", path)
	}
	if err := f.Close(); err != nil {
		return errors.FileSystem(err, "close %s", path)
	}
	return nil
}

// Render computes the dB mel spectrogram of samples and writes it to path.
func Render(samples []float64, sampleRate int, title, path string) error {
	m := Compute(samples, sampleRate, DefaultConfig())
	p, err := Plot(m, title)
	if err != nil {
		return err
	}
	return SavePNG(p, path, ImageWidth, ImageHeight)
}
