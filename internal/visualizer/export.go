package visualizer

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/color/palette"
	stddraw "image/draw"
	"image/gif"
	"io"
	"sync"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/justogm/user-gaze-track/internal/models"
)

// ErrRecordingInProgress is returned when an animation for the same key is
// already being recorded.
var ErrRecordingInProgress = errors.New("recording already in progress")

const (
	frameWidth  = 8 * vg.Inch
	frameHeight = 5 * vg.Inch
)

var plotColor = map[Kind]color.Color{
	Mouse: color.RGBA{R: 0x2f, G: 0x7e, B: 0xd8, A: 0xff},
	Gaze:  color.RGBA{R: 0xe4, G: 0x57, B: 0x2e, A: 0xff},
}

// framePlot draws frame of the path with axes fixed to ext.
func framePlot(kind Kind, path []models.Position, frame int, ext Extent) (*plot.Plot, error) {
	shown := Cumulative(path, frame)

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s path, frame %d/%d", kind, len(shown), len(path))
	p.X.Label.Text = "x (px)"
	p.Y.Label.Text = "y (px)"
	p.X.Min, p.X.Max = ext.MinX, ext.MaxX
	p.Y.Min, p.Y.Max = ext.MinY, ext.MaxY

	xys := make(plotter.XYs, len(shown))
	for i, pt := range shown {
		xys[i] = plotter.XY{X: pt.X, Y: pt.Y}
	}
	line, err := plotter.NewLine(xys)
	if err != nil {
		return nil, fmt.Errorf("build line: %w", err)
	}
	line.LineStyle.Color = plotColor[kind]
	line.LineStyle.Width = vg.Points(1.5)
	p.Add(line)
	return p, nil
}

// RenderFrame writes one frame of the animation as a PNG.
func RenderFrame(w io.Writer, kind Kind, path []models.Position, frame int) error {
	if len(path) == 0 {
		return ErrNoPoints
	}
	p, err := framePlot(kind, path, frame, ExtentOf(path))
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(frameWidth, frameHeight, "png")
	if err != nil {
		return fmt.Errorf("render png: %w", err)
	}
	_, err = wt.WriteTo(w)
	return err
}

// Recorder exports whole animations. Frames are drawn one at a time onto an
// image canvas and captured before the next is drawn; only one recording per
// key runs at once.
type Recorder struct {
	mu        sync.Mutex
	active    map[string]bool
	maxFrames int
	delay     int // hundredths of a second
}

// NewRecorder caps each export at maxFrames frames shown frameDelayMs apart.
func NewRecorder(maxFrames, frameDelayMs int) *Recorder {
	r := &Recorder{active: make(map[string]bool)}
	r.SetLimits(maxFrames, frameDelayMs)
	return r
}

// SetLimits changes the frame cap and delay for exports started afterwards.
func (r *Recorder) SetLimits(maxFrames, frameDelayMs int) {
	if maxFrames <= 0 {
		maxFrames = 1
	}
	delay := frameDelayMs / 10
	if delay < 1 {
		delay = 1
	}
	r.mu.Lock()
	r.maxFrames, r.delay = maxFrames, delay
	r.mu.Unlock()
}

func (r *Recorder) limits() (maxFrames, delay int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.maxFrames, r.delay
}

func (r *Recorder) acquire(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active[key] {
		return false
	}
	r.active[key] = true
	return true
}

func (r *Recorder) release(key string) {
	r.mu.Lock()
	delete(r.active, key)
	r.mu.Unlock()
}

// FrameIndices returns the frames an export of n samples will contain. Long
// paths are strided to stay within maxFrames; the last frame is always kept.
func (r *Recorder) FrameIndices(n int) []int {
	maxFrames, _ := r.limits()
	return frameIndices(n, maxFrames)
}

func frameIndices(n, maxFrames int) []int {
	if n <= 0 {
		return nil
	}
	stride := (n + maxFrames - 1) / maxFrames
	idx := make([]int, 0, n/stride+1)
	for i := 0; i < n; i += stride {
		idx = append(idx, i)
	}
	if idx[len(idx)-1] != n-1 {
		idx = append(idx, n-1)
	}
	return idx
}

// Record writes the animation of path as an animated GIF.
func (r *Recorder) Record(ctx context.Context, w io.Writer, key string, kind Kind, path []models.Position) error {
	if len(path) == 0 {
		return ErrNoPoints
	}
	if !r.acquire(key) {
		return ErrRecordingInProgress
	}
	defer r.release(key)

	maxFrames, delay := r.limits()
	ext := ExtentOf(path)
	anim := &gif.GIF{}
	for _, frame := range frameIndices(len(path), maxFrames) {
		if err := ctx.Err(); err != nil {
			return err
		}
		img, err := captureFrame(kind, path, frame, ext)
		if err != nil {
			return fmt.Errorf("frame %d: %w", frame, err)
		}
		anim.Image = append(anim.Image, img)
		anim.Delay = append(anim.Delay, delay)
	}
	return gif.EncodeAll(w, anim)
}

func captureFrame(kind Kind, path []models.Position, frame int, ext Extent) (*image.Paletted, error) {
	p, err := framePlot(kind, path, frame, ext)
	if err != nil {
		return nil, err
	}
	canvas := vgimg.New(frameWidth, frameHeight)
	p.Draw(draw.New(canvas))

	src := canvas.Image()
	dst := image.NewPaletted(src.Bounds(), palette.Plan9)
	stddraw.Draw(dst, dst.Bounds(), src, src.Bounds().Min, stddraw.Src)
	return dst, nil
}
