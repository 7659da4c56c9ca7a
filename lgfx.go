package lgfx

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"log/slog"

	"github.com/flavioheleno/lgfx/blit"
	"github.com/flavioheleno/lgfx/geom"
	"github.com/flavioheleno/lgfx/panel"
	"github.com/flavioheleno/lgfx/pixfmt"
	"github.com/flavioheleno/lgfx/touch"
	"periph.io/x/conn/v3/display"
)

// Opts is the configuration of a Dev.
type Opts struct {
	// Geometry overrides the panel's default geometry when its width is
	// set.
	Geometry panel.Geometry
	// Adjust, when set, edits the geometry in use, default or not, before
	// it is applied. It changes single fields such as the offsets or the
	// color order of an otherwise default panel.
	Adjust func(g *panel.Geometry)
	// Rotation is applied after Init.
	Rotation geom.Rotation
	// Logger is handed to the BMP blitter and the touch controller.
	Logger *slog.Logger
}

// Dev is a display with its optional touch controller.
type Dev struct {
	d     panel.Driver
	blit  *blit.Blitter
	touch *touch.Dev
	log   *slog.Logger

	// Draw staging buffer.
	buf []byte
}

// defaulter is implemented by drivers knowing their usual geometry.
type defaulter interface {
	DefaultGeometry() panel.Geometry
}

// New configures and initializes d.
//
// opts can be nil to use the driver's default geometry.
func New(d panel.Driver, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &Opts{}
	}
	g := opts.Geometry
	if g.PanelWidth == 0 {
		df, ok := d.(defaulter)
		if !ok {
			return nil, fmt.Errorf("lgfx: %s has no default geometry", d)
		}
		g = df.DefaultGeometry()
	}
	if opts.Adjust != nil {
		opts.Adjust(&g)
	}
	if err := d.Configure(g); err != nil {
		return nil, err
	}
	if err := d.Init(); err != nil {
		return nil, fmt.Errorf("lgfx: init %s: %w", d, err)
	}
	if opts.Rotation != 0 {
		if err := d.SetRotation(opts.Rotation); err != nil {
			return nil, err
		}
	}
	return &Dev{
		d:    d,
		blit: blit.New(d, &blit.Opts{Logger: opts.Logger}),
		log:  opts.Logger,
	}, nil
}

// Panel returns the underlying driver.
func (d *Dev) Panel() panel.Driver {
	return d.d
}

// AttachTouch initializes the touch controller s and maps its points onto
// the display. Without an explicit opts.Display the points follow the
// panel rotation.
func (d *Dev) AttachTouch(s touch.Sensor, opts *touch.Opts) error {
	o := touch.Opts{}
	if opts != nil {
		o = *opts
	}
	if o.Display == nil {
		o.Display = d.d
	}
	if o.Logger == nil {
		o.Logger = d.log
	}
	t := touch.New(s, &o)
	if err := t.Init(); err != nil {
		return err
	}
	d.touch = t
	return nil
}

// Touch fills pts with the touched points in display coordinates and
// returns how many there are. It returns 0 without a touch controller.
func (d *Dev) Touch(pts []touch.Point) int {
	if d.touch == nil {
		return 0
	}
	return d.touch.Poll(pts)
}

// ColorModel implements display.Drawer.
func (d *Dev) ColorModel() color.Model {
	return d.d.Native().Model()
}

// Bounds implements display.Drawer.
func (d *Dev) Bounds() image.Rectangle {
	return d.d.Bounds()
}

// SetRotation rotates the display; the bounds change for odd rotations.
func (d *Dev) SetRotation(r geom.Rotation) error {
	return d.d.SetRotation(r)
}

// StartWrite opens a bus transaction spanning several drawing calls.
// Panels keeping a shadow copy flush it when the outermost EndWrite runs.
func (d *Dev) StartWrite() error {
	return d.d.Arbiter().Begin()
}

// EndWrite closes a transaction opened by StartWrite.
func (d *Dev) EndWrite() error {
	return d.d.Arbiter().End()
}

// Draw implements display.Drawer.
//
// The src image is positioned at src point sp within the destination.
func (d *Dev) Draw(dst image.Rectangle, src image.Image, sp image.Point) error {
	clip := dst.Intersect(d.Bounds())
	if clip.Empty() {
		return nil
	}
	sp = sp.Add(clip.Min.Sub(dst.Min))
	w, h := clip.Dx(), clip.Dy()

	f := pixfmt.RGB888
	if n, ok := src.(*pixfmt.Nibble); ok && d.d.Native() == pixfmt.Gray4 {
		f = pixfmt.Gray4
		pix := d.scratch(f.RowBytes(w) * h)
		for y := 0; y < h; y++ {
			n.Row(pix[y*f.RowBytes(w):], sp.X, sp.Y+y, w)
		}
		return d.d.WriteRect(clip, pix, f)
	}

	stride := f.RowBytes(w)
	pix := d.scratch(stride * h)
	if rgba, ok := src.(*image.RGBA); ok {
		for y := 0; y < h; y++ {
			row := pix[y*stride:]
			for x := 0; x < w; x++ {
				p := image.Pt(sp.X+x, sp.Y+y)
				if !p.In(rgba.Rect) {
					row[3*x], row[3*x+1], row[3*x+2] = 0, 0, 0
					continue
				}
				o := rgba.PixOffset(p.X, p.Y)
				copy(row[3*x:3*x+3], rgba.Pix[o:o+3])
			}
		}
		return d.d.WriteRect(clip, pix, f)
	}
	for y := 0; y < h; y++ {
		row := pix[y*stride:]
		for x := 0; x < w; x++ {
			row[3*x], row[3*x+1], row[3*x+2] = pixfmt.RGB(src.At(sp.X+x, sp.Y+y))
		}
	}
	return d.d.WriteRect(clip, pix, f)
}

// Write writes a full frame of raw pixels in the panel's native format.
func (d *Dev) Write(pixels []byte) (int, error) {
	b := d.Bounds()
	if need := d.d.Native().RowBytes(b.Dx()) * b.Dy(); len(pixels) != need {
		return 0, fmt.Errorf("lgfx: %d bytes for a %dx%d frame, need %d", len(pixels), b.Dx(), b.Dy(), need)
	}
	if err := d.d.WriteRect(b, pixels, d.d.Native()); err != nil {
		return 0, err
	}
	return len(pixels), nil
}

// FillRect paints r with a solid color.
func (d *Dev) FillRect(r image.Rectangle, c color.Color) error {
	return d.d.FillRect(r, c)
}

// Clear paints the whole display with c.
func (d *Dev) Clear(c color.Color) error {
	return d.d.FillRect(d.Bounds(), c)
}

// ReadRect reads r back as format f. Panels without readback return an
// error wrapping errors.ErrUnsupported.
func (d *Dev) ReadRect(r image.Rectangle, dst []byte, f pixfmt.Format) error {
	return panel.ReadRect(d.d, r, dst, f)
}

// DrawBMP draws the BMP image read from src at (x, y).
func (d *Dev) DrawBMP(src io.ReadSeeker, x, y int) error {
	return d.blit.Draw(src, x, y)
}

// DrawBMPFile opens name through o and draws it at (x, y).
func (d *Dev) DrawBMPFile(o blit.Opener, name string, x, y int) error {
	return d.blit.DrawFile(o, name, x, y)
}

// Halt puts the touch controller to sleep, when it can, and turns the
// display off.
func (d *Dev) Halt() error {
	var errs []error
	if d.touch != nil {
		if err := d.touch.Sleep(); err != nil && !errors.Is(err, errors.ErrUnsupported) {
			errs = append(errs, err)
		}
	}
	errs = append(errs, d.d.Halt())
	return errors.Join(errs...)
}

func (d *Dev) String() string {
	return fmt.Sprintf("lgfx.Dev{%s}", d.d)
}

func (d *Dev) scratch(n int) []byte {
	if cap(d.buf) < n {
		d.buf = make([]byte, n)
	}
	return d.buf[:n]
}

var _ display.Drawer = (*Dev)(nil)
