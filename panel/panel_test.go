package panel

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"
	"testing"
	"time"

	"github.com/flavioheleno/lgfx/bus"
	"github.com/flavioheleno/lgfx/geom"
	"github.com/flavioheleno/lgfx/pixfmt"
	"periph.io/x/conn/v3/physic"
)

func TestMain(m *testing.M) {
	sleep = func(time.Duration) {}
	os.Exit(m.Run())
}

// op is one transport call seen by fakeBus.
type op struct {
	kind byte // 'B'egin, 'E'nd, 'C'ommand, 'D'ata, 'R'ead
	b    []byte
}

// fakeBus records every transport call.
type fakeBus struct {
	ops  []op
	nop  bool
	read []byte
}

func (f *fakeBus) String() string     { return "fake" }
func (f *fakeBus) NopOnRelease() bool { return f.nop }

func (f *fakeBus) Begin() error {
	f.ops = append(f.ops, op{kind: 'B'})
	return nil
}

func (f *fakeBus) End() error {
	f.ops = append(f.ops, op{kind: 'E'})
	return nil
}

func (f *fakeBus) WriteCommand(cmd []byte) error {
	f.ops = append(f.ops, op{'C', append([]byte(nil), cmd...)})
	return nil
}

func (f *fakeBus) WriteData(data []byte) error {
	f.ops = append(f.ops, op{'D', append([]byte(nil), data...)})
	return nil
}

func (f *fakeBus) ReadData(dst []byte) error {
	f.ops = append(f.ops, op{kind: 'R'})
	copy(dst, f.read)
	return nil
}

// writes returns the command and data writes, ignoring the bus edges.
func (f *fakeBus) writes() []op {
	var out []op
	for _, o := range f.ops {
		if o.kind == 'C' || o.kind == 'D' {
			out = append(out, o)
		}
	}
	return out
}

// after returns the data written right after the last command cmd.
func (f *fakeBus) after(cmd byte) ([]byte, bool) {
	for i := len(f.ops) - 1; i >= 0; i-- {
		o := f.ops[i]
		if o.kind != 'C' || len(o.b) != 1 || o.b[0] != cmd {
			continue
		}
		if i+1 < len(f.ops) && f.ops[i+1].kind == 'D' {
			return f.ops[i+1].b, true
		}
		return nil, true
	}
	return nil, false
}

func (f *fakeBus) count(cmd byte) int {
	n := 0
	for _, o := range f.ops {
		if o.kind == 'C' && len(o.b) == 1 && o.b[0] == cmd {
			n++
		}
	}
	return n
}

func (f *fakeBus) reset() { f.ops = nil }

// drivers returns one configured driver of every kind, each on its own bus.
func drivers(t *testing.T) map[string]struct {
	d  Driver
	fb *fakeBus
} {
	t.Helper()
	out := map[string]struct {
		d  Driver
		fb *fakeBus
	}{}
	add := func(name string, d interface {
		Driver
		DefaultGeometry() Geometry
	}, fb *fakeBus) {
		if err := d.Configure(d.DefaultGeometry()); err != nil {
			t.Fatalf("%s: Configure() = %v", name, err)
		}
		out[name] = struct {
			d  Driver
			fb *fakeBus
		}{d, fb}
	}
	for name, ctor := range map[string]func(*bus.Arbiter, *Opts) *LCD{
		"ili9341": NewILI9341,
		"st7789":  NewST7789,
		"st7735":  NewST7735,
		"ili9488": NewILI9488,
		"gc9a01":  NewGC9A01,
	} {
		fb := &fakeBus{}
		add(name, ctor(bus.NewArbiter(fb, nil), nil), fb)
	}
	fb := &fakeBus{}
	add("ssd1306", NewSSD1306(bus.NewArbiter(fb, nil), nil), fb)
	fb = &fakeBus{}
	add("ssd1322", NewSSD1322(bus.NewArbiter(fb, nil), nil), fb)
	return out
}

func TestOutsideRectTouchesNothing(t *testing.T) {
	for name, tt := range drivers(t) {
		t.Run(name, func(t *testing.T) {
			b := tt.d.Bounds()
			rects := []image.Rectangle{
				image.Rect(-10, 0, 0, 5),
				image.Rect(b.Max.X, 0, b.Max.X+4, 4),
				image.Rect(0, b.Max.Y, 4, b.Max.Y+2),
				image.Rect(-5, -5, -1, -1),
			}
			for _, r := range rects {
				pix := make([]byte, pixfmt.RGB565.RowBytes(r.Dx())*r.Dy())
				if err := tt.d.WriteRect(r, pix, pixfmt.RGB565); err != nil {
					t.Errorf("WriteRect(%v) = %v", r, err)
				}
				if err := tt.d.FillRect(r, color.White); err != nil {
					t.Errorf("FillRect(%v) = %v", r, err)
				}
			}
			if len(tt.fb.ops) != 0 {
				t.Errorf("bus saw %d calls, want none", len(tt.fb.ops))
			}
		})
	}
}

func TestDrawingBeforeConfigure(t *testing.T) {
	fb := &fakeBus{}
	d := NewILI9341(bus.NewArbiter(fb, nil), nil)
	if !d.Bounds().Empty() {
		t.Errorf("Bounds() = %v before Configure", d.Bounds())
	}
	if err := d.WriteRect(image.Rect(0, 0, 1, 1), []byte{0, 0}, pixfmt.RGB565); err != nil {
		t.Errorf("WriteRect() = %v", err)
	}
	if err := d.Init(); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("Init() = %v, want ErrNotConfigured", err)
	}
	if len(fb.ops) != 0 {
		t.Errorf("bus saw %d calls, want none", len(fb.ops))
	}
	if got := d.String(); got != "ili9341{unconfigured}" {
		t.Errorf("String() = %q", got)
	}
}

func TestConfigError(t *testing.T) {
	tests := []struct {
		name  string
		g     Geometry
		field string
	}{
		{"empty panel", Geometry{PanelWidth: 0, PanelHeight: 10}, "panel size"},
		{"panel larger than memory", Geometry{PanelWidth: 240, PanelHeight: 320, MemoryWidth: 200, MemoryHeight: 320}, "panel size"},
		{"negative offset", Geometry{PanelWidth: 10, PanelHeight: 10, OffsetX: -1}, "offset"},
		{"offset outside memory", Geometry{PanelWidth: 128, PanelHeight: 160, MemoryWidth: 132, MemoryHeight: 162, OffsetX: 5}, "offset"},
		{"offset rotation", Geometry{PanelWidth: 10, PanelHeight: 10, OffsetRotation: 8}, "offset rotation"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewST7789(bus.NewArbiter(&fakeBus{}, nil), nil)
			err := d.Configure(tt.g)
			var ce *ConfigError
			if !errors.As(err, &ce) {
				t.Fatalf("Configure() = %v, want *ConfigError", err)
			}
			if ce.Field != tt.field {
				t.Errorf("Field = %q, want %q", ce.Field, tt.field)
			}
		})
	}
}

func TestBoundsFollowRotation(t *testing.T) {
	for name, tt := range drivers(t) {
		t.Run(name, func(t *testing.T) {
			b0 := tt.d.Bounds()
			for r := geom.Rotate0; r <= geom.Mirror270; r++ {
				if err := tt.d.SetRotation(r); err != nil {
					t.Fatal(err)
				}
				want := b0
				if r.SwapsAxes() {
					want = image.Rect(0, 0, b0.Dy(), b0.Dx())
				}
				if got := tt.d.Bounds(); got != want {
					t.Errorf("rotation %v: Bounds() = %v, want %v", r, got, want)
				}
				if got := tt.d.Rotation(); got != r {
					t.Errorf("Rotation() = %v, want %v", got, r)
				}
			}
		})
	}
}

func TestReadRectAfterWrite(t *testing.T) {
	pix := []byte{
		0xF8, 0x00, 0x07, 0xE0, 0x00, 0x1F,
		0xFF, 0xFF, 0x00, 0x00, 0xF8, 0x00,
	}
	for _, name := range []string{"ssd1322", "ssd1306"} {
		for _, r := range []geom.Rotation{geom.Rotate0, geom.Rotate90, geom.Mirror180} {
			t.Run(fmt.Sprintf("%s/%v", name, r), func(t *testing.T) {
				d := drivers(t)[name].d
				if err := d.SetRotation(r); err != nil {
					t.Fatal(err)
				}
				rect := image.Rect(3, 5, 6, 7)
				if err := d.WriteRect(rect, pix, pixfmt.RGB565); err != nil {
					t.Fatal(err)
				}
				got := make([]byte, len(pix))
				if err := ReadRect(d, rect, got, pixfmt.RGB565); err != nil {
					t.Fatal(err)
				}
				// Reading through the native format loses color, so compare
				// after the same loss.
				want := make([]byte, len(pix))
				copy(want, pix)
				native := d.Native()
				tmp := make([]byte, native.RowBytes(3))
				for y := 0; y < 2; y++ {
					if err := (&pixfmt.Converter{Src: pixfmt.RGB565, Dst: native}).ConvertRow(tmp, pix[y*6:], 3); err != nil {
						t.Fatal(err)
					}
					if err := (&pixfmt.Converter{Src: native, Dst: pixfmt.RGB565}).ConvertRow(want[y*6:], tmp, 3); err != nil {
						t.Fatal(err)
					}
				}
				if string(got) != string(want) {
					t.Errorf("ReadRect() = % X, want % X", got, want)
				}
			})
		}
	}
}

func TestReadRectOutsideBounds(t *testing.T) {
	d := drivers(t)["ssd1306"].d
	err := ReadRect(d, image.Rect(120, 0, 130, 1), make([]byte, 20), pixfmt.RGB565)
	if err == nil {
		t.Error("ReadRect() past the right edge succeeded")
	}
}

func TestBacklightPWM(t *testing.T) {
	bl := &pwmPin{}
	d := NewILI9341(bus.NewArbiter(&fakeBus{}, nil), &Opts{Backlight: bl})
	if err := d.SetBrightness(255); err != nil {
		t.Fatal(err)
	}
	if bl.duty != 1<<24 || bl.freq != 1200*physic.Hertz {
		t.Errorf("PWM(%v, %v)", bl.duty, bl.freq)
	}
	if err := d.SetBrightness(0); err != nil {
		t.Fatal(err)
	}
	if bl.duty != 0 {
		t.Errorf("duty = %v after SetBrightness(0)", bl.duty)
	}

	noPin := NewILI9341(bus.NewArbiter(&fakeBus{}, nil), nil)
	if err := noPin.SetBrightness(10); !errors.Is(err, errors.ErrUnsupported) {
		t.Errorf("SetBrightness() without pin = %v, want ErrUnsupported", err)
	}
}
