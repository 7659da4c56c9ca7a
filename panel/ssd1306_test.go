package panel

import (
	"bytes"
	"image"
	"image/color"
	"testing"

	"github.com/flavioheleno/lgfx/bus"
	"github.com/flavioheleno/lgfx/geom"
	"github.com/flavioheleno/lgfx/pixfmt"
	"periph.io/x/conn/v3/i2c/i2ctest"
)

func newTestSSD1306(t *testing.T) (*SSD1306, *fakeBus) {
	t.Helper()
	fb := &fakeBus{}
	d := NewSSD1306(bus.NewArbiter(fb, nil), nil)
	if err := d.Configure(d.DefaultGeometry()); err != nil {
		t.Fatal(err)
	}
	return d, fb
}

func TestSSD1306Configure(t *testing.T) {
	tests := []struct {
		name    string
		g       Geometry
		wantErr bool
	}{
		{"128x64", Geometry{PanelWidth: 128, PanelHeight: 64}, false},
		{"128x32", Geometry{PanelWidth: 128, PanelHeight: 32}, false},
		{"72x40 inside 128x64", Geometry{PanelWidth: 72, PanelHeight: 40, MemoryWidth: 128, MemoryHeight: 64, OffsetX: 28, OffsetY: 16}, false},
		{"height not a multiple of 8", Geometry{PanelWidth: 128, PanelHeight: 60}, true},
		{"y offset not a multiple of 8", Geometry{PanelWidth: 64, PanelHeight: 32, MemoryWidth: 128, MemoryHeight: 64, OffsetY: 4}, true},
		{"too wide", Geometry{PanelWidth: 132, PanelHeight: 64}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewSSD1306(bus.NewArbiter(&fakeBus{}, nil), nil)
			if err := d.Configure(tt.g); (err != nil) != tt.wantErr {
				t.Errorf("Configure() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSSD1306FlushPages(t *testing.T) {
	d, fb := newTestSSD1306(t)
	if err := d.FillRect(image.Rect(0, 0, 2, 9), color.White); err != nil {
		t.Fatal(err)
	}
	want := []op{
		{'C', []byte{0x21, 0, 1, 0x22, 0, 1}},
		{'D', []byte{0xFF, 0xFF}},
		{'D', []byte{0x01, 0x01}},
	}
	got := fb.writes()
	if len(got) != len(want) {
		t.Fatalf("writes = %v, want %v", got, want)
	}
	for i := range want {
		if got[i].kind != want[i].kind || !bytes.Equal(got[i].b, want[i].b) {
			t.Errorf("write %d = %c % X, want %c % X", i, got[i].kind, got[i].b, want[i].kind, want[i].b)
		}
	}
}

func TestSSD1306Rotation(t *testing.T) {
	d, fb := newTestSSD1306(t)
	if err := d.SetRotation(geom.Rotate90); err != nil {
		t.Fatal(err)
	}
	if b := d.Bounds(); b != image.Rect(0, 0, 64, 128) {
		t.Fatalf("Bounds() = %v", b)
	}
	// One white pixel at the logical origin.
	if err := d.WriteRect(image.Rect(0, 0, 1, 1), []byte{0x80}, pixfmt.Mono1); err != nil {
		t.Fatal(err)
	}
	w := fb.writes()
	if len(w) != 2 {
		t.Fatalf("writes = %v", w)
	}
	if !bytes.Equal(w[0].b, []byte{0x21, 127, 127, 0x22, 0, 0}) {
		t.Errorf("window = % X, want column 127 page 0", w[0].b)
	}
	if !bytes.Equal(w[1].b, []byte{0x01}) {
		t.Errorf("page data = % X, want 01", w[1].b)
	}
}

func TestSSD1306Batching(t *testing.T) {
	d, fb := newTestSSD1306(t)
	a := d.Arbiter()
	a.Begin()
	for x := 0; x < 8; x++ {
		if err := d.FillRect(image.Rect(x, 0, x+1, 1), color.White); err != nil {
			t.Fatal(err)
		}
	}
	if len(fb.writes()) != 0 {
		t.Fatal("flushed inside an open transaction")
	}
	if err := a.End(); err != nil {
		t.Fatal(err)
	}
	if n := len(fb.writes()); n != 2 {
		t.Errorf("%d writes after batching, want window and one page", n)
	}
}

func TestSSD1306OverI2C(t *testing.T) {
	rec := &i2ctest.Record{}
	tr, err := bus.NewI2C(rec, nil)
	if err != nil {
		t.Fatal(err)
	}
	d := NewSSD1306(bus.NewArbiter(tr, nil), nil)
	if err := d.Configure(Geometry{PanelWidth: 128, PanelHeight: 32}); err != nil {
		t.Fatal(err)
	}
	if err := d.Init(); err != nil {
		t.Fatal(err)
	}
	if len(rec.Ops) == 0 {
		t.Fatal("nothing sent")
	}
	first := rec.Ops[0]
	if first.Addr != 0x3C || first.W[0] != 0x00 || first.W[1] != 0xAE {
		t.Errorf("first transfer = %#x % X", first.Addr, first.W)
	}
	// Multiplex ratio and COM pins follow the 32 rows.
	if i := bytes.Index(first.W, []byte{0xA8}); i < 0 || first.W[i+1] != 31 {
		t.Errorf("multiplex ratio not set to 31 in % X", first.W)
	}
	if !bytes.Contains(first.W, []byte{0xDA, 0x02}) {
		t.Errorf("COM pins not set for 32 rows in % X", first.W)
	}
	last := rec.Ops[len(rec.Ops)-1]
	if !bytes.Equal(last.W, []byte{0x00, 0xAF}) {
		t.Errorf("last transfer = % X, want display on", last.W)
	}
}

func TestSSD1306Contrast(t *testing.T) {
	d, fb := newTestSSD1306(t)
	if err := d.SetBrightness(0x40); err != nil {
		t.Fatal(err)
	}
	w := fb.writes()
	if len(w) != 1 || !bytes.Equal(w[0].b, []byte{0x81, 0x40}) {
		t.Errorf("writes = %v, want contrast 0x40", w)
	}
}
