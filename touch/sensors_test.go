package touch

import (
	"bytes"
	"errors"
	"testing"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/i2c/i2ctest"
)

func TestFT5x06Points(t *testing.T) {
	report := []byte{
		2,
		0x81, 0x23, 0x14, 0x56, 0, 0,
		0x00, 0x10, 0x20, 0x20, 0, 0,
		0, 0, 0, 0, 0, 0,
	}
	b := &script{replies: [][]byte{report}}
	f := NewFT5x06(b, 0)
	pts := make([]Point, 3)
	n, err := f.Read(pts)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("Read() = %d points, want 2", n)
	}
	want := []Point{{X: 0x123, Y: 0x456, ID: 1, Size: 1}, {X: 0x010, Y: 0x020, ID: 2, Size: 1}}
	for i := range want {
		if pts[i] != want[i] {
			t.Errorf("point %d = %+v, want %+v", i, pts[i], want[i])
		}
	}
	if !bytes.Equal(b.writes[0], []byte{0x02}) {
		t.Errorf("read from register % X, want 02", b.writes[0])
	}

	b.replies = [][]byte{{0x0F}}
	if _, err := f.Read(pts[:1]); err == nil {
		t.Error("Read() accepted 15 points")
	}
}

func TestFT5x06Sleep(t *testing.T) {
	b := &script{}
	f := NewFT5x06(b, 0)
	if err := f.Sleep(); err != nil {
		t.Fatal(err)
	}
	if err := f.Wakeup(); err != nil {
		t.Fatal(err)
	}
	want := [][]byte{{0x87, 0x03}, {0x87, 0x01}}
	for i := range want {
		if !bytes.Equal(b.writes[i], want[i]) {
			t.Errorf("write %d = % X, want % X", i, b.writes[i], want[i])
		}
	}
}

func TestGT911(t *testing.T) {
	pb := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: 0x5D, W: []byte{0x81, 0x4E, 0x00}},
			{Addr: 0x5D, W: []byte{0x81, 0x40}, R: []byte("911\x00")},
			// One point ready.
			{Addr: 0x5D, W: []byte{0x81, 0x4E}, R: []byte{0x81}},
			{Addr: 0x5D, W: []byte{0x81, 0x4F}, R: []byte{3, 0x10, 0x01, 0x20, 0x02, 0x30, 0x00, 0x00}},
			{Addr: 0x5D, W: []byte{0x81, 0x4E, 0x00}},
			// Nothing new: the last report stands.
			{Addr: 0x5D, W: []byte{0x81, 0x4E}, R: []byte{0x00}},
		},
		DontPanic: true,
	}
	d := initDev(t, NewGT911(pb, 0), nil)
	want := Point{X: 0x110, Y: 0x220, ID: 3, Size: 0x30}
	for i := 0; i < 2; i++ {
		pts := make([]Point, MaxPoints)
		if n := d.Poll(pts); n != 1 || pts[0] != want {
			t.Errorf("poll %d: %d points, %+v, want %+v", i, n, pts[0], want)
		}
	}
}

func TestGT911WrongProduct(t *testing.T) {
	pb := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: 0x14, W: []byte{0x81, 0x4E, 0x00}},
			{Addr: 0x14, W: []byte{0x81, 0x40}, R: []byte("1158")},
		},
		DontPanic: true,
	}
	if err := NewGT911(pb, GT911AltAddr).Probe(); !errors.Is(err, ErrNotFound) {
		t.Errorf("Probe() = %v, want ErrNotFound", err)
	}
}

// nackWrites fails every write-only transaction.
type nackWrites struct {
	script
}

var errNack = errors.New("nack")

func (n *nackWrites) Tx(addr uint16, w, r []byte) error {
	if len(r) == 0 {
		return errNack
	}
	return n.script.Tx(addr, w, r)
}

func TestGT911TooManyPoints(t *testing.T) {
	b := &script{replies: [][]byte{{0x8F}}}
	if n, err := NewGT911(b, 0).Read(make([]Point, MaxPoints)); n != 0 || err == nil {
		t.Errorf("Read() = %d, %v", n, err)
	}
	if got := b.writes[len(b.writes)-1]; !bytes.Equal(got, []byte{0x81, 0x4E, 0x00}) {
		t.Errorf("last write = % X, want the status ack", got)
	}

	nb := &nackWrites{script{replies: [][]byte{{0x8F}}}}
	if _, err := NewGT911(nb, 0).Read(make([]Point, MaxPoints)); !errors.Is(err, errNack) {
		t.Errorf("Read() = %v, want the failed ack", err)
	}
}

func TestGT911Wakeup(t *testing.T) {
	g := NewGT911(&script{}, 0)
	if err := g.Wakeup(); !errors.Is(err, errors.ErrUnsupported) {
		t.Errorf("Wakeup() without pin = %v", err)
	}
	pin := &gpiotest.Pin{N: "INT"}
	g.Int = pin
	if err := g.Wakeup(); err != nil {
		t.Fatal(err)
	}
	if pin.L != gpio.High {
		t.Error("INT not driven high")
	}
}

func TestCST816S(t *testing.T) {
	rst := &gpiotest.Pin{N: "RST"}
	b := &script{replies: [][]byte{
		{0xB4, 0x00, 0x01},
		{1, 0x40, 50, 0x00, 60},
		{2, 0, 0, 0, 0},
		{1, 0x01, 0x02, 0x01, 0x03},
	}}
	c := NewCST816S(b, 0)
	c.RST = rst
	d := initDev(t, c, nil)
	if c.ChipID() != 0xB4 {
		t.Errorf("ChipID() = %#x", c.ChipID())
	}
	if rst.L != gpio.High {
		t.Error("reset left asserted")
	}

	pts := make([]Point, 2)
	if n := d.Poll(pts); n != 1 || pts[0] != (Point{X: 50, Y: 60, Size: 1}) {
		t.Errorf("Poll() = %d %+v", n, pts[0])
	}
	// A two finger report is noise on a single touch controller.
	if n := d.Poll(pts); n != 1 || pts[0] != (Point{X: 0x102, Y: 0x103, Size: 1}) {
		t.Errorf("Poll() after noise = %d %+v", n, pts[0])
	}
}

func TestCST816SNotFound(t *testing.T) {
	b := &script{replies: [][]byte{{0x00, 0x00, 0x00}}}
	if err := NewCST816S(b, 0).Probe(); !errors.Is(err, ErrNotFound) {
		t.Errorf("Probe() = %v, want ErrNotFound", err)
	}
}

// frames is an SPI connection answering every transfer with rx.
type frames struct {
	rx []byte
	tx [][]byte
}

func (f *frames) String() string      { return "frames" }
func (f *frames) Duplex() conn.Duplex { return conn.Full }

func (f *frames) Tx(w, r []byte) error {
	f.tx = append(f.tx, append([]byte(nil), w...))
	copy(r, f.rx)
	return nil
}

// xptFrameFor returns the reply of seven identical samples.
func xptFrameFor(x, y int) []byte {
	rx := make([]byte, xptFrame)
	for j := 0; j < xptSamples; j++ {
		d := rx[8*j:]
		d[1], d[2] = byte(y<<3>>8), byte(y<<3)
		d[5], d[6] = byte(x<<3>>8), byte(x<<3)
	}
	return rx
}

func TestXPT2046(t *testing.T) {
	f := &frames{rx: xptFrameFor(1000, 2000)}
	x := NewXPT2046(f)
	pts := make([]Point, 1)
	n, err := x.Read(pts)
	if err != nil {
		t.Fatal(err)
	}
	// Pressure 0x3200 + y - x, in 1/256 units.
	if want := (Point{X: 1000, Y: 2000, Size: (0x3200 + 1000) >> 8}); n != 1 || pts[0] != want {
		t.Errorf("Read() = %d %+v, want %+v", n, pts[0], want)
	}
	tx := f.tx[0]
	if len(tx) != xptFrame || tx[0] != 0x91 || tx[2] != 0xB1 || tx[4] != 0xD1 || tx[6] != 0xC1 || tx[xptFrame-1] != 0x80 {
		t.Errorf("frame = % X", tx)
	}

	f.rx = xptFrameFor(20, 4000)
	if n, _ := x.Read(pts); n != 0 {
		t.Errorf("Read() of edge noise = %d points", n)
	}
}
