package blit

import (
	"encoding/binary"
	"errors"
	"fmt"
	"image/color"
	"io"

	"github.com/flavioheleno/lgfx/pixfmt"
)

var (
	// ErrDecode is returned for images this package cannot draw. Nothing
	// is drawn when it is returned.
	ErrDecode = errors.New("blit: unsupported image")
	// ErrTruncated is returned when the source ends before the last row.
	// Rows drawn before the short read stay on the panel.
	ErrTruncated = errors.New("blit: truncated image")
)

const (
	magic = 0x4D42 // "BM"

	fileHeaderSize = 14
	infoHeaderSize = 40
)

// rawHeader is the BITMAPFILEHEADER followed by a BITMAPINFOHEADER.
type rawHeader struct {
	Magic           uint16
	FileSize        uint32
	Reserved        uint32
	Offset          uint32
	InfoSize        uint32
	Width           int32
	Height          int32
	Planes          uint16
	BitsPerPixel    uint16
	Compression     uint32
	ImageSize       uint32
	XPelsPerMeter   int32
	YPelsPerMeter   int32
	ColorsUsed      uint32
	ColorsImportant uint32
}

// Header is the decoded header of an uncompressed BMP.
type Header struct {
	// Offset is where the pixel rows start in the file.
	Offset int64
	Width  int
	// Height is always positive; TopDown records the sign it had.
	Height  int
	TopDown bool
	// BitsPerPixel is one of 1, 4, 8, 24 or 32.
	BitsPerPixel int
	// Palette holds the colors of 1, 4 and 8 bit images.
	Palette []color.RGBA
}

// Format returns the pixel format of the stored rows.
func (h *Header) Format() pixfmt.Format {
	switch h.BitsPerPixel {
	case 1:
		return pixfmt.Indexed1
	case 4:
		return pixfmt.Indexed4
	case 8:
		return pixfmt.Indexed8
	case 24:
		return pixfmt.BGR888
	case 32:
		return pixfmt.BGRA8888
	}
	return pixfmt.Invalid
}

// Stride returns the stored size of one row, padded to 4 bytes.
func (h *Header) Stride() int {
	return (h.Format().RowBytes(h.Width) + 3) &^ 3
}

// ReadHeader reads and validates the header and palette of a BMP image.
// On return r is positioned right after the palette.
func ReadHeader(r io.Reader) (*Header, error) {
	var raw rawHeader
	if err := binary.Read(r, binary.LittleEndian, &raw); err != nil {
		return nil, short("header", err)
	}
	switch {
	case raw.Magic != magic:
		return nil, fmt.Errorf("%w: bad magic %#04x", ErrDecode, raw.Magic)
	case raw.InfoSize < infoHeaderSize:
		return nil, fmt.Errorf("%w: %d byte info header", ErrDecode, raw.InfoSize)
	case int64(raw.Offset) < fileHeaderSize+int64(raw.InfoSize):
		return nil, fmt.Errorf("%w: pixel data at %d overlaps the header", ErrDecode, raw.Offset)
	case raw.Planes != 1:
		return nil, fmt.Errorf("%w: %d planes", ErrDecode, raw.Planes)
	case raw.Compression != 0:
		return nil, fmt.Errorf("%w: compression %d", ErrDecode, raw.Compression)
	case raw.Width <= 0 || raw.Height == 0 || raw.Height == -1<<31:
		return nil, fmt.Errorf("%w: %dx%d", ErrDecode, raw.Width, raw.Height)
	}

	h := &Header{
		Offset:       int64(raw.Offset),
		Width:        int(raw.Width),
		Height:       int(raw.Height),
		BitsPerPixel: int(raw.BitsPerPixel),
	}
	if h.Height < 0 {
		h.Height = -h.Height
		h.TopDown = true
	}
	if h.Format() == pixfmt.Invalid {
		return nil, fmt.Errorf("%w: %d bits per pixel", ErrDecode, h.BitsPerPixel)
	}
	if !h.Format().Indexed() {
		return h, nil
	}

	// Extended info headers sit between the basic one and the palette.
	if skip := int64(raw.InfoSize - infoHeaderSize); skip > 0 {
		if _, err := io.CopyN(io.Discard, r, skip); err != nil {
			return nil, short("header", err)
		}
	}
	n := 1 << h.BitsPerPixel
	if raw.ColorsUsed != 0 && int(raw.ColorsUsed) < n {
		n = int(raw.ColorsUsed)
	}
	// Some writers leave ColorsUsed at zero with a short palette.
	if room := int((h.Offset - fileHeaderSize - int64(raw.InfoSize)) / 4); room < n {
		n = room
	}
	if n == 0 {
		return nil, fmt.Errorf("%w: %d bit image without palette", ErrDecode, h.BitsPerPixel)
	}
	buf := make([]byte, 4*n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, short("palette", err)
	}
	h.Palette = make([]color.RGBA, n)
	for i := range h.Palette {
		q := buf[4*i:]
		h.Palette[i] = color.RGBA{R: q[2], G: q[1], B: q[0], A: 0xFF}
	}
	return h, nil
}

// short maps end-of-file conditions to ErrTruncated.
func short(what string, err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: %s", ErrTruncated, what)
	}
	return fmt.Errorf("blit: read %s: %w", what, err)
}
