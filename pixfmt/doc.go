// Package pixfmt describes the pixel encodings spoken by display controllers
// and converts rows of pixels between them.
//
// Sub-byte formats pack pixels most significant bits first, so for Gray4 the
// high nibble holds the left pixel:
//
//	Pixels: 0  1  2  3
//	Values: 5  10 3  12
//	Bytes:  0x5A     0x3C
//
// Multi-byte formats are stored in the byte order the controller expects on
// the wire: RGB565 is big-endian, RGB565LE little-endian, RGB666 uses three
// bytes with the top six bits significant and BGR888/BGRA8888 match the BMP
// file layout.
//
// The package provides:
//
// - Format: the wire encodings and their sizes
// - Converter: row conversion, including in place when the buffer is shared
// - Gray4Color and RGB565Color: color.Color types agreeing with Converter
// - Nibble: a draw.Image whose rows are packed Gray4, with row and fill
// operations
//
// Example usage:
//
//	c := pixfmt.Converter{Src: pixfmt.BGR888, Dst: pixfmt.RGB565}
//	if err := c.ConvertInPlace(row, width); err != nil {
//		return err
//	}
//	// row[:pixfmt.RGB565.RowBytes(width)] now holds big-endian RGB565.
package pixfmt
