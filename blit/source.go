package blit

import (
	"errors"
	"fmt"
	"io"
	"os"

	"tinygo.org/x/tinyfs"
)

// Opener opens images by name.
type Opener interface {
	Open(name string) (io.ReadSeekCloser, error)
}

// Dir opens images from a directory of the host filesystem. Names cannot
// escape the directory.
type Dir string

func (d Dir) Open(name string) (io.ReadSeekCloser, error) {
	f, err := os.OpenInRoot(string(d), name)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// TinyFS opens images on a TinyGo filesystem, e.g. littlefs on flash or
// fatfs on an SD card. The storage may share the bus of the panel. Blitter
// releases the panel's transaction around every access.
type TinyFS struct {
	FS interface {
		OpenFile(path string, flags int) (tinyfs.File, error)
	}
}

func (t TinyFS) Open(name string) (io.ReadSeekCloser, error) {
	f, err := t.FS.OpenFile(name, os.O_RDONLY)
	if err != nil {
		return nil, err
	}
	if f.IsDir() {
		f.Close()
		return nil, fmt.Errorf("blit: %s is a directory", name)
	}
	if s, ok := f.(io.ReadSeekCloser); ok {
		return s, nil
	}
	return &forward{f: f}, nil
}

// forward adds forward-only seeking to files that cannot seek, by
// reading and dropping bytes.
type forward struct {
	f   tinyfs.File
	pos int64
}

var errSeek = errors.New("blit: file only seeks forward from the start")

func (f *forward) Read(p []byte) (int, error) {
	n, err := f.f.Read(p)
	f.pos += int64(n)
	return n, err
}

func (f *forward) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		offset += f.pos
	default:
		return f.pos, errSeek
	}
	if offset < f.pos {
		return f.pos, errSeek
	}
	if _, err := io.CopyN(io.Discard, f, offset-f.pos); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return f.pos, err
	}
	return f.pos, nil
}

func (f *forward) Close() error {
	return f.f.Close()
}
