package bus

import (
	"errors"
	"math/rand"
	"testing"
)

// fakeTransport records every call made to it.
type fakeTransport struct {
	open     bool
	begins   int
	ends     int
	beginErr error
	log      []string
}

func (f *fakeTransport) String() string { return "fake" }

func (f *fakeTransport) Begin() error {
	if f.beginErr != nil {
		return f.beginErr
	}
	f.open = true
	f.begins++
	return nil
}

func (f *fakeTransport) End() error {
	f.open = false
	f.ends++
	return nil
}

func (f *fakeTransport) WriteCommand(cmd []byte) error {
	f.log = append(f.log, "cmd")
	return nil
}

func (f *fakeTransport) WriteData(data []byte) error {
	f.log = append(f.log, "data")
	return nil
}

func (f *fakeTransport) ReadData(dst []byte) error { return ErrWriteOnly }

func TestArbiterNesting(t *testing.T) {
	ft := &fakeTransport{}
	a := NewArbiter(ft, nil)

	for i := 0; i < 3; i++ {
		if err := a.Begin(); err != nil {
			t.Fatal(err)
		}
	}
	if ft.begins != 1 {
		t.Errorf("begins = %d, want 1", ft.begins)
	}
	for i := 0; i < 2; i++ {
		if err := a.End(); err != nil {
			t.Fatal(err)
		}
		if !ft.open {
			t.Fatalf("transport closed at depth %d", a.Depth())
		}
	}
	if err := a.End(); err != nil {
		t.Fatal(err)
	}
	if ft.open || ft.ends != 1 {
		t.Errorf("open = %v, ends = %d, want closed once", ft.open, ft.ends)
	}
}

func TestArbiterOpenIffDepthPositive(t *testing.T) {
	ft := &fakeTransport{}
	a := NewArbiter(ft, nil)
	rnd := rand.New(rand.NewSource(1))

	for i := 0; i < 1000; i++ {
		if rnd.Intn(2) == 0 {
			if err := a.Begin(); err != nil {
				t.Fatal(err)
			}
		} else if err := a.End(); err != nil {
			t.Fatal(err)
		}
		if a.Depth() < 0 {
			t.Fatalf("step %d: depth = %d", i, a.Depth())
		}
		if a.Open() != (a.Depth() > 0) || ft.open != a.Open() {
			t.Fatalf("step %d: depth = %d, Open() = %v, transport open = %v", i, a.Depth(), a.Open(), ft.open)
		}
	}
	if ft.begins-ft.ends > 1 || ft.ends > ft.begins {
		t.Errorf("begins = %d, ends = %d", ft.begins, ft.ends)
	}
}

func TestArbiterUnbalancedEnd(t *testing.T) {
	tests := []struct {
		name    string
		opts    *ArbiterOpts
		wantErr error
	}{
		{"lenient", nil, nil},
		{"strict", &ArbiterOpts{Strict: true}, ErrUnbalanced},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ft := &fakeTransport{}
			a := NewArbiter(ft, tt.opts)
			if err := a.End(); !errors.Is(err, tt.wantErr) {
				t.Errorf("End() = %v, want %v", err, tt.wantErr)
			}
			if a.Depth() != 0 || ft.ends != 0 {
				t.Errorf("depth = %d, ends = %d, want 0, 0", a.Depth(), ft.ends)
			}
		})
	}
}

func TestArbiterBeginFailureRollsBack(t *testing.T) {
	ft := &fakeTransport{beginErr: errors.New("no bus")}
	a := NewArbiter(ft, nil)
	if err := a.Begin(); !errors.Is(err, ft.beginErr) {
		t.Fatalf("Begin() = %v, want %v", err, ft.beginErr)
	}
	if a.Depth() != 0 || a.Open() {
		t.Errorf("depth = %d after failed Begin", a.Depth())
	}
}

func TestGuardReleaseIdempotent(t *testing.T) {
	ft := &fakeTransport{}
	a := NewArbiter(ft, nil)
	outer, err := a.Acquire()
	if err != nil {
		t.Fatal(err)
	}
	inner, err := a.Acquire()
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if err := inner.Release(); err != nil {
			t.Fatal(err)
		}
	}
	if a.Depth() != 1 {
		t.Fatalf("depth = %d after releasing inner guard, want 1", a.Depth())
	}
	if err := outer.Release(); err != nil {
		t.Fatal(err)
	}
	if a.Open() || ft.ends != 1 {
		t.Errorf("Open() = %v, ends = %d", a.Open(), ft.ends)
	}
}

func TestSuspendResume(t *testing.T) {
	ft := &fakeTransport{}
	a := NewArbiter(ft, nil)
	a.Begin()
	a.Begin()

	d, err := a.Suspend()
	if err != nil {
		t.Fatal(err)
	}
	if d != 2 || a.Open() || ft.open {
		t.Fatalf("Suspend() = %d, Open() = %v, transport open = %v", d, a.Open(), ft.open)
	}
	if err := a.Resume(d); err != nil {
		t.Fatal(err)
	}
	if a.Depth() != 2 || !ft.open || ft.begins != 2 {
		t.Errorf("after Resume depth = %d, open = %v, begins = %d", a.Depth(), ft.open, ft.begins)
	}

	// Suspending an idle bus is a no-op.
	a.End()
	a.End()
	if d, _ := a.Suspend(); d != 0 {
		t.Errorf("Suspend() on idle bus = %d", d)
	}
	if err := a.Resume(0); err != nil || a.Open() {
		t.Errorf("Resume(0) = %v, Open() = %v", err, a.Open())
	}
}

func TestOnReleaseRunsBeforeClose(t *testing.T) {
	ft := &fakeTransport{}
	a := NewArbiter(ft, nil)
	var openDuringHook bool
	a.OnRelease(func() error {
		openDuringHook = ft.open
		return ft.WriteCommand([]byte{0})
	})
	a.Begin()
	a.Begin()
	a.End()
	if len(ft.log) != 0 {
		t.Fatalf("release hook ran at depth 1")
	}
	a.End()
	if !openDuringHook || len(ft.log) != 1 {
		t.Errorf("hook open = %v, writes = %v", openDuringHook, ft.log)
	}
}
