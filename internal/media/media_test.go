package media

import (
	"errors"
	"testing"
	"time"
)

func TestProducerAttachOrder(t *testing.T) {
	p := NewProducer("clip", 100)
	a := NewFilter("a", nil)
	b := NewFilter("b", nil)
	c := NewFilter("c", nil)

	for _, tc := range []struct {
		f   *Filter
		pos int
	}{{a, 0}, {b, 1}, {c, 0}} {
		if err := p.Attach(tc.f, tc.pos); err != nil {
			t.Fatalf("Attach(%s, %d): %v", tc.f.Asset(), tc.pos, err)
		}
	}

	want := []*Filter{c, a, b}
	if p.FilterCount() != len(want) {
		t.Fatalf("FilterCount = %d, want %d", p.FilterCount(), len(want))
	}
	for i, f := range want {
		if p.FilterAt(i) != f {
			t.Errorf("FilterAt(%d) = %s, want %s", i, p.FilterAt(i).Asset(), f.Asset())
		}
	}
	if p.FilterAt(5) != nil {
		t.Error("FilterAt out of range should be nil")
	}

	if err := p.Attach(a, 0); !errors.Is(err, ErrFilterAttached) {
		t.Errorf("double attach err = %v", err)
	}
	if err := p.Attach(NewFilter("d", nil), 9); !errors.Is(err, ErrPosition) {
		t.Errorf("bad position err = %v", err)
	}

	if err := p.Detach(a); err != nil {
		t.Fatal(err)
	}
	if a.Attached() {
		t.Error("detached filter still marked attached")
	}
	if err := p.Detach(a); !errors.Is(err, ErrFilterNotAttached) {
		t.Errorf("double detach err = %v", err)
	}
}

func TestProducerInOut(t *testing.T) {
	p := NewProducer("clip", 100)
	if p.In() != 0 || p.Out() != 99 || p.Playtime() != 100 {
		t.Fatalf("initial span = [%d, %d] playtime %d", p.In(), p.Out(), p.Playtime())
	}

	tests := []struct {
		name    string
		in, out int
		wantErr bool
	}{
		{"inside", 10, 50, false},
		{"negative in", -1, 50, true},
		{"out past length", 0, 100, true},
		{"reversed", 50, 10, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := p.SetInOut(tt.in, tt.out)
			if (err != nil) != tt.wantErr {
				t.Errorf("SetInOut(%d, %d) err = %v", tt.in, tt.out, err)
			}
		})
	}
	if p.In() != 10 || p.Out() != 50 {
		t.Errorf("span = [%d, %d], want [10, 50]", p.In(), p.Out())
	}

	e := NewEndlessProducer("color", 10)
	if err := e.SetInOut(0, 499); err != nil {
		t.Fatal(err)
	}
	if e.Length() != 500 {
		t.Errorf("endless Length = %d, want 500", e.Length())
	}
}

func TestProducerProperties(t *testing.T) {
	p := NewProducer("clip", 10)
	p.Set("kdenlive:activeeffect", "3")
	if got := p.GetInt("kdenlive:activeeffect"); got != 3 {
		t.Errorf("GetInt = %d, want 3", got)
	}
	if _, ok := p.Get("missing"); ok {
		t.Error("missing property reported present")
	}
	p.Set("bad", "x")
	if p.GetInt("bad") != 0 {
		t.Error("non-numeric property should read as 0")
	}
}

func TestHandleExpires(t *testing.T) {
	p := NewProducer("clip", 10)
	h := NewHandle(p)
	if !h.Valid() {
		t.Fatal("fresh handle should be valid")
	}
	if !h.Same(NewHandle(p)) {
		t.Error("handles to the same producer should match")
	}

	p.Close()
	if h.Valid() {
		t.Error("handle should fail after Close")
	}
	if _, ok := h.Lock(); ok {
		t.Error("Lock should fail after Close")
	}
	if err := p.Attach(NewFilter("a", nil), 0); !errors.Is(err, ErrClosed) {
		t.Errorf("attach on closed producer err = %v", err)
	}

	var zero Handle
	if zero.Valid() {
		t.Error("zero handle should never resolve")
	}
	if NewHandle(nil).Valid() {
		t.Error("nil producer handle should never resolve")
	}
}

func TestFilterParams(t *testing.T) {
	f := NewFilter("volume", []Param{{Name: "level", Value: "0"}, {Name: "gain", Value: "1"}})
	f.Set("level", "-6")
	f.Set("extra", "12")
	f.Unset("gain")

	params := f.Params()
	want := []Param{{"level", "-6"}, {"extra", "12"}}
	if len(params) != len(want) {
		t.Fatalf("Params = %v, want %v", params, want)
	}
	for i := range want {
		if params[i] != want[i] {
			t.Errorf("Params[%d] = %v, want %v", i, params[i], want[i])
		}
	}
	if f.GetInt("extra") != 12 {
		t.Errorf("GetInt(extra) = %d", f.GetInt("extra"))
	}

	f.SetInOut(5, 20)
	c := f.Clone()
	c.Set("level", "0")
	if c.In() != 5 || c.Out() != 20 {
		t.Errorf("clone span = [%d, %d]", c.In(), c.Out())
	}
	if v, _ := f.Get("level"); v != "-6" {
		t.Error("clone shares parameters with the original")
	}
	if c.Attached() {
		t.Error("clone should be detached")
	}
}

func TestProfile(t *testing.T) {
	p := DefaultProfile()
	if err := p.Validate(); err != nil {
		t.Fatal(err)
	}
	if got := p.Frames(2 * time.Second); got != 50 {
		t.Errorf("Frames(2s) = %d, want 50", got)
	}
	if got := p.Duration(25); got != time.Second {
		t.Errorf("Duration(25) = %v, want 1s", got)
	}

	ntsc := Profile{FrameRateNum: 30000, FrameRateDen: 1001, SampleRate: 48000}
	if got := ntsc.Frames(time.Second + time.Millisecond); got != 30 {
		t.Errorf("Frames(~1s) at 29.97 = %d, want 30", got)
	}

	bad := Profile{FrameRateNum: 0, FrameRateDen: 1, SampleRate: 48000}
	if err := bad.Validate(); err == nil {
		t.Error("zero frame rate should fail validation")
	}
}
