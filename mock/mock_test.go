package mock

import (
	"context"
	"testing"

	"github.com/wippyai/tenvad"
)

func TestCore_ScriptedResults(t *testing.T) {
	ctx := context.Background()
	c := &Core{Results: []tenvad.Output{
		{Probability: 0.1},
		{Probability: 0.9, Flag: 1},
	}}

	h, code := c.Create(ctx, 4, 0.5)
	if code != 0 || h == 0 {
		t.Fatalf("Create = %d, %d", h, code)
	}

	want := []tenvad.Output{
		{Probability: 0.1},
		{Probability: 0.9, Flag: 1},
		{Probability: 0.9, Flag: 1},
	}
	var out tenvad.Output
	for i, w := range want {
		if code := c.Process(ctx, h, make([]int16, 4), &out); code != 0 {
			t.Fatalf("frame %d: code %d", i, code)
		}
		if out != w {
			t.Errorf("frame %d: got %+v, want %+v", i, out, w)
		}
	}
	if c.ProcessCallCount() != 3 {
		t.Fatalf("ProcessCallCount = %d", c.ProcessCallCount())
	}
	if c.ProcessCalls[2].Index != 2 {
		t.Errorf("Index = %d, want 2", c.ProcessCalls[2].Index)
	}
}

func TestCore_IndexesArePerHandle(t *testing.T) {
	ctx := context.Background()
	c := &Core{ResultFunc: func(i int, _ []int16) tenvad.Output {
		return tenvad.Output{Probability: float32(i)}
	}}

	a, _ := c.Create(ctx, 1, 0.5)
	b, _ := c.Create(ctx, 1, 0.5)
	var out tenvad.Output
	c.Process(ctx, a, []int16{0}, &out)
	c.Process(ctx, a, []int16{0}, &out)
	c.Process(ctx, b, []int16{0}, &out)
	if out.Probability != 0 {
		t.Fatalf("first frame of second handle should have index 0, got %v", out.Probability)
	}
}

func TestCore_FrameIsCopied(t *testing.T) {
	ctx := context.Background()
	c := &Core{}
	h, _ := c.Create(ctx, 2, 0.5)

	frame := []int16{1, 2}
	var out tenvad.Output
	c.Process(ctx, h, frame, &out)
	frame[0] = 99

	if c.ProcessCalls[0].Frame[0] != 1 {
		t.Fatal("recorded frame must not alias the caller's buffer")
	}
}

func TestCore_DoubleDestroy(t *testing.T) {
	ctx := context.Background()
	c := &Core{}
	h, _ := c.Create(ctx, 1, 0.5)
	orig := h

	if code := c.Destroy(ctx, &h); code != 0 {
		t.Fatalf("first Destroy = %d", code)
	}
	if h != 0 {
		t.Fatal("Destroy must clear the handle")
	}

	stale := orig
	if code := c.Destroy(ctx, &stale); code != tenvad.StatusUninitialized {
		t.Fatalf("second Destroy = %d, want %d", code, tenvad.StatusUninitialized)
	}
	if c.DestroyCount(orig) != 1 {
		t.Fatalf("DestroyCount = %d, want 1", c.DestroyCount(orig))
	}

	v := c.ViolationList()
	if len(v) != 1 || v[0].Reason != "handle already destroyed" {
		t.Fatalf("violations = %v", v)
	}
}

func TestCore_ProcessAfterDestroy(t *testing.T) {
	ctx := context.Background()
	c := &Core{}
	h, _ := c.Create(ctx, 1, 0.5)
	orig := h
	c.Destroy(ctx, &h)

	var out tenvad.Output
	if code := c.Process(ctx, orig, []int16{0}, &out); code != tenvad.StatusUninitialized {
		t.Fatalf("Process after Destroy = %d", code)
	}
	if c.ProcessCallCount() != 0 {
		t.Fatal("rejected call should not be recorded as processed")
	}
	if len(c.ViolationList()) != 1 {
		t.Fatal("expected a violation")
	}
}

func TestCore_ScriptedStatuses(t *testing.T) {
	ctx := context.Background()

	c := &Core{CreateStatus: tenvad.StatusInitFailed}
	if h, code := c.Create(ctx, 1, 0.5); h != 0 || code != tenvad.StatusInitFailed {
		t.Fatalf("Create = %d, %d", h, code)
	}

	c = &Core{NullHandle: true}
	if h, code := c.Create(ctx, 1, 0.5); h != 0 || code != 0 {
		t.Fatalf("Create = %d, %d", h, code)
	}

	c = &Core{ProcessStatusAt: map[int]int32{1: tenvad.StatusProcessError}}
	h, _ := c.Create(ctx, 1, 0.5)
	var out tenvad.Output
	if code := c.Process(ctx, h, []int16{0}, &out); code != 0 {
		t.Fatalf("frame 0 = %d", code)
	}
	if code := c.Process(ctx, h, []int16{0}, &out); code != tenvad.StatusProcessError {
		t.Fatalf("frame 1 = %d", code)
	}
}

func TestCore_Version(t *testing.T) {
	c := &Core{}
	if c.Version(context.Background()) != DefaultVersion {
		t.Fatal("expected default version")
	}
	c.VersionString = "1.0.5"
	if c.Version(context.Background()) != "1.0.5" {
		t.Fatal("expected configured version")
	}
	if c.VersionCalls != 2 {
		t.Fatalf("VersionCalls = %d", c.VersionCalls)
	}
}
