package clock

import (
	"testing"
	"time"
)

func TestSystemNowMillis(t *testing.T) {
	t.Parallel()

	before := time.Now().UnixMilli()
	got := System{}.NowMillis()
	after := time.Now().UnixMilli()

	if got < before || got > after {
		t.Fatalf("expected %d <= now <= %d, got %d", before, after, got)
	}
}

func TestFake(t *testing.T) {
	t.Parallel()

	f := NewFake(1000)
	if got := f.NowMillis(); got != 1000 {
		t.Fatalf("expected 1000, got %d", got)
	}

	f.Advance(250 * time.Millisecond)
	if got := f.NowMillis(); got != 1250 {
		t.Fatalf("expected 1250, got %d", got)
	}

	f.Set(5)
	if got := f.NowMillis(); got != 5 {
		t.Fatalf("expected 5, got %d", got)
	}
}
