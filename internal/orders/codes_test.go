package orders

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

type stubSequence struct {
	n   int64
	err error
}

func (s stubSequence) NextOrderCodeSeq(context.Context) (int64, error) {
	return s.n, s.err
}

func TestGenerateOrderCodeSequenceForm(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	code := GenerateOrderCode(context.Background(), stubSequence{n: 123}, "JBL", now, nil)
	if code != "JBL-2026-000123" {
		t.Fatalf("expected JBL-2026-000123, got %s", code)
	}
}

func TestGenerateOrderCodeFallback(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	code := GenerateOrderCode(context.Background(), stubSequence{err: errors.New("sequence missing")}, "JBL", now, nil)
	expected := fmt.Sprintf("JBL-2026-%d", now.UnixMilli())
	if code != expected {
		t.Fatalf("expected %s, got %s", expected, code)
	}
}

func TestGenerateOrderCodeDefaultPrefix(t *testing.T) {
	now := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	code := GenerateOrderCode(context.Background(), stubSequence{n: 7}, "", now, nil)
	if code != "JBL-2026-000007" {
		t.Fatalf("expected default prefix, got %s", code)
	}
}
