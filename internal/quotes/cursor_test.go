package quotes

import (
	"testing"
	"time"
)

func TestCursorRoundTrip(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 30, 45, 123456789, time.UTC)
	token := encodeCursor(at, 42)

	gotAt, gotID, err := decodeCursor(token)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !gotAt.Equal(at) || gotID != 42 {
		t.Fatalf("round trip mismatch: %v %d", gotAt, gotID)
	}
}

func TestCursorDecodeRejectsGarbage(t *testing.T) {
	for _, token := range []string{"", "!!!", "bm9jb2xvbg", "MTIzNDU"} {
		if _, _, err := decodeCursor(token); err == nil {
			t.Fatalf("expected error for %q", token)
		}
	}
}
