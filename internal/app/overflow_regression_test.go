package app

import (
	"math"
	"testing"
)

func TestMulDiv(t *testing.T) {
	got, err := mulDiv(math.MaxUint64, 5000, 10_000)
	if err != nil {
		t.Fatalf("mulDiv: %v", err)
	}
	if got != math.MaxUint64/2 {
		t.Fatalf("expected %d, got %d", uint64(math.MaxUint64/2), got)
	}

	// Result exceeding uint64 is refused, not wrapped.
	if _, err := mulDiv(math.MaxUint64, 2, 1); err == nil {
		t.Fatalf("expected overflow error")
	}
	if _, err := mulDiv(1, 1, 0); err == nil {
		t.Fatalf("expected division-by-zero error")
	}

	got, err = mulDiv(7, 3, 2)
	if err != nil {
		t.Fatalf("mulDiv: %v", err)
	}
	if got != 10 {
		t.Fatalf("expected floor(21/2)=10, got %d", got)
	}
}

func TestAddU64Checked(t *testing.T) {
	if _, err := addU64Checked(math.MaxUint64, 1, "x"); err == nil {
		t.Fatalf("expected overflow error")
	}
	got, err := addU64Checked(math.MaxUint64-1, 1, "x")
	if err != nil {
		t.Fatalf("addU64Checked: %v", err)
	}
	if got != math.MaxUint64 {
		t.Fatalf("expected max, got %d", got)
	}
}

func TestAddInt64AndU64Checked(t *testing.T) {
	if _, err := addInt64AndU64Checked(math.MaxInt64, 1, "x"); err == nil {
		t.Fatalf("expected overflow error")
	}
	if _, err := addInt64AndU64Checked(0, math.MaxUint64, "x"); err == nil {
		t.Fatalf("expected too-large error")
	}
	got, err := addInt64AndU64Checked(100, 30, "x")
	if err != nil {
		t.Fatalf("addInt64AndU64Checked: %v", err)
	}
	if got != 130 {
		t.Fatalf("expected 130, got %d", got)
	}
}

func TestMint_OverflowRejected(t *testing.T) {
	a := newTestApp(t)

	mintTestTokens(t, a, "alice", math.MaxUint64)
	res := a.deliverTx(txBytes(t, "bank/mint", map[string]any{"to": "alice", "amount": uint64(1)}), 0)
	mustFailCode(t, res, 25)
	if got := a.st.Balance("alice"); got != math.MaxUint64 {
		t.Fatalf("expected balance unchanged, got %d", got)
	}
}
