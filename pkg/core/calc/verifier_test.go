package calc

import (
	"math"
	"testing"
)

func TestCheckTieOut(t *testing.T) {
	r := CheckTieOut("netIncome", 100, 100.001)
	if !r.IsBalanced || len(r.Warnings) != 0 {
		t.Errorf("expected tie-out within tolerance, got %+v", r)
	}

	r = CheckTieOut("netIncome", 100, 90)
	if r.IsBalanced {
		t.Errorf("expected mismatch")
	}
	if math.Abs(r.Gap-10) > 1e-9 {
		t.Errorf("gap = %v, want 10", r.Gap)
	}
	if len(r.Warnings) != 1 {
		t.Errorf("expected one warning, got %v", r.Warnings)
	}

	r = CheckTieOut("netIncome", Undefined, 90)
	if !r.IsBalanced {
		t.Errorf("undefined input should be skipped")
	}
}
