package calc

import (
	"fmt"
	"math"
)

// TieOutTolerance is the absolute gap below which two reported figures agree.
const TieOutTolerance = 0.01

// VerificationResult holds the status of a tie-out between two reported figures.
type VerificationResult struct {
	IsBalanced bool
	Gap        float64
	Warnings   []string
}

// CheckTieOut compares the same line item as reported by two statements.
// Undefined inputs are skipped rather than flagged.
func CheckTieOut(item string, reported, restated float64) VerificationResult {
	if !IsDefined(reported) || !IsDefined(restated) {
		return VerificationResult{IsBalanced: true}
	}
	gap := reported - restated
	isBalanced := math.Abs(gap) < TieOutTolerance

	var warnings []string
	if !isBalanced {
		warnings = append(warnings, fmt.Sprintf("%s differs across statements by %.2f", item, gap))
	}

	return VerificationResult{
		IsBalanced: isBalanced,
		Gap:        gap,
		Warnings:   warnings,
	}
}
