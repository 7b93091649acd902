// Package scoring turns answer counts into percentages and pass/fail verdicts.
// Preview and finalize both go through these functions so they can never disagree.
package scoring

import "time"

// Score returns round(earned/total*100) using round-half-up on the exact
// rational. A total of zero scores 0.
func Score(earned, total int) int {
	if total <= 0 || earned <= 0 {
		return 0
	}
	if earned > total {
		earned = total
	}
	// floor((100*earned)/total + 1/2) without leaving integers.
	return (200*earned + total) / (2 * total)
}

// IsPassed reports whether score meets the passing threshold.
func IsPassed(score, passingScore int) bool {
	return score >= passingScore
}

// ElapsedMinutes is the number of whole minutes between start and now, never negative.
func ElapsedMinutes(start, now time.Time) int {
	d := now.Sub(start)
	if d < 0 {
		return 0
	}
	return int(d / time.Minute)
}
