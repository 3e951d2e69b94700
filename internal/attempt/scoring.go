package attempt

import "time"

const (
	XPPerCorrect     = 10
	bonusWindowSecs  = 240
	bonusSecsPerStep = 5
)

// ComputeXP awards XPPerCorrect per correct answer plus a time bonus that
// decays by one point every five seconds and reaches zero at four minutes.
// No bonus is paid without at least one correct answer.
func ComputeXP(correctCount int, elapsed time.Duration) int {
	if correctCount <= 0 {
		return 0
	}
	secs := int(elapsed / time.Second)
	bonus := (bonusWindowSecs - secs) / bonusSecsPerStep
	if bonus < 0 {
		bonus = 0
	}
	return correctCount*XPPerCorrect + bonus
}
