// Package scoring turns answer outcomes into points.
package scoring

import "math"

// DefaultTimeLimit is the per-question answer window in seconds.
const DefaultTimeLimit = 30.0

// maxSpeedBonus is the fraction of base points granted for an instant answer.
const maxSpeedBonus = 0.5

// CalculatePoints awards basePoints for a correct answer plus a speed bonus of up to
// 50% that shrinks linearly to zero at timeLimit. Times are in seconds; negative times
// are treated as zero and times at or past the limit earn no bonus.
func CalculatePoints(basePoints int, correct bool, timeTaken, timeLimit float64) int {
	if !correct {
		return 0
	}
	if timeTaken < 0 {
		timeTaken = 0
	}
	bonus := 0.0
	if timeLimit > 0 {
		bonus = math.Max(0, (timeLimit-timeTaken)/timeLimit) * maxSpeedBonus
	}
	return int(math.Round(float64(basePoints) * (1 + bonus)))
}
