package battleground

import "time"

// AccruedActionPoints returns the action points earned since the battle
// started: one allotment per full day elapsed, starting with the first
// allotment at start time. Nothing accrues before the battle is ongoing.
func AccruedActionPoints(b Battleground, now time.Time) uint64 {
	if b.Status == StatusPreparing || now.Before(b.StartTime) {
		return 0
	}
	days := uint64(now.Sub(b.StartTime)/(24*time.Hour)) + 1
	return days * uint64(b.ActionPointsPerDay)
}

// AvailableActionPoints returns the unspent action points of a participant.
func AvailableActionPoints(b Battleground, p Participant, now time.Time) uint64 {
	accrued := AccruedActionPoints(b, now)
	spent := uint64(p.ActionPointsSpent)
	if spent >= accrued {
		return 0
	}
	return accrued - spent
}
