package domain

import "time"

// permanentHorizon encodes "permanent" as an expiry far in the future
// instead of a sentinel, so every expiry comparison stays uniform.
const permanentHorizon = 100 * 365 * 24 * time.Hour

// OriginBan blocks reconnection from a network origin until ExpiresAt.
type OriginBan struct {
	Origin    string
	ExpiresAt time.Time
}

func (b OriginBan) ExpiredAt(now time.Time) bool {
	return !b.ExpiresAt.After(now)
}

// RestrictionExpiry maps a requested duration in minutes to an expiry
// timestamp. Zero minutes means permanent.
func RestrictionExpiry(now time.Time, minutes int) time.Time {
	if minutes == 0 {
		return now.Add(permanentHorizon)
	}
	return now.Add(time.Duration(minutes) * time.Minute)
}
