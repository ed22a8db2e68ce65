package domain

import "time"

// Rating score bounds.
const (
	RatingMin = 1
	RatingMax = 5
)

// Rating captures end-user feedback for a closed ticket. At most one rating
// exists per ticket.
type Rating struct {
	ID        int64
	TicketID  int64
	Score     int
	Feedback  string
	CreatedAt time.Time
}

// ValidScore reports whether score is inside the accepted range.
func ValidScore(score int) bool {
	return score >= RatingMin && score <= RatingMax
}
