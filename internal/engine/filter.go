package engine

import (
	"time"

	"github.com/peltran/giftwise/internal/config"
)

// Filter selects a stable subsequence of contacts by token:
//
//   - "all" returns the input unchanged;
//   - a relationship token keeps contacts with exactly that relationship;
//   - "upcomingEvents" keeps contacts with any date upcoming within the
//     7-day badge window;
//   - anything else falls back to "all" rather than raising an error.
//
// Input order is preserved in every case.
func Filter(contacts []Contact, token string, today time.Time) []Contact {
	switch token {
	case config.FilterAll, "":
		return contacts
	case config.RelationshipBusiness, config.RelationshipFriend, config.RelationshipFamily:
		rel := Relationship(token)
		out := make([]Contact, 0, len(contacts))
		for _, c := range contacts {
			if c.Relationship == rel {
				out = append(out, c)
			}
		}
		return out
	case config.FilterUpcoming:
		out := make([]Contact, 0, len(contacts))
		for _, c := range contacts {
			if HasUpcomingEvent(c, today, config.UpcomingWindowBadgeDays) {
				out = append(out, c)
			}
		}
		return out
	default:
		return contacts
	}
}
