package engine

import (
	"errors"
	"math"
	"time"

	"github.com/peltran/giftwise/internal/config"
)

// EventKind identifies one of the three annually recurring date fields.
type EventKind string

const (
	EventBirthday           EventKind = "birthday"
	EventPromotionDate      EventKind = "promotionDate"
	EventWeddingAnniversary EventKind = "weddingAnniversary"
)

// eventPriority is the fixed order in which date fields are checked when a
// single "nearest" event is wanted: first match wins, not soonest match.
var eventPriority = []EventKind{EventBirthday, EventPromotionDate, EventWeddingAnniversary}

// LabelKey returns the translation key for the display name of k.
func (k EventKind) LabelKey() string {
	switch k {
	case EventPromotionDate:
		return config.TKeyEventPromotion
	case EventWeddingAnniversary:
		return config.TKeyEventWedding
	default:
		return config.TKeyEventBirthday
	}
}

// dateOf returns the raw date string of kind k on d.
func (d ImportantDates) dateOf(k EventKind) string {
	switch k {
	case EventPromotionDate:
		return d.PromotionDate
	case EventWeddingAnniversary:
		return d.WeddingAnniversary
	default:
		return d.Birthday
	}
}

// IsUpcoming reports whether the annual recurrence of dateStr falls within
// [today, today+windowDays]. The event's occurrence is placed in today's year
// (month and day kept, year replaced); the whole-day distance is the ceiling
// of the duration between the two midnights. A distance of exactly 0 (today)
// counts as upcoming.
//
// An absent or unparseable date is simply not upcoming, never an error.
//
// There is deliberately no rollover across the year boundary: an event already
// past in the current year has a negative distance and is excluded, so a
// Jan 2nd event is invisible to a Dec 30th "today".
func IsUpcoming(dateStr string, today time.Time, windowDays int) bool {
	if dateStr == "" {
		return false
	}
	date, _, err := ParseDate(dateStr)
	if err != nil {
		return false
	}

	loc := today.Location()
	todayStart := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, loc)
	occurrence := time.Date(today.Year(), date.Month(), date.Day(), 0, 0, 0, 0, loc)

	// Ceiling division keeps the semantics stable on DST-shortened days.
	diffDays := int(math.Ceil(occurrence.Sub(todayStart).Hours() / 24))
	return diffDays >= 0 && diffDays <= windowDays
}

// UpcomingEvent is the result of a NextEvent lookup.
type UpcomingEvent struct {
	Kind       EventKind
	Occurrence time.Time // this year's occurrence, midnight in today's location
}

// NextEvent returns the first of the contact's dates (in fixed priority order
// birthday, promotionDate, weddingAnniversary) whose recurrence is upcoming
// within windowDays. The priority order is intentional: the first matching
// kind wins even if a later kind occurs sooner.
func NextEvent(c Contact, today time.Time, windowDays int) (UpcomingEvent, bool) {
	for _, kind := range eventPriority {
		dateStr := c.ImportantDates.dateOf(kind)
		if !IsUpcoming(dateStr, today, windowDays) {
			continue
		}
		date, _, err := ParseDate(dateStr)
		if err != nil {
			continue
		}
		occ := time.Date(today.Year(), date.Month(), date.Day(), 0, 0, 0, 0, today.Location())
		return UpcomingEvent{Kind: kind, Occurrence: occ}, true
	}
	return UpcomingEvent{}, false
}

// HasUpcomingEvent reports whether any of the contact's dates is upcoming
// within windowDays.
func HasUpcomingEvent(c Contact, today time.Time, windowDays int) bool {
	_, ok := NextEvent(c, today, windowDays)
	return ok
}

// ParseDate handles the supported calendar date formats, including the
// year-less vCard forms. The second return value reports whether the year
// component was present; year-less dates are pinned to a leap year so that
// Feb 29th survives the round trip.
func ParseDate(value string) (time.Time, bool, error) {
	formatsWithYear := []string{
		config.DateFormatFullDash,
		config.DateFormatFullBasic,
		config.DateFormatRFC3339,
		config.DateFormatFullT,
	}
	for _, f := range formatsWithYear {
		if t, err := time.Parse(f, value); err == nil {
			return t, true, nil
		}
	}

	formatsWithoutYear := []string{config.DateFormatNoYearD, config.DateFormatNoYearB}
	for _, f := range formatsWithoutYear {
		if t, err := time.Parse(f, value); err == nil {
			safeDate := time.Date(config.DefaultLeapYear, t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			return safeDate, false, nil
		}
	}

	return time.Time{}, false, errors.New(config.ErrDateParse)
}
