package engine

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"time"

	"github.com/emersion/go-ical"
	"github.com/peltran/giftwise/internal/config"
)

// CalendarBuilder renders the contacts' important dates as an iCalendar feed.
// Every known date kind of every contact becomes an annual event; the feed is
// what calendar clients subscribe to for birthday/anniversary reminders.
type CalendarBuilder struct {
	Clock Clock

	// FormatSummary allows the caller to inject localized event titles.
	FormatSummary func(kind EventKind, name string) string

	// ReminderTrigger is an ISO8601 duration (e.g. "-P1D") adding a DISPLAY
	// alarm to every event. Empty disables alarms.
	ReminderTrigger string
}

// Build encodes the feed and returns the ICS bytes plus the number of events
// falling on the current day.
func (b *CalendarBuilder) Build(contacts []Contact) ([]byte, int, error) {
	cal := ical.NewCalendar()
	cal.Props.SetText(config.PropVersion, config.ICalVersion)
	cal.Props.SetText(config.PropProdid, config.ICalProdid)
	cal.Props.SetText(config.PropXWRCalName, config.ICalCalName)
	cal.Props.SetText(config.PropCalScale, config.ICalScale)
	cal.Props.SetText(config.PropMethod, config.ICalMethod)

	refreshProp := ical.NewProp(config.PropRefresh)
	refreshProp.SetDuration(config.DefaultICalRefresh)
	cal.Props.Set(refreshProp)

	// Local time drives the event dates; UTC is only for the DTSTAMP.
	// An anniversary is defined by the local calendar date, not an absolute
	// UTC timestamp.
	now := b.Clock.Now()
	dtStampProp := ical.NewProp(config.PropDTStamp)
	dtStampProp.SetDateTime(now.UTC())

	today := 0
	for _, c := range contacts {
		for _, kind := range eventPriority {
			dateStr := c.ImportantDates.dateOf(kind)
			if dateStr == "" {
				continue
			}
			date, yearKnown, err := ParseDate(dateStr)
			if err != nil {
				slog.Debug(config.MsgSkippedDate,
					config.LogKeyComponent, config.CompCalendar,
					config.LogKeyValue, dateStr,
				)
				continue
			}

			events, isToday := b.createEvents(c.Name, kind, date, yearKnown, now)
			if isToday {
				today++
			}
			for _, e := range events {
				e.Props.Set(dtStampProp)
				cal.Children = append(cal.Children, e.Component)
			}
		}
	}

	// A valid empty VCALENDAR keeps clients from flagging the feed as broken.
	if len(cal.Children) == 0 {
		return []byte(config.StubVCalendar), 0, nil
	}

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, 0, fmt.Errorf("%s: %w", config.ErrICalEncode, err)
	}

	slog.Info(config.MsgGenSuccess,
		config.LogKeyComponent, config.CompCalendar,
		config.LogKeyCount, len(cal.Children),
	)
	return buf.Bytes(), today, nil
}

// createEvents generates the event for the previous, current and next year so
// calendar clients can scroll in either direction without an immediate
// re-sync. No event is generated before the original date's own year.
func (b *CalendarBuilder) createEvents(name string, kind EventKind, date time.Time, yearKnown bool, now time.Time) ([]*ical.Event, bool) {
	currentYear := now.Year()
	targetYears := []int{currentYear - 1, currentYear, currentYear + 1}
	loc := now.Location()

	// Deterministic UID so feed refreshes never duplicate events.
	input := fmt.Sprintf(config.FormatHashInput,
		name, date.Format(time.RFC3339), string(kind), config.UIDSalt)
	hash := sha256.Sum256([]byte(input))
	uidBase := fmt.Sprintf("%x", hash[:config.UIDHashLength])

	summary := fmt.Sprintf(config.FallbackEvtSummary, kind, name)
	if b.FormatSummary != nil {
		summary = b.FormatSummary(kind, name)
	}

	var events []*ical.Event
	isToday := false
	todayYear, todayMonth, todayDay := now.Date()

	for _, y := range targetYears {
		if yearKnown && y < date.Year() {
			continue
		}

		event := ical.NewEvent()
		event.Props.SetText(config.PropUID, fmt.Sprintf(config.FormatUID, uidBase, y, config.ICalDomain))
		event.Props.SetText(config.PropSummary, summary)

		// Feb 29th normalizes to March 1st in non-leap target years.
		eventDate := time.Date(y, date.Month(), date.Day(), 0, 0, 0, 0, loc)
		if y == todayYear && eventDate.Month() == todayMonth && eventDate.Day() == todayDay {
			isToday = true
		}

		dtStartProp := ical.NewProp(config.PropDTStart)
		dtStartProp.SetDate(eventDate)
		event.Props.Set(dtStartProp)

		if b.ReminderTrigger != "" {
			addAlarm(event, b.ReminderTrigger, summary)
		}

		events = append(events, event)
	}
	return events, isToday
}

// addAlarm appends a DISPLAY alarm (notification) to the event.
func addAlarm(event *ical.Event, trigger, description string) {
	alarm := ical.NewComponent(config.ICalComponent)
	alarm.Props.SetText(config.PropAction, config.ICalAction)
	alarm.Props.SetText(config.PropDescription, description)

	// Set trigger manually to avoid a "VALUE=TEXT" param.
	triggerProp := ical.NewProp(config.PropTrigger)
	triggerProp.Value = trigger
	alarm.Props.Set(triggerProp)

	event.Children = append(event.Children, alarm)
}
