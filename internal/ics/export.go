// Package ics renders merged agenda days as iCalendar feeds.
package ics

import (
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"confagenda/internal/agenda"
	appLog "confagenda/internal/log"
	"confagenda/internal/model"
)

const (
	productID = "-//confagenda//agenda export//EN"

	// defaultEventLength applies when an item has no usable end time.
	defaultEventLength = 30 * time.Minute

	defaultDomain = "confagenda.local"
)

// Options controls how a day is exported.
type Options struct {
	// Group is the breakout group key the day was merged for ("" for common).
	Group string
	// Domain is the right-hand side of every UID.
	Domain string
	// Location is the venue zone. Item clock times are interpreted in it.
	Location *time.Location

	// RoomLabel and SpeakerLabel resolve loose references. nil keeps the
	// raw value.
	RoomLabel    func(string) string
	SpeakerLabel func(string) string

	// Now stamps DTSTAMP. nil uses time.Now.
	Now func() time.Time
}

// Result is a serialized calendar.
type Result struct {
	Body    []byte
	Events  int
	Skipped int
}

// ExportDay builds a VCALENDAR with one VEVENT per item of day. Items whose
// start time is not a clock time are skipped and counted.
func ExportDay(conf model.ConferenceInfo, day agenda.DayEntry, opts Options) (Result, error) {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	domain := opts.Domain
	if domain == "" {
		domain = defaultDomain
	}
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}

	date := day.Date
	if len(date) > len("2006-01-02") {
		date = date[:len("2006-01-02")]
	}
	midnight, err := time.ParseInLocation("2006-01-02", date, loc)
	if err != nil {
		return Result{}, fmt.Errorf("day %q has no usable date: %w", day.Key, err)
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	cal.SetXWRCalName(calendarName(conf, day))
	cal.SetXWRTimezone(loc.String())

	stamp := now().UTC()
	var res Result
	for _, item := range day.Agenda {
		startMin, ok := agenda.Minutes(item.Time)
		if !ok {
			res.Skipped++
			continue
		}
		start := atMinute(midnight, startMin)
		end := start.Add(defaultEventLength)
		if endMin, ok := agenda.Minutes(item.EndTime); ok && endMin > startMin {
			end = atMinute(midnight, endMin)
		}

		ev := cal.AddEvent(UID(item.ID, day.Key, opts.Group, domain))
		ev.SetDtStampTime(stamp)
		ev.SetStartAt(start)
		ev.SetEndAt(end)
		ev.SetSummary(item.Title)
		if desc := description(item, opts.SpeakerLabel); desc != "" {
			ev.SetDescription(desc)
		}
		if item.Room != "" {
			ev.SetLocation(label(opts.RoomLabel, item.Room))
		}
		if len(item.Tags) > 0 {
			ev.AddProperty(ical.ComponentPropertyCategories, strings.Join(item.Tags, ","))
		}
		res.Events++
	}

	if res.Skipped > 0 {
		appLog.Info("ics export skipped items without a start time",
			"day", day.Key, "group", opts.Group, "skipped", res.Skipped)
	}
	res.Body = []byte(cal.Serialize())
	return res, nil
}

// atMinute keeps wall-clock minutes across DST transitions.
func atMinute(day time.Time, minutes int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), 0, minutes, 0, 0, day.Location())
}

// UID is the stable event identifier {itemID}-{day}-{group}@{domain}.
func UID(itemID, dayKey, group, domain string) string {
	if group == "" {
		group = "common"
	}
	return fmt.Sprintf("%s-%s-%s@%s", itemID, dayKey, group, domain)
}

func calendarName(conf model.ConferenceInfo, day agenda.DayEntry) string {
	name := conf.Name
	if name == "" {
		name = "Agenda"
	}
	if day.DateFormatted != "" {
		return name + " - " + day.DateFormatted
	}
	return name + " - " + day.Key
}

func description(item model.AgendaItem, speakerLabel func(string) string) string {
	var lines []string
	if item.Speaker != "" {
		speaker := label(speakerLabel, item.Speaker)
		if item.SpeakerTitle != "" {
			speaker += ", " + item.SpeakerTitle
		}
		lines = append(lines, "Speaker: "+speaker)
	}
	if item.Description != "" {
		lines = append(lines, item.Description)
	}
	return strings.Join(lines, "\n\n")
}

func label(fn func(string) string, ref string) string {
	if fn == nil {
		return ref
	}
	return fn(ref)
}
