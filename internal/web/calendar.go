package web

import (
	"mime"
	"net/http"
	"strconv"
	"time"

	"confagenda/internal/ics"
	appLog "confagenda/internal/log"
)

// calendarCacheTTL bounds how stale DTSTAMP may get.
const calendarCacheTTL = 5 * time.Minute

// commonGroup selects the common schedule in calendar URLs.
const commonGroup = "common"

type calendarCache struct {
	body      []byte
	updatedAt time.Time
}

// handleCalendar exports one merged day as text/calendar.
//
// GET /api/calendar/{group}/{day}, where group "common" exports only the
// common schedule.
func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	group, day := r.PathValue("group"), r.PathValue("day")
	e := s.deps.Engine

	mergeGroup := group
	if group == commonGroup && !e.HasGroup(group) {
		mergeGroup = ""
	} else if !e.HasGroup(group) {
		writeError(w, http.StatusNotFound, "unknown breakout group")
		return
	}
	if !e.HasDay(day, mergeGroup) {
		writeError(w, http.StatusNotFound, "unknown day")
		return
	}

	key := group + "/" + day
	now := time.Now()

	s.calMu.RLock()
	cc, ok := s.calCache[key]
	s.calMu.RUnlock()
	if !ok || now.Sub(cc.updatedAt) >= calendarCacheTTL {
		entry, _ := e.Day(day, mergeGroup)
		res, err := ics.ExportDay(e.Conference(), entry, ics.Options{
			Group:        mergeGroup,
			Domain:       s.cfg.CalendarDomain,
			Location:     e.Location(),
			RoomLabel:    e.RoomLabel,
			SpeakerLabel: e.SpeakerLabel,
		})
		if err != nil {
			appLog.Error("calendar export failed", err, "group", group, "day", day)
			writeError(w, http.StatusInternalServerError, "failed to export calendar")
			return
		}
		cc = calendarCache{body: res.Body, updatedAt: now}
		s.calMu.Lock()
		s.calCache[key] = cc
		s.calMu.Unlock()
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", calendarDisposition(group, day))
	w.Header().Set("Content-Length", strconv.Itoa(len(cc.body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(cc.body)
}

func calendarDisposition(group, day string) string {
	return mime.FormatMediaType("attachment", map[string]string{"filename": group + "-" + day + ".ics"})
}
