package web

import (
	"net/http"
	"strings"

	"confagenda/internal/agenda"
	"confagenda/internal/model"
)

// groupParam reads ?group=. An empty group selects the common schedule; an
// unknown one answers 404 and returns ok=false.
func (s *Server) groupParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	group := strings.TrimSpace(r.URL.Query().Get("group"))
	if group != "" && !s.deps.Engine.HasGroup(group) {
		writeError(w, http.StatusNotFound, "unknown breakout group")
		return "", false
	}
	return group, true
}

// dayParams reads ?day= and ?group=, answering 400 for a missing day and 404
// for an unknown one.
func (s *Server) dayParams(w http.ResponseWriter, r *http.Request) (day, group string, ok bool) {
	group, ok = s.groupParam(w, r)
	if !ok {
		return "", "", false
	}
	day = strings.TrimSpace(r.URL.Query().Get("day"))
	if day == "" {
		writeError(w, http.StatusBadRequest, "day is required")
		return "", "", false
	}
	if !s.deps.Engine.HasDay(day, group) {
		writeError(w, http.StatusNotFound, "unknown day")
		return "", "", false
	}
	return day, group, true
}

func (s *Server) handleConference(w http.ResponseWriter, _ *http.Request) {
	e := s.deps.Engine
	writeJSON(w, http.StatusOK, struct {
		Conference model.ConferenceInfo `json:"conference"`
		Rooms      []model.Room         `json:"rooms"`
		Speakers   []model.Speaker      `json:"speakers"`
	}{e.Conference(), nonNil(e.Rooms()), nonNil(e.Speakers())})
}

func (s *Server) handleGroups(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		Groups []agenda.GroupSummary `json:"groups"`
	}{s.deps.Engine.Groups()})
}

func (s *Server) handleDays(w http.ResponseWriter, r *http.Request) {
	group, ok := s.groupParam(w, r)
	if !ok {
		return
	}
	e := s.deps.Engine
	writeJSON(w, http.StatusOK, struct {
		Group      string            `json:"group"`
		Days       []agenda.DayTheme `json:"days"`
		DefaultDay string            `json:"defaultDay"`
	}{group, e.DayThemes(group), e.DefaultDay(group, s.deps.Now())})
}

func (s *Server) handleAgenda(w http.ResponseWriter, r *http.Request) {
	day, group, ok := s.dayParams(w, r)
	if !ok {
		return
	}
	entry, _ := s.deps.Engine.Day(day, group)
	writeJSON(w, http.StatusOK, struct {
		Group string          `json:"group"`
		Day   agenda.DayEntry `json:"day"`
	}{group, entry})
}

func (s *Server) handleFeatured(w http.ResponseWriter, r *http.Request) {
	day, group, ok := s.dayParams(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Day   string             `json:"day"`
		Items []model.AgendaItem `json:"items"`
	}{day, s.deps.Engine.FeaturedSessions(day, group)})
}

func (s *Server) handleTimeSlots(w http.ResponseWriter, r *http.Request) {
	day, group, ok := s.dayParams(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Day   string            `json:"day"`
		Slots []agenda.TimeSlot `json:"slots"`
	}{day, s.deps.Engine.TimeSlots(day, group)})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	group, ok := s.groupParam(w, r)
	if !ok {
		return
	}
	q := r.URL.Query().Get("q")
	writeJSON(w, http.StatusOK, struct {
		Query   string              `json:"query"`
		Results []agenda.DayMatches `json:"results"`
	}{q, s.deps.Engine.Search(q, group)})
}

func (s *Server) handleTags(w http.ResponseWriter, r *http.Request) {
	group, ok := s.groupParam(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Tags []string `json:"tags"`
	}{s.deps.Engine.Tags(group)})
}

func (s *Server) handleTag(w http.ResponseWriter, r *http.Request) {
	group, ok := s.groupParam(w, r)
	if !ok {
		return
	}
	tag := r.PathValue("tag")
	writeJSON(w, http.StatusOK, struct {
		Tag     string              `json:"tag"`
		Results []agenda.DayMatches `json:"results"`
	}{tag, s.deps.Engine.SessionsByTag(tag, group)})
}

func (s *Server) handleRoom(w http.ResponseWriter, r *http.Request) {
	room, ok := s.deps.Engine.Room(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "room not found")
		return
	}
	writeJSON(w, http.StatusOK, room)
}

func (s *Server) handleSpeaker(w http.ResponseWriter, r *http.Request) {
	speaker, ok := s.deps.Engine.Speaker(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "speaker not found")
		return
	}
	writeJSON(w, http.StatusOK, speaker)
}

func (s *Server) handleCurrentDay(w http.ResponseWriter, r *http.Request) {
	group, ok := s.groupParam(w, r)
	if !ok {
		return
	}
	now := s.deps.Now()
	e := s.deps.Engine
	writeJSON(w, http.StatusOK, struct {
		Day        string `json:"day"`
		DefaultDay string `json:"defaultDay"`
		Timezone   string `json:"timezone"`
	}{e.CurrentDay(now), e.DefaultDay(group, now), e.Location().String()})
}

func nonNil[T any](v []T) []T {
	if v == nil {
		return []T{}
	}
	return v
}
