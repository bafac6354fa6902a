package web

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"confagenda/internal/agenda"
	"confagenda/internal/attendee"
	appLog "confagenda/internal/log"
	"confagenda/internal/model"
)

func dayPath(group, day string) string {
	return "/" + url.PathEscape(group) + "/" + url.PathEscape(day)
}

// defaultDayPath is where a group's bare URL leads, or "" when the group is
// unknown or has no days.
func (s *Server) defaultDayPath(group string) string {
	e := s.deps.Engine
	if !e.HasGroup(group) {
		return ""
	}
	day := e.DefaultDay(group, s.deps.Now())
	if day == "" {
		return ""
	}
	return dayPath(group, day)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	groups := s.deps.Engine.Groups()
	if len(groups) == 0 {
		renderPage(w, http.StatusServiceUnavailable, "unavailable", unavailablePage{
			layoutData: layoutData{Title: "Agenda unavailable"},
			Message:    "No breakout groups are configured yet.",
		})
		return
	}
	target := s.defaultDayPath(groups[0].Key)
	if target == "" {
		renderPage(w, http.StatusServiceUnavailable, "unavailable", unavailablePage{
			layoutData: layoutData{Title: "Agenda unavailable"},
			Message:    "The agenda has no days yet.",
		})
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

func (s *Server) handleGroup(w http.ResponseWriter, r *http.Request) {
	target := s.defaultDayPath(r.PathValue("group"))
	if target == "" {
		target = "/"
	}
	http.Redirect(w, r, target, http.StatusFound)
}

func (s *Server) handleDay(w http.ResponseWriter, r *http.Request) {
	group, day := r.PathValue("group"), r.PathValue("day")
	if group == "api" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	e := s.deps.Engine
	if !e.HasGroup(group) || !e.HasDay(day, group) {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	entry, _ := e.Day(day, group)
	g, _ := e.Group(group)
	user := attendeeFromCookie(r)
	q := r.URL.Query()

	page := dayPage{
		layoutData: layoutData{
			Title: e.Conference().Name,
			Print: q.Get("print") == "1",
		},
		Conference: e.Conference(),
		GroupKey:   group,
		GroupName:  attendee.DisplayName(group),
		Tabs:       dayTabs(e.Days(group), day),
		DayKey:     day,
		Theme:      entry.Theme,
		Date:       entry.DateFormatted,
		Featured:   s.itemViews(e.FeaturedSessions(day, group), user),
		Items:      s.itemViews(entry.Agenda, user),
		Query:      strings.TrimSpace(q.Get("q")),
		Tag:        strings.TrimSpace(q.Get("tag")),
		Tags:       e.Tags(group),
		User:       newUserView(user, group),
		Calendar:   "/api/calendar/" + url.PathEscape(group) + "/" + url.PathEscape(day),
	}
	if g.Name != "" && page.GroupName == group {
		page.GroupName = g.Name
	}
	for _, gs := range e.Groups() {
		name := attendee.DisplayName(gs.Key)
		if name == gs.Key && gs.Name != "" {
			name = gs.Name
		}
		page.Groups = append(page.Groups, groupTab{Key: gs.Key, Name: name, Active: gs.Key == group})
	}

	var matches []agenda.DayMatches
	switch {
	case page.Query != "":
		page.Filtering = true
		matches = e.Search(page.Query, group)
	case page.Tag != "":
		page.Filtering = true
		matches = e.SessionsByTag(page.Tag, group)
	}
	for _, m := range matches {
		page.Results = append(page.Results, resultsView{
			Day:   m.Day,
			Label: tabLabel(m.Day),
			Items: s.itemViews(m.Items, user),
		})
	}

	renderPage(w, http.StatusOK, "day", page)
}

func (s *Server) handleLookupForm(w http.ResponseWriter, r *http.Request) {
	renderPage(w, http.StatusOK, "lookup", lookupPage{
		layoutData: layoutData{Title: "Find your agenda"},
		Conference: s.deps.Engine.Conference(),
	})
}

func (s *Server) handleLookupSubmit(w http.ResponseWriter, r *http.Request) {
	input := strings.TrimSpace(r.PostFormValue("input"))
	page := lookupPage{
		layoutData: layoutData{Title: "Find your agenda"},
		Conference: s.deps.Engine.Conference(),
		Input:      input,
	}
	if input == "" {
		page.Message = "Please enter your email or Pega ID."
		renderPage(w, http.StatusBadRequest, "lookup", page)
		return
	}

	u, source, err := s.lookup(r, input)
	switch {
	case errors.Is(err, attendee.ErrNotFound):
		page.Message = "We could not find you, please check your input."
		renderPage(w, http.StatusNotFound, "lookup", page)
		return
	case err != nil:
		appLog.Error("attendee lookup failed", err, "request_id", requestID(r.Context()))
		page.Message = "The attendee directory is unavailable right now. Please try again later."
		renderPage(w, http.StatusServiceUnavailable, "lookup", page)
		return
	}

	appLog.Info("attendee signed in", "source", source, "group", u.BreakoutGroup,
		"request_id", requestID(r.Context()))
	setAttendeeCookie(w, u)
	target := s.defaultDayPath(u.BreakoutGroup)
	if target == "" {
		target = "/"
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	clearAttendeeCookie(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// lookup resolves input through the configured provider, reporting which
// backend answered when the provider is a chain.
func (s *Server) lookup(r *http.Request, input string) (model.User, string, error) {
	p := s.deps.Attendees
	if p == nil {
		return model.User{}, "", errors.New("no attendee provider configured")
	}
	if c, ok := p.(*attendee.Chain); ok {
		return c.Lookup(r.Context(), input)
	}
	u, err := p.FindUser(r.Context(), input)
	return u, p.Name(), err
}
