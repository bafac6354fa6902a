package web

import (
	"bytes"
	"embed"
	"encoding/base64"
	"encoding/json"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"confagenda/internal/agenda"
	"confagenda/internal/attendee"
	appLog "confagenda/internal/log"
	"confagenda/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

// pages holds one template set per page, each combined with the layout.
var pages = mustParsePages("day", "lookup", "unavailable")

func mustParsePages(names ...string) map[string]*template.Template {
	out := make(map[string]*template.Template, len(names))
	for _, name := range names {
		out[name] = template.Must(template.New("layout.html").ParseFS(templateFS,
			"templates/layout.html", "templates/"+name+".html"))
	}
	return out
}

func renderPage(w http.ResponseWriter, status int, name string, data any) {
	var buf bytes.Buffer
	if err := pages[name].ExecuteTemplate(&buf, "layout.html", data); err != nil {
		appLog.Error("render page failed", err, "page", name)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

var markdown = goldmark.New()

// renderMarkdown converts a session description to HTML. Raw HTML in the
// source is not passed through.
func renderMarkdown(src string) template.HTML {
	if strings.TrimSpace(src) == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(src))
	}
	return template.HTML(buf.String())
}

// tabLabel capitalizes a day key: "thursday" becomes "Thursday".
func tabLabel(dayKey string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(dayKey, "-", " "))
}

// tabDate renders an ISO date as "November 20", falling back to fallback.
func tabDate(iso, fallback string) string {
	if len(iso) >= len("2006-01-02") {
		if t, err := time.Parse("2006-01-02", iso[:len("2006-01-02")]); err == nil {
			return t.Format("January 2")
		}
	}
	return fallback
}

// Page view models.

type layoutData struct {
	Title string
	Print bool
}

type groupTab struct {
	Key    string
	Name   string
	Active bool
}

type dayTab struct {
	Key    string
	Label  string
	Date   string
	Theme  string
	Active bool
}

type itemView struct {
	ID           string
	Title        string
	RegionSuffix string
	Time         string
	EndTime      string
	Duration     string
	Room         string
	Speaker      string
	SpeakerTitle string
	Description  template.HTML
	Tags         []string
	Type         string
	IsBreak      bool
	IsCommon     bool
}

type resultsView struct {
	Day   string
	Label string
	Items []itemView
}

type userView struct {
	Name      string
	GroupName string
	Region    string
}

type dayPage struct {
	layoutData
	Conference model.ConferenceInfo
	GroupKey   string
	GroupName  string
	Groups     []groupTab
	Tabs       []dayTab
	DayKey     string
	Theme      string
	Date       string
	Featured   []itemView
	Items      []itemView
	Query      string
	Tag        string
	Filtering  bool
	Results    []resultsView
	Tags       []string
	User       *userView
	Calendar   string
}

type lookupPage struct {
	layoutData
	Conference model.ConferenceInfo
	Input      string
	Message    string
}

type unavailablePage struct {
	layoutData
	Message string
}

func (s *Server) itemViews(items []model.AgendaItem, u *model.User) []itemView {
	e := s.deps.Engine
	out := make([]itemView, 0, len(items))
	for _, it := range items {
		v := itemView{
			ID:           it.ID,
			Title:        it.Title,
			Time:         it.Time,
			EndTime:      it.EndTime,
			Duration:     it.Duration,
			Room:         e.RoomLabel(it.Room),
			Speaker:      e.SpeakerLabel(it.Speaker),
			SpeakerTitle: it.SpeakerTitle,
			Description:  renderMarkdown(it.Description),
			Tags:         it.Tags,
			Type:         string(it.Type),
			IsBreak:      it.IsBreak,
			IsCommon:     it.IsCommon == nil || *it.IsCommon,
		}
		if u != nil && u.RegionalBreakout != "" && s.regional[it.ID] {
			v.RegionSuffix = u.RegionalBreakout
		}
		out = append(out, v)
	}
	return out
}

func newUserView(u *model.User, pageGroup string) *userView {
	if u == nil {
		return nil
	}
	return &userView{
		Name:      strings.TrimSpace(u.PreferredName + " " + u.LastName),
		GroupName: attendee.DisplayName(pageGroup),
		Region:    u.RegionalBreakout,
	}
}

func dayTabs(days []agenda.DayEntry, active string) []dayTab {
	out := make([]dayTab, 0, len(days))
	for _, d := range days {
		out = append(out, dayTab{
			Key:    d.Key,
			Label:  tabLabel(d.Key),
			Date:   tabDate(d.Date, d.DateFormatted),
			Theme:  d.Theme,
			Active: d.Key == active,
		})
	}
	return out
}

// Signed-in attendee cookie. It only drives the greeting and region labels,
// so the content is not authenticated.

const attendeeCookie = "confagenda_attendee"

func setAttendeeCookie(w http.ResponseWriter, u model.User) {
	data, err := json.Marshal(u)
	if err != nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     attendeeCookie,
		Value:    base64.RawURLEncoding.EncodeToString(data),
		Path:     "/",
		MaxAge:   int((30 * 24 * time.Hour).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearAttendeeCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{Name: attendeeCookie, Value: "", Path: "/", MaxAge: -1})
}

func attendeeFromCookie(r *http.Request) *model.User {
	c, err := r.Cookie(attendeeCookie)
	if err != nil || c.Value == "" {
		return nil
	}
	data, err := base64.RawURLEncoding.DecodeString(c.Value)
	if err != nil {
		return nil
	}
	var u model.User
	if err := json.Unmarshal(data, &u); err != nil {
		return nil
	}
	return &u
}
