// Package listing filters and orders medication and appointment views for
// the list screens: a tab, a free-text search and a category.
package listing

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"medtrack-server/internal/converters"
	"medtrack-server/internal/models"
	"medtrack-server/internal/occurrence"
)

// Tab selects which items a list shows.
type Tab string

const (
	TabToday  Tab = "hoje"
	TabActive Tab = "ativas"
	TabAll    Tab = "todas"
)

// ParseTab validates a tab name. An empty name means today.
func ParseTab(s string) (Tab, error) {
	switch Tab(s) {
	case "":
		return TabToday, nil
	case TabToday, TabActive, TabAll:
		return Tab(s), nil
	}
	return "", fmt.Errorf("unknown tab %q", s)
}

// Query is what a list request asks for.
type Query struct {
	Tab      Tab
	Search   string
	Category string
}

// Fold lowercases s and strips accents, so "Dipirona" matches "dipirôna".
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return cases.Fold().String(out)
}

func matches(name, search string) bool {
	search = strings.TrimSpace(search)
	if search == "" {
		return true
	}
	return strings.Contains(Fold(name), Fold(search))
}

// ScheduledToday reports whether m belongs on the today tab at now: active,
// inside its validity window, with at least one real dose time and not
// removed from today.
func ScheduledToday(m converters.MedicationView, now time.Time) bool {
	if !m.Active || m.RemovedFromToday {
		return false
	}
	today := now.Format(models.DayLayout)
	if m.StartDate != "" && today < m.StartDate {
		return false
	}
	if m.EndDate != "" && today > m.EndDate {
		return false
	}
	for _, o := range m.Horarios {
		if o.Real() {
			return true
		}
	}
	return false
}

// Medications filters and sorts views. The input slice is not modified.
func Medications(views []converters.MedicationView, q Query, now time.Time) []converters.MedicationView {
	out := make([]converters.MedicationView, 0, len(views))
	for _, m := range views {
		switch q.Tab {
		case TabToday, "":
			if !ScheduledToday(m, now) {
				continue
			}
		case TabActive:
			if !m.Active {
				continue
			}
		}
		if q.Category != "" && !strings.EqualFold(m.Form, q.Category) {
			continue
		}
		if !matches(m.Name, q.Search) {
			continue
		}
		out = append(out, m)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].AllCompleted != out[j].AllCompleted {
			return !out[i].AllCompleted
		}
		return Fold(out[i].Name) < Fold(out[j].Name)
	})
	return out
}

// OccursToday reports whether a belongs on the today tab at now: scheduled
// for today, or an activity recurring on today's weekday since its start.
func OccursToday(a converters.AppointmentView, now time.Time) bool {
	if a.RemovedFromToday {
		return false
	}
	today := now.Format(models.DayLayout)
	if a.Day == today {
		return true
	}
	if a.Category != models.CategoryActivity || a.Day > today || a.Status == models.StatusCancelled {
		return false
	}
	switch a.Recurrence {
	case models.RecurrenceDaily:
		return true
	case models.RecurrenceWeekly:
		wd := int(now.Weekday())
		for _, d := range a.Weekdays {
			if d == wd {
				return true
			}
		}
	}
	return false
}

func finished(a converters.AppointmentView) bool {
	return a.Occurrence.Status != occurrence.StatusPending
}

// Appointments filters and sorts views. The active tab keeps the ones still
// scheduled.
func Appointments(views []converters.AppointmentView, q Query, now time.Time) []converters.AppointmentView {
	out := make([]converters.AppointmentView, 0, len(views))
	for _, a := range views {
		switch q.Tab {
		case TabToday, "":
			if !OccursToday(a, now) {
				continue
			}
		case TabActive:
			if a.Status != models.StatusScheduled {
				continue
			}
		}
		if q.Category != "" && !strings.EqualFold(string(a.Category), q.Category) {
			continue
		}
		if !matches(a.Title, q.Search) {
			continue
		}
		out = append(out, a)
	}

	sort.SliceStable(out, func(i, j int) bool {
		fi, fj := finished(out[i]), finished(out[j])
		if fi != fj {
			return !fi
		}
		if out[i].Hora != out[j].Hora {
			return out[i].Hora < out[j].Hora
		}
		return out[i].ScheduledAt.Before(out[j].ScheduledAt)
	})
	return out
}
