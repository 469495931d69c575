// Package converters maps stored medication and appointment rows into the
// view models served to clients and back into rows after a transition.
// Every function here is pure apart from logging skipped records.
package converters

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"gorm.io/datatypes"

	"medtrack-server/internal/occurrence"
)

var (
	ErrMalformedHorario = errors.New("malformed horario")
	ErrMalformedRecord  = errors.New("malformed record")
)

var horaPattern = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)

// HorarioKind tags which shape a stored horario had.
type HorarioKind int

const (
	HorarioLegacy HorarioKind = iota // plain "HH:MM" string
	HorarioObject                    // {"hora": "HH:MM", "status": ...}
)

// HorarioEntry is the object form of a stored horario.
type HorarioEntry struct {
	Hora         string     `json:"hora"`
	Status       string     `json:"status,omitempty"`
	OccurrenceID string     `json:"occurrence_id,omitempty"`
	ScheduledAt  *time.Time `json:"scheduled_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// Horario is one stored dose time in either of its two shapes.
type Horario struct {
	Kind   HorarioKind
	Legacy string
	Object HorarioEntry
}

// UnmarshalJSON decodes either shape and records which one it saw.
func (h *Horario) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return ErrMalformedHorario
	}
	switch b[0] {
	case '"':
		h.Kind = HorarioLegacy
		if err := json.Unmarshal(b, &h.Legacy); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedHorario, err)
		}
	case '{':
		h.Kind = HorarioObject
		if err := json.Unmarshal(b, &h.Object); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedHorario, err)
		}
	default:
		return fmt.Errorf("%w: unexpected %q", ErrMalformedHorario, b)
	}
	return nil
}

// Normalize converts h into an Occurrence. This is the only place that
// looks at which shape a horario had.
func (h Horario) Normalize() (occurrence.Occurrence, error) {
	var entry HorarioEntry
	switch h.Kind {
	case HorarioLegacy:
		entry = HorarioEntry{Hora: h.Legacy}
	case HorarioObject:
		entry = h.Object
	default:
		return occurrence.Occurrence{}, ErrMalformedHorario
	}

	hora, err := NormalizeHora(entry.Hora)
	if err != nil {
		return occurrence.Occurrence{}, err
	}
	status, err := parseStatus(entry.Status)
	if err != nil {
		return occurrence.Occurrence{}, err
	}
	return occurrence.Occurrence{
		Hora:         hora,
		Status:       status,
		OccurrenceID: entry.OccurrenceID,
		ScheduledAt:  entry.ScheduledAt,
		CompletedAt:  entry.CompletedAt,
	}, nil
}

// NormalizeHora validates an H:MM or HH:MM time and zero-pads it.
func NormalizeHora(s string) (string, error) {
	m := horaPattern.FindStringSubmatch(s)
	if m == nil {
		return "", fmt.Errorf("%w: hora %q", ErrMalformedHorario, s)
	}
	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	if hour > 23 || minute > 59 {
		return "", fmt.Errorf("%w: hora %q out of range", ErrMalformedHorario, s)
	}
	return fmt.Sprintf("%02d:%02d", hour, minute), nil
}

func parseStatus(s string) (occurrence.Status, error) {
	switch occurrence.Status(s) {
	case "", occurrence.StatusPending:
		return occurrence.StatusPending, nil
	case occurrence.StatusCompleted:
		return occurrence.StatusCompleted, nil
	case occurrence.StatusExcluded:
		return occurrence.StatusExcluded, nil
	}
	return "", fmt.Errorf("%w: status %q", ErrMalformedHorario, s)
}

// DecodeHorarios parses a stored horarios column into sorted occurrences.
// Duplicated times keep their first entry. An empty or null column yields
// the single NoTime sentinel.
func DecodeHorarios(raw []byte) ([]occurrence.Occurrence, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return sentinel(), nil
	}

	var horarios []Horario
	if err := json.Unmarshal(raw, &horarios); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedHorario, err)
	}

	seen := make(map[string]bool, len(horarios))
	out := make([]occurrence.Occurrence, 0, len(horarios))
	for _, h := range horarios {
		occ, err := h.Normalize()
		if err != nil {
			return nil, err
		}
		if seen[occ.Hora] {
			continue
		}
		seen[occ.Hora] = true
		out = append(out, occ)
	}
	if len(out) == 0 {
		return sentinel(), nil
	}
	occurrence.SortOccurrences(out)
	return out, nil
}

// EncodeHorarios writes occurrences in object form. The sentinel is not
// stored.
func EncodeHorarios(occ []occurrence.Occurrence) (datatypes.JSON, error) {
	entries := make([]HorarioEntry, 0, len(occ))
	for _, o := range occ {
		if !o.Real() {
			continue
		}
		entries = append(entries, HorarioEntry{
			Hora:         o.Hora,
			Status:       string(o.Status),
			OccurrenceID: o.OccurrenceID,
			ScheduledAt:  o.ScheduledAt,
			CompletedAt:  o.CompletedAt,
		})
	}
	b, err := json.Marshal(entries)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}

// HorasToJSON stores plain times from a form in object form, all pending.
func HorasToJSON(horas []string) (datatypes.JSON, error) {
	occ := make([]occurrence.Occurrence, 0, len(horas))
	for _, h := range horas {
		hora, err := NormalizeHora(h)
		if err != nil {
			return nil, err
		}
		occ = append(occ, occurrence.Occurrence{Hora: hora, Status: occurrence.StatusPending})
	}
	occurrence.SortOccurrences(occ)
	return EncodeHorarios(occ)
}

func sentinel() []occurrence.Occurrence {
	return []occurrence.Occurrence{{Hora: occurrence.NoTime, Status: occurrence.StatusPending}}
}
