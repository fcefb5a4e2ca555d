package appointments

import (
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/philview/philview/internal/models"
)

// pendingCandidates implements fuzzy.Source over property names.
type pendingCandidates []models.Appointment

func (c pendingCandidates) String(i int) string { return c[i].PropertyName }
func (c pendingCandidates) Len() int            { return len(c) }

// FindCancelTarget picks the pending appointment a cancel request refers to.
//
// Date and time must match exactly when given. The property name is first matched by
// case-insensitive containment in list order; when nothing contains it, the best fuzzy match
// wins, so "skyline res" or "metro hts" still find their appointment. Returns false when no
// pending appointment fits.
func FindCancelTarget(apts []models.Appointment, hints models.CancelHints) (models.Appointment, bool) {
	var candidates pendingCandidates
	for _, a := range apts {
		if a.Status != models.AppointmentStatusPending {
			continue
		}
		if hints.Date != "" && a.Date != hints.Date {
			continue
		}
		if hints.Time != "" && a.Time != hints.Time {
			continue
		}
		candidates = append(candidates, a)
	}
	if len(candidates) == 0 {
		return models.Appointment{}, false
	}

	name := strings.ToLower(strings.TrimSpace(hints.PropertyName))
	if name == "" {
		return candidates[0], true
	}
	for _, a := range candidates {
		if strings.Contains(strings.ToLower(a.PropertyName), name) {
			return a, true
		}
	}

	matches := fuzzy.FindFrom(name, candidates)
	if len(matches) == 0 {
		return models.Appointment{}, false
	}
	return candidates[matches[0].Index], true
}

// pickProperty resolves the property for a booking: by id, else the first Available, else the first.
func pickProperty(props []models.Property, id string) (models.Property, bool) {
	if id != "" {
		for _, p := range props {
			if p.ID == id {
				return p, true
			}
		}
	}
	for _, p := range props {
		if p.Status == models.PropertyStatusAvailable {
			return p, true
		}
	}
	if len(props) > 0 {
		return props[0], true
	}
	return models.Property{}, false
}
