package assistant

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/philview/philview/internal/models"
)

var (
	dateRe = regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2})\b`)
	timeRe = regexp.MustCompile(`\b([01]?\d|2[0-3]):([0-5]\d)\b`)
)

var (
	affirmativePhrases = []string{"yes", "confirm", "do it", "go ahead"}
	negativePhrases    = []string{"no", "cancel", "stop"}
)

// fallbackRule maps keywords to an action. Rules are evaluated in order; the first match wins.
type fallbackRule struct {
	keywords []string
	action   models.Action
}

var fallbackRules = []fallbackRule{
	{[]string{"logout", "sign out"}, models.Logout{}},
	{[]string{"appointment"}, models.Navigate{Target: models.SectionAppointments}},
	{[]string{"balance"}, models.Navigate{Target: models.SectionBalance}},
	{[]string{"inquiry", "inquiries"}, models.Navigate{Target: models.SectionInquiries}},
	{[]string{"client"}, models.Navigate{Target: models.SectionClients}},
	{[]string{"event"}, models.Navigate{Target: models.SectionEvents}},
	{[]string{"property", "browse"}, models.Navigate{Target: models.SectionProperties}},
	{[]string{"dashboard"}, models.Navigate{Target: models.SectionDashboard}},
}

// faqRule is a canned answer for common questions when no navigation applies.
type faqRule struct {
	keywords []string
	reply    string
}

var faqRules = []faqRule{
	{[]string{"property", "properties"}, "We have several amazing properties available including Skyline Residences in Makati, Garden Villas in Quezon City, and Metro Heights in Pasig. Would you like to know more about any specific property?"},
	{[]string{"appointment", "schedule"}, "I can help you schedule an appointment to view our properties. Please let me know your preferred date and time, and which property you're interested in."},
	{[]string{"price", "cost"}, "Our properties range from PHP 6.8M to PHP 12M depending on the location and features. I can provide detailed pricing information for specific properties."},
	{[]string{"financing", "payment"}, "We offer flexible financing options including bank loans and in-house financing. Our team can help you find the best payment plan that suits your budget."},
	{[]string{"location", "where"}, "Our properties are located in prime areas including Makati City, Quezon City, and Pasig City. All locations offer great accessibility and amenities."},
}

const (
	signedInHelpReply = `Thanks! I can also navigate: say "go to dashboard", "open properties", "appointments", "balance", or "logout".`
	guestHelpReply    = "Thanks! You can log in to access role dashboards, appointments, and balance."
)

func containsAny(lower string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// IsAffirmative reports whether text confirms a pending plan.
func IsAffirmative(text string) bool {
	return containsAny(strings.ToLower(text), affirmativePhrases)
}

// IsNegative reports whether text rejects a pending plan.
func IsNegative(text string) bool {
	return containsAny(strings.ToLower(text), negativePhrases)
}

// FallbackRoute applies the keyword rules and returns the matched action, or nil.
func FallbackRoute(text string) models.Action {
	lower := strings.ToLower(text)
	for _, rule := range fallbackRules {
		if containsAny(lower, rule.keywords) {
			return rule.action
		}
	}
	return nil
}

// FAQReply answers common questions; anything else gets a help line for the user's state.
func FAQReply(text string, signedIn bool) string {
	lower := strings.ToLower(text)
	for _, rule := range faqRules {
		if containsAny(lower, rule.keywords) {
			return rule.reply
		}
	}
	if signedIn {
		return signedInHelpReply
	}
	return guestHelpReply
}

// ActionReply is the confirmation shown when an action is emitted directly.
func ActionReply(a models.Action) string {
	switch act := a.(type) {
	case models.Navigate:
		return fmt.Sprintf("Navigating to %s.", act.Target)
	case models.Logout:
		return "Signing you out."
	default:
		return ""
	}
}

// DetectPlan recognises scheduling and cancellation requests. Cancellation is checked first.
// Dates (YYYY-MM-DD), times (HH:MM) and a catalog property named in the text are copied into the plan.
func DetectPlan(text string, catalog []models.Property) (models.Plan, bool) {
	lower := strings.ToLower(text)
	if !strings.Contains(lower, "appointment") {
		return nil, false
	}
	wantsCancel := strings.Contains(lower, "cancel")
	wantsSchedule := strings.Contains(lower, "schedule")
	if !wantsCancel && !wantsSchedule {
		return nil, false
	}

	date := extractDate(text)
	tm := extractTime(text)
	prop, found := mentionedProperty(lower, catalog)

	if wantsCancel {
		plan := models.CancelAppointment{Date: date, Time: tm}
		if found {
			plan.PropertyName = prop.Name
		}
		return plan, true
	}
	plan := models.ScheduleAppointment{Date: date, Time: tm}
	if found {
		plan.PropertyID = prop.ID
	}
	return plan, true
}

func extractDate(text string) string {
	if m := dateRe.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return ""
}

func extractTime(text string) string {
	m := timeRe.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	hour := m[1]
	if len(hour) == 1 {
		hour = "0" + hour
	}
	return hour + ":" + m[2]
}

// mentionedProperty returns the catalog entry with the longest name contained in lower.
func mentionedProperty(lower string, catalog []models.Property) (models.Property, bool) {
	var best models.Property
	found := false
	for _, p := range catalog {
		name := strings.ToLower(strings.TrimSpace(p.Name))
		if name == "" || !strings.Contains(lower, name) {
			continue
		}
		if !found || len(name) > len(best.Name) {
			best = p
			found = true
		}
	}
	return best, found
}
