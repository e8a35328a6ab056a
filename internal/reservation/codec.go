// Package reservation encodes booking state into the free-text fields of a calendar
// event. The calendar has no custom fields, so status lives in both the title prefix
// ("REQUEST – 20 Yard – Pat") and a "Status:" line of the body.
package reservation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"dumpster-booking/internal/dates"
	"dumpster-booking/internal/inventory"
)

type Status string

const (
	StatusUnknown   Status = ""
	StatusRequested Status = "REQUEST"
	StatusConfirmed Status = "CONFIRMED"
	StatusDeclined  Status = "DECLINED"
)

// Active reservations hold inventory.
func (s Status) Active() bool {
	return s == StatusRequested || s == StatusConfirmed
}

const titleSep = " – "

var (
	reTitleStatus = regexp.MustCompile(`(?i)^\s*(REQUEST|CONFIRMED)\b`)
	reTitlePrefix = regexp.MustCompile(`(?i)^\s*(REQUEST|CONFIRMED)\s*[–-]\s*`)
	reBodyStatus  = regexp.MustCompile(`(?im)^[ \t]*Status:[ \t]*(REQUEST|CONFIRMED|DECLINED)\b`)
	reTitleTier   = regexp.MustCompile(`(?i)\b(20|30|40) Yard\b`)
	reOverageFee  = regexp.MustCompile(`\$(\d+)`)
)

type Contact struct {
	Name    string
	Phone   string
	Email   string
	Address string
	Notes   string
}

// Record is everything a reservation event carries.
type Record struct {
	Status     Status
	Tier       inventory.Tier
	Window     dates.Window
	Contact    Contact
	OverageFee int // dollars, zero when the rental is within the standard period
}

// Title renders the event summary.
func (r Record) Title() string {
	return string(r.Status) + titleSep + string(r.Tier) + titleSep + oneLine(r.Contact.Name)
}

// Body renders the event description, one "Key: value" per line.
func (r Record) Body() string {
	lines := []string{
		"Status: " + string(r.Status),
		"Name: " + oneLine(r.Contact.Name),
		"Phone: " + oneLine(r.Contact.Phone),
		"Email: " + oneLine(r.Contact.Email),
	}
	if r.Contact.Address != "" {
		lines = append(lines, "Address: "+oneLine(r.Contact.Address))
	}
	if r.Contact.Notes != "" {
		lines = append(lines, "Notes: "+oneLine(r.Contact.Notes))
	}
	lines = append(lines,
		"Size: "+string(r.Tier),
		"Start: "+r.Window.Start.String(),
		"End: "+r.Window.End.String(),
		"DurationDays: "+strconv.Itoa(r.Window.Days()),
	)
	if r.OverageFee > 0 {
		lines = append(lines, fmt.Sprintf("OverageFee: $%d (flat)", r.OverageFee))
	}
	return strings.Join(lines, "\n")
}

// oneLine keeps user input from forging extra "Key:" lines.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// DecodeStatus reads the status from title and body. A CONFIRMED tag in either wins
// over REQUEST, so a half-applied confirmation still reads as confirmed.
func DecodeStatus(title, body string) Status {
	var titleStatus, bodyStatus Status
	if m := reTitleStatus.FindStringSubmatch(title); m != nil {
		titleStatus = Status(strings.ToUpper(m[1]))
	}
	if m := reBodyStatus.FindStringSubmatch(body); m != nil {
		bodyStatus = Status(strings.ToUpper(m[1]))
	}

	switch {
	case titleStatus == StatusConfirmed || bodyStatus == StatusConfirmed:
		return StatusConfirmed
	case titleStatus == StatusRequested || bodyStatus == StatusRequested:
		return StatusRequested
	case bodyStatus == StatusDeclined:
		return StatusDeclined
	}
	return StatusUnknown
}

func IsConfirmed(title, body string) bool {
	return DecodeStatus(title, body) == StatusConfirmed
}

// Confirm rewrites the title prefix and body status line to CONFIRMED.
func Confirm(title, body string) (string, string) {
	confirmed := string(StatusConfirmed) + titleSep
	if reTitlePrefix.MatchString(title) {
		title = reTitlePrefix.ReplaceAllLiteralString(title, confirmed)
	} else {
		title = confirmed + strings.TrimSpace(title)
	}

	if reBodyStatus.MatchString(body) {
		body = reBodyStatus.ReplaceAllLiteralString(body, "Status: "+string(StatusConfirmed))
	} else {
		body = strings.TrimSpace(body + "\nStatus: " + string(StatusConfirmed))
	}
	return title, body
}

// TierFromTitle extracts the size label from an event title.
func TierFromTitle(title string) (inventory.Tier, bool) {
	m := reTitleTier.FindStringSubmatch(title)
	if m == nil {
		return "", false
	}
	t, err := inventory.ParseTier(m[1])
	if err != nil {
		return "", false
	}
	return t, true
}

// Parse recovers a record from an event body. Missing or malformed lines leave the
// corresponding field empty; callers decide what they need.
func Parse(title, body string) Record {
	r := Record{Status: DecodeStatus(title, body)}
	if t, ok := TierFromTitle(title); ok {
		r.Tier = t
	}

	for _, line := range strings.Split(body, "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "name":
			r.Contact.Name = value
		case "phone":
			r.Contact.Phone = value
		case "email":
			r.Contact.Email = value
		case "address":
			r.Contact.Address = value
		case "notes":
			r.Contact.Notes = value
		case "size":
			if t, err := inventory.ParseTier(value); err == nil {
				r.Tier = t
			}
		case "start":
			if d, err := dates.Parse(value); err == nil {
				r.Window.Start = d
			}
		case "end":
			if d, err := dates.Parse(value); err == nil {
				r.Window.End = d
			}
		case "overagefee":
			if m := reOverageFee.FindStringSubmatch(value); m != nil {
				r.OverageFee, _ = strconv.Atoi(m[1])
			}
		}
	}
	return r
}
