package booking

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"dumpster-booking/internal/dates"
	"dumpster-booking/internal/inventory"
	"dumpster-booking/internal/reservation"
)

// FlexInt accepts a JSON number or a numeric string. HTML forms post strings.
type FlexInt int

func (n *FlexInt) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*n = 0
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		b = []byte(strings.TrimSpace(s))
		if len(b) == 0 {
			*n = 0
			return nil
		}
	}
	f, err := strconv.ParseFloat(string(b), 64)
	if err != nil || f != float64(int(f)) {
		return fmt.Errorf("not an integer: %s", b)
	}
	*n = FlexInt(f)
	return nil
}

// Request is the raw booking form.
type Request struct {
	DumpsterSize string  `json:"dumpsterSize"`
	StartDate    string  `json:"startDate"`
	DurationDays FlexInt `json:"durationDays"`
	Name         string  `json:"name"`
	Phone        string  `json:"phone"`
	Email        string  `json:"email"`
	Address      string  `json:"address"`
	Notes        string  `json:"notes"`
}

// Honeypot is decoded on its own before the form, so a bot that fills it gets the
// quiet success even when the rest of its payload is malformed.
type Honeypot struct {
	CompanyWebsite any `json:"companyWebsite"`
}

// Filled reports whether the hidden field carries anything.
func (h Honeypot) Filled() bool {
	switch v := h.CompanyWebsite.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(v) != ""
	default:
		return true
	}
}

// Booking is a validated request.
type Booking struct {
	Unit         inventory.Unit
	Window       dates.Window
	Contact      reservation.Contact
	DurationDays int
	OverageFee   int
}

func (b *Booking) Tier() inventory.Tier {
	return b.Unit.Tier
}

// Record is the calendar representation of a new hold.
func (b *Booking) Record() reservation.Record {
	return reservation.Record{
		Status:     reservation.StatusRequested,
		Tier:       b.Unit.Tier,
		Window:     b.Window,
		Contact:    b.Contact,
		OverageFee: b.OverageFee,
	}
}
