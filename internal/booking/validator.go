package booking

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/nyaruka/phonenumbers"

	"dumpster-booking/internal/dates"
	"dumpster-booking/internal/inventory"
	"dumpster-booking/internal/reservation"
)

const phoneRegion = "US"

// contactForm carries the field rules for customer contact data.
type contactForm struct {
	Name    string `json:"name" validate:"required,min=2,max=80"`
	Phone   string `json:"phone" validate:"required,min=7,max=30"`
	Email   string `json:"email" validate:"required,max=254,email"`
	Address string `json:"address" validate:"required,min=2,max=200"`
	Notes   string `json:"notes" validate:"max=800"`
}

type Validator struct {
	validate   *validator.Validate
	policy     *inventory.Policy
	loc        *time.Location
	now        func() time.Time
	overageFee int
	logger     *slog.Logger
}

type ValidatorOption func(*Validator)

func WithValidatorClock(now func() time.Time) ValidatorOption {
	return func(v *Validator) { v.now = now }
}

// WithOverageFee sets the flat fee charged for rentals past the standard period.
func WithOverageFee(fee int) ValidatorOption {
	return func(v *Validator) { v.overageFee = fee }
}

func NewValidator(policy *inventory.Policy, loc *time.Location, opts ...ValidatorOption) *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report json names so the client can highlight the right input.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	bv := &Validator{
		validate:   v,
		policy:     policy,
		loc:        loc,
		now:        time.Now,
		overageFee: inventory.DefaultFee,
		logger:     slog.With("component", "validator"),
	}
	for _, opt := range opts {
		opt(bv)
	}
	return bv
}

// Validate checks a booking request and returns it normalized. Checks run in a
// fixed order and the first failure is returned as a *ValidationError.
func (v *Validator) Validate(raw *Request) (*Booking, error) {
	unit, err := v.unit(raw.DumpsterSize)
	if err != nil {
		return nil, err
	}

	duration := int(raw.DurationDays)
	if err := checkDuration(duration); err != nil {
		return nil, err
	}

	start, err := dates.Parse(strings.TrimSpace(raw.StartDate))
	if err != nil {
		return nil, invalid(InvalidDate, "startDate", "Start date must be a date in YYYY-MM-DD format.")
	}
	maxStart := dates.Today(v.loc, v.now()).AddDays(inventory.MaxAdvanceDays)
	if start.After(maxStart) {
		return nil, invalid(TooFarInAdvance, "startDate", "Start date too far in advance. Max is %d days.", inventory.MaxAdvanceDays)
	}

	form := contactForm{
		Name:    strings.TrimSpace(raw.Name),
		Phone:   strings.TrimSpace(raw.Phone),
		Email:   strings.ToLower(strings.TrimSpace(raw.Email)),
		Address: strings.TrimSpace(raw.Address),
		Notes:   strings.TrimSpace(raw.Notes),
	}
	if err := v.validate.Struct(&form); err != nil {
		return nil, translate(err)
	}

	b := &Booking{
		Unit:   unit,
		Window: dates.NewWindow(start, duration),
		Contact: reservation.Contact{
			Name:    form.Name,
			Phone:   NormalizePhone(form.Phone),
			Email:   form.Email,
			Address: form.Address,
			Notes:   form.Notes,
		},
		DurationDays: duration,
	}
	if duration > inventory.StandardDuration {
		b.OverageFee = v.overageFee
	}
	return b, nil
}

// ValidateQuery checks the parameters of an availability lookup. An empty horizon
// means the full booking horizon.
func (v *Validator) ValidateQuery(size, duration, days string) (inventory.Unit, int, int, error) {
	unit, err := v.unit(size)
	if err != nil {
		return inventory.Unit{}, 0, 0, err
	}

	d, err := strconv.Atoi(strings.TrimSpace(duration))
	if err != nil {
		d = 0
	}
	if err := checkDuration(d); err != nil {
		return inventory.Unit{}, 0, 0, err
	}

	horizon := inventory.MaxAdvanceDays
	if days = strings.TrimSpace(days); days != "" {
		horizon, err = strconv.Atoi(days)
		if err != nil || horizon <= 0 || horizon > inventory.MaxAdvanceDays {
			return inventory.Unit{}, 0, 0, invalid(InvalidHorizon, "days", "Invalid days. Max allowed is %d.", inventory.MaxAdvanceDays)
		}
	}
	return unit, d, horizon, nil
}

func (v *Validator) unit(size string) (inventory.Unit, error) {
	unit, err := v.policy.Lookup(size)
	if err != nil {
		v.logger.Debug("Rejected dumpster size", "size", size, "error", err)
		return inventory.Unit{}, invalid(InvalidSize, "dumpsterSize", "Invalid dumpster size.")
	}
	return unit, nil
}

func checkDuration(days int) error {
	if !inventory.AllowedDuration(days) {
		return invalid(InvalidDuration, "durationDays", "Invalid durationDays. Allowed: %d, or %d-%d.",
			inventory.StandardDuration, inventory.MinExtended, inventory.MaxDuration)
	}
	return nil
}

// translate turns the first failed field rule into a customer facing message.
func translate(err error) error {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return invalid(InvalidContact, "", "Invalid contact details.")
	}

	fe := errs[0]
	var message string
	switch fe.Tag() {
	case "required":
		message = fmt.Sprintf("%s is required", fe.Field())
	case "min":
		message = fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "max":
		message = fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "email":
		message = fmt.Sprintf("%s must be a valid email address", fe.Field())
	default:
		message = fmt.Sprintf("%s is invalid", fe.Field())
	}
	return invalid(InvalidContact, fe.Field(), "%s", message)
}

// NormalizePhone returns the number in E.164 when it parses as a US number and
// the trimmed input otherwise.
func NormalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)
	num, err := phonenumbers.Parse(phone, phoneRegion)
	if err != nil || !phonenumbers.IsPossibleNumber(num) {
		return phone
	}
	return phonenumbers.Format(num, phonenumbers.E164)
}
