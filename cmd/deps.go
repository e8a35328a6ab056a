package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"google.golang.org/api/option"

	"dumpster-booking/internal/availability"
	"dumpster-booking/internal/booking"
	"dumpster-booking/internal/calendar"
	"dumpster-booking/internal/config"
	"dumpster-booking/internal/email"
	"dumpster-booking/internal/inventory"
	"dumpster-booking/internal/jwt"
	"dumpster-booking/internal/notify"
	"dumpster-booking/internal/ratelimit"
	"dumpster-booking/internal/routes"
	"dumpster-booking/internal/storage"
)

// services is everything the commands share, built once from the config.
type services struct {
	policy      *inventory.Policy
	signer      *jwt.Signer
	engine      *availability.Engine
	validator   *booking.Validator
	writer      *booking.Writer
	transitions *booking.Transitions
	limiter     *ratelimit.Limiter
	provider    storage.Provider
}

func newCalendar(ctx context.Context, cfg *config.Config) (calendar.Service, error) {
	switch cfg.Calendar.Backend {
	case "memory":
		slog.Warn("Using in-memory calendar, reservations are lost on restart")
		return calendar.NewMemory(), nil
	case "google":
		client, err := calendar.ServiceAccountClient(ctx, cfg.Calendar.Credentials, cfg.Calendar.CredentialsFile)
		if err != nil {
			return nil, err
		}
		return calendar.NewGoogle(ctx, option.WithHTTPClient(client))
	default:
		return nil, fmt.Errorf("unknown calendar backend %q", cfg.Calendar.Backend)
	}
}

func newServices(ctx context.Context, cfg *config.Config) (*services, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	policy, err := inventory.Load(cfg.Inventory.Caps, cfg.Calendar.IDs, cfg.Inventory.File)
	if err != nil {
		return nil, fmt.Errorf("inventory: %w", err)
	}

	cal, err := newCalendar(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("calendar: %w", err)
	}

	sender, err := email.NewSender(cfg.Email)
	if err != nil {
		return nil, fmt.Errorf("email: %w", err)
	}
	notifier, err := notify.New(sender, cfg.Email.Operator)
	if err != nil {
		return nil, fmt.Errorf("templates: %w", err)
	}

	signer, err := jwt.NewSigner(cfg.Secret, cfg.TokenTTL)
	if err != nil {
		return nil, err
	}

	s := &services{policy: policy, signer: signer}

	// Only the sql rate limit store needs a database.
	if cfg.RateLimit.Store == "sql" {
		s.provider, err = storage.NewProvider(ctx, &cfg.Storage)
		if err != nil {
			return nil, fmt.Errorf("storage: %w", err)
		}
	}
	store, err := ratelimit.NewStore(cfg.RateLimit, s.provider)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.limiter = ratelimit.New(store, cfg.RateLimit.Requests, cfg.RateLimit.Window)

	s.engine = availability.New(cal, policy, availability.WithLocation(loc))
	s.validator = booking.NewValidator(policy, loc, booking.WithOverageFee(cfg.Booking.OverageFee))
	s.writer = booking.NewWriter(s.engine, cal, signer, notifier, cfg.SiteURL)
	s.transitions = booking.NewTransitions(cal, signer, notifier)
	return s, nil
}

func (s *services) routeDeps(siteURL string) *routes.Deps {
	return &routes.Deps{
		Validator:   s.validator,
		Engine:      s.engine,
		Writer:      s.writer,
		Transitions: s.transitions,
		Limiter:     s.limiter,
		SiteURL:     siteURL,
	}
}

func (s *services) Close() {
	if s.limiter != nil {
		s.limiter.Close()
	}
	if s.provider != nil {
		s.provider.Close()
	}
}
