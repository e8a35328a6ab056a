// Package jwt issues and verifies the signed capability tokens carried by approval
// links. A token names exactly one reservation; holding the link is the only
// authorization needed to approve or decline it.
package jwt

import (
	"errors"
	"log/slog"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	issuer   = "dumpster-booking"
	audience = "booking-approval"
)

var (
	// ErrInvalidToken is returned for every verification failure. Callers must not be
	// able to tell a tampered token from an expired one.
	ErrInvalidToken  = errors.New("invalid or expired token")
	ErrMissingSecret = errors.New("token secret is not set")
)

var tokenSignatureAlg = gojwt.SigningMethodHS256

// Payload identifies the reservation a token acts on.
type Payload struct {
	CalendarID    string
	EventID       string
	CustomerEmail string
	CustomerName  string
	Start         time.Time
	End           time.Time
	ExpiresAt     time.Time
}

// BookingClaim is the wire form of Payload.
type BookingClaim struct {
	CalendarID    string `json:"calId"`
	EventID       string `json:"eventId"`
	CustomerEmail string `json:"customerEmail"`
	CustomerName  string `json:"customerName"`
	StartISO      string `json:"startISO"`
	EndISO        string `json:"endISO"`
	gojwt.RegisteredClaims
}

type Signer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger
}

type Option func(*Signer)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Signer) { s.now = now }
}

func NewSigner(secret string, ttl time.Duration, opts ...Option) (*Signer, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	if ttl <= 0 {
		return nil, errors.New("token ttl must be positive")
	}
	s := &Signer{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
		logger: slog.With("component", "jwt"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Expiry is when a token issued now stops being accepted.
func (s *Signer) Expiry() time.Time {
	return s.now().UTC().Add(s.ttl)
}

// Issue signs p. ExpiresAt is set to now + ttl when zero.
func (s *Signer) Issue(p Payload) (string, error) {
	now := s.now().UTC()
	exp := p.ExpiresAt
	if exp.IsZero() {
		exp = now.Add(s.ttl)
	}

	claims := BookingClaim{
		CalendarID:    p.CalendarID,
		EventID:       p.EventID,
		CustomerEmail: p.CustomerEmail,
		CustomerName:  p.CustomerName,
		StartISO:      p.Start.UTC().Format(time.RFC3339),
		EndISO:        p.End.UTC().Format(time.RFC3339),
		RegisteredClaims: gojwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    issuer,
			Audience:  gojwt.ClaimStrings{audience},
			IssuedAt:  gojwt.NewNumericDate(now),
			ExpiresAt: gojwt.NewNumericDate(exp),
		},
	}

	token := gojwt.NewWithClaims(tokenSignatureAlg, claims)
	return token.SignedString(s.secret)
}

// Verify checks signature and expiry and returns the payload. Any failure yields
// ErrInvalidToken; the cause is only logged.
func (s *Signer) Verify(tokenString string) (*Payload, error) {
	claims := &BookingClaim{}
	parsed, err := gojwt.ParseWithClaims(tokenString, claims, func(token *gojwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		gojwt.WithValidMethods([]string{tokenSignatureAlg.Alg()}),
		gojwt.WithTimeFunc(s.now),
		gojwt.WithExpirationRequired(),
		gojwt.WithIssuer(issuer),
		gojwt.WithAudience(audience),
	)
	if err != nil || parsed == nil || !parsed.Valid {
		s.logger.Debug("Rejected approval token", "error", err)
		return nil, ErrInvalidToken
	}

	start, err := time.Parse(time.RFC3339, claims.StartISO)
	if err != nil {
		s.logger.Debug("Rejected approval token", "error", err)
		return nil, ErrInvalidToken
	}
	end, err := time.Parse(time.RFC3339, claims.EndISO)
	if err != nil {
		s.logger.Debug("Rejected approval token", "error", err)
		return nil, ErrInvalidToken
	}
	if claims.CalendarID == "" || claims.EventID == "" {
		return nil, ErrInvalidToken
	}

	return &Payload{
		CalendarID:    claims.CalendarID,
		EventID:       claims.EventID,
		CustomerEmail: claims.CustomerEmail,
		CustomerName:  claims.CustomerName,
		Start:         start,
		End:           end,
		ExpiresAt:     claims.ExpiresAt.Time,
	}, nil
}
