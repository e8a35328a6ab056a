// Package notify renders and sends the booking emails.
package notify

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"log/slog"

	"dumpster-booking/internal/email"
)

//go:embed templates/*.html.tmpl
var templatesFS embed.FS

// Request carries a new booking into the operator and customer emails.
type Request struct {
	Size         string
	Dimensions   string
	Name         string
	Phone        string
	Email        string
	Address      string
	Notes        string
	Start        string
	End          string // exclusive, as stored in the calendar
	Range        string // human readable, inclusive
	DurationDays int
	StandardDays int
	OverageFee   int
	ApproveURL   string
	DeclineURL   string
	LinksExpire  string
}

// Decision carries the outcome of an approval link to the customer.
type Decision struct {
	Name  string
	Email string
	Size  string
	Range string
}

type Notifier struct {
	sender   email.Sender
	operator string
	tmpl     *template.Template
	logger   *slog.Logger
}

func New(sender email.Sender, operator string) (*Notifier, error) {
	tmpl, err := template.ParseFS(templatesFS, "templates/*.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse email templates: %w", err)
	}
	return &Notifier{
		sender:   sender,
		operator: operator,
		tmpl:     tmpl,
		logger:   slog.With("component", "notify"),
	}, nil
}

// OperatorRequest mails the approve/decline links to the business.
func (n *Notifier) OperatorRequest(ctx context.Context, r Request) error {
	subject := fmt.Sprintf("New REQUEST: %s (%s)", r.Size, r.Name)
	return n.send(ctx, n.operator, subject, "operator_request.html.tmpl", r)
}

// CustomerAck confirms receipt to the customer.
func (n *Notifier) CustomerAck(ctx context.Context, r Request) error {
	return n.send(ctx, r.Email, "We received your dumpster request", "customer_ack.html.tmpl", r)
}

func (n *Notifier) Approved(ctx context.Context, d Decision) error {
	return n.send(ctx, d.Email, "Your dumpster request is approved", "approved.html.tmpl", d)
}

func (n *Notifier) Declined(ctx context.Context, d Decision) error {
	return n.send(ctx, d.Email, "Dumpster request update", "declined.html.tmpl", d)
}

func (n *Notifier) send(ctx context.Context, to, subject, name string, data any) error {
	var buf bytes.Buffer
	if err := n.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return fmt.Errorf("failed to render %s: %w", name, err)
	}

	msg := &email.Message{
		To:      []string{to},
		Subject: subject,
		HTML:    buf.String(),
	}
	if err := n.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("failed to send %q to %s: %w", subject, to, err)
	}
	n.logger.Info("Sent email", "template", name, "to", to)
	return nil
}
