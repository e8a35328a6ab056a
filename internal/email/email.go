package email

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/inbucket/html2text"
	"github.com/wneessen/go-mail"
)

// Config for outgoing mail
type Config struct {
	// smtp, log or memory
	Backend  string `mapstructure:"backend"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
	// Operator receives new booking requests.
	Operator string `mapstructure:"operator"`
}

// Message represents an email message
type Message struct {
	To      []string
	Subject string
	HTML    string
	Text    string // optional, will be auto-generated from HTML if empty
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, msg *Message) error
}

// NewSender builds the sender selected by cfg.Backend.
func NewSender(cfg Config) (Sender, error) {
	switch cfg.Backend {
	case "smtp":
		return NewSMTPClient(cfg), nil
	case "log":
		return &LogSender{From: cfg.From, logger: slog.With("component", "email")}, nil
	case "memory":
		return &MemorySender{}, nil
	default:
		return nil, fmt.Errorf("unknown email backend %q", cfg.Backend)
	}
}

// SMTPClient sends mail through an SMTP relay.
type SMTPClient struct {
	cfg    Config
	logger *slog.Logger
}

func NewSMTPClient(cfg Config) *SMTPClient {
	return &SMTPClient{
		cfg:    cfg,
		logger: slog.With("component", "email", "host", cfg.Host),
	}
}

// Send sends an email message
func (c *SMTPClient) Send(ctx context.Context, msg *Message) error {
	m, err := buildMessage(c.cfg.From, msg)
	if err != nil {
		return err
	}

	opts := []mail.Option{
		mail.WithPort(c.cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if c.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(c.cfg.Username),
			mail.WithPassword(c.cfg.Password),
		)
	}

	client, err := mail.NewClient(c.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("failed to create mail client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}

	c.logger.Debug("Mail sent", "to", msg.To, "subject", msg.Subject)
	return nil
}

// buildMessage creates a multipart/alternative message with text and HTML parts.
func buildMessage(from string, msg *Message) (*mail.Msg, error) {
	if msg.Text == "" {
		text, err := htmlToText(msg.HTML)
		if err != nil {
			return nil, fmt.Errorf("failed to convert HTML to text: %w", err)
		}
		msg.Text = text
	}

	m := mail.NewMsg()
	if err := m.From(from); err != nil {
		return nil, fmt.Errorf("invalid sender address: %w", err)
	}
	if err := m.To(msg.To...); err != nil {
		return nil, fmt.Errorf("invalid recipient address: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetDate()
	m.SetBodyString(mail.TypeTextPlain, msg.Text)
	m.AddAlternativeString(mail.TypeTextHTML, msg.HTML)
	return m, nil
}

// htmlToText converts HTML to plain text
func htmlToText(htmlContent string) (string, error) {
	text, err := html2text.FromString(htmlContent, html2text.Options{
		PrettyTables: true,
		OmitLinks:    false,
	})
	if err != nil {
		slog.Error("failed to convert HTML to text", "error", err)
		return "", err
	}
	return text, nil
}

// LogSender writes messages to the log instead of delivering them. Development only.
type LogSender struct {
	From   string
	logger *slog.Logger
}

func (s *LogSender) Send(ctx context.Context, msg *Message) error {
	if msg.Text == "" {
		text, err := htmlToText(msg.HTML)
		if err != nil {
			return err
		}
		msg.Text = text
	}
	logger := s.logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("Mail not sent, log backend", "from", s.From, "to", msg.To, "subject", msg.Subject, "body", msg.Text)
	return nil
}

// MemorySender keeps sent messages in memory.
type MemorySender struct {
	mu   sync.Mutex
	sent []Message
	// Err, when set, is returned for every send to a matching recipient ("" matches all).
	Err     error
	FailFor string
}

func (s *MemorySender) Send(ctx context.Context, msg *Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		for _, to := range msg.To {
			if s.FailFor == "" || s.FailFor == to {
				return s.Err
			}
		}
	}
	s.sent = append(s.sent, *msg)
	return nil
}

// Sent returns a copy of all delivered messages.
func (s *MemorySender) Sent() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.sent))
	copy(out, s.sent)
	return out
}

// SentTo returns the messages delivered to addr.
func (s *MemorySender) SentTo(addr string) []Message {
	var out []Message
	for _, m := range s.Sent() {
		for _, to := range m.To {
			if to == addr {
				out = append(out, m)
				break
			}
		}
	}
	return out
}
