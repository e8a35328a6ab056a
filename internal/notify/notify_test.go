package notify

import (
	"context"
	"strings"
	"testing"

	"dumpster-booking/internal/email"
)

func TestOperatorRequest_ContainsLinksAndEscapesInput(t *testing.T) {
	outbox := &email.MemorySender{}
	n, err := New(outbox, "owner@example.com")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	err = n.OperatorRequest(context.Background(), Request{
		Size:         "20 Yard",
		Name:         "Pat <script>alert(1)</script>",
		Phone:        "+14695550100",
		Email:        "pat@example.com",
		Start:        "2024-06-10",
		End:          "2024-06-19",
		DurationDays: 9,
		StandardDays: 7,
		OverageFee:   10,
		ApproveURL:   "https://example.com/api/approve?token=abc",
		DeclineURL:   "https://example.com/api/approve?token=abc&action=decline",
	})
	if err != nil {
		t.Fatalf("OperatorRequest: %v", err)
	}

	sent := outbox.SentTo("owner@example.com")
	if len(sent) != 1 {
		t.Fatalf("sent = %d", len(sent))
	}
	msg := sent[0]
	if !strings.HasPrefix(msg.Subject, "New REQUEST: 20 Yard") {
		t.Errorf("subject = %q", msg.Subject)
	}
	for _, want := range []string{
		`href="https://example.com/api/approve?token=abc"`,
		`href="https://example.com/api/approve?token=abc&amp;action=decline"`,
		"$10 flat",
		"&lt;script&gt;",
	} {
		if !strings.Contains(msg.HTML, want) {
			t.Errorf("html missing %q:\n%s", want, msg.HTML)
		}
	}
	if strings.Contains(msg.HTML, "<script>") {
		t.Error("customer input was not escaped")
	}
}

func TestCustomerEmails(t *testing.T) {
	outbox := &email.MemorySender{}
	n, err := New(outbox, "owner@example.com")
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	if err := n.CustomerAck(ctx, Request{Name: "Pat", Email: "pat@example.com", Size: "30 Yard", Range: "2024-06-10 to 2024-06-16", DurationDays: 7}); err != nil {
		t.Fatal(err)
	}
	if err := n.Approved(ctx, Decision{Name: "Pat", Email: "pat@example.com", Range: "2024-06-10 to 2024-06-16"}); err != nil {
		t.Fatal(err)
	}
	if err := n.Declined(ctx, Decision{Name: "Pat", Email: "pat@example.com", Range: "2024-06-10 to 2024-06-16"}); err != nil {
		t.Fatal(err)
	}

	sent := outbox.SentTo("pat@example.com")
	if len(sent) != 3 {
		t.Fatalf("sent = %d, want 3", len(sent))
	}
	if strings.Contains(sent[0].HTML, "Overage") {
		t.Error("standard rental should not mention overage")
	}
	if !strings.Contains(sent[1].HTML, "approved") || !strings.Contains(sent[2].HTML, "could not be confirmed") {
		t.Error("decision emails have unexpected content")
	}
	for _, m := range sent {
		if !strings.Contains(m.HTML, "2024-06-10 to 2024-06-16") {
			t.Errorf("%q missing date range", m.Subject)
		}
	}
}
