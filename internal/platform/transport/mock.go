package transport

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
)

// MockEmailSender records sent emails for tests.
type MockEmailSender struct {
	mu         sync.Mutex
	Sent       []Message
	ShouldFail bool
}

func (m *MockEmailSender) SendEmail(_ context.Context, msg Message) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return "", errors.New("email delivery failed")
	}
	m.Sent = append(m.Sent, msg)
	return uuid.NewString(), nil
}

// MockSMSCall is a single recorded SMS send.
type MockSMSCall struct {
	To   string
	Body string
}

// MockSMSSender records sent SMS messages for tests.
type MockSMSSender struct {
	mu         sync.Mutex
	Sent       []MockSMSCall
	ShouldFail bool
}

func (m *MockSMSSender) SendSMS(_ context.Context, to, body string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return "", errors.New("sms delivery failed")
	}
	m.Sent = append(m.Sent, MockSMSCall{To: to, Body: body})
	return uuid.NewString(), nil
}
