package notify

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingMailer struct {
	mu   sync.Mutex
	sent []Message
	fail map[string]bool
}

func (m *recordingMailer) Send(_ context.Context, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail[msg.To] {
		return errors.New("smtp: 535 authentication failed")
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *recordingMailer) messages() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Message(nil), m.sent...)
}

type blockingMailer struct {
	started chan struct{}
	release chan struct{}
	inner   *recordingMailer
}

func (m *blockingMailer) Send(ctx context.Context, msg Message) error {
	m.started <- struct{}{}
	<-m.release
	return m.inner.Send(ctx, msg)
}

func TestMessages(t *testing.T) {
	assert.Equal(t, Message{
		To:      "alice@example.com",
		Subject: "Welcome to Perfect Vault",
		Body:    "Thanks for registering, Alice",
	}, Welcome("alice@example.com", "Alice"))
	assert.Equal(t, "You deposited $100.00.", DepositReceived("a@example.com", 100).Body)
	assert.Equal(t, "You withdrew $40.50.", WithdrawalMade("a@example.com", 40.5).Body)
	assert.Equal(t, "Investment Made", InvestmentMade("a@example.com", 60).Subject)
	assert.Equal(t, "You invested $0.10.", InvestmentMade("a@example.com", 0.1).Body)
}

func TestDispatcherDeliversQueuedMessagesOnClose(t *testing.T) {
	mailer := &recordingMailer{}
	d := NewDispatcher(mailer, 2, 10)

	d.Notify(DepositReceived("a@example.com", 1))
	d.Notify(DepositReceived("b@example.com", 2))
	d.Notify(DepositReceived("c@example.com", 3))
	d.Close()

	assert.Len(t, mailer.messages(), 3)
}

func TestDispatcherSwallowsSendFailures(t *testing.T) {
	mailer := &recordingMailer{fail: map[string]bool{"broken@example.com": true}}
	d := NewDispatcher(mailer, 1, 10)

	d.Notify(Welcome("broken@example.com", "Broken"))
	d.Notify(Welcome("ok@example.com", "Ok"))
	d.Close()

	sent := mailer.messages()
	require.Len(t, sent, 1)
	assert.Equal(t, "ok@example.com", sent[0].To)
}

func TestDispatcherDropsWhenQueueFull(t *testing.T) {
	inner := &recordingMailer{}
	mailer := &blockingMailer{started: make(chan struct{}, 3), release: make(chan struct{}), inner: inner}
	d := NewDispatcher(mailer, 1, 1)

	d.Notify(Welcome("first@example.com", "First"))
	<-mailer.started // worker is busy with the first message
	d.Notify(Welcome("second@example.com", "Second"))
	d.Notify(Welcome("third@example.com", "Third"))

	close(mailer.release)
	d.Close()

	sent := inner.messages()
	require.Len(t, sent, 2)
	assert.Equal(t, "first@example.com", sent[0].To)
	assert.Equal(t, "second@example.com", sent[1].To)
}

func TestDispatcherIgnoresNotifyAfterClose(t *testing.T) {
	mailer := &recordingMailer{}
	d := NewDispatcher(mailer, 1, 1)
	d.Close()
	d.Close()

	d.Notify(Welcome("late@example.com", "Late"))
	assert.Empty(t, mailer.messages())
}
