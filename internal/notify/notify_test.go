package notify

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/nluhub/nluhub/internal/models"
	"github.com/nluhub/nluhub/internal/store/memory"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

type recordingSender struct {
	mu    sync.Mutex
	sent  []uuid.UUID
	fails bool
}

func (r *recordingSender) Send(ctx context.Context, template string, recipient uuid.UUID, data map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fails {
		return errors.New("smtp down")
	}
	r.sent = append(r.sent, recipient)
	return nil
}

func TestDispatcher_Notify(t *testing.T) {
	sender := &recordingSender{}
	d := NewDispatcher(sender)

	recipients := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}

	ctx, cancel := context.WithCancel(context.Background())
	d.Notify(ctx, TemplateRequestAccess, recipients, map[string]any{"repository": "bot"})
	// cancelling the request context must not stop delivery
	cancel()
	d.Wait()

	require.ElementsMatch(t, recipients, sender.sent)
}

func TestDispatcher_SwallowsFailures(t *testing.T) {
	d := NewDispatcher(&recordingSender{fails: true})

	require.NotPanics(t, func() {
		d.Notify(context.Background(), TemplateRequestRejected, []uuid.UUID{uuid.New()}, nil)
		d.Wait()
	})
}

func TestLogSender(t *testing.T) {
	err := LogSender{}.Send(context.Background(), TemplateRequestApproved, uuid.New(), map[string]any{"k": "v"})
	require.NoError(t, err)
}

type capturingMailer struct {
	messages []*gomail.Message
}

func (c *capturingMailer) DialAndSend(m ...*gomail.Message) error {
	c.messages = append(c.messages, m...)
	return nil
}

func TestSMTPSender_Send(t *testing.T) {
	ctx := context.Background()
	principals := memory.NewPrincipalStore()

	email := "alice@example.com"
	withEmail := &models.Principal{PrincipalID: uuid.New(), Name: "alice", Email: &email}
	withoutEmail := &models.Principal{PrincipalID: uuid.New(), Name: "bob"}
	require.NoError(t, principals.Create(ctx, withEmail))
	require.NoError(t, principals.Create(ctx, withoutEmail))

	mailer := &capturingMailer{}
	sender := NewSMTPSender(SMTPConfig{Host: "localhost", Port: 25, From: "hub@example.com"}, principals)
	sender.mailer = mailer

	t.Run("delivers to the stored address", func(t *testing.T) {
		err := sender.Send(ctx, TemplateRequestApproved, withEmail.PrincipalID, map[string]any{"repository": "bot"})
		require.NoError(t, err)
		require.Len(t, mailer.messages, 1)

		msg := mailer.messages[0]
		require.Len(t, msg.GetHeader("To"), 1)
		require.Contains(t, msg.GetHeader("To")[0], "<alice@example.com>")
		require.Equal(t, []string{"Your access request was approved"}, msg.GetHeader("Subject"))
	})

	t.Run("no address", func(t *testing.T) {
		err := sender.Send(ctx, TemplateRequestApproved, withoutEmail.PrincipalID, nil)
		require.ErrorIs(t, err, ErrNoAddress)
	})

	t.Run("unknown template", func(t *testing.T) {
		err := sender.Send(ctx, "welcome", withEmail.PrincipalID, nil)
		require.Error(t, err)
	})
}

func TestRenderBody(t *testing.T) {
	body := renderBody("alice", "New access request", map[string]any{"text": "hi", "repository": "bot"})
	require.Equal(t, "Hello alice,\n\nNew access request.\n\nrepository: bot\ntext: hi\n", body)
}

func TestSMTPConfig_Validate(t *testing.T) {
	require.NoError(t, SMTPConfig{Host: "mail", Port: 587, From: "a@b.c"}.Validate())
	require.Error(t, SMTPConfig{Port: 587, From: "a@b.c"}.Validate())
	require.Error(t, SMTPConfig{Host: "mail", From: "a@b.c"}.Validate())
}
