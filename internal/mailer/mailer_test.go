package mailer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"growwly/internal/apperr"
	"growwly/internal/models"
)

func TestResendSend(t *testing.T) {
	var got Email
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/emails", r.URL.Path)
		assert.Equal(t, "Bearer re_test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"id":"abc"}`))
	}))
	defer srv.Close()

	err := NewResend("re_test", srv.URL+"/").Send(context.Background(), Email{
		From: "Growwly <onboarding@resend.dev>", To: []string{"admin@example.com"}, Subject: "hi", HTML: "<p>hi</p>",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"admin@example.com"}, got.To)
	assert.Equal(t, "hi", got.Subject)
}

func TestResendFailureIsUpstream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"invalid api key"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	err := NewResend("bad", srv.URL).Send(context.Background(), Email{})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrUpstreamUnavailable)
	assert.Contains(t, err.Error(), "invalid api key")
}

type recorder struct {
	sent []Email
	err  error
}

func (r *recorder) Send(_ context.Context, e Email) error {
	r.sent = append(r.sent, e)
	return r.err
}

func TestAccessRequestEscapesUserInput(t *testing.T) {
	rec := &recorder{}
	n := &Notifier{Sender: rec, From: "Growwly <onboarding@resend.dev>", AdminEmail: "admin@example.com"}

	err := n.AccessRequest(context.Background(), models.AccessRequest{
		Email:     "eve@example.com",
		FullName:  "Eve <script>",
		Reason:    "line one\nline two",
		CreatedAt: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, rec.sent, 1)

	mail := rec.sent[0]
	assert.Equal(t, "New Access Request from Eve <script>", mail.Subject)
	assert.NotContains(t, mail.HTML, "<script>")
	assert.Contains(t, mail.HTML, "Eve &lt;script&gt;")
	assert.Contains(t, mail.HTML, "line one<br>line two")
	assert.Contains(t, mail.HTML, "Company:</strong> Not provided")
}

func TestPasswordResetIncludesAdditionalInfo(t *testing.T) {
	rec := &recorder{}
	n := &Notifier{Sender: rec, AdminEmail: "admin@example.com"}

	require.NoError(t, n.PasswordReset(context.Background(), models.PasswordResetRequest{
		FullName: "Bob", Email: "bob@example.com", Reason: "lost it", AdditionalInfo: "new phone",
	}))
	assert.Contains(t, rec.sent[0].HTML, "Additional Information")
	assert.Contains(t, rec.sent[0].HTML, "new phone")
}

func TestNotifierEnabled(t *testing.T) {
	var nilNotifier *Notifier
	assert.False(t, nilNotifier.Enabled())
	assert.False(t, (&Notifier{Sender: &recorder{}}).Enabled())
	assert.True(t, (&Notifier{Sender: &recorder{}, AdminEmail: "a@b.c"}).Enabled())
}
