package mailer

import (
	"bytes"
	"context"
	"html/template"
	"strings"
	"time"

	"growwly/internal/logger"
	"growwly/internal/models"
)

var templates = template.Must(template.New("mail").Funcs(template.FuncMap{
	"lines":    func(s string) []string { return strings.Split(s, "\n") },
	"orNotSet": orNotSet,
}).Parse(`
{{define "access"}}
<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2 style="color: #333;">New Access Request for Growwly</h2>
  <div style="background: #f5f5f5; padding: 20px; border-radius: 8px; margin: 20px 0;">
    <p><strong>Name:</strong> {{.FullName}}</p>
    <p><strong>Email:</strong> {{.Email}}</p>
    <p><strong>Company:</strong> {{orNotSet .Company}}</p>
    <p><strong>Portfolio:</strong> {{if .PortfolioURL}}<a href="{{.PortfolioURL}}" style="color: #0066cc;">{{.PortfolioURL}}</a>{{else}}Not provided{{end}}</p>
  </div>
  <p><strong>Reason for access:</strong></p>
  <div style="background: #fff; padding: 15px; border-left: 4px solid #0066cc; margin: 10px 0;">
    {{range $i, $l := lines .Reason}}{{if $i}}<br>{{end}}{{$l}}{{end}}
  </div>
  <hr style="border: none; border-top: 1px solid #ddd; margin: 30px 0;">
  <p style="color: #666; font-size: 12px;"><em>Submitted at: {{.CreatedAt.Format "2006-01-02 15:04 MST"}}</em></p>
</div>
{{end}}

{{define "reset"}}
<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2 style="color: #333;">Password Reset Request for Growwly</h2>
  <div style="background: #f5f5f5; padding: 20px; border-radius: 8px; margin: 20px 0;">
    <p><strong>Name:</strong> {{.FullName}}</p>
    <p><strong>Email:</strong> {{.Email}}</p>
  </div>
  <p><strong>Reason for password reset:</strong></p>
  <div style="background: #fff; padding: 15px; border-left: 4px solid #dc3545; margin: 10px 0;">
    {{range $i, $l := lines .Reason}}{{if $i}}<br>{{end}}{{$l}}{{end}}
  </div>
  {{if .AdditionalInfo}}
  <p><strong>Additional Information:</strong></p>
  <div style="background: #fff; padding: 15px; border-left: 4px solid #6c757d; margin: 10px 0;">
    {{range $i, $l := lines .AdditionalInfo}}{{if $i}}<br>{{end}}{{$l}}{{end}}
  </div>
  {{end}}
  <hr style="border: none; border-top: 1px solid #ddd; margin: 30px 0;">
  <p style="color: #666; font-size: 12px;"><em>Submitted at: {{.CreatedAt.Format "2006-01-02 15:04 MST"}}</em></p>
</div>
{{end}}
`))

func orNotSet(s string) string {
	if strings.TrimSpace(s) == "" {
		return "Not provided"
	}
	return s
}

// Notifier emails the administrator about new requests.
type Notifier struct {
	Sender     Sender
	From       string
	AdminEmail string
}

// Enabled reports whether a sender and recipient are configured.
func (n *Notifier) Enabled() bool {
	return n != nil && n.Sender != nil && n.AdminEmail != ""
}

func (n *Notifier) AccessRequest(ctx context.Context, r models.AccessRequest) error {
	return n.send(ctx, "access", "New Access Request from "+r.FullName, r)
}

func (n *Notifier) PasswordReset(ctx context.Context, r models.PasswordResetRequest) error {
	return n.send(ctx, "reset", "Password Reset Request from "+r.FullName, r)
}

func (n *Notifier) send(ctx context.Context, tmpl, subject string, data any) error {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, tmpl, data); err != nil {
		return err
	}
	start := time.Now()
	err := n.Sender.Send(ctx, Email{
		From:    n.From,
		To:      []string{n.AdminEmail},
		Subject: subject,
		HTML:    buf.String(),
	})
	if err != nil {
		logger.Warn("notification email failed", "template", tmpl, "error", err)
		return err
	}
	logger.Info("notification email sent", "template", tmpl, "took", time.Since(start))
	return nil
}
