// Package notifier turns single-use tokens into emails delivered through the mail dispatcher.
package notifier

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/vasapolrittideah/car-rental-api/services/auth-service/internal/model"
	"github.com/vasapolrittideah/car-rental-api/services/auth-service/internal/usecase"
	"github.com/vasapolrittideah/car-rental-api/shared/mailer"
)

// Dispatcher queues an email for background delivery.
type Dispatcher interface {
	Dispatch(email mailer.Email) bool
}

var htmlLayout = template.Must(template.New("email").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: sans-serif; line-height: 1.5;">
<p>Hi {{.Name}},</p>
<p>{{.Intro}} It expires in {{.ExpiresIn}}.</p>
<p><a href="{{.Link}}">{{.Action}}</a></p>
{{with .Footer}}<p style="color: #666;">{{.}}</p>
{{end}}</body>
</html>
`))

type htmlContent struct {
	Name      string
	Intro     string
	ExpiresIn string
	Action    string
	Link      string
	Footer    string
}

func renderHTML(content htmlContent) (string, error) {
	var buf bytes.Buffer
	if err := htmlLayout.Execute(&buf, content); err != nil {
		return "", err
	}
	return buf.String(), nil
}

type emailNotifier struct {
	dispatcher           Dispatcher
	passwordResetURL     string
	emailVerificationURL string
	logger               *zerolog.Logger
}

// NewEmailNotifier creates a usecase.Notifier linking to the given front-end pages.
func NewEmailNotifier(
	dispatcher Dispatcher,
	passwordResetURL string,
	emailVerificationURL string,
	logger *zerolog.Logger,
) usecase.Notifier {
	return &emailNotifier{
		dispatcher:           dispatcher,
		passwordResetURL:     passwordResetURL,
		emailVerificationURL: emailVerificationURL,
		logger:               logger,
	}
}

func (n *emailNotifier) SendPasswordReset(
	_ context.Context,
	user *model.User,
	token string,
	expiresIn time.Duration,
) {
	link, err := buildLink(n.passwordResetURL, url.Values{
		"token": {token},
		"email": {user.Email},
	})
	if err != nil {
		n.logger.Error().Err(err).Str("user_id", user.ID).Msg("failed to build password reset link")
		return
	}

	n.send(user, mailer.Email{
		To:      []string{user.Email},
		Subject: "Reset your password",
		Body: fmt.Sprintf(
			"Hi %s,\n\nUse the link below to choose a new password. It expires in %s.\n\n%s\n\n"+
				"If you did not ask for this, you can ignore this email.\n",
			user.FirstName, humanDuration(expiresIn), link,
		),
	}, htmlContent{
		Name:      user.FirstName,
		Intro:     "Use the button below to choose a new password.",
		ExpiresIn: humanDuration(expiresIn),
		Action:    "Reset password",
		Link:      link,
		Footer:    "If you did not ask for this, you can ignore this email.",
	})
}

func (n *emailNotifier) SendEmailVerification(
	_ context.Context,
	user *model.User,
	token string,
	expiresIn time.Duration,
) {
	link, err := buildLink(n.emailVerificationURL, url.Values{"token": {token}})
	if err != nil {
		n.logger.Error().Err(err).Str("user_id", user.ID).Msg("failed to build email verification link")
		return
	}

	n.send(user, mailer.Email{
		To:      []string{user.Email},
		Subject: "Verify your email address",
		Body: fmt.Sprintf(
			"Hi %s,\n\nConfirm your email address by opening the link below. It expires in %s.\n\n%s\n",
			user.FirstName, humanDuration(expiresIn), link,
		),
	}, htmlContent{
		Name:      user.FirstName,
		Intro:     "Confirm your email address with the button below.",
		ExpiresIn: humanDuration(expiresIn),
		Action:    "Verify email",
		Link:      link,
	})
}

// send attaches the HTML alternative when it renders and falls back to plain text otherwise.
func (n *emailNotifier) send(user *model.User, email mailer.Email, content htmlContent) {
	html, err := renderHTML(content)
	if err != nil {
		n.logger.Error().Err(err).Str("user_id", user.ID).Msg("failed to render email html")
	} else {
		email.HTMLBody = html
	}

	if !n.dispatcher.Dispatch(email) {
		n.logger.Warn().Str("user_id", user.ID).Str("subject", email.Subject).Msg("email not queued")
	}
}

// buildLink appends query to base, keeping any query base already has.
func buildLink(base string, query url.Values) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}

	q := u.Query()
	for k, v := range query {
		q[k] = v
	}
	u.RawQuery = q.Encode()

	return u.String(), nil
}

func humanDuration(d time.Duration) string {
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		if d == time.Hour {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", d/time.Hour)
	case d >= time.Minute && d%time.Minute == 0:
		if d == time.Minute {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", d/time.Minute)
	default:
		return d.String()
	}
}
