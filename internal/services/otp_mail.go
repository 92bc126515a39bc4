package services

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/you/accountsvc/domain"
)

const (
	confirmationSubject = "Email Confirmation"
	resendSubject       = "Resend OTP for Email Verification"
)

var otpMailTemplate = template.Must(template.New("otp").Parse(`<div style="font-family: Arial, sans-serif; text-align: center;">
  <h1>{{.Heading}}</h1>
  <p>{{.Intro}}</p>
  <h2>{{.Code}}</h2>
  <p>This code is valid for {{.ValidFor}}.</p>
</div>
`))

type otpMailData struct {
	Heading  string
	Intro    string
	Code     string
	ValidFor string
}

// confirmationMail builds the message sent on registration
func confirmationMail(to, code string, ttl time.Duration) (*domain.OTPMessage, error) {
	return renderOTPMail(to, confirmationSubject, otpMailData{
		Heading:  "Email Confirmation",
		Intro:    "Your OTP code:",
		Code:     code,
		ValidFor: humanDuration(ttl),
	})
}

// resendMail builds the message sent when a fresh code is requested
func resendMail(to, code string, ttl time.Duration) (*domain.OTPMessage, error) {
	return renderOTPMail(to, resendSubject, otpMailData{
		Heading:  "Resend OTP",
		Intro:    "Your new OTP code is:",
		Code:     code,
		ValidFor: humanDuration(ttl),
	})
}

func renderOTPMail(to, subject string, data otpMailData) (*domain.OTPMessage, error) {
	var buf bytes.Buffer
	if err := otpMailTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to render otp mail: %w", err)
	}
	return &domain.OTPMessage{To: to, Subject: subject, HTML: buf.String()}, nil
}

// humanDuration renders whole minutes as "10 minutes", anything else as time.Duration does
func humanDuration(d time.Duration) string {
	if d > 0 && d%time.Minute == 0 {
		minutes := int(d / time.Minute)
		if minutes == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", minutes)
	}
	return d.String()
}
