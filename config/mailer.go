package config

import (
	"crypto/tls"
	"fmt"
	"os"
	"strconv"

	mail "github.com/go-mail/mail/v2"
)

var (
	smtpHost = os.Getenv("SMTP_HOST")
	smtpPort = func() int {
		p, _ := strconv.Atoi(os.Getenv("SMTP_PORT"))
		if p == 0 {
			p = 587
		}
		return p
	}()
	smtpUser      = os.Getenv("SMTP_USER")
	smtpPass      = os.Getenv("SMTP_PASS")
	smtpFrom      = os.Getenv("SMTP_FROM") // e.g. "CampusHub <no-reply@your.edu>"
	skipTLSVerify = os.Getenv("SMTP_SKIP_TLS_VERIFY") == "1"
)

func SendMail(to []string, subject, html string) error {
	if len(to) == 0 {
		return nil
	}
	if smtpHost == "" || smtpFrom == "" {
		return fmt.Errorf("smtp not configured (SMTP_HOST/SMTP_FROM)")
	}

	m := mail.NewMessage()
	m.SetHeader("From", smtpFrom)
	m.SetHeader("To", to...)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", html)

	d := mail.NewDialer(smtpHost, smtpPort, smtpUser, smtpPass)

	// Mandatory STARTTLS on 587 (Gmail/Office365).
	d.StartTLSPolicy = mail.MandatoryStartTLS

	// ServerName must match the SMTP hostname; InsecureSkipVerify is for
	// dev only (SMTP_SKIP_TLS_VERIFY=1).
	d.TLSConfig = &tls.Config{
		ServerName:         smtpHost,
		InsecureSkipVerify: skipTLSVerify,
	}

	return d.DialAndSend(m)
}
