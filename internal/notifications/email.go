package notifications

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log"
	"net/mail"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/vedants521/CancelFillMD/internal/shared/config"
)

// EmailSender sends one email. Implementations report permanent failures
// through IsPermanentSendError so the dispatcher knows not to retry.
type EmailSender interface {
	Send(ctx context.Context, to, subject, htmlBody, textBody string) (providerID string, err error)
}

// permanentSendError marks a failure that retrying cannot fix, such as a
// malformed address.
type permanentSendError struct {
	err error
}

func (e *permanentSendError) Error() string { return e.err.Error() }
func (e *permanentSendError) Unwrap() error { return e.err }

// NewPermanentSendError wraps err as non-retryable.
func NewPermanentSendError(err error) error {
	return &permanentSendError{err: err}
}

// IsPermanentSendError reports whether err should not be retried.
func IsPermanentSendError(err error) bool {
	var p *permanentSendError
	return errors.As(err, &p)
}

// SMTPEmailSender sends email over SMTP with STARTTLS
type SMTPEmailSender struct {
	config config.EmailConfig
}

func NewSMTPEmailSender(cfg config.EmailConfig) *SMTPEmailSender {
	return &SMTPEmailSender{config: cfg}
}

func (s *SMTPEmailSender) Send(ctx context.Context, to, subject, htmlBody, textBody string) (string, error) {
	if _, err := mail.ParseAddress(to); err != nil {
		return "", NewPermanentSendError(fmt.Errorf("invalid email address %q: %w", to, err))
	}

	message := s.buildMessage(to, subject, htmlBody, textBody)
	auth := smtp.PlainAuth("", s.config.SMTPUsername, s.config.SMTPPassword, s.config.SMTPHost)
	addr := fmt.Sprintf("%s:%d", s.config.SMTPHost, s.config.SMTPPort)

	if err := s.sendWithSTARTTLS(addr, auth, to, message); err != nil {
		return "", fmt.Errorf("failed to send email: %w", err)
	}
	return "smtp:" + to, nil
}

// sendWithSTARTTLS sends email with STARTTLS encryption
func (s *SMTPEmailSender) sendWithSTARTTLS(addr string, auth smtp.Auth, to string, message []byte) error {
	client, err := smtp.Dial(addr)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer client.Quit()

	tlsconfig := &tls.Config{
		InsecureSkipVerify: false,
		ServerName:         s.config.SMTPHost,
	}

	if err = client.StartTLS(tlsconfig); err != nil {
		return fmt.Errorf("failed to start TLS: %w", err)
	}

	if auth != nil {
		if err = client.Auth(auth); err != nil {
			return fmt.Errorf("failed to authenticate: %w", err)
		}
	}

	if err = client.Mail(s.config.FromEmail); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}

	if err = client.Rcpt(to); err != nil {
		return fmt.Errorf("failed to set recipient: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to get data writer: %w", err)
	}

	_, err = w.Write(message)
	if err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}

	return w.Close()
}

// buildMessage creates the email message with proper headers
func (s *SMTPEmailSender) buildMessage(to, subject, htmlBody, textBody string) []byte {
	headers := make(map[string]string)
	headers["From"] = fmt.Sprintf("%s <%s>", s.config.FromName, s.config.FromEmail)
	headers["To"] = to
	headers["Subject"] = subject
	headers["MIME-Version"] = "1.0"
	headers["Date"] = time.Now().Format(time.RFC1123Z)

	boundary := "boundary_" + strconv.FormatInt(time.Now().UnixNano(), 10)
	headers["Content-Type"] = fmt.Sprintf("multipart/alternative; boundary=%s", boundary)

	message := ""
	for k, v := range headers {
		message += fmt.Sprintf("%s: %s\r\n", k, v)
	}
	message += "\r\n"

	if textBody != "" {
		message += fmt.Sprintf("--%s\r\n", boundary)
		message += "Content-Type: text/plain; charset=UTF-8\r\n"
		message += "\r\n"
		message += textBody + "\r\n"
	}

	if htmlBody != "" {
		message += fmt.Sprintf("--%s\r\n", boundary)
		message += "Content-Type: text/html; charset=UTF-8\r\n"
		message += "\r\n"
		message += htmlBody + "\r\n"
	}

	message += fmt.Sprintf("--%s--\r\n", boundary)

	return []byte(message)
}

// MockEmailSender logs instead of sending, for development and tests
type MockEmailSender struct{}

func NewMockEmailSender() *MockEmailSender {
	return &MockEmailSender{}
}

func (s *MockEmailSender) Send(ctx context.Context, to, subject, htmlBody, textBody string) (string, error) {
	log.Printf("📧 [MOCK] To: %s, Subject: %s", to, subject)
	log.Printf("📧 [MOCK] Body: %s", strings.TrimSpace(textBody))
	return "mock-email", nil
}
