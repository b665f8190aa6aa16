package mailer

import (
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"gopkg.in/gomail.v2"
)

// PdfAttachment is an in-memory file attached to an outgoing message.
type PdfAttachment struct {
	Filename string
	Content  []byte
}

// Message is one outgoing email.
type Message struct {
	To          string
	Subject     string
	Body        string
	Attachments []PdfAttachment
}

// Sender delivers messages. The SMTP client implements it; tests swap in
// a fake.
type Sender interface {
	Send(msg Message) error
}

// Client sends mail over SMTP using gomail. Credentials come from the
// environment: SMTP_HOST, SMTP_PORT, SMTP_USER, SMTP_PASSWORD, SMTP_FROM,
// SMTP_FROM_NAME.
type Client struct {
	dialer   *gomail.Dialer
	from     string
	fromName string
}

func NewClientFromEnv() (*Client, error) {
	host := os.Getenv("SMTP_HOST")
	if host == "" {
		return nil, errors.New("SMTP_HOST is not set")
	}
	port := 587
	if p := os.Getenv("SMTP_PORT"); p != "" {
		parsed, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid SMTP_PORT: %w", err)
		}
		port = parsed
	}
	from := os.Getenv("SMTP_FROM")
	if from == "" {
		return nil, errors.New("SMTP_FROM is not set")
	}

	dialer := gomail.NewDialer(host, port, os.Getenv("SMTP_USER"), os.Getenv("SMTP_PASSWORD"))
	dialer.TLSConfig = &tls.Config{
		ServerName: host,
		MinVersion: tls.VersionTLS12,
	}

	return &Client{
		dialer:   dialer,
		from:     from,
		fromName: os.Getenv("SMTP_FROM_NAME"),
	}, nil
}

func (c *Client) Send(msg Message) error {
	if msg.To == "" {
		return errors.New("recipient address is required")
	}

	m := gomail.NewMessage(
		gomail.SetCharset("UTF-8"),
		gomail.SetEncoding(gomail.Base64),
	)
	m.SetAddressHeader("From", c.from, c.fromName)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Body)

	for _, att := range msg.Attachments {
		content := att.Content
		m.Attach(att.Filename,
			gomail.SetCopyFunc(func(w io.Writer) error {
				_, err := w.Write(content)
				return err
			}),
			gomail.SetHeader(map[string][]string{
				"Content-Type": {"application/pdf"},
			}),
		)
	}

	if err := c.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
