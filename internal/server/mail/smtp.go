package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
)

// SMTPDispatcher sends mail over SMTPS (implicit TLS, typically port 465).
type SMTPDispatcher struct {
	Host     string
	Port     int
	Username string
	Password string
	Sender   string
}

func NewSMTPDispatcher(host string, port int, username, password, sender string) *SMTPDispatcher {
	return &SMTPDispatcher{
		Host:     host,
		Port:     port,
		Username: username,
		Password: password,
		Sender:   sender,
	}
}

func (d *SMTPDispatcher) Send(ctx context.Context, recipient, subject, body string) error {
	addr := net.JoinHostPort(d.Host, strconv.Itoa(d.Port))

	dialer := &net.Dialer{}
	netConn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("smtp dial: %w", err)
	}

	conn := tls.Client(netConn, &tls.Config{ServerName: d.Host})
	client, err := smtp.NewClient(conn, d.Host)
	if err != nil {
		netConn.Close()
		return fmt.Errorf("smtp client: %w", err)
	}
	defer client.Close()

	if d.Username != "" {
		auth := smtp.PlainAuth("", d.Username, d.Password, d.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}

	if err := client.Mail(d.Sender); err != nil {
		return fmt.Errorf("smtp mail: %w", err)
	}
	if err := client.Rcpt(recipient); err != nil {
		return fmt.Errorf("smtp rcpt: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write([]byte(d.message(recipient, subject, body))); err != nil {
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp close: %w", err)
	}

	return client.Quit()
}

func (d *SMTPDispatcher) message(recipient, subject, body string) string {
	return fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n",
		d.Sender, recipient, subject, body)
}
