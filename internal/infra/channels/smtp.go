package channels

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
)

// SMTPProvider sends through a plain SMTP relay with optional PLAIN auth.
type SMTPProvider struct {
	addr     string
	host     string
	auth     smtp.Auth
	from     string
	fromName string
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPProvider(host string, port int, user, password, from, fromName string) *SMTPProvider {
	var auth smtp.Auth
	if user != "" {
		auth = smtp.PlainAuth("", user, password, host)
	}
	return &SMTPProvider{
		addr:     net.JoinHostPort(host, strconv.Itoa(port)),
		host:     host,
		auth:     auth,
		from:     from,
		fromName: fromName,
		sendMail: smtp.SendMail,
	}
}

func (p *SMTPProvider) Send(ctx context.Context, to, subject, htmlBody string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := buildMIMEMessage(p.from, p.fromName, to, subject, htmlBody)
	if err := p.sendMail(p.addr, p.auth, p.from, []string{sanitizeHeader(to)}, msg); err != nil {
		return fmt.Errorf("smtp send via %s: %w", p.addr, err)
	}
	return nil
}

func buildMIMEMessage(from, fromName, to, subject, htmlBody string) []byte {
	var msg strings.Builder
	if fromName != "" {
		fmt.Fprintf(&msg, "From: %s <%s>\r\n", sanitizeHeader(fromName), sanitizeHeader(from))
	} else {
		fmt.Fprintf(&msg, "From: %s\r\n", sanitizeHeader(from))
	}
	fmt.Fprintf(&msg, "To: %s\r\n", sanitizeHeader(to))
	fmt.Fprintf(&msg, "Subject: %s\r\n", sanitizeHeader(subject))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=utf-8\r\n\r\n")
	msg.WriteString(htmlBody)
	return []byte(msg.String())
}
