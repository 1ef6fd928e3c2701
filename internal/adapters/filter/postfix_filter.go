package filter

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"time"

	"github.com/emersion/go-smtp"
	"github.com/mikey/phishing-filter/internal/core"
	"go.uber.org/zap"
)

// PostfixFilter implements a Postfix content filter. Each message is scored,
// annotated with verdict headers and re-injected into Postfix.
type PostfixFilter struct {
	service       *core.PhishingService
	logger        *zap.Logger
	listenAddr    string
	server        *smtp.Server
	blockSpam     bool
	statusHeader  string
	scoreHeader   string
	votesHeader   string
	postfixAddr   string
	postfixPort   int
	subjectPrefix string
	modifySubject bool

	// forward re-injects the annotated message; replaced in tests
	forward func(sender string, recipients []string, data []byte) error
}

// NewPostfixFilter creates a new Postfix content filter
func NewPostfixFilter(
	service *core.PhishingService,
	logger *zap.Logger,
	listenAddr string,
	blockSpam bool,
	statusHeader string,
	scoreHeader string,
	votesHeader string,
	postfixAddr string,
	postfixPort int,
	subjectPrefix string,
	modifySubject bool,
) *PostfixFilter {
	if subjectPrefix == "" && modifySubject {
		subjectPrefix = "[**PHISHING**] "
	}

	f := &PostfixFilter{
		service:       service,
		logger:        logger,
		listenAddr:    listenAddr,
		blockSpam:     blockSpam,
		statusHeader:  statusHeader,
		scoreHeader:   scoreHeader,
		votesHeader:   votesHeader,
		postfixAddr:   postfixAddr,
		postfixPort:   postfixPort,
		subjectPrefix: subjectPrefix,
		modifySubject: modifySubject,
	}
	f.forward = f.sendToPostfix
	return f
}

// Start starts the SMTP listener in the background
func (f *PostfixFilter) Start() error {
	f.server = smtp.NewServer(&smtpBackend{filter: f})
	f.server.Addr = f.listenAddr
	f.server.Domain = "localhost"
	f.server.ReadTimeout = 30 * time.Second
	f.server.WriteTimeout = 30 * time.Second
	f.server.MaxMessageBytes = 30 * 1024 * 1024
	f.server.MaxRecipients = 50
	f.server.AllowInsecureAuth = true

	f.logger.Info("Postfix filter starting", zap.String("address", f.listenAddr))

	go func() {
		if err := f.server.ListenAndServe(); err != nil && err != smtp.ErrServerClosed {
			f.logger.Error("SMTP server error", zap.Error(err))
		}
	}()
	return nil
}

// Stop stops the SMTP listener
func (f *PostfixFilter) Stop() error {
	if f.server != nil {
		return f.server.Close()
	}
	return nil
}

// Filter scores a raw message and returns the verdict together with the
// annotated message. A nil message means the message must be rejected.
func (f *PostfixFilter) Filter(ctx context.Context, envelopeSender string, raw []byte) (*core.AnalysisResult, []byte) {
	record, err := ParseMessageBytes(raw)
	if err != nil {
		f.logger.Warn("Failed to parse message, forwarding unscored", zap.Error(err))
		result := core.NewErrorResult("", err)
		return result, f.annotate(raw, result, "")
	}
	if record.SenderEmail == "" {
		record.SenderEmail = strings.ToLower(envelopeSender)
	}

	result := f.service.Evaluate(ctx, record)

	// Analysis errors never block mail
	if result.IsSpam() && f.blockSpam {
		return result, nil
	}
	return result, f.annotate(raw, result, record.Subject)
}

// annotate prepends the verdict headers and, for Spam, prefixes the subject
func (f *PostfixFilter) annotate(raw []byte, result *core.AnalysisResult, subject string) []byte {
	header, body := splitMessage(raw)

	var out bytes.Buffer
	fmt.Fprintf(&out, "%s: %s\r\n", f.statusHeader, result.FinalLabel)
	fmt.Fprintf(&out, "%s: %.2f\r\n", f.scoreHeader, result.OverallScore)
	fmt.Fprintf(&out, "%s: %d\r\n", f.votesHeader, result.SpamVotes)
	if result.Error != "" {
		fmt.Fprintf(&out, "X-Phishing-Analysis-Error: %s\r\n", oneLine(result.Error))
	}

	prefix := ""
	if result.IsSpam() && f.modifySubject && f.subjectPrefix != "" && !strings.HasPrefix(subject, f.subjectPrefix) {
		prefix = f.subjectPrefix
	}
	out.Write(prefixSubject(header, prefix))
	out.Write(body)
	return out.Bytes()
}

// splitMessage splits raw at the blank line ending the header block. The
// returned header keeps its terminating blank line.
func splitMessage(raw []byte) (header, body []byte) {
	if i := bytes.Index(raw, []byte("\r\n\r\n")); i >= 0 {
		return raw[:i+4], raw[i+4:]
	}
	if i := bytes.Index(raw, []byte("\n\n")); i >= 0 {
		return raw[:i+2], raw[i+2:]
	}
	return raw, nil
}

// prefixSubject inserts prefix at the start of the Subject header value,
// keeping every other header byte untouched. A message without a Subject
// gets one.
func prefixSubject(header []byte, prefix string) []byte {
	if prefix == "" {
		return header
	}

	lines := bytes.SplitAfter(header, []byte("\n"))
	for i, line := range lines {
		name, value, ok := bytes.Cut(line, []byte(":"))
		if !ok || !strings.EqualFold(string(name), "Subject") {
			continue
		}
		value = bytes.TrimLeft(value, " \t")
		lines[i] = append([]byte("Subject: "+prefix), value...)
		return bytes.Join(lines, nil)
	}

	subjectLine := []byte("Subject: " + strings.TrimSpace(prefix) + "\r\n")
	return append(subjectLine, header...)
}

func oneLine(s string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
}

// sendToPostfix re-injects the message into Postfix over SMTP
func (f *PostfixFilter) sendToPostfix(sender string, recipients []string, data []byte) error {
	addr := net.JoinHostPort(f.postfixAddr, fmt.Sprintf("%d", f.postfixPort))

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "localhost"
	}

	conn, err := net.DialTimeout("tcp", addr, 10*time.Second)
	if err != nil {
		return fmt.Errorf("failed to connect to Postfix: %w", err)
	}
	if err := conn.SetDeadline(time.Now().Add(30 * time.Second)); err != nil {
		conn.Close()
		return fmt.Errorf("failed to set connection deadline: %w", err)
	}

	c := smtp.NewClient(conn)
	defer c.Close()

	if err := c.Hello(hostname); err != nil {
		return fmt.Errorf("EHLO failed: %w", err)
	}
	if err := c.Mail(sender, nil); err != nil {
		return fmt.Errorf("MAIL FROM failed: %w", err)
	}

	accepted := 0
	for _, rcpt := range recipients {
		if err := c.Rcpt(rcpt, nil); err != nil {
			f.logger.Warn("RCPT TO failed", zap.String("recipient", rcpt), zap.Error(err))
			continue
		}
		accepted++
	}
	if accepted == 0 {
		return fmt.Errorf("all recipients were rejected")
	}

	wc, err := c.Data()
	if err != nil {
		return fmt.Errorf("DATA command failed: %w", err)
	}
	if _, err := wc.Write(data); err != nil {
		wc.Close()
		return fmt.Errorf("failed to send message data: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	if err := c.Quit(); err != nil {
		f.logger.Warn("QUIT command failed", zap.Error(err))
	}
	return nil
}

// smtpBackend implements the go-smtp Backend interface
type smtpBackend struct {
	filter *PostfixFilter
}

// NewSession creates a new SMTP session
func (b *smtpBackend) NewSession(_ *smtp.Conn) (smtp.Session, error) {
	return &smtpSession{filter: b.filter}, nil
}

// smtpSession implements the go-smtp Session interface
type smtpSession struct {
	filter     *PostfixFilter
	sender     string
	recipients []string
}

func (s *smtpSession) Reset() {
	s.sender = ""
	s.recipients = nil
}

func (s *smtpSession) Mail(from string, _ *smtp.MailOptions) error {
	s.sender = from
	return nil
}

func (s *smtpSession) Rcpt(to string, _ *smtp.RcptOptions) error {
	s.recipients = append(s.recipients, to)
	return nil
}

// Data scores the message and forwards it, or rejects it when blocking is on
func (s *smtpSession) Data(r io.Reader) error {
	raw, err := io.ReadAll(r)
	if err != nil {
		s.filter.logger.Error("Failed to read message data", zap.Error(err))
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	result, annotated := s.filter.Filter(ctx, s.sender, raw)
	if annotated == nil {
		s.filter.logger.Info("Rejecting phishing message",
			zap.String("from", s.sender),
			zap.Int("votes", result.SpamVotes),
			zap.Float64("score", result.OverallScore))
		return &smtp.SMTPError{
			Code:         550,
			EnhancedCode: smtp.EnhancedCode{5, 7, 1},
			Message:      fmt.Sprintf("Rejected as phishing (score: %.2f)", result.OverallScore),
		}
	}

	if err := s.filter.forward(s.sender, s.recipients, annotated); err != nil {
		s.filter.logger.Error("Failed to send message back to Postfix",
			zap.Error(err),
			zap.String("from", s.sender))
		return err
	}

	s.filter.logger.Info("Processed message",
		zap.String("from", s.sender),
		zap.String("label", result.FinalLabel),
		zap.Int("votes", result.SpamVotes),
		zap.Float64("score", result.OverallScore),
		zap.String("processing_id", result.ProcessingID))
	return nil
}

func (s *smtpSession) Logout() error {
	return nil
}
