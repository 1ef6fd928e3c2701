package filter

import (
	"bytes"
	"fmt"
	"io"
	"net/mail"
	"strings"

	"github.com/jhillyerd/enmime"
	"github.com/mikey/phishing-filter/internal/core"
)

// ParseMessage reads an RFC 5322 message and builds the record analysed by
// the phishing service. enmime down-converts HTML-only messages to text, so
// the body is always plain text when the message has any text part.
func ParseMessage(r io.Reader) (core.EmailRecord, error) {
	env, err := enmime.ReadEnvelope(r)
	if err != nil {
		return core.EmailRecord{}, fmt.Errorf("failed to parse message: %w", err)
	}

	record := core.EmailRecord{
		Subject:     env.GetHeader("Subject"),
		Body:        env.Text,
		SenderEmail: senderAddress(env),
	}
	if strings.TrimSpace(record.Body) == "" {
		record.Body = env.HTML
	}
	return record, nil
}

// ParseMessageBytes is ParseMessage over an in-memory message
func ParseMessageBytes(raw []byte) (core.EmailRecord, error) {
	return ParseMessage(bytes.NewReader(raw))
}

func senderAddress(env *enmime.Envelope) string {
	addrs, err := env.AddressList("From")
	if err == nil && len(addrs) > 0 {
		return strings.ToLower(addrs[0].Address)
	}

	// Fall back to a lenient parse of the raw header
	raw := env.GetHeader("From")
	if raw == "" {
		return ""
	}
	if addr, err := mail.ParseAddress(raw); err == nil {
		return strings.ToLower(addr.Address)
	}
	return ""
}
