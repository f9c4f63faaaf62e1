package whatsapp

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
)

// ErrNotWhatsApp is returned for envelopes from other Graph API objects.
var ErrNotWhatsApp = errors.New("not a whatsapp business envelope")

// SignatureHeader carries the HMAC of the raw webhook body.
const SignatureHeader = "X-Hub-Signature-256"

// Envelope is the webhook payload posted by the Cloud API.
type Envelope struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

type Entry struct {
	ID      string   `json:"id"`
	Changes []Change `json:"changes"`
}

type Change struct {
	Field string `json:"field"`
	Value Value  `json:"value"`
}

type Value struct {
	MessagingProduct string    `json:"messaging_product"`
	Metadata         Metadata  `json:"metadata"`
	Contacts         []Contact `json:"contacts"`
	Messages         []Message `json:"messages"`
}

type Metadata struct {
	DisplayPhoneNumber string `json:"display_phone_number"`
	PhoneNumberID      string `json:"phone_number_id"`
}

type Contact struct {
	WaID    string `json:"wa_id"`
	Profile struct {
		Name string `json:"name"`
	} `json:"profile"`
}

type Message struct {
	ID        string `json:"id"`
	From      string `json:"from"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Text      *struct {
		Body string `json:"body"`
	} `json:"text,omitempty"`
}

// InboundMessage is one customer message extracted from an envelope. Text is
// empty for non-text types.
type InboundMessage struct {
	ID            string
	From          string
	Type          string
	Text          string
	DisplayName   string
	PhoneNumberID string
}

// Parse decodes a webhook body into the customer messages it carries. Status
// updates and other changes yield no messages.
func Parse(body []byte) ([]InboundMessage, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, err
	}
	if env.Object != "" && env.Object != "whatsapp_business_account" {
		return nil, ErrNotWhatsApp
	}

	var out []InboundMessage
	for _, entry := range env.Entry {
		for _, change := range entry.Changes {
			v := change.Value
			for _, m := range v.Messages {
				if m.From == "" {
					continue
				}
				in := InboundMessage{
					ID:            m.ID,
					From:          m.From,
					Type:          m.Type,
					DisplayName:   contactName(v.Contacts, m.From),
					PhoneNumberID: v.Metadata.PhoneNumberID,
				}
				if m.Type == "text" && m.Text != nil {
					in.Text = m.Text.Body
				}
				out = append(out, in)
			}
		}
	}
	return out, nil
}

func contactName(contacts []Contact, waID string) string {
	for _, c := range contacts {
		if c.WaID == waID {
			return c.Profile.Name
		}
	}
	if len(contacts) > 0 {
		return contacts[0].Profile.Name
	}
	return ""
}

// Sign returns the signature header value for body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks an X-Hub-Signature-256 value against body.
func VerifySignature(secret string, body []byte, header string) bool {
	got, ok := strings.CutPrefix(header, "sha256=")
	if !ok {
		return false
	}
	sig, err := hex.DecodeString(got)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(sig, mac.Sum(nil))
}
