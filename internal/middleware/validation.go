package middleware

import (
	"errors"
	"unicode/utf8"
)

// MaxMessageLength is the longest text WhatsApp accepts in one message.
const MaxMessageLength = 4096

// ValidateCustomerID validates a WhatsApp id: 6 to 20 digits.
func ValidateCustomerID(id string) error {
	if len(id) < 6 || len(id) > 20 {
		return errors.New("invalid customer ID format")
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return errors.New("invalid customer ID format")
		}
	}
	return nil
}

// ValidateMessageText validates inbound text. Empty text is allowed and
// handled downstream.
func ValidateMessageText(text string) error {
	if !utf8.ValidString(text) {
		return errors.New("text must be valid UTF-8")
	}
	if utf8.RuneCountInString(text) > MaxMessageLength {
		return errors.New("text exceeds maximum length")
	}
	return nil
}
