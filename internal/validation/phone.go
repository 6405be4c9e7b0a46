// Package validation содержит функции валидации входных данных.
package validation

import (
	"errors"
	"strings"

	"github.com/ttacon/libphonenumber"
)

// ErrInvalidPhone возвращается для номера, который нельзя привести к формату E.164.
var ErrInvalidPhone = errors.New("invalid phone number")

// NormalizePhone приводит номер телефона к формату E.164. Номера без кода
// страны разбираются в контексте region (например, "IN").
func NormalizePhone(raw, region string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrInvalidPhone
	}

	p, err := libphonenumber.Parse(raw, strings.ToUpper(region))
	if err != nil {
		return "", ErrInvalidPhone
	}

	if !libphonenumber.IsValidNumber(p) {
		return "", ErrInvalidPhone
	}

	return libphonenumber.Format(p, libphonenumber.E164), nil
}

// WhatsAppRecipient возвращает номер в виде, который ожидает WhatsApp Cloud API: только цифры.
func WhatsAppRecipient(e164 string) string {
	return strings.TrimPrefix(e164, "+")
}
