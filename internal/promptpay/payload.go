// Package promptpay builds EMVCo merchant-presented QR payloads for the Thai
// PromptPay scheme. The customer display renders the returned string as a QR
// code; no gateway interaction happens here.
package promptpay

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	idPayloadFormat       = "00"
	idPointOfInitiation   = "01"
	idMerchantAccountInfo = "29"
	idCountryCode         = "58"
	idCurrencyCode        = "53"
	idAmount              = "54"
	idCRC                 = "63"

	merchantIDAID        = "00"
	merchantIDPhone      = "01"
	merchantIDNationalID = "02"
	merchantIDEWallet    = "03"

	aidPromptPay = "A000000677010111"
	currencyTHB  = "764"
	countryTH    = "TH"

	// "11" marks a reusable static QR, "12" one tied to a specific amount.
	initiationStatic  = "11"
	initiationDynamic = "12"
)

// ErrInvalidTarget is returned when the configured PromptPay identifier is not
// a phone number, national ID, or e-wallet ID.
var ErrInvalidTarget = errors.New("invalid promptpay target")

// Payload assembles the TLV payload for the given PromptPay target and amount
// in satang. A zero amount produces a static QR without an amount field.
func Payload(target string, amountSatang int64) (string, error) {
	account, err := formatTarget(target)
	if err != nil {
		return "", err
	}

	initiation := initiationStatic
	if amountSatang > 0 {
		initiation = initiationDynamic
	}

	var b strings.Builder
	b.WriteString(tlv(idPayloadFormat, "01"))
	b.WriteString(tlv(idPointOfInitiation, initiation))
	b.WriteString(tlv(idMerchantAccountInfo, account))
	b.WriteString(tlv(idCountryCode, countryTH))
	b.WriteString(tlv(idCurrencyCode, currencyTHB))
	if amountSatang > 0 {
		baht := decimal.NewFromInt(amountSatang).Div(decimal.NewFromInt(100))
		b.WriteString(tlv(idAmount, baht.StringFixed(2)))
	}
	payload := b.String() + idCRC + "04"
	return payload + fmt.Sprintf("%04X", crc16(payload)), nil
}

// formatTarget normalizes the merchant identifier: 10-digit phone numbers are
// rewritten to the 0066 international form, 13 digits pass through as a
// national ID, 15 digits or more as an e-wallet ID.
func formatTarget(target string) (string, error) {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, target)

	var sub string
	switch {
	case len(digits) >= 15:
		sub = tlv(merchantIDEWallet, digits)
	case len(digits) == 13:
		sub = tlv(merchantIDNationalID, digits)
	case len(digits) == 10 && digits[0] == '0':
		phone := "66" + digits[1:]
		for len(phone) < 13 {
			phone = "0" + phone
		}
		sub = tlv(merchantIDPhone, phone)
	default:
		return "", fmt.Errorf("%q: %w", target, ErrInvalidTarget)
	}
	return tlv(merchantIDAID, aidPromptPay) + sub, nil
}

func tlv(id, value string) string {
	return fmt.Sprintf("%s%02d%s", id, len(value), value)
}

// crc16 implements CRC-16/CCITT-FALSE (poly 0x1021, init 0xFFFF) as required
// by the EMVCo QR specification.
func crc16(data string) uint16 {
	crc := uint16(0xFFFF)
	for i := 0; i < len(data); i++ {
		crc ^= uint16(data[i]) << 8
		for bit := 0; bit < 8; bit++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
