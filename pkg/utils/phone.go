package utils

import "strings"

// DefaultCountryCode is prefixed or stripped when matching stored phone numbers.
const DefaultCountryCode = "55"

func DigitsOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}

// PhoneCandidates returns the lookup variants for a phone number in match
// order: as received, without country code, with country code.
func PhoneCandidates(phone string) []string {
	digits := DigitsOnly(phone)
	if digits == "" {
		return nil
	}

	out := []string{digits}
	if strings.HasPrefix(digits, DefaultCountryCode) && len(digits) > len(DefaultCountryCode)+8 {
		out = append(out, strings.TrimPrefix(digits, DefaultCountryCode))
	} else {
		out = append(out, DefaultCountryCode+digits)
	}
	return out
}
