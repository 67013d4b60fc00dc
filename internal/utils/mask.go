package utils

import "strings"

// MaskAadhaar keeps the last four digits of an Aadhaar number
func MaskAadhaar(aadhaar string) string {
	return maskTail(aadhaar, 4, "XXXX-XXXX-")
}

// MaskAccount keeps the last four characters of a bank account number
func MaskAccount(account string) string {
	return maskTail(account, 4, strings.Repeat("X", max(len(account)-4, 0)))
}

// MaskMobile keeps the last three digits of a mobile number
func MaskMobile(mobile string) string {
	return maskTail(mobile, 3, strings.Repeat("X", max(len(mobile)-3, 0)))
}

func maskTail(s string, keep int, prefix string) string {
	if len(s) <= keep {
		return strings.Repeat("X", len(s))
	}
	return prefix + s[len(s)-keep:]
}
