package model

import "unicode/utf8"

// TruncateString cắt chuỗi xuống tối đa maxLength byte
// mà không cắt đôi một ký tự UTF-8
func TruncateString(s string, maxLength int) string {
	if len(s) <= maxLength {
		return s
	}
	s = s[:maxLength]
	for len(s) > 0 && !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s
}
