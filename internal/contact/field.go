package contact

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf16"
	"unicode/utf8"
)

// Role names a form input. It doubles as the input's name attribute.
type Role string

const (
	RoleName    Role = "name"
	RoleEmail   Role = "email"
	RoleSubject Role = "subject"
	RoleMessage Role = "message"
)

// RequiredFields lists the mandatory inputs in form order.
var RequiredFields = []Role{RoleName, RoleEmail, RoleSubject, RoleMessage}

// \s in browser regexps also covers \v, the Unicode separators and BOM.
var emailPattern = regexp.MustCompile(`^[^\s\v\p{Z}\x{feff}@]+@[^\s\v\p{Z}\x{feff}@]+\.[^\s\v\p{Z}\x{feff}@]+$`)

const (
	msgInvalidEmail = "Please enter a valid email address"
	msgShortName    = "Name must be at least 2 characters"
	msgShortSubject = "Subject must be at least 3 characters"
	msgShortMessage = "Message must be at least 10 characters"
)

// ValidateField returns "" when value is acceptable for role, or the message
// to show next to the input.
func ValidateField(role Role, value string) string {
	value = trimValue(value)

	if value == "" {
		return requiredMessage(role)
	}

	switch role {
	case RoleEmail:
		if !emailPattern.MatchString(value) {
			return msgInvalidEmail
		}
	case RoleName:
		if textLength(value) < 2 {
			return msgShortName
		}
	case RoleSubject:
		if textLength(value) < 3 {
			return msgShortSubject
		}
	case RoleMessage:
		if textLength(value) < 10 {
			return msgShortMessage
		}
	}
	return ""
}

func requiredMessage(role Role) string {
	name := string(role)
	if name == "" {
		return " is required"
	}
	first, size := utf8.DecodeRuneInString(name)
	return string(unicode.ToUpper(first)) + name[size:] + " is required"
}

// trimValue strips what String.prototype.trim strips. Unlike strings.TrimSpace
// it removes U+FEFF and keeps U+0085.
func trimValue(s string) string {
	return strings.TrimFunc(s, isFormSpace)
}

func isFormSpace(r rune) bool {
	switch r {
	case '\t', '\n', '\v', '\f', '\r', '\ufeff', '\u2028', '\u2029':
		return true
	}
	return unicode.Is(unicode.Zs, r)
}

// textLength counts UTF-16 code units, the unit browsers report lengths in.
func textLength(s string) int {
	return len(utf16.Encode([]rune(s)))
}
