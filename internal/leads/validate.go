package leads

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

	// Australian landline/mobile formats, checked after stripping
	// spaces, dashes and parentheses.
	phoneLandline = regexp.MustCompile(`^(\+?61|0)[2-478]\d{8}$`)
	phoneMobile   = regexp.MustCompile(`^04\d{8}$`)

	phoneSeparators = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "")
)

const (
	maxNameLength    = 100
	maxMessageLength = 1000
)

// Validate checks a submission against the lead form shape, collecting
// every field-level violation. It returns nil when the submission is
// well formed.
func Validate(sub *Submission) *ValidationError {
	verr := newValidationError()

	email := strings.ToLower(strings.TrimSpace(sub.Email))
	if email == "" {
		verr.add("email", "email is required")
	} else if !emailPattern.MatchString(email) {
		verr.add("email", "please enter a valid email address")
	}

	if name := strings.TrimSpace(sub.Name); utf8.RuneCountInString(name) > maxNameLength {
		verr.add("name", "name must be less than 100 characters")
	}

	if sub.Phone != "" && !validPhone(sub.Phone) {
		verr.add("phone", "please enter a valid Australian phone number")
	}

	switch sub.Role {
	case "":
		verr.add("role", "please select your role")
	case RoleBuyersAgent, RoleInvestor, RoleOther:
	default:
		verr.add("role", "role must be one of buyers_agent, investor, other")
	}

	if utf8.RuneCountInString(sub.Message) > maxMessageLength {
		verr.add("message", "message must be less than 1000 characters")
	}

	if verr.empty() {
		return nil
	}
	return verr
}

func validPhone(raw string) bool {
	cleaned := phoneSeparators.Replace(strings.TrimSpace(raw))
	return phoneLandline.MatchString(cleaned) || phoneMobile.MatchString(cleaned)
}
