package contact

import "contactrelay/internal/relay"

// MessageMaxLength is the advisory limit shown by the message counter.
const MessageMaxLength = 500

// Form holds the raw input values of the contact form.
type Form struct {
	Name    string `json:"name" form:"name"`
	Email   string `json:"email" form:"email"`
	Subject string `json:"subject" form:"subject"`
	Message string `json:"message" form:"message"`
}

// Value returns the input value for role.
func (f Form) Value(role Role) string {
	switch role {
	case RoleName:
		return f.Name
	case RoleEmail:
		return f.Email
	case RoleSubject:
		return f.Subject
	case RoleMessage:
		return f.Message
	default:
		return ""
	}
}

// FieldErrors maps each invalid input to its message.
type FieldErrors map[Role]string

// ValidateForm checks every required field, never stopping at the first
// failure, so all messages can be shown at once.
func ValidateForm(f Form) (FieldErrors, bool) {
	errs := make(FieldErrors)
	for _, role := range RequiredFields {
		if msg := ValidateField(role, f.Value(role)); msg != "" {
			errs[role] = msg
		}
	}
	return errs, len(errs) == 0
}

// Submission is a form that passed validation, with trimmed values.
// It only exists for the duration of one send.
type Submission struct {
	Name    string
	Email   string
	Subject string
	Message string
}

// NewSubmission validates f and builds a Submission from it. The Submission is
// nil whenever any field fails.
func NewSubmission(f Form) (*Submission, FieldErrors) {
	errs, ok := ValidateForm(f)
	if !ok {
		return nil, errs
	}
	return &Submission{
		Name:    trimValue(f.Name),
		Email:   trimValue(f.Email),
		Subject: trimValue(f.Subject),
		Message: trimValue(f.Message),
	}, nil
}

// RelayFields maps the submission onto the relay template parameters.
func (s *Submission) RelayFields(toName string) relay.Fields {
	return relay.Fields{
		"from_name":  s.Name,
		"from_email": s.Email,
		"subject":    s.Subject,
		"message":    s.Message,
		"to_name":    toName,
	}
}

// Counter is the live character count shown under the message input.
type Counter struct {
	Length int  `json:"length"`
	Max    int  `json:"max"`
	Over   bool `json:"over"`
}

// CountCharacters measures the untrimmed message the way the page does.
func CountCharacters(message string) Counter {
	n := textLength(message)
	return Counter{Length: n, Max: MessageMaxLength, Over: n > MessageMaxLength}
}
