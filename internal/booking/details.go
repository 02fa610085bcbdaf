package booking

import "regexp"

var (
	phonePattern = regexp.MustCompile(`^[0-9]{10}$`)
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// PatientDetails is the form the patient fills in before slots load.
// Once accepted it is immutable for the session; a correction means a
// fresh submission.
type PatientDetails struct {
	Name   string `json:"name"`
	Phone  string `json:"phone"`
	Email  string `json:"email,omitempty"`
	Age    int    `json:"age"`
	Gender string `json:"gender"`
	City   string `json:"city"`
	Notes  string `json:"notes,omitempty"`
}

// Validate checks the fields in a fixed order and returns the first
// failure only. Email is optional; when present it must look like
// local@domain.tld.
func (d PatientDetails) Validate() error {
	if len(d.Name) < 2 {
		return ErrInvalidName
	}
	if !phonePattern.MatchString(d.Phone) {
		return ErrInvalidPhone
	}
	if d.Email != "" && !emailPattern.MatchString(d.Email) {
		return ErrInvalidEmail
	}
	if d.Age < 1 || d.Age > 120 {
		return ErrInvalidAge
	}
	if d.Gender == "" {
		return ErrMissingGender
	}
	if len(d.City) < 2 {
		return ErrInvalidCity
	}
	return nil
}

// ValidationField maps a validation sentinel to the field it concerns,
// so the API can tell the presenter which input to highlight.
func ValidationField(err error) (string, bool) {
	switch err {
	case ErrInvalidName:
		return "name", true
	case ErrInvalidPhone:
		return "phone", true
	case ErrInvalidEmail:
		return "email", true
	case ErrInvalidAge:
		return "age", true
	case ErrMissingGender:
		return "gender", true
	case ErrInvalidCity:
		return "city", true
	}
	return "", false
}
