package regflow

import (
	"strings"

	"github.com/voralis/formpilot/fields"
	"github.com/voralis/formpilot/submit"
)

// FormData is the raw registration input, keyed by the tracked field set.
// Email holds the local part only; the orchestrator appends the domain when
// building the submission payload.
type FormData struct {
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	BirthYear  string `json:"birth_year"`
	BirthMonth string `json:"birth_month"`
	BirthDay   string `json:"birth_day"`
	Country    string `json:"country"`
}

// DataFromFields reads the current live values into a FormData. Unreadable
// fields are left empty; validation decides what is fatal.
func DataFromFields(acc fields.Accessor) FormData {
	get := func(id fields.ID) string {
		v, err := acc.Get(id)
		if err != nil {
			return ""
		}
		return strings.TrimSpace(v)
	}
	return FormData{
		FirstName:  get(fields.FirstName),
		LastName:   get(fields.LastName),
		Email:      get(fields.Email),
		Password:   get(fields.Password),
		BirthYear:  get(fields.BirthYear),
		BirthMonth: get(fields.BirthMonth),
		BirthDay:   get(fields.BirthDay),
		Country:    get(fields.Country),
	}
}

// AsSnapshot converts the data into a formguard snapshot map.
func (d FormData) AsSnapshot() map[fields.ID]string {
	return map[fields.ID]string{
		fields.FirstName:  d.FirstName,
		fields.LastName:   d.LastName,
		fields.Email:      d.Email,
		fields.Password:   d.Password,
		fields.BirthYear:  d.BirthYear,
		fields.BirthMonth: d.BirthMonth,
		fields.BirthDay:   d.BirthDay,
		fields.Country:    d.Country,
	}
}

// payload composes the submission payload for the given email domain.
func (d FormData) payload(domain string) submit.Payload {
	return submit.Payload{
		Email:      d.Email + "@" + domain,
		Password:   d.Password,
		FirstName:  d.FirstName,
		LastName:   d.LastName,
		BirthYear:  d.BirthYear,
		BirthMonth: d.BirthMonth,
		BirthDay:   d.BirthDay,
		Country:    d.Country,
	}
}

// Validate applies the rules common to every profile: required fields
// present, email local part at least 3 characters, password not weak.
func Validate(d FormData) error {
	var missing []string
	for _, f := range []struct {
		name  string
		value string
	}{
		{string(fields.Email), d.Email},
		{string(fields.Password), d.Password},
		{string(fields.FirstName), d.FirstName},
		{string(fields.LastName), d.LastName},
		{string(fields.Country), d.Country},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return &MissingFieldError{Fields: missing}
	}
	if len(d.Email) < 3 {
		return ErrEmailTooShort
	}
	if score := PasswordScore(d.Password); PasswordClass(score) == "weak" {
		return &WeakPasswordError{Score: score}
	}
	return nil
}
