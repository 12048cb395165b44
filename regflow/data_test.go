package regflow

import (
	"errors"
	"testing"

	"github.com/voralis/formpilot/fields"
)

func validData() FormData {
	return FormData{
		FirstName:  "Alex",
		LastName:   "Smith",
		Email:      "alexsmith01",
		Password:   "Abc12345!",
		BirthYear:  "1995",
		BirthMonth: "04",
		BirthDay:   "12",
		Country:    "US",
	}
}

func TestValidate_OK(t *testing.T) {
	if err := Validate(validData()); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidate_MissingFields(t *testing.T) {
	d := validData()
	d.Email = ""
	d.Country = "  "

	err := Validate(d)
	var mf *MissingFieldError
	if !errors.As(err, &mf) {
		t.Fatalf("got %v, want MissingFieldError", err)
	}
	if len(mf.Fields) != 2 {
		t.Fatalf("missing fields: got %v, want 2 entries", mf.Fields)
	}
	if mf.Fields[0] != "desired-email" || mf.Fields[1] != "country" {
		t.Errorf("missing fields: got %v", mf.Fields)
	}
}

func TestValidate_ShortEmail(t *testing.T) {
	d := validData()
	d.Email = "ab"
	if err := Validate(d); !errors.Is(err, ErrEmailTooShort) {
		t.Errorf("got %v, want ErrEmailTooShort", err)
	}
}

func TestValidate_WeakPassword(t *testing.T) {
	d := validData()
	d.Password = "abcdefgh"

	err := Validate(d)
	var wp *WeakPasswordError
	if !errors.As(err, &wp) {
		t.Fatalf("got %v, want WeakPasswordError", err)
	}
	if wp.Score != 2 {
		t.Errorf("score: got %d, want 2", wp.Score)
	}
}

func TestDataFromFields(t *testing.T) {
	acc := fields.NewMemory()
	if err := acc.Set(fields.FirstName, "  Alex "); err != nil {
		t.Fatal(err)
	}
	if err := acc.Set(fields.Country, "US"); err != nil {
		t.Fatal(err)
	}
	acc.SetMissing(fields.Password, true)

	d := DataFromFields(acc)
	if d.FirstName != "Alex" {
		t.Errorf("first name: got %q, want trimmed %q", d.FirstName, "Alex")
	}
	if d.Country != "US" {
		t.Errorf("country: got %q", d.Country)
	}
	if d.Password != "" {
		t.Errorf("password: got %q, want empty for missing field", d.Password)
	}
}

func TestPayload_ComposesDomain(t *testing.T) {
	p := validData().payload("outlook.com")
	if p.Email != "alexsmith01@outlook.com" {
		t.Errorf("email: got %q, want %q", p.Email, "alexsmith01@outlook.com")
	}
}
