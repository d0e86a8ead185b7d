package inputval

import "testing"

type signup struct {
	FullName string `validate:"required,max=10" label:"Full name"`
	Email    string `validate:"required,email" label:"Email"`
	Password string `validate:"required,min=8" label:"Password"`
	Website  string `validate:"httpurl" label:"Website"`
	OrgID    string `validate:"objectid" label:"Organization id"`
	Note     string // no rules
}

func TestValidate(t *testing.T) {
	ok := signup{FullName: "Ada", Email: "ada@example.com", Password: "analytical"}

	tests := []struct {
		name      string
		mutate    func(*signup)
		wantField string
		wantFirst string
	}{
		{"valid", func(*signup) {}, "", ""},
		{"missing name", func(s *signup) { s.FullName = "  " }, "FullName", "Full name is required."},
		{"name too long", func(s *signup) { s.FullName = "Ada Lovelace King" }, "FullName", "Full name must be at most 10 characters."},
		{"bad email", func(s *signup) { s.Email = "ada" }, "Email", "A valid email address is required."},
		{"short password", func(s *signup) { s.Password = "engine" }, "Password", "Password must be at least 8 characters."},
		{"bad website", func(s *signup) { s.Website = "example.com" }, "Website", "Website must be a valid http or https URL."},
		{"bad org id", func(s *signup) { s.OrgID = "CHESS1" }, "OrgID", "Organization id must be a valid id."},
		{"untagged field ignored", func(s *signup) { s.Note = "<anything>" }, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := ok
			tt.mutate(&in)
			res := Validate(&in)

			if tt.wantFirst == "" {
				if res.HasErrors() {
					t.Fatalf("unexpected errors: %s", res.All())
				}
				return
			}
			if len(res.Errors) != 1 {
				t.Fatalf("got %d errors (%s), want 1", len(res.Errors), res.All())
			}
			if res.Errors[0].Field != tt.wantField || res.First() != tt.wantFirst {
				t.Errorf("got %s: %q, want %s: %q", res.Errors[0].Field, res.First(), tt.wantField, tt.wantFirst)
			}
		})
	}
}

func TestValidate_ReportsFieldsInOrder(t *testing.T) {
	res := Validate(signup{})
	if len(res.Errors) != 3 {
		t.Fatalf("got %d errors, want 3: %s", len(res.Errors), res.All())
	}
	want := "Full name is required.; Email is required.; Password is required."
	if res.All() != want {
		t.Errorf("All() = %q, want %q", res.All(), want)
	}
}

func TestValidate_NonStruct(t *testing.T) {
	if Validate("not a struct").HasErrors() {
		t.Error("non-struct values have nothing to check")
	}
	if (&Result{}).First() != "" || (&Result{}).All() != "" {
		t.Error("empty result should render as empty strings")
	}
}
