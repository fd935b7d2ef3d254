package web

import "testing"

func TestValidEmail(t *testing.T) {
	t.Parallel()

	valid := []string{
		"doctor@clinic.example",
		"first.last+tag@sub.domain.co",
		"x_1%2@a-b.org",
	}
	for _, email := range valid {
		if !validEmail(email) {
			t.Errorf("validEmail(%q) = false, want true", email)
		}
	}

	invalid := []string{
		"",
		"no-at-sign",
		"missing@tld",
		"@clinic.example",
		"spaces in@clinic.example",
	}
	for _, email := range invalid {
		if validEmail(email) {
			t.Errorf("validEmail(%q) = true, want false", email)
		}
	}
}

func TestNormalizePhone(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		in      string
		want    string
		wantErr bool
	}{
		"empty is optional":   {in: "", want: ""},
		"plain digits":        {in: "5551234567", want: "5551234567"},
		"formatted":           {in: "+1 (555) 123-4567", want: "+15551234567"},
		"dashes only":         {in: "555-123-4567", want: "5551234567"},
		"too short":           {in: "12345", wantErr: true},
		"too long":            {in: "+1234567890123456", wantErr: true},
		"letters":             {in: "555-CALL-NOW", wantErr: true},
		"plus in the middle":  {in: "555+1234567", wantErr: true},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := normalizePhone(tc.in)
			if tc.wantErr {
				if err == nil {
					t.Errorf("normalizePhone(%q) = %q, want error", tc.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("normalizePhone(%q): %v", tc.in, err)
			}
			if got != tc.want {
				t.Errorf("normalizePhone(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestCheckPassword(t *testing.T) {
	t.Parallel()

	if err := checkPassword("securepassword123"); err != nil {
		t.Errorf("long password rejected: %v", err)
	}
	if err := checkPassword("short"); err == nil {
		t.Error("7-character password accepted")
	}
}
