package auth

import "testing"

func TestValidatePasswordStrength(t *testing.T) {
	valid := []string{"Abcdef12", "LongerPassw0rd", "xX9xxxxx"}
	for _, pw := range valid {
		if err := validatePasswordStrength(pw); err != nil {
			t.Errorf("%q should pass: %v", pw, err)
		}
	}

	invalid := []string{
		"",
		"Ab1",      // too short
		"abcdefg1", // no upper case
		"ABCDEFG1", // no lower case
		"Abcdefgh", // no digit
		"12345678", // digits only
	}
	for _, pw := range invalid {
		if err := validatePasswordStrength(pw); err == nil {
			t.Errorf("%q should be rejected", pw)
		}
	}
}
