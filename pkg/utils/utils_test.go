package utils

import "testing"

func TestGenerateID(t *testing.T) {
	a, err := GenerateID(16)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(a) != 32 {
		t.Errorf("16 bytes of entropy should encode to 32 hex chars, got %d", len(a))
	}
	b, _ := GenerateID(16)
	if a == b {
		t.Error("consecutive ids must differ")
	}

	// Non-positive sizes fall back to the default.
	c, err := GenerateID(0)
	if err != nil || len(c) != 32 {
		t.Errorf("default size: got %q, %v", c, err)
	}
}

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("Sup3rSecret")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if err := CheckPassword(hash, "Sup3rSecret"); err != nil {
		t.Errorf("correct password rejected: %v", err)
	}
	if err := CheckPassword(hash, "WrongPassword1"); err == nil {
		t.Error("wrong password accepted")
	}
}

func TestJWTRoundTrip(t *testing.T) {
	token, err := GenerateJWT("u1", "tester", "secret")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	claims, err := ValidateJWT(token, "secret")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.UserID != "u1" || claims.Username != "tester" {
		t.Errorf("claims: %+v", claims)
	}

	if _, err := ValidateJWT(token, "other-secret"); err == nil {
		t.Error("token signed with a different secret must be rejected")
	}
	if _, err := ValidateJWT("not-a-token", "secret"); err == nil {
		t.Error("garbage token must be rejected")
	}
}
