// AngelaMos | 2026
// security_test.go

package core

import "testing"

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}

	valid, err := VerifyPassword("correct horse battery staple", hash)
	if err != nil {
		t.Fatalf("VerifyPassword() error = %v", err)
	}
	if !valid {
		t.Fatal("VerifyPassword() rejected the matching password")
	}

	valid, err = VerifyPassword("wrong password", hash)
	if err != nil {
		t.Fatalf("VerifyPassword() error = %v", err)
	}
	if valid {
		t.Fatal("VerifyPassword() accepted a non-matching password")
	}
}

func TestVerifyPasswordMalformedHash(t *testing.T) {
	for _, hash := range []string{
		"",
		"not-a-hash",
		"$bcrypt$v=19$m=65536,t=1,p=4$c2FsdA$aGFzaA",
	} {
		if _, err := VerifyPassword("anything", hash); err == nil {
			t.Errorf("VerifyPassword(%q) accepted, want error", hash)
		}
	}
}

func TestBurnPasswordVerification(t *testing.T) {
	// Must complete against the package dummy hash without panicking;
	// the result is always discarded.
	BurnPasswordVerification("anything")
	BurnPasswordVerification("")
}

func TestTokenHashRoundTrip(t *testing.T) {
	token, err := GenerateRefreshToken()
	if err != nil {
		t.Fatalf("GenerateRefreshToken() error = %v", err)
	}

	hash := HashToken(token)
	if !CompareTokenHash(token, hash) {
		t.Fatal("CompareTokenHash() rejected the matching token")
	}
	if CompareTokenHash("other-token", hash) {
		t.Fatal("CompareTokenHash() accepted a non-matching token")
	}
}
