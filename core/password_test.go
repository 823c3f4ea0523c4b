package core

import "testing"

func TestCheckPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple", 4)
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}
	if !CheckPassword("correct horse battery staple", hash) {
		t.Fatalf("expected hashed password to verify")
	}
	if CheckPassword("correct horse battery stapler", hash) {
		t.Fatalf("wrong password must not verify")
	}
}

func TestCheckPasswordDistinctPasswords(t *testing.T) {
	hash, err := HashPassword("pw2", 4)
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}
	if CheckPassword("pw1", hash) {
		t.Fatalf("hash of pw2 must not verify pw1")
	}
}

func TestCheckPasswordMalformedHash(t *testing.T) {
	cases := []string{
		"",
		"not-a-real-hash",
		"$1$legacy$abcdefghijklmnop",
		"$2z$10$unknownversiontagxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxx",
		"plaintext-password-stored-by-mistake",
	}
	for _, hash := range cases {
		if CheckPassword("anything", hash) {
			t.Fatalf("malformed hash %q verified", hash)
		}
	}
}

func TestHashPasswordCostFallback(t *testing.T) {
	// Out-of-range costs fall back to the default instead of erroring.
	hash, err := HashPassword("pw", 99)
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}
	if !CheckPassword("pw", hash) {
		t.Fatalf("expected fallback-cost hash to verify")
	}
}
