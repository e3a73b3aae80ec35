package utils

import "testing"

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("s3cret-pass")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}
	if hash == "s3cret-pass" {
		t.Fatal("hash equals the plaintext password")
	}
	if !CheckPassword("s3cret-pass", hash) {
		t.Error("CheckPassword rejected the correct password")
	}
	if CheckPassword("wrong", hash) {
		t.Error("CheckPassword accepted a wrong password")
	}
}

func TestIsValidRole(t *testing.T) {
	valid := []string{"admin", "prefect", "deputy_prefect", "masool", "muaddib", "lajnat_member"}
	for _, role := range valid {
		if !IsValidRole(role) {
			t.Errorf("IsValidRole(%q) = false, want true", role)
		}
	}
	for _, role := range []string{"", "owner", "student", "Admin"} {
		if IsValidRole(role) {
			t.Errorf("IsValidRole(%q) = true, want false", role)
		}
	}
}

func TestGenerateRandomString(t *testing.T) {
	for _, n := range []int{1, 8, 15, 32} {
		s, err := GenerateRandomString(n)
		if err != nil {
			t.Fatalf("GenerateRandomString(%d) error: %v", n, err)
		}
		if len(s) != n {
			t.Errorf("len = %d, want %d", len(s), n)
		}
	}

	a, _ := GenerateRandomString(16)
	b, _ := GenerateRandomString(16)
	if a == b {
		t.Error("two generated strings are identical")
	}
}
