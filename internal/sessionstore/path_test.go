package sessionstore

import "testing"

func TestCanonicalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"/home/user/project", "home-user-project"},
		{`C:\Users\me\project`, "C-Users-me-project"},
		{"/", "root"},
		{"", "root"},
		{"///", "root"},
	}
	for _, tc := range cases {
		if got := Canonicalize(tc.in); got != tc.want {
			t.Errorf("Canonicalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestCanonicalizeIdempotent(t *testing.T) {
	in := "/home/user/project"
	once := Canonicalize(in)
	twice := Canonicalize(once)
	if once != twice {
		t.Fatalf("canonicalize not idempotent: %q vs %q", once, twice)
	}
}

func TestValidateSessionID(t *testing.T) {
	bad := []string{"a/b", `a\b`, "a..b", ""}
	for _, id := range bad {
		if err := ValidateSessionID(id); err == nil {
			t.Errorf("expected error for session id %q", id)
		}
	}
	if err := ValidateSessionID("abc-123"); err != nil {
		t.Errorf("unexpected error for valid id: %v", err)
	}
}
