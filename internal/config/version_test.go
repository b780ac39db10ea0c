package config

import "testing"

func TestValidateVersionAcceptsCurrent(t *testing.T) {
	if err := ValidateVersion(CurrentVersion); err != nil {
		t.Fatalf("expected current version to validate, got %v", err)
	}
}

func TestValidateVersionRejectsMissing(t *testing.T) {
	err := ValidateVersion(0)
	if err == nil {
		t.Fatal("expected an error for a missing version")
	}
	var ve *VersionError
	if verr, ok := err.(*VersionError); ok {
		ve = verr
	}
	if ve == nil || ve.Reason != "missing or outdated" {
		t.Fatalf("expected missing-or-outdated reason, got %v", err)
	}
}

func TestValidateVersionRejectsNewer(t *testing.T) {
	err := ValidateVersion(CurrentVersion + 1)
	if err == nil {
		t.Fatal("expected an error for a version newer than this build")
	}
	if _, ok := err.(*VersionError); !ok {
		t.Fatalf("expected *VersionError, got %T", err)
	}
}
