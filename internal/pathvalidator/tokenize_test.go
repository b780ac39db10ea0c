package pathvalidator

import (
	"path/filepath"
	"reflect"
	"testing"

	"github.com/serialx/vibecore/internal/core"
)

func TestTokenizeSplitsOperatorsWithoutSpaces(t *testing.T) {
	got, err := Tokenize("ls a.txt&&cat b.txt")
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	want := []string{"ls", "a.txt", "&&", "cat", "b.txt"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestTokenizeDistinguishesHeredocFromRedirect(t *testing.T) {
	got, err := Tokenize("cat <<<input.txt")
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	want := []string{"cat", "<<<", "input.txt"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestTokenizeHonorsQuoting(t *testing.T) {
	got, err := Tokenize(`grep "a pattern with spaces" file.txt`)
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	want := []string{"grep", "a pattern with spaces", "file.txt"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestTokenizeRejectsUnterminatedQuote(t *testing.T) {
	if _, err := Tokenize(`cat "unterminated`); err == nil {
		t.Error("expected an error for an unterminated quote")
	}
}

func newValidatorForDir(t *testing.T, dir string) *Validator {
	t.Helper()
	v, err := New([]core.AllowedDirectory{core.AllowedDirectory(dir)})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return v
}

func TestValidateCommandAllowsPathWithinAllowList(t *testing.T) {
	dir := t.TempDir()
	v := newValidatorForDir(t, dir)

	cmd := "cat " + filepath.Join(dir, "notes.txt")
	if err := v.ValidateCommand(cmd); err != nil {
		t.Errorf("expected command to validate, got %v", err)
	}
}

func TestValidateCommandRejectsPathOutsideAllowList(t *testing.T) {
	dir := t.TempDir()
	outside := t.TempDir()
	v := newValidatorForDir(t, dir)

	cmd := "cat " + filepath.Join(outside, "secret.txt")
	if err := v.ValidateCommand(cmd); err == nil {
		t.Error("expected an error for a path outside the allow-list")
	}
}

func TestValidateCommandValidatesRedirectionTarget(t *testing.T) {
	dir := t.TempDir()
	outside := t.TempDir()
	v := newValidatorForDir(t, dir)

	cmd := "echo hi > " + filepath.Join(outside, "out.txt")
	if err := v.ValidateCommand(cmd); err == nil {
		t.Error("expected a redirection target outside the allow-list to be rejected")
	}
}

func TestValidateCommandAllowsRedirectionTargetInsideAllowList(t *testing.T) {
	dir := t.TempDir()
	v := newValidatorForDir(t, dir)

	cmd := "echo hi > " + filepath.Join(dir, "out.txt")
	if err := v.ValidateCommand(cmd); err != nil {
		t.Errorf("expected redirection target inside the allow-list to validate, got %v", err)
	}
}

func TestValidateCommandExemptsPipedPatternCommand(t *testing.T) {
	dir := t.TempDir()
	v := newValidatorForDir(t, dir)

	// "needle" here is a pattern argument to grep, not a path — must not be
	// validated against the allow-list even though it contains no slash.
	cmd := "cat " + filepath.Join(dir, "log.txt") + " | grep needle"
	if err := v.ValidateCommand(cmd); err != nil {
		t.Errorf("expected piped pattern command to validate, got %v", err)
	}
}

func TestValidateCommandSkipsHeredocDelimiter(t *testing.T) {
	dir := t.TempDir()
	v := newValidatorForDir(t, dir)

	// EOF is a heredoc delimiter, not a path, and must not be validated.
	cmd := "cat <<EOF"
	if err := v.ValidateCommand(cmd); err != nil {
		t.Errorf("expected heredoc delimiter to be skipped, got %v", err)
	}
}

func TestValidateCommandSkipsRemoteURL(t *testing.T) {
	dir := t.TempDir()
	v := newValidatorForDir(t, dir)

	cmd := "curl https://example.com/data.json"
	if err := v.ValidateCommand(cmd); err != nil {
		t.Errorf("expected a remote URL argument to be skipped, got %v", err)
	}
}

func TestValidateCommandSkipsUserAtHost(t *testing.T) {
	dir := t.TempDir()
	v := newValidatorForDir(t, dir)

	cmd := "scp file.txt user@host:/remote/path"
	if err := v.ValidateCommand(cmd); err != nil {
		t.Errorf("expected a user@host target to be skipped, got %v", err)
	}
}

func TestValidateCommandIgnoresOptionFlags(t *testing.T) {
	dir := t.TempDir()
	v := newValidatorForDir(t, dir)

	cmd := "ls -la " + filepath.Join(dir, "sub")
	if err := v.ValidateCommand(cmd); err != nil {
		t.Errorf("expected flags to be skipped and the real path argument to validate, got %v", err)
	}
}

func TestValidateCommandRejectsMultiStageChainViolation(t *testing.T) {
	dir := t.TempDir()
	outside := t.TempDir()
	v := newValidatorForDir(t, dir)

	cmd := "cat " + filepath.Join(dir, "a.txt") + " && cat " + filepath.Join(outside, "b.txt")
	if err := v.ValidateCommand(cmd); err == nil {
		t.Error("expected the second command in a && chain to be validated too")
	}
}
