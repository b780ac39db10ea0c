package toolkit

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/serialx/vibecore/internal/core"
)

type fakeValidator struct {
	root string
}

func (f fakeValidator) ValidatePath(path string) (string, error) {
	if !filepath.IsAbs(path) {
		path = filepath.Join(f.root, path)
	}
	return path, nil
}

func (f fakeValidator) ValidateCommand(string) error { return nil }

func contextWithValidator(root string) core.ToolContext {
	return core.ToolContext{Context: context.Background(), Validator: fakeValidator{root: root}}
}

func TestReadToolReturnsLineNumberedContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	if err := os.WriteFile(path, []byte("one\ntwo\nthree\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	tool := ReadTool()
	args, _ := json.Marshal(readParams{Path: path})
	out, err := tool.Handler(contextWithValidator(dir), args)
	if err != nil {
		t.Fatalf("Handler: %v", err)
	}
	if !contains(out, "1\t") || !contains(out, "one") || !contains(out, "three") {
		t.Errorf("unexpected read output: %q", out)
	}
}

func TestReadToolAppliesOffsetAndLimit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	os.WriteFile(path, []byte("a\nb\nc\nd\n"), 0o644)

	tool := ReadTool()
	args, _ := json.Marshal(readParams{Path: path, Offset: 2, Limit: 2})
	out, err := tool.Handler(contextWithValidator(dir), args)
	if err != nil {
		t.Fatalf("Handler: %v", err)
	}
	if contains(out, "\ta\n") || !contains(out, "b") || !contains(out, "c") || contains(out, "d") {
		t.Errorf("offset/limit not applied correctly: %q", out)
	}
}

func TestWriteToolCreatesParentDirs(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "f.txt")

	tool := WriteTool()
	args, _ := json.Marshal(writeParams{Path: path, Content: "hello"})
	_, err := tool.Handler(contextWithValidator(dir), args)
	if err != nil {
		t.Fatalf("Handler: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("expected file content %q, got %q", "hello", data)
	}
}

func TestEditToolRequiresUniqueMatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	os.WriteFile(path, []byte("foo foo"), 0o644)

	tool := EditTool()
	args, _ := json.Marshal(editParams{Path: path, OldString: "foo", NewString: "bar"})
	if _, err := tool.Handler(contextWithValidator(dir), args); err == nil {
		t.Error("expected an error for a non-unique old_string without replace_all")
	}
}

func TestEditToolReplacesAllWhenRequested(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	os.WriteFile(path, []byte("foo foo"), 0o644)

	tool := EditTool()
	args, _ := json.Marshal(editParams{Path: path, OldString: "foo", NewString: "bar", ReplaceAll: true})
	if _, err := tool.Handler(contextWithValidator(dir), args); err != nil {
		t.Fatalf("Handler: %v", err)
	}

	data, _ := os.ReadFile(path)
	if string(data) != "bar bar" {
		t.Errorf("expected both occurrences replaced, got %q", data)
	}
}

func TestEditToolErrorsWhenOldStringMissing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	os.WriteFile(path, []byte("content"), 0o644)

	tool := EditTool()
	args, _ := json.Marshal(editParams{Path: path, OldString: "not-there", NewString: "x"})
	if _, err := tool.Handler(contextWithValidator(dir), args); err == nil {
		t.Error("expected an error when old_string is not found")
	}
}

func TestReadToolRejectsPathOutsideAllowList(t *testing.T) {
	dir := t.TempDir()
	v := rejectingValidator{}
	tc := core.ToolContext{Context: context.Background(), Validator: v}

	tool := ReadTool()
	args, _ := json.Marshal(readParams{Path: filepath.Join(dir, "f.txt")})
	if _, err := tool.Handler(tc, args); err == nil {
		t.Error("expected PathValidator rejection to propagate")
	}
}

type rejectingValidator struct{}

func (rejectingValidator) ValidatePath(string) (string, error) {
	return "", errRejected
}
func (rejectingValidator) ValidateCommand(string) error { return errRejected }

var errRejected = &core.EngineError{Kind: core.KindPathValidation, Detail: "rejected"}

func contains(s, substr string) bool {
	return len(s) >= len(substr) && (func() bool {
		for i := 0; i+len(substr) <= len(s); i++ {
			if s[i:i+len(substr)] == substr {
				return true
			}
		}
		return false
	})()
}
