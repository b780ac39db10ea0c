package toolkit

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestGlobToolFindsSimplePattern(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "a.go"), []byte("package a"), 0o644)
	os.WriteFile(filepath.Join(dir, "b.txt"), []byte("text"), 0o644)

	tool := GlobTool()
	args, _ := json.Marshal(globParams{Pattern: "*.go", Path: dir})
	out, err := tool.Handler(contextWithValidator(dir), args)
	if err != nil {
		t.Fatalf("Handler: %v", err)
	}
	if !contains(out, "a.go") || contains(out, "b.txt") {
		t.Errorf("unexpected glob result: %q", out)
	}
}

func TestGlobToolSupportsRecursivePattern(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "nested", "deep")
	os.MkdirAll(sub, 0o755)
	os.WriteFile(filepath.Join(sub, "f.go"), []byte("package deep"), 0o644)

	tool := GlobTool()
	args, _ := json.Marshal(globParams{Pattern: "**/*.go", Path: dir})
	out, err := tool.Handler(contextWithValidator(dir), args)
	if err != nil {
		t.Fatalf("Handler: %v", err)
	}
	if !contains(out, "f.go") {
		t.Errorf("expected recursive match to find nested file, got %q", out)
	}
}

func TestGlobToolReportsNoMatches(t *testing.T) {
	dir := t.TempDir()
	tool := GlobTool()
	args, _ := json.Marshal(globParams{Pattern: "*.nonexistent", Path: dir})
	out, err := tool.Handler(contextWithValidator(dir), args)
	if err != nil {
		t.Fatalf("Handler: %v", err)
	}
	if out != "No files found." {
		t.Errorf("expected the no-matches message, got %q", out)
	}
}

func TestGrepToolFindsMatchingLine(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "f.go"), []byte("package main\n\nfunc main() {}\n"), 0o644)

	tool := GrepTool()
	args, _ := json.Marshal(grepParams{Pattern: `func \w+\(`, Path: dir})
	out, err := tool.Handler(contextWithValidator(dir), args)
	if err != nil {
		t.Fatalf("Handler: %v", err)
	}
	if !contains(out, "func main()") {
		t.Errorf("expected grep to find matching line, got %q", out)
	}
}

func TestGrepToolFiltersByInclude(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "a.go"), []byte("needle"), 0o644)
	os.WriteFile(filepath.Join(dir, "b.txt"), []byte("needle"), 0o644)

	tool := GrepTool()
	args, _ := json.Marshal(grepParams{Pattern: "needle", Path: dir, Include: "*.go"})
	out, err := tool.Handler(contextWithValidator(dir), args)
	if err != nil {
		t.Fatalf("Handler: %v", err)
	}
	if !contains(out, "a.go") || contains(out, "b.txt") {
		t.Errorf("expected include filter to exclude b.txt, got %q", out)
	}
}

func TestGrepToolRejectsInvalidPattern(t *testing.T) {
	dir := t.TempDir()
	tool := GrepTool()
	args, _ := json.Marshal(grepParams{Pattern: "(unterminated", Path: dir})
	if _, err := tool.Handler(contextWithValidator(dir), args); err == nil {
		t.Error("expected an error for an invalid regex")
	}
}
