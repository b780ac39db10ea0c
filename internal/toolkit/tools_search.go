package toolkit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/serialx/vibecore/internal/core"
)

const maxSearchResults = 500

var hiddenDirs = map[string]bool{
	"node_modules": true, ".git": true, "vendor": true, "dist": true, "build": true,
}

type globParams struct {
	Pattern string `json:"pattern" jsonschema:"required,description=Glob pattern (e.g. '**/*.go', 'src/**/*.ts', '*.json')"`
	Path    string `json:"path,omitempty" jsonschema:"description=Base directory to search from (default: current directory)"`
}

// GlobTool returns the `glob` ToolDescriptor: recursive file-pattern
// matching with ** support, results sorted newest-first. Grounded on
// batalabs-muxd's globTool/globMatch.
func GlobTool() core.ToolDescriptor {
	return core.ToolDescriptor{
		Name:        "glob",
		Description: "Find files by glob pattern. Supports ** for recursive directory matching (e.g. '**/*.go', 'src/**/*.test.ts'). Results are sorted by modification time (newest first).",
		Schema:      mustSchema(&globParams{}),
		Handler: func(tc core.ToolContext, raw json.RawMessage) (string, error) {
			var p globParams
			if err := json.Unmarshal(raw, &p); err != nil {
				return "", fmt.Errorf("invalid arguments: %w", err)
			}
			if p.Pattern == "" {
				return "", fmt.Errorf("pattern is required")
			}
			base := p.Path
			if base == "" {
				base = "."
			}
			if tc.Validator != nil {
				resolved, err := tc.Validator.ValidatePath(base)
				if err != nil {
					return "", err
				}
				base = resolved
			}

			matches, err := globMatch(base, p.Pattern)
			if err != nil {
				return "", err
			}
			if len(matches) == 0 {
				return "No files found.", nil
			}

			truncated := false
			if len(matches) > maxSearchResults {
				matches = matches[:maxSearchResults]
				truncated = true
			}
			result := strings.Join(matches, "\n")
			if truncated {
				result += fmt.Sprintf("\n... (truncated at %d results)", maxSearchResults)
			}
			return result, nil
		},
	}
}

func globMatch(basePath, pattern string) ([]string, error) {
	if !strings.Contains(pattern, "**") {
		matches, err := filepath.Glob(filepath.Join(basePath, pattern))
		if err != nil {
			return nil, fmt.Errorf("invalid glob pattern: %w", err)
		}
		return sortByModTime(matches), nil
	}

	parts := strings.SplitN(pattern, "**", 2)
	prefix := strings.TrimRight(parts[0], "/\\")
	suffix := strings.TrimLeft(parts[1], "/\\")

	searchRoot := basePath
	if prefix != "" {
		searchRoot = filepath.Join(basePath, prefix)
	}
	if _, err := os.Stat(searchRoot); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("stat %s: %w", searchRoot, err)
	}

	var matches []string
	const maxWalk = 50000
	walked := 0
	_ = filepath.WalkDir(searchRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		walked++
		if walked > maxWalk {
			return filepath.SkipAll
		}
		name := d.Name()
		if d.IsDir() {
			if (strings.HasPrefix(name, ".") && name != ".") || hiddenDirs[name] {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") {
			return nil
		}
		if suffix == "" {
			matches = append(matches, filepath.ToSlash(path))
			return nil
		}
		if matched, _ := filepath.Match(suffix, name); matched {
			matches = append(matches, filepath.ToSlash(path))
			return nil
		}
		if rel, relErr := filepath.Rel(searchRoot, path); relErr == nil {
			relSlash := filepath.ToSlash(rel)
			if matched, _ := filepath.Match(suffix, relSlash); matched {
				matches = append(matches, filepath.ToSlash(path))
				return nil
			}
			segs := strings.Split(relSlash, "/")
			for i := range segs {
				if matched, _ := filepath.Match(suffix, strings.Join(segs[i:], "/")); matched {
					matches = append(matches, filepath.ToSlash(path))
					return nil
				}
			}
		}
		return nil
	})

	return sortByModTime(matches), nil
}

func sortByModTime(paths []string) []string {
	type withTime struct {
		path string
		t    int64
	}
	entries := make([]withTime, 0, len(paths))
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			entries = append(entries, withTime{path: p})
			continue
		}
		entries = append(entries, withTime{path: p, t: info.ModTime().UnixNano()})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].t > entries[j].t })
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.path
	}
	return out
}

type grepParams struct {
	Pattern      string `json:"pattern" jsonschema:"required,description=Regular expression pattern to search for"`
	Path         string `json:"path,omitempty" jsonschema:"description=Directory or file to search (default: current directory)"`
	Include      string `json:"include,omitempty" jsonschema:"description=Glob pattern to filter files (e.g. '*.go')"`
	ContextLines int    `json:"context_lines,omitempty" jsonschema:"description=Lines of context to show around each match"`
}

// GrepTool returns the `grep` ToolDescriptor: regex content search over a
// directory or file, returning file:line:content. Grounded on
// batalabs-muxd's grepTool.
func GrepTool() core.ToolDescriptor {
	return core.ToolDescriptor{
		Name:        "grep",
		Description: "Search file contents for a regex pattern. Returns matching lines as file:line:content. Use include to filter by extension (e.g. '*.go').",
		Schema:      mustSchema(&grepParams{}),
		Handler: func(tc core.ToolContext, raw json.RawMessage) (string, error) {
			var p grepParams
			if err := json.Unmarshal(raw, &p); err != nil {
				return "", fmt.Errorf("invalid arguments: %w", err)
			}
			if p.Pattern == "" {
				return "", fmt.Errorf("pattern is required")
			}
			re, err := regexp.Compile(p.Pattern)
			if err != nil {
				return "", fmt.Errorf("invalid pattern: %w", err)
			}

			root := p.Path
			if root == "" {
				root = "."
			}
			if tc.Validator != nil {
				resolved, err := tc.Validator.ValidatePath(root)
				if err != nil {
					return "", err
				}
				root = resolved
			}

			var out strings.Builder
			count := 0
			walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
				if err != nil || count >= maxSearchResults {
					return nil
				}
				if d.IsDir() {
					name := d.Name()
					if (strings.HasPrefix(name, ".") && name != ".") || hiddenDirs[name] {
						return filepath.SkipDir
					}
					return nil
				}
				if p.Include != "" {
					if matched, _ := filepath.Match(p.Include, d.Name()); !matched {
						return nil
					}
				}
				if matchGrep(re, path, p.ContextLines, &out, &count) != nil {
					return nil
				}
				return nil
			})
			if walkErr != nil {
				return "", walkErr
			}
			if count == 0 {
				return "No matches found.", nil
			}
			if count >= maxSearchResults {
				fmt.Fprintf(&out, "... (truncated at %d matches)\n", maxSearchResults)
			}
			return strings.TrimRight(out.String(), "\n"), nil
		},
	}
}

func matchGrep(re *regexp.Regexp, path string, contextLines int, out *strings.Builder, count *int) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}

	for i, line := range lines {
		if *count >= maxSearchResults {
			return nil
		}
		if !re.MatchString(line) {
			continue
		}
		start := clamp(i-contextLines, 0, len(lines))
		end := clamp(i+contextLines+1, 0, len(lines))
		for j := start; j < end; j++ {
			fmt.Fprintf(out, "%s:%d:%s\n", path, j+1, lines[j])
		}
		*count++
	}
	return nil
}
