package pathvalidator

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/serialx/vibecore/internal/core"
)

// pathCommands take a path as a positional argument, per §4.6.
var pathCommands = map[string]bool{
	"cat": true, "ls": true, "cd": true, "cp": true, "mv": true, "rm": true,
	"mkdir": true, "rmdir": true, "touch": true, "chmod": true, "chown": true,
	"head": true, "tail": true, "less": true, "more": true, "grep": true,
	"find": true, "sed": true, "awk": true, "wc": true, "du": true, "df": true,
	"tar": true, "zip": true, "unzip": true, "vim": true, "vi": true,
	"nano": true, "emacs": true, "code": true, "open": true,
}

// patternCommands receive a pattern (not a path) as their first argument
// when invoked as the right-hand side of a pipe.
var patternCommands = map[string]bool{"grep": true, "awk": true, "sed": true, "sort": true, "uniq": true, "wc": true}

var shellOperators = []string{"<<<", "<<", "&&", "||", ">>", ";", "|", "&"}

var operatorTokens = map[string]bool{
	"&&": true, "||": true, ";": true, "|": true, "&": true,
	">": true, ">>": true, "<": true, "<<": true, "<<<": true, "2>": true, "&>": true,
}

var redirectionTokens = map[string]bool{">": true, ">>": true, "<": true, "2>": true, "&>": true}

// Tokenize splits command the way the original Python implementation does:
// shell operators are padded with spaces (longest first, so "<<<" isn't
// mis-split as "<<" + "<"), then the result is split with POSIX shell
// quoting rules (shlex.split's Go equivalent).
func Tokenize(command string) ([]string, error) {
	var padded strings.Builder
	for i := 0; i < len(command); {
		matched := false
		for _, op := range shellOperators {
			if strings.HasPrefix(command[i:], op) {
				padded.WriteString(" " + op + " ")
				i += len(op)
				matched = true
				break
			}
		}
		if !matched {
			padded.WriteByte(command[i])
			i++
		}
	}
	return shellSplit(padded.String())
}

// shellSplit is a POSIX-shell-style word splitter: whitespace-separated,
// honoring single quotes (literal), double quotes (backslash-escapes
// $, `, ", \, newline), and backslash escapes outside quotes.
func shellSplit(s string) ([]string, error) {
	var tokens []string
	var cur strings.Builder
	hasToken := false

	runes := []rune(s)
	i := 0
	for i < len(runes) {
		c := runes[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n':
			if hasToken {
				tokens = append(tokens, cur.String())
				cur.Reset()
				hasToken = false
			}
			i++
		case c == '\'':
			hasToken = true
			i++
			for i < len(runes) && runes[i] != '\'' {
				cur.WriteRune(runes[i])
				i++
			}
			if i >= len(runes) {
				return nil, fmt.Errorf("unterminated single quote")
			}
			i++ // closing quote
		case c == '"':
			hasToken = true
			i++
			for i < len(runes) && runes[i] != '"' {
				if runes[i] == '\\' && i+1 < len(runes) && strings.ContainsRune(`$`+"`"+`"\`+"\n", runes[i+1]) {
					cur.WriteRune(runes[i+1])
					i += 2
					continue
				}
				cur.WriteRune(runes[i])
				i++
			}
			if i >= len(runes) {
				return nil, fmt.Errorf("unterminated double quote")
			}
			i++ // closing quote
		case c == '\\':
			hasToken = true
			if i+1 < len(runes) {
				cur.WriteRune(runes[i+1])
				i += 2
			} else {
				return nil, fmt.Errorf("trailing unescaped backslash")
			}
		default:
			hasToken = true
			cur.WriteRune(c)
			i++
		}
	}
	if hasToken {
		tokens = append(tokens, cur.String())
	}
	return tokens, nil
}

// ValidateCommand parses a shell command and validates every path-taking
// token against the allow-list, per §4.6's tokenization rule.
func (v *Validator) ValidateCommand(command string) error {
	tokens, err := Tokenize(command)
	if err != nil {
		return core.NewError(core.KindPathValidation, "cannot parse command: %v", err)
	}

	var currentCommand string
	pipedCommand := false
	skipNext := false

	for i, token := range tokens {
		if skipNext {
			skipNext = false
			continue
		}

		if operatorTokens[token] {
			switch token {
			case "|":
				pipedCommand = true
			case "&&", "||", ";":
				pipedCommand = false
			case "<<", "<<<":
				skipNext = true // heredoc delimiter, not a path
			}
			continue
		}

		if strings.HasPrefix(token, "-") {
			continue
		}

		isCommandPosition := i == 0 || isCommandSeparator(tokens[i-1])
		if isCommandPosition {
			parts := strings.Split(token, "/")
			currentCommand = parts[len(parts)-1]
			if pipedCommand && patternCommands[currentCommand] {
				currentCommand = ""
			}
			continue
		}

		if i > 0 && redirectionTokens[tokens[i-1]] {
			if err := v.validatePathToken(token); err != nil {
				return err
			}
			continue
		}

		if pathCommands[currentCommand] {
			if i > 0 && strings.HasPrefix(tokens[i-1], "-") {
				continue
			}
			if err := v.validatePathToken(token); err != nil {
				return err
			}
		} else if strings.Contains(token, "/") || token == "." || token == ".." || token == "~" {
			// Lenient: a token that merely looks like a path outside of a
			// known path-command's arguments is validated best-effort.
			_ = v.validatePathToken(token)
		}
	}
	return nil
}

func isCommandSeparator(token string) bool {
	return token == "&&" || token == "||" || token == ";" || token == "|"
}

func (v *Validator) validatePathToken(token string) error {
	if strings.HasPrefix(token, "~") {
		home, err := os.UserHomeDir()
		if err == nil {
			token = filepath.Join(home, strings.TrimPrefix(token, "~"))
		}
	}

	if isRemoteToken(token) {
		return nil
	}

	path := token
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil // not resolvable; skip rather than fail the whole command
		}
		path = filepath.Join(cwd, path)
	}

	_, err := v.ValidatePath(path)
	return err
}

func isRemoteToken(token string) bool {
	for _, prefix := range []string{"http://", "https://", "ftp://", "ssh://", "git@"} {
		if strings.HasPrefix(token, prefix) {
			return true
		}
	}
	// user@host:path
	firstSegment := strings.SplitN(token, "/", 2)[0]
	return strings.Contains(firstSegment, ":") && strings.Contains(firstSegment, "@")
}
