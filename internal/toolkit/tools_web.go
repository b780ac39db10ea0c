package toolkit

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/serialx/vibecore/internal/core"
)

// webFetchHTTPClient is overridable in tests, mirroring the pack's
// override-the-package-var pattern for outbound HTTP clients in tests
// (batalabs-muxd's braveSearchHTTPClient).
var webFetchHTTPClient = &http.Client{Timeout: 20 * time.Second}

const maxWebFetchBody = 200 * 1024 // 200KB

type webFetchParams struct {
	URL string `json:"url" jsonschema:"required,description=The URL to fetch"`
}

var (
	scriptOrStyleTag = regexp.MustCompile(`(?is)<(script|style)[^>]*>.*?</(script|style)>`)
	htmlTag          = regexp.MustCompile(`(?s)<[^>]+>`)
	blankLines       = regexp.MustCompile(`\n{3,}`)
)

// WebFetchTool returns the `webfetch` ToolDescriptor: retrieves a URL and
// reduces its body to plain text for the model to read. HTML is stripped
// with a standard-library-only regex pass rather than a full parser — no
// HTML-parsing or readability library appears in any example repo's go.mod
// (see DESIGN.md), so this stays a deliberately small text reduction
// instead of importing an unseen dependency.
func WebFetchTool() core.ToolDescriptor {
	return core.ToolDescriptor{
		Name:        "webfetch",
		Description: "Fetch a URL over HTTP(S) and return its content as plain text. HTML markup is stripped.",
		Schema:      mustSchema(&webFetchParams{}),
		Handler: func(tc core.ToolContext, raw json.RawMessage) (string, error) {
			var p webFetchParams
			if err := json.Unmarshal(raw, &p); err != nil {
				return "", fmt.Errorf("invalid arguments: %w", err)
			}
			if !strings.HasPrefix(p.URL, "http://") && !strings.HasPrefix(p.URL, "https://") {
				return "", fmt.Errorf("url must start with http:// or https://")
			}

			ctx := tc.Context
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.URL, nil)
			if err != nil {
				return "", fmt.Errorf("building request: %w", err)
			}
			req.Header.Set("User-Agent", "vibecore-webfetch/1.0")

			resp, err := webFetchHTTPClient.Do(req)
			if err != nil {
				return "", fmt.Errorf("fetching %s: %w", p.URL, err)
			}
			defer resp.Body.Close()

			if resp.StatusCode >= 400 {
				return "", fmt.Errorf("fetching %s: HTTP %d", p.URL, resp.StatusCode)
			}

			body, err := io.ReadAll(io.LimitReader(resp.Body, maxWebFetchBody+1))
			if err != nil {
				return "", fmt.Errorf("reading response body: %w", err)
			}

			contentType := resp.Header.Get("Content-Type")
			text := string(body)
			if strings.Contains(contentType, "html") {
				text = htmlToText(text)
			}
			return truncate(text), nil
		},
	}
}

func htmlToText(html string) string {
	text := scriptOrStyleTag.ReplaceAllString(html, "")
	text = htmlTag.ReplaceAllString(text, "\n")
	text = strings.NewReplacer(
		"&nbsp;", " ", "&amp;", "&", "&lt;", "<", "&gt;", ">", "&quot;", `"`, "&#39;", "'",
	).Replace(text)
	return strings.TrimSpace(blankLines.ReplaceAllString(text, "\n\n"))
}
