package remote

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

var (
	// ErrNetwork marks transport failures and non-2xx responses.
	ErrNetwork = errors.New("network failure")

	// ErrParse marks response bodies that are not a valid node description.
	ErrParse = errors.New("parse failure")

	// ErrBodyTooLarge marks responses over the client's body size limit.
	ErrBodyTooLarge = errors.New("response body too large")
)

// NetworkError describes a failed request. StatusCode is zero when the
// request never produced a response.
type NetworkError struct {
	Method     string
	URL        string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Is lets callers match any NetworkError with errors.Is(err, ErrNetwork).
func (e *NetworkError) Is(target error) bool { return target == ErrNetwork }

// ParseError describes a response body that could not be decoded. Snippet
// holds a short readable excerpt of the body.
type ParseError struct {
	URL     string
	Snippet string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Snippet != "" {
		return fmt.Sprintf("failed to parse json from %s: %v (body: %q)", e.URL, e.Err, e.Snippet)
	}
	return fmt.Sprintf("failed to parse json from %s: %v", e.URL, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Is lets callers match any ParseError with errors.Is(err, ErrParse).
func (e *ParseError) Is(target error) bool { return target == ErrParse }

const maxSnippet = 160

// bodySnippet returns a readable excerpt of a response body. Servers that
// fall back to an HTML page produce markup, so the visible text is pulled
// out of it instead of showing tags.
func bodySnippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if s == "" {
		return ""
	}
	if strings.HasPrefix(s, "<") {
		if text := htmlText(s); text != "" {
			s = text
		}
	}
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > maxSnippet {
		s = s[:maxSnippet] + "..."
	}
	return s
}

func htmlText(markup string) string {
	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return ""
	}

	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch strings.ToLower(n.Data) {
			case "script", "style", "noscript":
				return
			}
		}
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				if b.Len() > 0 {
					b.WriteByte(' ')
				}
				b.WriteString(t)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return b.String()
}
