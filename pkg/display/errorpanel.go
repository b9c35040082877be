package display

import (
	"errors"
	"fmt"

	"github.com/entrhq/objbrowser/pkg/remote"
)

// ParseFailureText heads the panel shown when the server answer is not JSON.
const ParseFailureText = "Failed to parse json from server"

// ErrorPanel replaces the content of c with a disabled panel describing err.
func ErrorPanel(c *Container, err error) {
	c.Clear()
	c.SetContent(ErrorText(err))
	c.SetDisabled(true)
}

// ErrorText is the message ErrorPanel shows for err.
func ErrorText(err error) string {
	var parseErr *remote.ParseError
	if errors.As(err, &parseErr) {
		if parseErr.Snippet != "" {
			return fmt.Sprintf("%s (%s): %s", ParseFailureText, parseErr.URL, parseErr.Snippet)
		}
		return fmt.Sprintf("%s (%s)", ParseFailureText, parseErr.URL)
	}

	var netErr *remote.NetworkError
	if errors.As(err, &netErr) {
		if netErr.StatusCode != 0 {
			return fmt.Sprintf("Failed to fetch %s: server answered %d", netErr.URL, netErr.StatusCode)
		}
		return fmt.Sprintf("Failed to fetch %s: %v", netErr.URL, netErr.Err)
	}

	return fmt.Sprintf("Error: %v", err)
}
