package errors

import (
	"strings"
	"unicode"
)

// maxPaneIDLength bounds pane identifiers; host session ids are short GUID-like strings.
const maxPaneIDLength = 256

// ValidatePaneID validates a pane identifier reported by the host.
//
// The rules are conservative:
//   - No empty ids
//   - No control characters or null bytes
//   - Maximum length of 256 characters
func ValidatePaneID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidTree, "pane id cannot be empty")
	}

	if len(id) > maxPaneIDLength {
		return New(ErrCodeInvalidTree, "pane id too long (max %d characters)", maxPaneIDLength)
	}

	for _, r := range id {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidTree, "pane id %q contains control characters", id)
		}
	}

	return nil
}

// ValidateControlURL validates a controller websocket URL.
// Only ws and wss schemes are accepted.
func ValidateControlURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "controller URL cannot be empty")
	}

	if !strings.HasPrefix(rawURL, "ws://") && !strings.HasPrefix(rawURL, "wss://") {
		return New(ErrCodeInvalidInput, "controller URL must use ws or wss scheme: %q", rawURL)
	}

	return nil
}

// ValidateTitle validates a panel title label of the form "win.tab.rank".
// The rank component may be "?" for panes without a rank.
func ValidateTitle(title string) error {
	parts := strings.Split(title, ".")
	if len(parts) != 3 {
		return New(ErrCodeInvalidInput, "title %q must have the form win.tab.rank", title)
	}
	for i, p := range parts {
		if p == "" {
			return New(ErrCodeInvalidInput, "title %q has an empty component", title)
		}
		if i == 2 && p == "?" {
			continue
		}
		for _, r := range p {
			if r < '0' || r > '9' {
				return New(ErrCodeInvalidInput, "title %q has a non-numeric component %q", title, p)
			}
		}
	}
	return nil
}
