package ingesterrors

import "strings"

// authFailureMarkers are substrings that identify an authentication failure
// in an external source's error output (HTTP body, git stderr). Matching
// any one of these classifies the failure as an AuthError rather than a
// TransientError.
var authFailureMarkers = []string{
	"HTTP Basic: Access denied",
	"Authentication failed",
	"401",
	"403",
	"could not read Username",
	"Permission denied",
	"not found",
	"404",
}

// IsAuthFailureMessage reports whether msg contains one of the well-known
// auth-error markers from an external source's response or CLI output.
func IsAuthFailureMessage(msg string) bool {
	for _, marker := range authFailureMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
