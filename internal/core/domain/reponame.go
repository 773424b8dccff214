package domain

import "strings"

// MaxRepoNameLength is GitHub's repository name length cap.
const MaxRepoNameLength = 100

// =============================================================================
// Repository Naming
// =============================================================================

// RepoName converts a task name into a valid GitHub repository name.
//
// The transformation rules are:
//   - Uppercase letters (A-Z) are converted to lowercase
//   - Lowercase letters (a-z) and digits (0-9) are kept as-is
//   - Runs of spaces, underscores and other characters become a single hyphen
//   - Leading and trailing hyphens are stripped
//   - The result is truncated to MaxRepoNameLength
//
// The mapping is deterministic, so a round-2 update for the same task name
// resolves to the repository created in round 1.
//
// Example:
//
//	RepoName("sales-1")        // returns "sales-1"
//	RepoName("My App! v2.0")   // returns "my-app-v2-0"
//	RepoName("Hello__World")   // returns "hello-world"
func RepoName(taskName string) string {
	var b strings.Builder
	lastHyphen := true // swallow leading separators
	for _, r := range taskName {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			lastHyphen = false
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + 32)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	name := strings.TrimRight(b.String(), "-")
	if len(name) > MaxRepoNameLength {
		name = strings.TrimRight(name[:MaxRepoNameLength], "-")
	}
	return name
}
