package generator

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// DecodeAttachment resolves an attachment URL to file content.
// Data-URLs (data:<mime>;base64,<payload>) are base64-decoded; anything else
// is returned verbatim and treated as pre-resolved content.
func DecodeAttachment(url string) (string, error) {
	if !strings.HasPrefix(url, "data:") {
		return url, nil
	}
	_, encoded, found := strings.Cut(url, ",")
	if !found {
		return "", fmt.Errorf("malformed data URL: missing comma separator")
	}
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("decode data URL: %w", err)
	}
	return string(decoded), nil
}
