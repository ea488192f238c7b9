package keybackend

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// tokenFile is the JSON form of a token file.
type tokenFile struct {
	Token string `json:"token"`
}

// LoadTokenFromFile reads the shared token from path. The file holds either
// the bare token on its own, or a JSON object:
//
//	{"token": "s3cr3t"}
//
// Surrounding whitespace, including a trailing newline, is ignored.
func LoadTokenFromFile(path string) (string, error) {
	data, err := os.ReadFile(path) //nolint:gosec // Path is from trusted config file
	if err != nil {
		return "", fmt.Errorf("read token file: %w", err)
	}

	content := strings.TrimSpace(string(data))
	if strings.HasPrefix(content, "{") {
		var tf tokenFile
		if err := json.Unmarshal([]byte(content), &tf); err != nil {
			return "", fmt.Errorf("parse token file: %w", err)
		}
		content = strings.TrimSpace(tf.Token)
	}

	if content == "" {
		return "", fmt.Errorf("read token file %s: %w", path, ErrEmptyToken)
	}
	return content, nil
}
