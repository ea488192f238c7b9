package keybackend_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sagarc03/boxgate/keybackend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadTokenFromFile(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"bare token", "s3cr3t", "s3cr3t"},
		{"trailing newline", "s3cr3t\n", "s3cr3t"},
		{"json object", `{"token": "from-json"}`, "from-json"},
		{"json with padding", "  {\"token\": \" padded \"}\n", "padded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			token, err := keybackend.LoadTokenFromFile(writeTestFile(t, tt.content))
			require.NoError(t, err)
			assert.Equal(t, tt.want, token)
		})
	}
}

func TestLoadTokenFromFile_Empty(t *testing.T) {
	t.Parallel()

	for _, content := range []string{"", "   \n", `{"token": ""}`, `{}`} {
		_, err := keybackend.LoadTokenFromFile(writeTestFile(t, content))
		assert.ErrorIs(t, err, keybackend.ErrEmptyToken, "content %q", content)
	}
}

func TestLoadTokenFromFile_InvalidJSON(t *testing.T) {
	t.Parallel()

	_, err := keybackend.LoadTokenFromFile(writeTestFile(t, "{not json"))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "parse token file")
}

func TestLoadTokenFromFile_NotFound(t *testing.T) {
	t.Parallel()

	_, err := keybackend.LoadTokenFromFile("/nonexistent/path/token")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "read token file")
}

// writeTestFile is a test helper that creates a temporary file with the given content
func writeTestFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "token")
	err := os.WriteFile(path, []byte(content), 0o600)
	require.NoError(t, err)

	return path
}
