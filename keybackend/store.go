// Package keybackend loads the gateway's shared access token from
// configuration, a file, or an environment variable.
package keybackend

import (
	"fmt"
	"os"
	"strings"

	"github.com/sagarc03/boxgate"
)

// TokenConfig holds the possible token sources.
type TokenConfig struct {
	Token string `mapstructure:"token"`     // Inline token from config
	File  string `mapstructure:"token_file"` // Path to a file holding the token
	Env   string `mapstructure:"token_env"`  // Name of an environment variable holding the token
}

// LoadToken resolves the token. File takes precedence over Env, and Env over
// the inline Token. A named file or variable that is empty is an error; an
// entirely unconfigured TokenConfig yields "".
func LoadToken(cfg TokenConfig) (string, error) {
	if cfg.File != "" {
		return LoadTokenFromFile(cfg.File)
	}

	if cfg.Env != "" {
		token := strings.TrimSpace(os.Getenv(cfg.Env))
		if token == "" {
			return "", fmt.Errorf("read token from $%s: %w", cfg.Env, ErrEmptyToken)
		}
		return token, nil
	}

	return strings.TrimSpace(cfg.Token), nil
}

// NewAuthenticator loads the token and wraps it in an authenticator. With no
// token configured the authenticator rejects every request.
func NewAuthenticator(cfg TokenConfig) (*boxgate.TokenAuthenticator, error) {
	token, err := LoadToken(cfg)
	if err != nil {
		return nil, err
	}
	return boxgate.NewTokenAuthenticator(token), nil
}
