package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// ErrMissingCredentials is returned when the panel account is not configured.
var ErrMissingCredentials = errors.New("config: missing credentials")

// Credentials is the panel account. Both fields are opaque secrets: String,
// GoString and LogValue never reveal them.
type Credentials struct {
	Username string
	Password string
}

const redacted = "[redacted]"

func (Credentials) String() string { return redacted }
func (Credentials) GoString() string { return redacted }
func (Credentials) LogValue() slog.Value { return slog.StringValue(redacted) }
func (Credentials) MarshalText() ([]byte, error) { return []byte(redacted), nil }

// LoadCredentials loads EnvFile into the environment when it exists (without
// overriding variables already set) and reads both credentials from it.
func LoadCredentials(c CredentialsConfig) (Credentials, error) {
	if c.EnvFile != "" {
		if _, err := os.Stat(c.EnvFile); err == nil {
			if err := godotenv.Load(c.EnvFile); err != nil {
				return Credentials{}, fmt.Errorf("config: env file: %w", err)
			}
		}
	}
	creds := Credentials{
		Username: os.Getenv(c.UsernameEnv),
		Password: os.Getenv(c.PasswordEnv),
	}
	var missing []string
	if creds.Username == "" {
		missing = append(missing, c.UsernameEnv)
	}
	if creds.Password == "" {
		missing = append(missing, c.PasswordEnv)
	}
	if len(missing) > 0 {
		return Credentials{}, fmt.Errorf("%w: set %s", ErrMissingCredentials, strings.Join(missing, ", "))
	}
	return creds, nil
}
