package config

import (
	"fmt"
	"os"
	"strings"
)

// Environment variable / env-file keys recognized by this package.
const (
	KeyClientID     = "TICKTICK_CLIENT_ID"
	KeyClientSecret = "TICKTICK_CLIENT_SECRET"
	KeyAccessToken  = "TICKTICK_ACCESS_TOKEN"
	KeyRefreshToken = "TICKTICK_REFRESH_TOKEN"
	KeyBaseURL      = "TICKTICK_BASE_URL"
)

// Credentials holds the TickTick OAuth client and token pair.
type Credentials struct {
	ClientID     string
	ClientSecret string
	AccessToken  string
	RefreshToken string
	BaseURL      string
}

// Validate checks that the credentials are sufficient to talk to the API.
func (c *Credentials) Validate() error {
	if c.AccessToken == "" {
		return fmt.Errorf("%s environment variable is not set", KeyAccessToken)
	}
	return nil
}

// Load reads credentials from the env file at path and overlays process
// environment variables on top. A variable set in the environment wins over
// the file. A missing file is not an error; the environment alone may carry
// the full credential set.
func Load(path string) (*Credentials, error) {
	values := map[string]string{}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read env file %s: %w", path, err)
		}
	} else {
		for _, line := range strings.Split(string(data), "\n") {
			key, value, ok := parseLine(line)
			if !ok {
				continue
			}
			values[key] = value
		}
	}

	// Environment takes precedence over the file.
	for _, key := range []string{KeyClientID, KeyClientSecret, KeyAccessToken, KeyRefreshToken, KeyBaseURL} {
		if v := os.Getenv(key); v != "" {
			values[key] = v
		}
	}

	return &Credentials{
		ClientID:     values[KeyClientID],
		ClientSecret: values[KeyClientSecret],
		AccessToken:  values[KeyAccessToken],
		RefreshToken: values[KeyRefreshToken],
		BaseURL:      values[KeyBaseURL],
	}, nil
}

// SaveTokens rewrites the access and refresh token entries in the env file at
// path. Every other line is preserved byte for byte, comments and blank lines
// included. Missing token lines are appended. The file is created when absent.
func SaveTokens(path, accessToken, refreshToken string) error {
	return rewrite(path, map[string]string{
		KeyAccessToken:  accessToken,
		KeyRefreshToken: refreshToken,
	})
}

// Save persists the full credential set to the env file at path, using the
// same line-preserving rewrite as SaveTokens.
func Save(path string, creds *Credentials) error {
	updates := map[string]string{
		KeyClientID:     creds.ClientID,
		KeyClientSecret: creds.ClientSecret,
		KeyAccessToken:  creds.AccessToken,
		KeyRefreshToken: creds.RefreshToken,
	}
	if creds.BaseURL != "" {
		updates[KeyBaseURL] = creds.BaseURL
	}
	return rewrite(path, updates)
}

// rewrite replaces the value of each key in updates in place and appends the
// keys the file does not yet contain. Lines not matching an updated key pass
// through untouched.
func rewrite(path string, updates map[string]string) error {
	var lines []string
	trailingNewline := true

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to read env file %s: %w", path, err)
		}
	} else if len(data) > 0 {
		content := string(data)
		trailingNewline = strings.HasSuffix(content, "\n")
		lines = strings.Split(strings.TrimSuffix(content, "\n"), "\n")
	}

	seen := map[string]bool{}
	for i, line := range lines {
		key, _, ok := parseLine(line)
		if !ok {
			continue
		}
		if value, wanted := updates[key]; wanted {
			lines[i] = key + "=" + value
			seen[key] = true
		}
	}

	// Append missing keys in a stable order.
	for _, key := range []string{KeyClientID, KeyClientSecret, KeyAccessToken, KeyRefreshToken, KeyBaseURL} {
		value, wanted := updates[key]
		if !wanted || seen[key] {
			continue
		}
		lines = append(lines, key+"="+value)
	}

	out := strings.Join(lines, "\n")
	if trailingNewline && out != "" {
		out += "\n"
	}

	if err := os.WriteFile(path, []byte(out), 0600); err != nil {
		return fmt.Errorf("failed to write env file %s: %w", path, err)
	}
	return nil
}

// parseLine splits a KEY=value line, stripping optional surrounding quotes
// from the value. Comments and lines without '=' report ok=false.
func parseLine(line string) (key, value string, ok bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return "", "", false
	}
	key, value, found := strings.Cut(trimmed, "=")
	if !found {
		return "", "", false
	}
	key = strings.TrimSpace(key)
	value = strings.TrimSpace(value)
	if len(value) >= 2 {
		if (value[0] == '"' && value[len(value)-1] == '"') || (value[0] == '\'' && value[len(value)-1] == '\'') {
			value = value[1 : len(value)-1]
		}
	}
	return key, value, true
}
