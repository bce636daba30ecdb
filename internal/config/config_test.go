package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeEnvFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{KeyClientID, KeyClientSecret, KeyAccessToken, KeyRefreshToken, KeyBaseURL} {
		t.Setenv(key, "")
	}
}

func TestLoad_FromFile(t *testing.T) {
	clearEnv(t)
	path := writeEnvFile(t, `# TickTick credentials
TICKTICK_CLIENT_ID=client-123
TICKTICK_CLIENT_SECRET="secret-456"
TICKTICK_ACCESS_TOKEN='access-789'
TICKTICK_REFRESH_TOKEN=refresh-012
`)

	creds, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "client-123", creds.ClientID)
	assert.Equal(t, "secret-456", creds.ClientSecret, "double quotes should be stripped")
	assert.Equal(t, "access-789", creds.AccessToken, "single quotes should be stripped")
	assert.Equal(t, "refresh-012", creds.RefreshToken)
	assert.Empty(t, creds.BaseURL)
}

func TestLoad_EnvironmentWinsOverFile(t *testing.T) {
	clearEnv(t)
	path := writeEnvFile(t, "TICKTICK_ACCESS_TOKEN=from-file\n")
	t.Setenv(KeyAccessToken, "from-env")

	creds, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", creds.AccessToken)
}

func TestLoad_MissingFileIsNotAnError(t *testing.T) {
	clearEnv(t)
	t.Setenv(KeyAccessToken, "env-only")

	creds, err := Load(filepath.Join(t.TempDir(), "does-not-exist"))
	require.NoError(t, err)

	assert.Equal(t, "env-only", creds.AccessToken)
}

func TestCredentials_Validate(t *testing.T) {
	err := (&Credentials{}).Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TICKTICK_ACCESS_TOKEN environment variable is not set")

	assert.NoError(t, (&Credentials{AccessToken: "tok"}).Validate())
}

func TestSaveTokens_PreservesUnrelatedLines(t *testing.T) {
	original := `# keep this comment
TICKTICK_CLIENT_ID=client-123

TICKTICK_ACCESS_TOKEN=old-access
SOME_OTHER_TOOL=value
TICKTICK_REFRESH_TOKEN=old-refresh
`
	path := writeEnvFile(t, original)

	require.NoError(t, SaveTokens(path, "new-access", "new-refresh"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	want := `# keep this comment
TICKTICK_CLIENT_ID=client-123

TICKTICK_ACCESS_TOKEN=new-access
SOME_OTHER_TOOL=value
TICKTICK_REFRESH_TOKEN=new-refresh
`
	assert.Equal(t, want, string(data))
}

func TestSaveTokens_AppendsMissingKeys(t *testing.T) {
	path := writeEnvFile(t, "TICKTICK_CLIENT_ID=client-123\n")

	require.NoError(t, SaveTokens(path, "access", "refresh"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "TICKTICK_CLIENT_ID=client-123\nTICKTICK_ACCESS_TOKEN=access\nTICKTICK_REFRESH_TOKEN=refresh\n", string(data))
}

func TestSaveTokens_CreatesFileWithRestrictedMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")

	require.NoError(t, SaveTokens(path, "access", "refresh"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestSave_WritesFullCredentialSet(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")

	require.NoError(t, Save(path, &Credentials{
		ClientID:     "id",
		ClientSecret: "secret",
		AccessToken:  "access",
		RefreshToken: "refresh",
	}))

	clearEnv(t)
	creds, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "id", creds.ClientID)
	assert.Equal(t, "secret", creds.ClientSecret)
	assert.Equal(t, "access", creds.AccessToken)
	assert.Equal(t, "refresh", creds.RefreshToken)
}
