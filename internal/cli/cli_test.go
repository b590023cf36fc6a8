package cli

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sboapp/admin/internal/auth"
)

func setupEnv(t *testing.T) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "admin.db")
	t.Setenv("DATABASE_PATH", dbPath)
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("TASKS_ENABLED", "false")
	t.Setenv("METRICS_ENABLED", "false")
	t.Setenv("AUTH_BCRYPT_COST", "4")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("LOG_FILE", "")
	t.Setenv("ADMIN_PASSWORD", "")
	return dbPath
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand("test")
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCreateAdmin_CreatesThenUpdates(t *testing.T) {
	setupEnv(t)

	out, err := execute(t, "create-admin", "--email", "Owner@SBOAPP.com", "--password", "correct-horse-battery")
	require.NoError(t, err)
	assert.Contains(t, out, "Created owner administrator owner@sboapp.com")

	out, err = execute(t, "create-admin", "--email", "owner@sboapp.com", "--password", "another-long-password", "--role", "viewer")
	require.NoError(t, err)
	assert.Contains(t, out, "Updated viewer administrator owner@sboapp.com")
}

func TestCreateAdmin_PasswordFromEnvironment(t *testing.T) {
	setupEnv(t)
	t.Setenv("ADMIN_PASSWORD", "correct-horse-battery")

	out, err := execute(t, "create-admin", "--email", "editor@sboapp.com", "--role", "editor")
	require.NoError(t, err)
	assert.Contains(t, out, "Created editor administrator")
}

func TestCreateAdmin_Rejects(t *testing.T) {
	setupEnv(t)

	_, err := execute(t, "create-admin", "--email", "owner@sboapp.com")
	assert.ErrorContains(t, err, "--password")

	_, err = execute(t, "create-admin", "--email", "owner@sboapp.com", "--password", "correct-horse-battery", "--role", "root")
	assert.ErrorContains(t, err, "unknown role")

	_, err = execute(t, "create-admin", "--email", "owner@sboapp.com", "--password", "short")
	assert.ErrorIs(t, err, auth.ErrPasswordTooShort)

	_, err = execute(t, "create-admin", "--email", "not-an-email", "--password", "correct-horse-battery")
	assert.ErrorIs(t, err, auth.ErrEmailInvalid)
}

func TestSeed_Sample(t *testing.T) {
	setupEnv(t)

	out, err := execute(t, "seed")
	require.NoError(t, err)
	assert.Contains(t, out, "Seeded ")
	assert.Contains(t, out, "books")
}

func TestSeed_MissingFile(t *testing.T) {
	setupEnv(t)

	_, err := execute(t, "seed", "--file", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestAudit_EmptyStore(t *testing.T) {
	setupEnv(t)

	out, err := execute(t, "audit", "--limit", "10")
	require.NoError(t, err)
	assert.Contains(t, out, "No audit entries.")

	out, err = execute(t, "audit", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, "[]")
}

func TestInvalidConfiguration(t *testing.T) {
	setupEnv(t)
	t.Setenv("STORE_DRIVER", "cassandra")

	_, err := execute(t, "audit")
	assert.ErrorContains(t, err, "invalid configuration")
}

func TestVersion(t *testing.T) {
	setupEnv(t)

	out, err := execute(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "test")
}
