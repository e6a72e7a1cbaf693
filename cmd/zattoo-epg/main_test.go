package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/domevanzy/Zattoo-EPG/internal/config"
	"github.com/domevanzy/Zattoo-EPG/internal/guide"
	"github.com/domevanzy/Zattoo-EPG/internal/zapi"
)

type result struct {
	stdout string
	stderr string
	err    error
}

func run(t *testing.T, stdin string, args ...string) result {
	t.Helper()
	return runEnv(t, nil, stdin, args...)
}

func runEnv(t *testing.T, env map[string]string, stdin string, args ...string) result {
	t.Helper()
	for _, k := range config.EnvKeys() {
		t.Setenv(k, env[k])
	}
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	err := cmd.ExecuteContext(context.Background())
	return result{stdout: out.String(), stderr: errOut.String(), err: err}
}

func newsServer(t *testing.T) *zapi.MockServer {
	t.Helper()
	m := zapi.NewMockServer()
	t.Cleanup(m.Close)

	base := guide.DayStart(time.Now()).Unix()
	m.Channels = []zapi.Channel{{CID: "news", Title: "News"}}
	m.Programs = []zapi.MockProgram{
		{ChannelID: "news", ID: "101", Start: base + 3600, End: base + 5400, Title: "Morning News"},
	}
	m.AddDetails("101", map[string]any{"d": "Headlines of the day"})
	return m
}

type fixture struct {
	dir     string
	config  string
	output  string
	history string
}

func writeConfig(t *testing.T, m *zapi.MockServer, withCreds bool) fixture {
	t.Helper()
	dir := t.TempDir()
	f := fixture{
		dir:     dir,
		config:  filepath.Join(dir, "config.yaml"),
		output:  filepath.Join(dir, "guide.xml"),
		history: filepath.Join(dir, "history.sqlite"),
	}

	var b strings.Builder
	fmt.Fprintf(&b, "days: 1\noutput: %s\n", f.output)
	fmt.Fprintf(&b, "zapi:\n  baseUrl: %s\n  rateLimit: 0\n", m.URL)
	fmt.Fprintf(&b, "history:\n  path: %s\n", f.history)
	if withCreds {
		fmt.Fprintf(&b, "credentials:\n  email: %s\n  password: %s\n", m.Email, m.Password)
	} else {
		fmt.Fprintf(&b, "credentials:\n  file: %s\n", filepath.Join(dir, "missing.json"))
	}
	require.NoError(t, os.WriteFile(f.config, []byte(b.String()), 0o600))
	return f
}

func TestVersion(t *testing.T) {
	r := run(t, "", "version")
	require.NoError(t, r.err)
	assert.True(t, strings.HasPrefix(r.stdout, "zattoo-epg "))
	assert.Contains(t, r.stdout, "commit:")
}

func TestConfigValidate(t *testing.T) {
	m := newsServer(t)
	f := writeConfig(t, m, true)

	r := run(t, "", "config", "validate", "--config", f.config)
	require.NoError(t, r.err)
	assert.Contains(t, r.stdout, "is valid")

	bad := filepath.Join(f.dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("days: 30\n"), 0o600))
	r = run(t, "", "config", "validate", "--config", bad)
	require.Error(t, r.err)
	assert.Contains(t, r.err.Error(), "days")

	unknown := filepath.Join(f.dir, "unknown.yaml")
	require.NoError(t, os.WriteFile(unknown, []byte("dayz: 3\n"), 0o600))
	r = run(t, "", "config", "validate", "--config", unknown)
	require.Error(t, r.err)
	assert.ErrorIs(t, r.err, config.ErrUnknownConfigField)
}

func TestConfigDump_RedactsPassword(t *testing.T) {
	m := newsServer(t)
	f := writeConfig(t, m, true)

	r := run(t, "", "config", "dump", "--config", f.config)
	require.NoError(t, r.err)
	assert.Contains(t, r.stdout, "***")
	assert.NotContains(t, r.stdout, m.Password)
	assert.Contains(t, r.stdout, "baseUrl: "+m.URL)
}

func TestGrab_WritesFileAndRecordsRun(t *testing.T) {
	m := newsServer(t)
	f := writeConfig(t, m, true)

	r := run(t, "", "grab", "--config", f.config)
	require.NoError(t, r.err, r.stderr)
	assert.Contains(t, r.stdout, "XMLTV written to "+f.output)

	data, err := os.ReadFile(f.output)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Morning News")
	assert.Contains(t, string(data), "Headlines of the day")
	assert.Contains(t, r.stderr, `"event":"grab.summary"`)

	r = run(t, "", "runs", "--config", f.config)
	require.NoError(t, r.err)
	assert.Contains(t, r.stdout, "succeeded")
	assert.Contains(t, r.stdout, "DE")
}

func TestGrab_FlagsOverrideConfig(t *testing.T) {
	m := newsServer(t)
	f := writeConfig(t, m, true)
	other := filepath.Join(f.dir, "other.xml")

	r := run(t, "", "grab", "--config", f.config, "--no-details", "-o", other, "-d", "1", "-c", "de")
	require.NoError(t, r.err, r.stderr)
	assert.Zero(t, m.Requests(zapi.EndpointDetails))

	data, err := os.ReadFile(other)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "Headlines of the day")
	_, err = os.Stat(f.output)
	assert.True(t, os.IsNotExist(err))
}

func TestGrab_InvalidFlag(t *testing.T) {
	m := newsServer(t)
	f := writeConfig(t, m, true)

	r := run(t, "", "grab", "--config", f.config, "--days", "15")
	require.Error(t, r.err)
	assert.Contains(t, r.err.Error(), "days")
	assert.Zero(t, m.Requests(zapi.EndpointToken))
}

func TestGrab_MissingCredentials(t *testing.T) {
	m := newsServer(t)
	f := writeConfig(t, m, false)

	r := run(t, "", "grab", "--config", f.config)
	require.Error(t, r.err)
	assert.ErrorIs(t, r.err, config.ErrNoCredentials)
	assert.Contains(t, r.err.Error(), "--interactive")
}

func TestGrab_InteractiveSavesCredentials(t *testing.T) {
	m := newsServer(t)
	f := writeConfig(t, m, false)
	saved := filepath.Join(f.dir, "creds.json")

	stdin := "not-an-email\n" + m.Email + "\n" + m.Password + "\n"
	r := run(t, stdin, "grab", "--config", f.config, "--no-details", "--interactive", "--save-credentials", saved)
	require.NoError(t, r.err, r.stderr)
	assert.Contains(t, r.stderr, "Invalid email address")

	creds, err := config.ReadCredentialsFile(saved)
	require.NoError(t, err)
	assert.Equal(t, m.Email, creds.Email)

	// The saved file works as a legacy --config argument.
	legacy := filepath.Join(f.dir, "legacy.xml")
	r = runEnv(t, map[string]string{"ZATTOO_BASE_URL": m.URL, "ZATTOO_RATE_LIMIT": "0", "ZATTOO_HISTORY_PATH": f.history},
		"", "grab", "--config", saved, "--no-details", "-o", legacy, "--days", "1")
	require.NoError(t, r.err, r.stderr)
	_, err = os.Stat(legacy)
	assert.NoError(t, err)
}

func TestGrab_RejectedLogin(t *testing.T) {
	m := newsServer(t)
	f := writeConfig(t, m, true)
	m.Password = "changed"

	r := run(t, "", "grab", "--config", f.config)
	require.Error(t, r.err)
	assert.Zero(t, m.Requests(zapi.EndpointChannels))

	r = run(t, "", "runs", "--config", f.config)
	require.NoError(t, r.err)
	assert.Contains(t, r.stdout, "failed")
}
