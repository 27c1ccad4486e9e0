//go:build integration

package integration

import (
	"bytes"
	"encoding/json"
	"os"
	"os/exec"
	"strings"
	"testing"
)

// TestConfig holds configuration for integration tests
type TestConfig struct {
	BaseURL   string
	UserID    string
	SecretKey string
	Tag       string
	HLSPath   string
	Verbose   bool
}

// LoadTestConfig loads configuration from environment variables
func LoadTestConfig() *TestConfig {
	return &TestConfig{
		BaseURL:   os.Getenv("HLS_IT_BASE_URL"),
		UserID:    os.Getenv("HLS_IT_USER_ID"),
		SecretKey: os.Getenv("HLS_IT_SECRET_KEY"),
		Tag:       os.Getenv("HLS_IT_TAG"),
		HLSPath:   getHLSPath(),
		Verbose:   os.Getenv("HLS_IT_VERBOSE") == "true",
	}
}

// getHLSPath determines the path to the hls binary
func getHLSPath() string {
	if path := os.Getenv("HLS_BINARY_PATH"); path != "" {
		return path
	}

	candidates := []string{
		"../../hls",
		"./hls",
		"../hls",
	}

	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}

	return "hls"
}

// SkipIfMissingConfig skips the test unless a historian is configured
func (config *TestConfig) SkipIfMissingConfig(t *testing.T) {
	t.Helper()

	if config.BaseURL == "" || config.UserID == "" || config.SecretKey == "" {
		t.Skip("HLS_IT_BASE_URL, HLS_IT_USER_ID or HLS_IT_SECRET_KEY not set, skipping integration test")
	}
}

// SkipIfMissingBinary skips CLI tests when the hls binary is not built
func (config *TestConfig) SkipIfMissingBinary(t *testing.T) {
	t.Helper()

	if _, err := exec.LookPath(config.HLSPath); err != nil {
		t.Skipf("hls binary not found at %s, skipping CLI integration test", config.HLSPath)
	}
}

// CommandRunner runs the hls binary against the configured historian
type CommandRunner struct {
	config *TestConfig
	home   string
	t      *testing.T
}

// NewCommandRunner creates a runner with an isolated HOME
func NewCommandRunner(config *TestConfig, t *testing.T) *CommandRunner {
	t.Helper()

	return &CommandRunner{
		config: config,
		home:   t.TempDir(),
		t:      t,
	}
}

// Run executes an hls command and returns its output
func (runner *CommandRunner) Run(args ...string) (stdout, stderr string, err error) {
	cmd := exec.Command(runner.config.HLSPath, args...)
	cmd.Env = append(os.Environ(),
		"HOME="+runner.home,
		"HLS_BASE_URL="+runner.config.BaseURL,
		"HLS_USER_ID="+runner.config.UserID,
		"HLS_SECRET_KEY="+runner.config.SecretKey,
	)

	var stdoutBuf, stderrBuf bytes.Buffer

	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	if runner.config.Verbose {
		runner.t.Logf("Running: %s %s", runner.config.HLSPath, strings.Join(args, " "))
	}

	err = cmd.Run()
	stdout = stdoutBuf.String()
	stderr = stderrBuf.String()

	if runner.config.Verbose && err != nil {
		runner.t.Logf("Command failed: %v\nStdout: %s\nStderr: %s", err, stdout, stderr)
	}

	return stdout, stderr, err
}

// AssertJSONOutput verifies command output is valid JSON
func AssertJSONOutput(t *testing.T, output string) {
	t.Helper()

	if !json.Valid([]byte(strings.TrimSpace(output))) {
		t.Errorf("Output is not valid JSON: %s", output)
	}
}
