package e2e_test

import (
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var (
	binaryPath     string
	binaryBuildErr error
	binaryOnce     sync.Once
	sharedTempDir  string
)

const testToken = "e2e-token"

// TestMain sets up and tears down shared test resources.
func TestMain(m *testing.M) {
	var err error
	sharedTempDir, err = os.MkdirTemp("", "boxgate-e2e-*")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create temp dir: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()

	_ = os.RemoveAll(sharedTempDir)
	if testCleanup != nil {
		testCleanup()
	}

	os.Exit(code)
}

// ServerConfig holds configuration for starting the boxgate server.
type ServerConfig struct {
	Port              int
	DBType            string // sqlite, postgres
	DBDSN             string
	StoragePath       string
	Token             string
	UnauthorizedLimit int
	// Redirects are stored with "redirect set" before the server starts.
	Redirects map[string]string
	// RedirectCSV, when set, is loaded with "redirect import".
	RedirectCSV string
}

// buildBinary compiles the boxgate binary once per test run.
func buildBinary(t *testing.T) string {
	t.Helper()

	binaryOnce.Do(func() {
		binaryPath = filepath.Join(sharedTempDir, "boxgate")

		cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/boxgate")
		cmd.Dir = getProjectRoot(t)
		output, err := cmd.CombinedOutput()
		if err != nil {
			binaryBuildErr = fmt.Errorf("build binary: %w\nOutput: %s", err, output)
			return
		}
	})

	if binaryBuildErr != nil {
		t.Fatalf("failed to build binary: %v", binaryBuildErr)
	}

	return binaryPath
}

// getProjectRoot returns the directory holding go.mod.
func getProjectRoot(t *testing.T) string {
	t.Helper()

	dir, err := os.Getwd()
	require.NoError(t, err, "get working directory")

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("could not find project root (go.mod)")
		}
		dir = parent
	}
}

// createConfigFile writes a config file for the server and the admin
// commands. Returns its path.
func createConfigFile(t *testing.T, cfg ServerConfig) string {
	t.Helper()

	unauthorized := cfg.UnauthorizedLimit
	if unauthorized == 0 {
		unauthorized = 20
	}

	content := fmt.Sprintf(`server:
  addr: "127.0.0.1:%d"

auth:
  token: "%s"

ratelimit:
  unauthorized_limit: %d

database:
  type: %s
  dsn: "%s"

storage:
  type: filesystem
  path: "%s"

log:
  level: error
`,
		cfg.Port,
		cfg.Token,
		unauthorized,
		cfg.DBType,
		cfg.DBDSN,
		cfg.StoragePath,
	)

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	err := os.WriteFile(configPath, []byte(content), 0o600)
	require.NoError(t, err, "write config file")

	return configPath
}

// runBoxgate runs a one-shot boxgate command and returns its output.
func runBoxgate(t *testing.T, configPath string, args ...string) string {
	t.Helper()

	binary := buildBinary(t)
	cmd := exec.Command(binary, append(args, "--config", configPath)...)
	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "boxgate %v: %s", args, output)
	return string(output)
}

// startServer starts boxgate serve with the given configuration.
// Returns the base URL and the config path; the server stops with the test.
func startServer(t *testing.T, cfg ServerConfig) (string, string) {
	t.Helper()

	if cfg.Token == "" {
		cfg.Token = testToken
	}

	binary := buildBinary(t)
	configPath := createConfigFile(t, cfg)

	// Tables and redirects are in place before the server opens the database.
	runBoxgate(t, configPath, "migrate")
	for key, target := range cfg.Redirects {
		runBoxgate(t, configPath, "redirect", "set", key, target)
	}
	if cfg.RedirectCSV != "" {
		csvPath := filepath.Join(t.TempDir(), "boxes.csv")
		require.NoError(t, os.WriteFile(csvPath, []byte(cfg.RedirectCSV), 0o600))
		runBoxgate(t, configPath, "redirect", "import", csvPath)
	}

	cmd := exec.Command(binary, "serve", "--config", configPath)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	err := cmd.Start()
	require.NoError(t, err, "start server")

	t.Cleanup(func() {
		if cmd.Process != nil {
			_ = cmd.Process.Signal(syscall.SIGTERM)
			_ = cmd.Wait()
		}
	})

	baseURL := fmt.Sprintf("http://127.0.0.1:%d", cfg.Port)
	waitForServer(t, baseURL, 10*time.Second)

	return baseURL, configPath
}

// waitForServer polls the server until it responds or times out. A
// preflight is used so readiness probes never count as failed logins.
func waitForServer(t *testing.T, baseURL string, timeout time.Duration) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	client := &http.Client{Timeout: 1 * time.Second}

	for time.Now().Before(deadline) {
		req, err := http.NewRequest(http.MethodOptions, baseURL+"/media/box-01/list", http.NoBody)
		require.NoError(t, err)
		resp, err := client.Do(req)
		if err == nil {
			_ = resp.Body.Close()
			return
		}
		time.Sleep(100 * time.Millisecond)
	}

	t.Fatalf("server failed to start within %v", timeout)
}

// getOpenPort finds an available TCP port.
func getOpenPort(t *testing.T) int {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err, "find open port")

	addr := l.Addr().(*net.TCPAddr)
	port := addr.Port

	err = l.Close()
	require.NoError(t, err, "close port")

	return port
}
