//go:build e2e

package e2e

import (
	"bytes"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"
)

// lqtServer manages a running `lqt serve` process.
type lqtServer struct {
	cmd     *exec.Cmd
	dataDir string
	address string
	logFile string
}

// baseEnv isolates a process from config files and the developer's .env.
func baseEnv(dataDir string) []string {
	return append(os.Environ(),
		"LQT_CONFIG_PATH="+filepath.Join(dataDir, "nonexistent.yaml"),
		"LQT_ENV_FILE="+filepath.Join(dataDir, "nonexistent.env"),
		"APP_PASSWORD="+testPassword,
		"LQT_TIMEZONE=UTC",
		"LQT_LOG_LEVEL=debug",
	)
}

// startLqt launches the server binary and waits for it to become healthy.
// It is configured entirely via environment variables.
func startLqt(t *testing.T) *lqtServer {
	t.Helper()
	requireLqt(t)

	dataDir := t.TempDir()
	port := freePort(t)
	logFile := filepath.Join(dataDir, "lqt.log")

	cmd := exec.Command(lqtBin, "serve")
	cmd.Env = append(baseEnv(dataDir),
		fmt.Sprintf("LQT_PORT=%d", port),
		"LQT_DB_PATH="+filepath.Join(dataDir, "server.db"),
	)

	lf, err := os.Create(logFile)
	if err != nil {
		t.Fatalf("create log file: %v", err)
	}
	cmd.Stdout = lf
	cmd.Stderr = lf

	if err := cmd.Start(); err != nil {
		lf.Close()
		t.Fatalf("start lqt: %v", err)
	}

	s := &lqtServer{
		cmd:     cmd,
		dataDir: dataDir,
		address: fmt.Sprintf("127.0.0.1:%d", port),
		logFile: logFile,
	}

	t.Cleanup(func() {
		s.stop()
		lf.Close()
		if t.Failed() {
			if data, err := os.ReadFile(logFile); err == nil {
				t.Logf("server log:\n%s", data)
			}
		}
	})

	if err := s.waitHealthy(10 * time.Second); err != nil {
		t.Fatalf("lqt not healthy: %v", err)
	}
	return s
}

func (s *lqtServer) stop() {
	if s.cmd != nil && s.cmd.Process != nil {
		_ = s.cmd.Process.Signal(os.Interrupt)
		_ = s.cmd.Wait()
	}
}

func (s *lqtServer) baseURL() string {
	return "http://" + s.address
}

func (s *lqtServer) waitHealthy(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	url := s.baseURL() + "/health"

	for time.Now().Before(deadline) {
		resp, err := http.Get(url)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("lqt not healthy after %s", timeout)
}

// lqtCLI runs client commands against one device database.
type lqtCLI struct {
	dataDir string
	dbPath  string
	remote  string
}

func newLqtCLI(t *testing.T, s *lqtServer) *lqtCLI {
	t.Helper()
	dir := t.TempDir()
	return &lqtCLI{dataDir: dir, dbPath: filepath.Join(dir, "device.db"), remote: s.baseURL()}
}

func (c *lqtCLI) run(t *testing.T, args ...string) string {
	t.Helper()
	out, err := c.runErr(t, args...)
	if err != nil {
		t.Fatalf("lqt %v: %v\n%s", args, err, out)
	}
	return out
}

func (c *lqtCLI) runErr(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := exec.Command(lqtBin, append(args, "--db", c.dbPath)...)
	cmd.Env = append(baseEnv(c.dataDir), "LQT_REMOTE_URL="+c.remote)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	if err != nil {
		return stdout.String() + stderr.String(), err
	}
	return stdout.String(), nil
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("free port: %v", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}
