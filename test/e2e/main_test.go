package e2e

import (
	"os"
	"os/exec"
	"testing"
)

var lqtBin string

func TestMain(m *testing.M) {
	lqtBin = envOrLookPath("LQT_BIN", "lqt")
	os.Exit(m.Run())
}

func envOrLookPath(envVar, name string) string {
	if v := os.Getenv(envVar); v != "" {
		return v
	}
	if path, err := exec.LookPath(name); err == nil {
		return path
	}
	return ""
}

func requireLqt(t *testing.T) {
	t.Helper()
	if lqtBin == "" {
		t.Skip("lqt binary not available (set LQT_BIN or add to PATH)")
	}
}
