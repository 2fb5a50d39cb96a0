package main

import (
	"net"
	"path/filepath"
	"strconv"
	"testing"
)

func TestRunReturnsErrorWhenPortTaken(t *testing.T) {
	ln, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	t.Setenv("PORT", strconv.Itoa(ln.Addr().(*net.TCPAddr).Port))
	t.Setenv("SQLITE_DB_PATH", filepath.Join(t.TempDir(), "finances.db"))
	t.Setenv("AMQP_URL", "")
	t.Setenv("LOG_LEVEL", "error")

	if code := run(); code != 1 {
		t.Fatalf("run() = %d, want 1", code)
	}
}
