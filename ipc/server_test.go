package ipc_test

import (
	"bufio"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/arca-vault/arca/ipc"
)

type echoDispatcher struct{}

func (echoDispatcher) Dispatch(line string) string {
	req := ipc.ParseRequest(line)

	switch req.Command {
	case "STATUS":
		return ipc.OK("UNLOCKED", "0", "NO_AUTH")
	default:
		return ipc.Error(ipc.ReasonUnknownCommand)
	}
}

func TestServer_StartStopLifecycle(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.sock")

	srv := ipc.New(path, echoDispatcher{})

	if err := srv.Start(); err != nil {
		t.Fatal(err)
	}

	conn, err := net.DialTimeout("unix", path, time.Second)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := conn.Write([]byte("STATUS\n")); err != nil {
		t.Fatal(err)
	}

	reply, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		t.Fatal(err)
	}

	conn.Close()

	want := "OK|UNLOCKED|0|NO_AUTH\n"
	if reply != want {
		t.Errorf("got %q, want %q", reply, want)
	}

	srv.Stop()
}

func TestServer_UnknownCommand(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.sock")

	srv := ipc.New(path, echoDispatcher{})
	if err := srv.Start(); err != nil {
		t.Fatal(err)
	}
	defer srv.Stop()

	conn, err := net.DialTimeout("unix", path, time.Second)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte("BOGUS\n")); err != nil {
		t.Fatal(err)
	}

	reply, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		t.Fatal(err)
	}

	want := "ERROR|Unknown command\n"
	if reply != want {
		t.Errorf("got %q, want %q", reply, want)
	}
}

func TestParseRequest(t *testing.T) {
	req := ipc.ParseRequest("GET | mykey | db")

	if req.Command != "GET" {
		t.Errorf("command = %q, want GET", req.Command)
	}

	if req.Field(0) != "mykey" || req.Field(1) != "db" {
		t.Errorf("fields = %v", req.Fields)
	}

	if req.Field(5) != "" {
		t.Error("out-of-range field should be empty string")
	}
}
