// Package ipc implements the request server exposed to other local
// processes over a UNIX domain socket (spec §4.8): a line-delimited,
// pipe-separated request/response protocol, gated by SO_PEERCRED UID
// matching in the teacher's vaultdaemon idiom — but serving the
// protocol directly instead of through gRPC, since the core excludes
// an RPC framework.
package ipc

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/arca-vault/arca/arcalog"
)

// SocketName is the well-known name of the UNIX domain socket, resolved
// to a path under the per-user runtime directory.
const SocketName = "arca-vault-simple"

// socketPerm is the file permission mode applied to the socket.
const socketPerm = 0o600

// drainTimeout bounds how long Stop waits for outstanding handlers.
const drainTimeout = 2 * time.Second

// acceptErrorBackoff is the pause applied after a transient accept
// error before retrying.
const acceptErrorBackoff = 100 * time.Millisecond

// Dispatcher answers a single decoded request line and returns the
// response line (without its trailing newline).
type Dispatcher interface {
	Dispatch(line string) string
}

// state is the server's lifecycle state.
type state int

const (
	stateStopped state = iota
	stateRunning
	stateStopping
)

// Server listens on a UID-gated UNIX domain socket and dispatches each
// connection's single request line to a [Dispatcher].
type Server struct {
	socketPath string
	dispatcher Dispatcher

	mu       sync.Mutex
	state    state
	listener net.Listener
	wg       sync.WaitGroup
	stopCh   chan struct{}
}

// SocketPath returns the default socket path under the per-user runtime
// directory, e.g. /run/user/<uid>/arca-vault-simple.sock.
func SocketPath() string {
	return fmt.Sprintf("/run/user/%d/%s.sock", os.Getuid(), SocketName)
}

// New returns a Server that will dispatch requests to d once started.
func New(socketPath string, d Dispatcher) *Server {
	return &Server{
		socketPath: socketPath,
		dispatcher: d,
	}
}

// Start opens the socket and begins accepting connections in a
// background goroutine. Returns an error immediately if the socket
// cannot be created.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != stateStopped {
		return fmt.Errorf("ipc: server is not stopped")
	}

	_ = os.Remove(s.socketPath)

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("ipc: listen: %w", err)
	}

	if err := os.Chmod(s.socketPath, socketPerm); err != nil {
		_ = listener.Close()
		return fmt.Errorf("ipc: chmod: %w", err)
	}

	s.listener = &uidCheckingListener{Listener: listener, allowedUID: os.Getuid()}
	s.stopCh = make(chan struct{})
	s.state = stateRunning

	s.wg.Add(1)
	go s.acceptLoop()

	return nil
}

// Stop signals the accept loop to exit, unblocks it with a short-lived
// self-connection, and waits up to drainTimeout for outstanding
// handlers.
func (s *Server) Stop() {
	s.mu.Lock()
	if s.state != stateRunning {
		s.mu.Unlock()
		return
	}

	s.state = stateStopping
	path := s.socketPath
	listener := s.listener
	s.mu.Unlock()

	close(s.stopCh)

	_ = listener.Close()

	// unblock a goroutine parked in Accept() on some platforms where
	// Close alone does not wake a blocked call.
	if conn, err := net.DialTimeout("unix", path, 50*time.Millisecond); err == nil {
		_ = conn.Close()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(drainTimeout):
	}

	_ = os.Remove(path)

	s.mu.Lock()
	s.state = stateStopped
	s.mu.Unlock()
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.stopCh:
				return
			default:
			}

			time.Sleep(acceptErrorBackoff)

			continue
		}

		s.wg.Add(1)

		go func() {
			defer s.wg.Done()
			s.handleConn(conn)
		}()
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	_ = conn.SetDeadline(time.Now().Add(5 * time.Second))

	reader := bufio.NewReader(conn)

	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return
	}

	line = strings.TrimRight(line, "\r\n")

	response := s.dispatcher.Dispatch(line)

	_, _ = conn.Write([]byte(response + "\n"))
}

// getCred returns the credentials of the remote end of a UNIX socket
// connection.
func getCred(conn net.Conn) (*unix.Ucred, error) {
	unixConn, ok := conn.(*net.UnixConn)
	if !ok {
		return nil, fmt.Errorf("ipc: connection is not a *net.UnixConn: got %T", conn)
	}

	rawConn, err := unixConn.SyscallConn()
	if err != nil {
		return nil, err
	}

	var (
		ucred    *unix.Ucred
		ucredErr error
	)

	err = rawConn.Control(func(fd uintptr) {
		ucred, ucredErr = unix.GetsockoptUcred(int(fd), unix.SOL_SOCKET, unix.SO_PEERCRED)
	})
	if err != nil {
		return nil, err
	}

	return ucred, ucredErr
}

// uidCheckingListener wraps a [net.Listener] and only accepts
// connections whose peer credentials match allowedUID.
type uidCheckingListener struct {
	net.Listener
	allowedUID int
}

func (l *uidCheckingListener) Accept() (net.Conn, error) {
	for {
		conn, err := l.Listener.Accept()
		if err != nil {
			return nil, err
		}

		ucred, err := getCred(conn)
		if err != nil {
			arcalog.WithComponent("ipc").Debug().Msgf("peer credential check failed: %v", err)
			_ = conn.Close()

			continue
		}

		if int(ucred.Uid) != l.allowedUID {
			arcalog.WithComponent("ipc").Debug().Msgf("rejected connection from disallowed uid %d", ucred.Uid)
			_ = conn.Close()

			continue
		}

		return conn, nil
	}
}
