package localstore

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// respServer answers GET, SET and DEL over RESP2 from an in-memory map.
type respServer struct {
	ln net.Listener

	mu   sync.Mutex
	data map[string]string
	fail bool
}

func newRESPServer(t *testing.T) *respServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	s := &respServer{ln: ln, data: make(map[string]string)}
	go s.serve()
	t.Cleanup(func() { ln.Close() })
	return s
}

func (s *respServer) client(t *testing.T) *redis.Client {
	t.Helper()
	c := redis.NewClient(&redis.Options{Addr: s.ln.Addr().String(), MaxRetries: -1})
	t.Cleanup(func() { c.Close() })
	return c
}

func (s *respServer) serve() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		go s.handle(conn)
	}
}

func (s *respServer) handle(conn net.Conn) {
	defer conn.Close()
	r := bufio.NewReader(conn)
	for {
		args, err := readCommand(r)
		if err != nil {
			return
		}
		if _, err := io.WriteString(conn, s.exec(args)); err != nil {
			return
		}
	}
}

func (s *respServer) exec(args []string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	cmd := strings.ToUpper(args[0])
	if s.fail {
		return "-ERR backend unavailable\r\n"
	}
	switch {
	case cmd == "GET" && len(args) == 2:
		v, ok := s.data[args[1]]
		if !ok {
			return "$-1\r\n"
		}
		return fmt.Sprintf("$%d\r\n%s\r\n", len(v), v)
	case cmd == "SET" && len(args) >= 3:
		s.data[args[1]] = args[2]
		return "+OK\r\n"
	case cmd == "DEL":
		n := 0
		for _, k := range args[1:] {
			if _, ok := s.data[k]; ok {
				delete(s.data, k)
				n++
			}
		}
		return fmt.Sprintf(":%d\r\n", n)
	default:
		return "-ERR unknown command '" + args[0] + "'\r\n"
	}
}

func readCommand(r *bufio.Reader) ([]string, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(line, "*") {
		return nil, fmt.Errorf("unexpected %q", line)
	}
	n, err := strconv.Atoi(strings.TrimSpace(line[1:]))
	if err != nil {
		return nil, err
	}
	args := make([]string, 0, n)
	for i := 0; i < n; i++ {
		head, err := r.ReadString('\n')
		if err != nil {
			return nil, err
		}
		size, err := strconv.Atoi(strings.TrimSpace(head[1:]))
		if err != nil {
			return nil, err
		}
		buf := make([]byte, size+2)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, err
		}
		args = append(args, string(buf[:size]))
	}
	return args, nil
}

func TestRedisStore(t *testing.T) {
	srv := newRESPServer(t)
	store := NewRedisStore(srv.client(t))
	ctx := context.Background()

	_, err := store.Get(ctx, KeyTheme)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Set(ctx, KeyTheme, []byte("dark")))
	v, err := store.Get(ctx, KeyTheme)
	require.NoError(t, err)
	assert.Equal(t, "dark", string(v))

	srv.mu.Lock()
	assert.Equal(t, "dark", srv.data[redisPrefix+KeyTheme])
	srv.mu.Unlock()

	require.NoError(t, store.Delete(ctx, KeyTheme))
	_, err = store.Get(ctx, KeyTheme)
	assert.ErrorIs(t, err, ErrNotFound)

	// deleting a missing key is not an error
	assert.NoError(t, store.Delete(ctx, KeyTheme))
}

func TestRedisStore_BackendErrors(t *testing.T) {
	srv := newRESPServer(t)
	srv.mu.Lock()
	srv.fail = true
	srv.mu.Unlock()
	store := NewRedisStore(srv.client(t))
	ctx := context.Background()

	_, err := store.Get(ctx, KeyTheme)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "redis get "+KeyTheme)

	err = store.Set(ctx, KeyTheme, []byte("dark"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis set "+KeyTheme)

	err = store.Delete(ctx, KeyTheme)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis del "+KeyTheme)
}
