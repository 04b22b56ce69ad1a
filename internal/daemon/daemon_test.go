package daemon

import (
	"bufio"
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shaharia-lab/audicord/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tempSocketPath returns a short path; unix socket paths are limited to ~108 bytes
func tempSocketPath(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "acd")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	return filepath.Join(dir, "audicord.sock")
}

func startDaemon(t *testing.T, cfg Config) *Daemon {
	t.Helper()
	if cfg.SocketPath == "" {
		cfg.SocketPath = tempSocketPath(t)
	}
	d := NewDaemon(cfg)
	require.NoError(t, d.Start())
	t.Cleanup(d.Stop)
	return d
}

func TestNewDaemon(t *testing.T) {
	testCases := []struct {
		name        string
		inputCfg    Config
		expectedCfg Config
	}{
		{
			name:     "zero config",
			inputCfg: Config{SocketPath: "/tmp/zero.sock"},
			expectedCfg: Config{
				SocketPath:         "/tmp/zero.sock",
				ShutdownTimeout:    30 * time.Second,
				ReadTimeout:        10 * time.Second,
				WriteTimeout:       10 * time.Second,
				CommandExecTimeout: 5 * time.Second,
			},
		},
		{
			name: "partial config",
			inputCfg: Config{
				SocketPath:      "/tmp/partial.sock",
				ReadTimeout:     5 * time.Second,
				MaxConnections:  50,
				ShutdownTimeout: 15 * time.Second,
			},
			expectedCfg: Config{
				SocketPath:         "/tmp/partial.sock",
				ShutdownTimeout:    15 * time.Second,
				ReadTimeout:        5 * time.Second,
				WriteTimeout:       10 * time.Second,
				CommandExecTimeout: 5 * time.Second,
				MaxConnections:     50,
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			d := NewDaemon(tc.inputCfg)
			require.NotNil(t, d)

			got := d.config
			got.Logger = nil
			assert.Equal(t, tc.expectedCfg, got)
			assert.NotNil(t, d.logger)
			assert.Len(t, d.commands, 3)
			assert.Equal(t, tc.inputCfg.SocketPath, d.SocketPath())
		})
	}
}

func TestDaemon_Commands(t *testing.T) {
	d := startDaemon(t, Config{MaxConnections: 10, Logger: logger.Discard})
	d.RegisterCommand("echo", func(ctx context.Context, args []string) (string, error) {
		return strings.Join(args, " "), nil
	})
	d.RegisterCommand("FAIL", func(ctx context.Context, args []string) (string, error) {
		return "", errors.New("broken")
	})

	client := NewSocketClient(d.SocketPath())
	ctx := context.Background()

	resp, err := client.Execute(ctx, "PING", nil)
	require.NoError(t, err)
	assert.Equal(t, "PONG", resp)

	resp, err = client.Execute(ctx, "echo", []string{"hello", "world"})
	require.NoError(t, err)
	assert.Equal(t, "hello world", resp)

	resp, err = client.Execute(ctx, "STATUS", nil)
	require.NoError(t, err)
	// earlier client connections may not be untracked yet
	assert.Regexp(t, `Connections: \d+ active \(Limit: 10\)`, resp)
	assert.Contains(t, resp, "Commands: 5 registered (ECHO, FAIL, PING, STATUS, STOP)")
	assert.Contains(t, resp, "\nUptime: ")

	_, err = client.Execute(ctx, "FAIL", nil)
	assert.ErrorIs(t, err, ErrCommandFailed)
	assert.Contains(t, err.Error(), "broken")

	_, err = client.Execute(ctx, "NOPE", nil)
	assert.ErrorIs(t, err, ErrCommandFailed)
	assert.Contains(t, err.Error(), "unknown command")
}

func TestDaemon_RawProtocol(t *testing.T) {
	d := startDaemon(t, Config{})

	conn, err := net.Dial("unix", d.SocketPath())
	require.NoError(t, err)
	defer conn.Close()
	r := bufio.NewReader(conn)

	readLine := func() string {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		return strings.TrimRight(line, "\n")
	}

	// several commands on one connection, blank lines ignored
	_, err = conn.Write([]byte("\nping\nSTATUS\n"))
	require.NoError(t, err)

	assert.Equal(t, "PONG", readLine())
	assert.Equal(t, EndMarker, readLine())
	assert.True(t, strings.HasPrefix(readLine(), "OK: Connections:"))
}

func TestDaemon_CommandTimeout(t *testing.T) {
	const timeout = 20 * time.Millisecond
	d := startDaemon(t, Config{CommandExecTimeout: timeout})
	d.RegisterCommand("SLOW", func(ctx context.Context, args []string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	d.RegisterCommand("STUCK", func(ctx context.Context, args []string) (string, error) {
		// ignores ctx
		<-release
		return "late", nil
	})

	testCases := []struct {
		name    string
		command string
	}{
		{"handler honours ctx", "SLOW"},
		{"handler ignores ctx", "STUCK"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			conn, err := net.Dial("unix", d.SocketPath())
			require.NoError(t, err)
			defer conn.Close()
			require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))

			started := time.Now()
			_, err = conn.Write([]byte(tc.command + "\n"))
			require.NoError(t, err)

			resp, err := readResponse(bufio.NewReader(conn))
			require.NoError(t, err)
			assert.Equal(t, "TIMEOUT: command '"+tc.command+"' timed out after 20ms", resp)
			assert.Less(t, time.Since(started), 500*time.Millisecond)
		})
	}

	_, err := NewSocketClient(d.SocketPath()).Execute(context.Background(), "SLOW", nil)
	assert.ErrorIs(t, err, ErrCommandFailed)
	assert.Contains(t, err.Error(), "TIMEOUT:")
}

func TestDaemon_StopCommand(t *testing.T) {
	d := startDaemon(t, Config{})

	resp, err := NewSocketClient(d.SocketPath()).Execute(context.Background(), "STOP", nil)
	require.NoError(t, err)
	assert.Equal(t, "Daemon stop initiated.", resp)

	select {
	case <-d.Done():
	case <-time.After(time.Second):
		t.Fatal("daemon did not stop")
	}
	d.Wait()

	_, err = os.Stat(d.SocketPath())
	assert.True(t, os.IsNotExist(err), "socket file removed")
	assert.Error(t, d.Start(), "cannot restart a stopped daemon")
}

func TestDaemon_MaxConnections(t *testing.T) {
	d := startDaemon(t, Config{MaxConnections: 1})

	first, err := net.Dial("unix", d.SocketPath())
	require.NoError(t, err)
	defer first.Close()

	// make sure the first connection is registered before dialing again
	_, err = first.Write([]byte("PING\n"))
	require.NoError(t, err)
	resp, err := readResponse(bufio.NewReader(first))
	require.NoError(t, err)
	require.Equal(t, "PONG", resp)

	second, err := net.Dial("unix", d.SocketPath())
	require.NoError(t, err)
	defer second.Close()
	require.NoError(t, second.SetReadDeadline(time.Now().Add(time.Second)))

	resp, err = readResponse(bufio.NewReader(second))
	require.NoError(t, err)
	assert.Equal(t, "ERROR: too many connections", resp)
}

func TestDaemon_ReadTimeout(t *testing.T) {
	d := startDaemon(t, Config{ReadTimeout: 30 * time.Millisecond})

	conn, err := net.Dial("unix", d.SocketPath())
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))

	resp, err := readResponse(bufio.NewReader(conn))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(resp, "TIMEOUT:"))
}

func TestDaemon_StopClosesClients(t *testing.T) {
	d := NewDaemon(Config{SocketPath: tempSocketPath(t), ShutdownTimeout: time.Second})
	require.NoError(t, d.Start())

	conn, err := net.Dial("unix", d.SocketPath())
	require.NoError(t, err)
	defer conn.Close()

	// wait until the connection is tracked
	assert.Eventually(t, func() bool {
		d.connMu.RLock()
		defer d.connMu.RUnlock()
		return len(d.connections) == 1
	}, time.Second, 5*time.Millisecond)

	d.Stop()
	d.Stop()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	_, err = conn.Read(make([]byte, 1))
	assert.Error(t, err)
}

func TestIsRunning(t *testing.T) {
	t.Run("no socket file", func(t *testing.T) {
		assert.False(t, IsRunning(tempSocketPath(t), nil))
	})

	t.Run("stale socket file is removed", func(t *testing.T) {
		path := tempSocketPath(t)
		require.NoError(t, os.WriteFile(path, nil, 0600))

		assert.False(t, IsRunning(path, logger.Discard))
		_, err := os.Stat(path)
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("running daemon", func(t *testing.T) {
		d := startDaemon(t, Config{})
		assert.True(t, IsRunning(d.SocketPath(), nil))
	})
}

func TestWaitUntilRunning(t *testing.T) {
	path := tempSocketPath(t)
	d := NewDaemon(Config{SocketPath: path})
	t.Cleanup(d.Stop)

	go func() {
		time.Sleep(30 * time.Millisecond)
		_ = d.Start()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	assert.NoError(t, WaitUntilRunning(ctx, path, 10*time.Millisecond))

	ctx, cancel = context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	assert.Error(t, WaitUntilRunning(ctx, tempSocketPath(t), 10*time.Millisecond))
}

func TestSanitize(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty string", "", ""},
		{"printable ascii", "Hello World 123!", "Hello World 123!"},
		{"newline and tab", "Line1\nLine2\tEnd", "Line1\nLine2\tEnd"},
		{"null byte", "Before\x00After", "Before?After"},
		{"unicode", "你好世界 éàç", "你好世界 éàç"},
		{"ansi escape", "\x1b[31mRed\x1b[0m", "?[31mRed?[0m"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, sanitize(tc.input))
		})
	}
}
