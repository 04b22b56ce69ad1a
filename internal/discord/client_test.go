package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/shaharia-lab/audicord/internal/media"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDiscord is a minimal IPC server that records commands it receives
type fakeDiscord struct {
	t        *testing.T
	listener net.Listener
	dir      string

	mu         sync.Mutex
	handshakes []handshake
	commands   []map[string]any

	// reply customises the response to a command; nil echoes a success
	reply func(cmd map[string]any) any
	// pingFirst sends a PING before answering each command
	pingFirst bool
	pongs     int
}

func newFakeDiscord(t *testing.T) *fakeDiscord {
	t.Helper()
	dir, err := os.MkdirTemp("", "dipc")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })

	l, err := net.Listen("unix", filepath.Join(dir, "discord-ipc-0"))
	require.NoError(t, err)

	f := &fakeDiscord{t: t, listener: l, dir: dir}
	t.Cleanup(func() { l.Close() })
	go f.serve(l)
	return f
}

func (f *fakeDiscord) serve(l net.Listener) {
	for {
		conn, err := l.Accept()
		if err != nil {
			return
		}
		go f.handle(conn)
	}
}

func (f *fakeDiscord) handle(conn net.Conn) {
	defer conn.Close()

	op, body, err := readFrame(conn)
	if err != nil || op != OpHandshake {
		return
	}
	var hs handshake
	_ = json.Unmarshal(body, &hs)
	f.mu.Lock()
	f.handshakes = append(f.handshakes, hs)
	f.mu.Unlock()

	if err := writeFrame(conn, OpFrame, map[string]any{"cmd": "DISPATCH", "evt": "READY", "data": map[string]any{"v": 1}}); err != nil {
		return
	}

	for {
		op, body, err := readFrame(conn)
		if err != nil {
			return
		}
		switch op {
		case OpClose:
			return
		case OpPong:
			f.mu.Lock()
			f.pongs++
			f.mu.Unlock()
			continue
		}

		var cmd map[string]any
		_ = json.Unmarshal(body, &cmd)
		f.mu.Lock()
		f.commands = append(f.commands, cmd)
		reply := f.reply
		pingFirst := f.pingFirst
		f.mu.Unlock()

		if pingFirst {
			_ = writeFrame(conn, OpPing, map[string]any{"hello": 1})
		}
		// unrelated frame that must be skipped
		_ = writeFrame(conn, OpFrame, map[string]any{"cmd": "DISPATCH", "evt": "ACTIVITY_JOIN", "nonce": "other"})

		var resp any = map[string]any{"cmd": cmd["cmd"], "nonce": cmd["nonce"], "data": map[string]any{}}
		if reply != nil {
			resp = reply(cmd)
		}
		if err := writeFrame(conn, OpFrame, resp); err != nil {
			return
		}
	}
}

func (f *fakeDiscord) getenv(key string) string {
	if key == "XDG_RUNTIME_DIR" {
		return f.dir
	}
	return ""
}

func (f *fakeDiscord) recorded() ([]handshake, []map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]handshake(nil), f.handshakes...), append([]map[string]any(nil), f.commands...)
}

func newTestClient(f *fakeDiscord) *Client {
	c := NewClient(Config{ClientID: "1048886631823843368", Timeout: 2 * time.Second})
	c.getenv = f.getenv
	return c
}

func TestClient_SetActivity(t *testing.T) {
	f := newFakeDiscord(t)
	c := newTestClient(f)
	defer c.Close()

	err := c.SetActivity(context.Background(), media.NewActivity(media.MediaInfo{Artist: "artist", Title: "title", Album: "album"}))
	require.NoError(t, err)
	assert.True(t, c.Connected())

	handshakes, commands := f.recorded()
	require.Len(t, handshakes, 1)
	assert.Equal(t, handshake{V: 1, ClientID: "1048886631823843368"}, handshakes[0])

	require.Len(t, commands, 1)
	assert.Equal(t, "SET_ACTIVITY", commands[0]["cmd"])
	assert.NotEmpty(t, commands[0]["nonce"])

	args := commands[0]["args"].(map[string]any)
	assert.Equal(t, float64(os.Getpid()), args["pid"])
	activity := args["activity"].(map[string]any)
	assert.Equal(t, "Playing artist - title", activity["details"])
	assert.Equal(t, "From album", activity["state"])
}

func TestClient_SetActivityWithoutAlbumOmitsState(t *testing.T) {
	f := newFakeDiscord(t)
	c := newTestClient(f)
	defer c.Close()

	require.NoError(t, c.SetActivity(context.Background(), media.NewActivity(media.MediaInfo{Artist: "a", Title: "t"})))

	_, commands := f.recorded()
	activity := commands[0]["args"].(map[string]any)["activity"].(map[string]any)
	_, hasState := activity["state"]
	assert.False(t, hasState)
}

func TestClient_SetActivityTruncatesLongFields(t *testing.T) {
	f := newFakeDiscord(t)
	c := newTestClient(f)
	defer c.Close()

	artists := strings.Repeat("Ärtist & ", 20)
	require.NoError(t, c.SetActivity(context.Background(), media.NewActivity(media.MediaInfo{Artist: artists, Title: "t", Album: strings.Repeat("日本", 100)})))

	_, commands := f.recorded()
	activity := commands[0]["args"].(map[string]any)["activity"].(map[string]any)
	details := activity["details"].(string)
	state := activity["state"].(string)

	assert.Equal(t, maxFieldRunes, utf8.RuneCountInString(details))
	assert.Equal(t, maxFieldRunes, utf8.RuneCountInString(state))
	assert.True(t, utf8.ValidString(details))
	assert.True(t, strings.HasPrefix(details, "Playing Ärtist & "))
	assert.True(t, strings.HasPrefix(state, "From 日本"))
}

func TestTruncate(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		n        int
		expected string
	}{
		{"short", "abc", 5, "abc"},
		{"exact", "abcde", 5, "abcde"},
		{"ascii", "abcdef", 5, "abcde"},
		{"multibyte", "éééééé", 3, "ééé"},
		{"empty", "", 3, ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, truncate(tc.input, tc.n))
		})
	}
}

func TestClient_ClearActivitySendsNull(t *testing.T) {
	f := newFakeDiscord(t)
	c := newTestClient(f)
	defer c.Close()

	require.NoError(t, c.ClearActivity(context.Background()))

	_, commands := f.recorded()
	require.Len(t, commands, 1)
	args := commands[0]["args"].(map[string]any)
	activity, present := args["activity"]
	assert.True(t, present)
	assert.Nil(t, activity)
}

func TestClient_ReusesConnection(t *testing.T) {
	f := newFakeDiscord(t)
	c := newTestClient(f)
	defer c.Close()

	for i := 0; i < 3; i++ {
		require.NoError(t, c.ClearActivity(context.Background()))
	}

	handshakes, commands := f.recorded()
	assert.Len(t, handshakes, 1)
	assert.Len(t, commands, 3)
}

func TestClient_AnswersPing(t *testing.T) {
	f := newFakeDiscord(t)
	f.mu.Lock()
	f.pingFirst = true
	f.mu.Unlock()
	c := newTestClient(f)
	defer c.Close()

	require.NoError(t, c.ClearActivity(context.Background()))
	require.NoError(t, c.ClearActivity(context.Background()))

	assert.Eventually(t, func() bool {
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.pongs == 2
	}, time.Second, 10*time.Millisecond)
}

func TestClient_RejectedCommandKeepsConnection(t *testing.T) {
	f := newFakeDiscord(t)
	f.mu.Lock()
	f.reply = func(cmd map[string]any) any {
		return map[string]any{
			"cmd":   cmd["cmd"],
			"evt":   "ERROR",
			"nonce": cmd["nonce"],
			"data":  map[string]any{"code": 4000, "message": "child \"activity\" fails"},
		}
	}
	f.mu.Unlock()
	c := newTestClient(f)
	defer c.Close()

	err := c.SetActivity(context.Background(), media.Activity{Details: "x"})
	var rejected *RejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, 4000, rejected.Code)
	assert.True(t, c.Connected())
}

func TestClient_NoSocket(t *testing.T) {
	dir := t.TempDir()
	c := NewClient(Config{ClientID: "1"})
	c.getenv = func(key string) string {
		if key == "XDG_RUNTIME_DIR" {
			return dir
		}
		return ""
	}

	err := c.ClearActivity(context.Background())
	assert.ErrorIs(t, err, ErrNoSocket)
	assert.False(t, c.Connected())
}

func TestClient_ReconnectsAfterServerGoesAway(t *testing.T) {
	f := newFakeDiscord(t)
	c := newTestClient(f)
	defer c.Close()

	require.NoError(t, c.ClearActivity(context.Background()))

	// Discord restarts: drop the server side of every connection by closing the
	// listener and starting a new one on the same path.
	f.listener.Close()
	c.mu.Lock()
	c.conn.Close()
	c.mu.Unlock()

	err := c.ClearActivity(context.Background())
	assert.Error(t, err)
	assert.False(t, c.Connected())

	// closing a listener created by Listen unlinks the socket file
	l, err := net.Listen("unix", filepath.Join(f.dir, "discord-ipc-0"))
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	go f.serve(l)

	require.NoError(t, c.ClearActivity(context.Background()))
	assert.True(t, c.Connected())
}

func TestClient_CloseWithoutConnection(t *testing.T) {
	c := NewClient(Config{ClientID: "1"})
	assert.NoError(t, c.Close())
}

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeFrame(&buf, OpFrame, map[string]string{"cmd": "SET_ACTIVITY"}))

	raw := buf.Bytes()
	assert.Equal(t, []byte{1, 0, 0, 0}, raw[0:4], "opcode is little endian")
	assert.Equal(t, byte(len(raw)-headerSize), raw[4])

	op, body, err := readFrame(&buf)
	require.NoError(t, err)
	assert.Equal(t, OpFrame, op)
	assert.JSONEq(t, `{"cmd":"SET_ACTIVITY"}`, string(body))
}

func TestReadFrame_RejectsOversizedPayload(t *testing.T) {
	header := []byte{1, 0, 0, 0, 0xff, 0xff, 0xff, 0x7f}
	_, _, err := readFrame(bytes.NewReader(header))
	assert.Error(t, err)
}

func TestReadFrame_Truncated(t *testing.T) {
	_, _, err := readFrame(bytes.NewReader([]byte{1, 0, 0}))
	assert.Error(t, err)

	_, _, err = readFrame(bytes.NewReader([]byte{1, 0, 0, 0, 10, 0, 0, 0, '{'}))
	assert.Error(t, err)
}

func TestSocketCandidates(t *testing.T) {
	t.Run("xdg runtime dir wins", func(t *testing.T) {
		env := map[string]string{"XDG_RUNTIME_DIR": "/run/user/1000", "TMPDIR": "/var/tmp"}
		paths := SocketCandidates(func(k string) string { return env[k] })
		require.Len(t, paths, 30)
		assert.Equal(t, "/run/user/1000/discord-ipc-0", paths[0])
		assert.Equal(t, "/run/user/1000/discord-ipc-9", paths[9])
		assert.Equal(t, "/run/user/1000/app/com.discordapp.Discord/discord-ipc-0", paths[10])
		assert.Equal(t, "/run/user/1000/snap.discord/discord-ipc-0", paths[20])
	})

	t.Run("falls back to tmp", func(t *testing.T) {
		paths := SocketCandidates(func(string) string { return "" })
		assert.Equal(t, "/tmp/discord-ipc-0", paths[0])
	})

	t.Run("tmp variables in order", func(t *testing.T) {
		env := map[string]string{"TMP": "/a", "TEMP": "/b"}
		paths := SocketCandidates(func(k string) string { return env[k] })
		assert.Equal(t, "/a/discord-ipc-0", paths[0])
	})
}

func TestOpcodeString(t *testing.T) {
	assert.Equal(t, "FRAME", OpFrame.String())
	assert.Equal(t, "OPCODE(9)", Opcode(9).String())
}
