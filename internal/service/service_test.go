package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shaharia-lab/audicord/internal/config"
	"github.com/shaharia-lab/audicord/internal/daemon"
	"github.com/shaharia-lab/audicord/internal/history"
	"github.com/shaharia-lab/audicord/internal/logger"
	"github.com/shaharia-lab/audicord/internal/media"
	"github.com/shaharia-lab/audicord/internal/presence"
	"github.com/shaharia-lab/audicord/internal/presence/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// scriptedSource emits its updates, then blocks until ctx ends or fails with err
type scriptedSource struct {
	updates []media.Update
	err     error
}

func (s *scriptedSource) Run(ctx context.Context, out chan<- media.Update) error {
	for _, u := range s.updates {
		select {
		case out <- u:
		case <-ctx.Done():
			return nil
		}
	}
	if s.err != nil {
		return s.err
	}
	<-ctx.Done()
	return nil
}

func socketPath(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "acs")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	return filepath.Join(dir, "audicord.sock")
}

func newPresenceMock() *mocks.MockPresence {
	p := &mocks.MockPresence{}
	p.On("SetActivity", mock.Anything, mock.Anything).Return(nil).Maybe()
	p.On("ClearActivity", mock.Anything).Return(nil).Maybe()
	p.On("Close").Return(nil)
	return p
}

func testSettings() config.Config {
	cfg := config.Default()
	cfg.History.Enabled = false
	return cfg
}

func runAsync(t *testing.T, s *Service) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	t.Cleanup(cancel)

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer waitCancel()
	require.NoError(t, daemon.WaitUntilRunning(waitCtx, s.opts.SocketPath, 10*time.Millisecond))
	return cancel, done
}

func waitResult(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(3 * time.Second):
		t.Fatal("service did not stop")
		return nil
	}
}

func TestNew_Validation(t *testing.T) {
	bad := testSettings()
	bad.Discord.ClientID = ""
	_, err := New(Options{Settings: bad, SocketPath: "/tmp/x.sock"})
	assert.ErrorContains(t, err, "invalid configuration")

	_, err = New(Options{Settings: testSettings()})
	assert.ErrorContains(t, err, "socket path")

	withHistory := testSettings()
	withHistory.History.Enabled = true
	_, err = New(Options{Settings: withHistory, SocketPath: "/tmp/x.sock"})
	assert.ErrorContains(t, err, "database path")

	s, err := New(Options{Settings: testSettings(), SocketPath: "/tmp/x.sock"})
	require.NoError(t, err)
	assert.NotNil(t, s.source, "default watcher")
	assert.NotNil(t, s.presence, "default discord client")
	assert.Equal(t, "", s.HTTPAddr())
}

func TestRun_MirrorsUpdatesAndAnswersNow(t *testing.T) {
	track := &media.MediaInfo{Title: "Song", Artist: "Band", Album: "Record"}
	p := newPresenceMock()
	s, err := New(Options{
		Settings:   testSettings(),
		SocketPath: socketPath(t),
		Logger:     logger.Discard,
		Source:     &scriptedSource{updates: []media.Update{media.NewUpdate(track, media.Playing)}},
		Presence:   p,
	})
	require.NoError(t, err)

	cancel, done := runAsync(t, s)

	assert.Eventually(t, func() bool {
		return s.State().Snapshot().Status == media.Playing.String()
	}, 2*time.Second, 10*time.Millisecond)

	resp, err := daemon.NewSocketClient(s.opts.SocketPath).Execute(context.Background(), "NOW", nil)
	require.NoError(t, err)
	var snap presence.Snapshot
	require.NoError(t, json.Unmarshal([]byte(resp), &snap))
	require.NotNil(t, snap.Track)
	assert.Equal(t, "Song", snap.Track.Title)

	cancel()
	assert.NoError(t, waitResult(t, done))
	p.AssertCalled(t, "SetActivity", mock.Anything, media.NewActivity(*track))
	p.AssertCalled(t, "ClearActivity", mock.Anything)
	p.AssertCalled(t, "Close")
	assert.False(t, daemon.IsRunning(s.opts.SocketPath, nil))
}

func TestRun_StopCommand(t *testing.T) {
	s, err := New(Options{
		Settings:   testSettings(),
		SocketPath: socketPath(t),
		Source:     &scriptedSource{},
		Presence:   newPresenceMock(),
	})
	require.NoError(t, err)

	_, done := runAsync(t, s)

	resp, err := daemon.NewSocketClient(s.opts.SocketPath).Execute(context.Background(), "STOP", nil)
	require.NoError(t, err)
	assert.Equal(t, "Daemon stop initiated.", resp)
	assert.NoError(t, waitResult(t, done))
}

func TestRun_SourceFailure(t *testing.T) {
	s, err := New(Options{
		Settings:   testSettings(),
		SocketPath: socketPath(t),
		Source:     &scriptedSource{err: errors.New("bus gone")},
		Presence:   newPresenceMock(),
	})
	require.NoError(t, err)

	err = s.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bus gone")
}

func TestRun_AlreadyRunning(t *testing.T) {
	path := socketPath(t)
	other := daemon.NewDaemon(daemon.Config{SocketPath: path})
	require.NoError(t, other.Start())
	t.Cleanup(other.Stop)

	s, err := New(Options{Settings: testSettings(), SocketPath: path, Source: &scriptedSource{}, Presence: newPresenceMock()})
	require.NoError(t, err)
	assert.ErrorIs(t, s.Run(context.Background()), ErrAlreadyRunning)
}

func TestRun_HistoryAndHTTP(t *testing.T) {
	cfg := testSettings()
	cfg.History.Enabled = true
	cfg.HTTP.Enabled = true
	dbPath := filepath.Join(t.TempDir(), "history.db")

	track := &media.MediaInfo{Title: "Song", Artist: "Band"}
	s, err := New(Options{
		Settings:    cfg,
		SocketPath:  socketPath(t),
		HistoryPath: dbPath,
		Source:      &scriptedSource{updates: []media.Update{media.NewUpdate(track, media.Playing)}},
		Presence:    newPresenceMock(),
	})
	require.NoError(t, err)
	// any free port
	s.opts.Settings.HTTP.Port = 0

	cancel, done := runAsync(t, s)

	var plays []history.Play
	assert.Eventually(t, func() bool {
		resp, err := http.Get("http://" + s.HTTPAddr() + "/history")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		plays = nil
		return resp.StatusCode == http.StatusOK && json.Unmarshal(body, &plays) == nil && len(plays) == 1
	}, 2*time.Second, 20*time.Millisecond)

	require.Len(t, plays, 1)
	assert.Equal(t, "Song", plays[0].Track.Title)

	cancel()
	assert.NoError(t, waitResult(t, done))
	assert.Equal(t, "", s.HTTPAddr())
}
