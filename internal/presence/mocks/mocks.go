package mocks

import (
	"context"
	"time"

	"github.com/shaharia-lab/audicord/internal/media"
	"github.com/stretchr/testify/mock"
)

// MockPresence is a mock implementation of discord.Presence
type MockPresence struct {
	mock.Mock
}

func (m *MockPresence) SetActivity(ctx context.Context, activity media.Activity) error {
	args := m.Called(ctx, activity)
	return args.Error(0)
}

func (m *MockPresence) ClearActivity(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockPresence) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockRecorder is a mock implementation of presence.Recorder
type MockRecorder struct {
	mock.Mock
}

func (m *MockRecorder) Record(ctx context.Context, info media.MediaInfo, at time.Time) (bool, error) {
	args := m.Called(ctx, info, at)
	return args.Bool(0), args.Error(1)
}
