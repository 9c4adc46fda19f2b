package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/config"
	"go.uber.org/fx/fxtest"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func newTestWriter(t *testing.T, path string) Writer {
	t.Helper()

	provider, err := config.NewYAML(config.Source(strings.NewReader(
		fmt.Sprintf("discoveryFilePath: %q\n", path))))
	require.NoError(t, err)

	w, err := New(Params{
		Config:    provider,
		Lifecycle: fxtest.NewLifecycle(t),
		Logger:    zap.NewNop().Sugar(),
	})
	require.NoError(t, err)
	return w
}

func TestNewRequiresPath(t *testing.T) {
	provider, err := config.NewYAML(config.Source(strings.NewReader("discoveryFilePath:\n")))
	require.NoError(t, err)

	_, err = New(Params{
		Config:    provider,
		Lifecycle: fxtest.NewLifecycle(t),
		Logger:    zap.NewNop().Sugar(),
	})
	assert.Error(t, err)
}

func TestPublish(t *testing.T) {
	path := filepath.Join(t.TempDir(), "herd.json")
	w := newTestWriter(t, path)

	require.NoError(t, w.Publish(Info{Address: "127.0.0.1:5859"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var info Info
	require.NoError(t, json.Unmarshal(data, &info))
	assert.Equal(t, "127.0.0.1:5859", info.Address)
	// PID defaults to the running process.
	assert.Equal(t, os.Getpid(), info.PID)
}

func TestPublishOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "herd.json")
	w := newTestWriter(t, path)

	require.NoError(t, w.Publish(Info{Address: "127.0.0.1:1111"}))
	require.NoError(t, w.Publish(Info{Address: "127.0.0.1:2222", PID: 42}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var info Info
	require.NoError(t, json.Unmarshal(data, &info))
	assert.Equal(t, "127.0.0.1:2222", info.Address)
	assert.Equal(t, 42, info.PID)
}

func TestRemoveOnStop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "herd.json")
	w := newTestWriter(t, path).(*writer)

	require.NoError(t, w.Publish(Info{Address: "127.0.0.1:5859"}))
	require.NoError(t, w.remove(context.Background()))

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	// A second removal is tolerated.
	assert.NoError(t, w.remove(context.Background()))
}

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
