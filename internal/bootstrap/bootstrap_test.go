package bootstrap

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func testCtx(t *testing.T) context.Context {
	return zctx.Base(context.Background(), zaptest.NewLogger(t))
}

func TestRunStopsAtFirstFailure(t *testing.T) {
	var ran []string
	step := func(name string, err error) Step {
		return Step{Name: name, Run: func(context.Context) error {
			ran = append(ran, name)
			return err
		}}
	}

	err := Run(testCtx(t),
		step("first", nil),
		step("second", errors.New("boom")),
		step("third", nil),
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "second")
	assert.Equal(t, []string{"first", "second"}, ran)
}

func TestWaitTCP(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer func() { _ = ln.Close() }()

	require.NoError(t, WaitTCP(testCtx(t), ln.Addr().String(), 5*time.Second))
}

func TestWaitTCPTimesOut(t *testing.T) {
	// A port from the reserved range that nothing listens on.
	err := WaitTCP(testCtx(t), "127.0.0.1:1", 1500*time.Millisecond)
	assert.Error(t, err)
}

func TestCollectStatic(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()

	require.NoError(t, os.MkdirAll(filepath.Join(src, "css"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "css", "site.css"), []byte("body{}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "logo.svg"), []byte("<svg/>"), 0o644))

	count, err := CollectStatic(src, dst)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	data, err := os.ReadFile(filepath.Join(dst, "css", "site.css"))
	require.NoError(t, err)
	assert.Equal(t, "body{}", string(data))

	// Re-running overwrites without error.
	require.NoError(t, os.WriteFile(filepath.Join(src, "logo.svg"), []byte("<svg>v2</svg>"), 0o644))
	_, err = CollectStatic(src, dst)
	require.NoError(t, err)
	data, err = os.ReadFile(filepath.Join(dst, "logo.svg"))
	require.NoError(t, err)
	assert.Equal(t, "<svg>v2</svg>", string(data))
}

func TestCollectStaticMissingSource(t *testing.T) {
	count, err := CollectStatic(filepath.Join(t.TempDir(), "absent"), t.TempDir())
	require.NoError(t, err)
	assert.Zero(t, count)
}
