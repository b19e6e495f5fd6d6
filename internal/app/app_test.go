package app

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApp_ListenFailureShutsDown(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer busy.Close()

	cfg := testConfig(t)
	cfg.Server.Port = busy.Addr().(*net.TCPAddr).Port

	application, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, application.Start(context.Background()))

	done := make(chan struct{})
	go func() {
		application.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("app did not shut down after the API server failed")
	}

	assert.ErrorContains(t, application.Err(), "API server")
	require.NoError(t, application.Stop())
}

func TestApp_CleanShutdownHasNoError(t *testing.T) {
	application, err := New(testConfig(t))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, application.Start(ctx))
	cancel()
	application.Wait()

	require.NoError(t, application.Stop())
	assert.NoError(t, application.Err())
}

func TestApp_FirstFatalErrorWins(t *testing.T) {
	application, err := New(testConfig(t))
	require.NoError(t, err)
	require.NoError(t, application.Start(context.Background()))

	application.fail(fmt.Errorf("first"))
	application.fail(fmt.Errorf("second"))
	application.Wait()

	assert.EqualError(t, application.Err(), "first")
	require.NoError(t, application.Stop())
}
