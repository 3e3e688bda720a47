// Package objectstore_test tests the sample archive against an embedded NATS
// server.
package objectstore_test

import (
	"context"
	"testing"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats-server/v2/test"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/require"

	"github.com/book-expert/voice-gateway/internal/objectstore"
)

// startTestServer starts an in-memory NATS server with JetStream enabled.
func startTestServer(t *testing.T) (*server.Server, *nats.Conn) {
	t.Helper()

	opts := test.DefaultTestOptions
	opts.Port = -1 // Use a random port
	opts.JetStream = true
	natsServer := test.RunServer(&opts)

	natsConnection, err := nats.Connect(natsServer.ClientURL())
	if err != nil {
		t.Fatalf("Failed to connect to test NATS server: %v", err)
	}

	return natsServer, natsConnection
}

func TestSampleArchive_UploadDownload(t *testing.T) {
	t.Parallel()

	natsServer, natsConnection := startTestServer(t)
	defer natsServer.Shutdown()
	defer natsConnection.Close()

	jetstreamContext, err := natsConnection.JetStream()
	require.NoError(t, err)

	archive, err := objectstore.New(jetstreamContext, "test-samples")
	require.NoError(t, err)

	ctx := context.Background()
	key := "vc-12345.wav"
	sample := []byte("RIFF....WAVEfmt ....")

	require.NoError(t, archive.Upload(ctx, key, sample))

	downloaded, err := archive.Download(ctx, key)
	require.NoError(t, err)
	require.Equal(t, sample, downloaded)
}

func TestSampleArchive_BindToExistingBucket(t *testing.T) {
	t.Parallel()

	natsServer, natsConnection := startTestServer(t)
	defer natsServer.Shutdown()
	defer natsConnection.Close()

	jetstreamContext, err := natsConnection.JetStream()
	require.NoError(t, err)

	first, err := objectstore.New(jetstreamContext, "shared-samples")
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, first.Upload(ctx, "vc-1.wav", []byte("one")))

	// A second archive over the same bucket binds instead of failing.
	second, err := objectstore.New(jetstreamContext, "shared-samples")
	require.NoError(t, err)

	data, err := second.Download(ctx, "vc-1.wav")
	require.NoError(t, err)
	require.Equal(t, []byte("one"), data)
}

func TestSampleArchive_DownloadMissingKey(t *testing.T) {
	t.Parallel()

	natsServer, natsConnection := startTestServer(t)
	defer natsServer.Shutdown()
	defer natsConnection.Close()

	jetstreamContext, err := natsConnection.JetStream()
	require.NoError(t, err)

	archive, err := objectstore.New(jetstreamContext, "empty-samples")
	require.NoError(t, err)

	_, err = archive.Download(context.Background(), "missing.wav")
	require.Error(t, err)
}
