// Package objectstore provides a NATS JetStream implementation of the
// core.ObjectStore interface, used to archive the original audio samples
// behind cloned voices.
package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// sampleDescription annotates archived objects in the bucket.
const sampleDescription = "voice-clone reference sample"

// SampleArchive implements core.ObjectStore using a NATS JetStream object
// store bucket. Samples are stored exactly as uploaded, keyed by the
// provider-assigned voice identifier.
type SampleArchive struct {
	bucket string
	store  nats.ObjectStore
}

// New creates a SampleArchive over the named bucket, creating the bucket if
// it does not exist and binding to it if it does.
func New(jetstreamContext nats.JetStreamContext, bucketName string) (*SampleArchive, error) {
	store, err := jetstreamContext.CreateObjectStore(&nats.ObjectStoreConfig{
		Bucket:      bucketName,
		Description: fmt.Sprintf("Reference samples for the %s bucket.", bucketName),
		Storage:     nats.FileStorage,
		Replicas:    1,
	})
	if err != nil {
		if !errors.Is(err, jetstream.ErrBucketExists) {
			return nil, fmt.Errorf(
				"failed to create object store bucket '%s': %w",
				bucketName, err,
			)
		}

		store, err = jetstreamContext.ObjectStore(bucketName)
		if err != nil {
			return nil, fmt.Errorf(
				"failed to bind to existing object store bucket '%s': %w",
				bucketName, err,
			)
		}
	}

	return &SampleArchive{
		bucket: bucketName,
		store:  store,
	}, nil
}

// Upload archives a sample under the given key.
func (a *SampleArchive) Upload(_ context.Context, key string, data []byte) error {
	reader := bytes.NewReader(data)

	_, err := a.store.Put(&nats.ObjectMeta{
		Name:        key,
		Description: sampleDescription,
	}, reader)
	if err != nil {
		return fmt.Errorf(
			"failed to put object '%s' to bucket '%s': %w",
			key, a.bucket, err,
		)
	}

	return nil
}

// Download retrieves an archived sample by key.
func (a *SampleArchive) Download(_ context.Context, key string) ([]byte, error) {
	obj, err := a.store.Get(key)
	if err != nil {
		return nil, fmt.Errorf(
			"failed to get object '%s' from bucket '%s': %w",
			key, a.bucket, err,
		)
	}

	data, readErr := io.ReadAll(obj)
	closeErr := obj.Close()

	if readErr != nil {
		return nil, fmt.Errorf("failed to read object '%s': %w", key, readErr)
	}

	if closeErr != nil {
		return data, fmt.Errorf("failed to close object '%s': %w", key, closeErr)
	}

	return data, nil
}
