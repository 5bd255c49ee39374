// Package objstore wraps a bucket/key object store with the small set of
// primitives the data-access layer needs: get/put with metadata and tags,
// existence checks, suffix-filtered listing in lexicographic key order, and
// full-replace tag updates. No caching and no retries happen here; transient
// failures propagate to the caller unchanged.
package objstore

import (
	"context"
	"errors"
)

var (
	ErrNotFound             = errors.New("object does not exist")
	ErrObjectAlreadyExists  = errors.New("object already exists")
	ErrSuccessMarkerMissing = errors.New("success marker does not exist at prefix")
)

// Object is one stored object with its user metadata and tags. Metadata and
// Tags are never nil on read.
type Object struct {
	Key      string
	Body     []byte
	Metadata map[string]string
	Tags     map[string]string
}

// PutOptions control a single write. With OverwriteAllowed false the write
// fails with ErrObjectAlreadyExists when the key is occupied; backends use a
// conditional write where the store supports one, and fall back to a
// best-effort existence check otherwise.
type PutOptions struct {
	Metadata         map[string]string
	Tags             map[string]string
	OverwriteAllowed bool
}

type Store interface {
	// Get returns the object at key, or ErrNotFound.
	Get(ctx context.Context, bucket, key string) (Object, error)
	// Put writes body under key, replacing any existing object, metadata and
	// tags when overwrite is allowed.
	Put(ctx context.Context, bucket, key string, body []byte, opts PutOptions) error
	Exists(ctx context.Context, bucket, key string) (bool, error)
	// ListWithSuffix returns every object under prefix whose key ends in
	// suffix, in lexicographic key order. With requireSuccessMarker true the
	// listing fails with ErrSuccessMarkerMissing unless a marker exists at
	// the prefix.
	ListWithSuffix(ctx context.Context, bucket, prefix, suffix string, requireSuccessMarker bool) ([]Object, error)
	GetTags(ctx context.Context, bucket, key string) (map[string]string, error)
	// ReplaceTags replaces the object's full tag set; tags absent from the
	// new set are dropped, not merged.
	ReplaceTags(ctx context.Context, bucket, key string, tags map[string]string) error
}

func cloneStringMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
