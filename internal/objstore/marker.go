package objstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"newsdal/internal/timeutil"
)

// SuccessMarkerName is the sentinel object written at a prefix once every
// object intended for that prefix has been stored.
const SuccessMarkerName = "__SUCCESS__"

// SuccessMarkerKey returns the full key of the marker for prefix.
func SuccessMarkerKey(prefix string) string {
	return strings.TrimSuffix(prefix, "/") + "/" + SuccessMarkerName
}

// StoreSuccessMarker writes or overwrites the marker at prefix. The body is
// the current UTC timestamp in lexicographic form; metadata is stored as
// given, so callers accumulating audit fields read the old marker first.
func StoreSuccessMarker(ctx context.Context, s Store, bucket, prefix string, metadata map[string]string) error {
	body := []byte(timeutil.ToLexicographic(time.Now().UTC()))
	return s.Put(ctx, bucket, SuccessMarkerKey(prefix), body, PutOptions{
		Metadata:         metadata,
		OverwriteAllowed: true,
	})
}

// GetSuccessMarker reads the marker at prefix, failing with
// ErrSuccessMarkerMissing when none exists.
func GetSuccessMarker(ctx context.Context, s Store, bucket, prefix string) (Object, error) {
	obj, err := s.Get(ctx, bucket, SuccessMarkerKey(prefix))
	if errors.Is(err, ErrNotFound) {
		return Object{}, fmt.Errorf("%w: %s/%s", ErrSuccessMarkerMissing, bucket, prefix)
	}
	return obj, err
}

// SuccessMarkerExists reports whether a marker has been written at prefix.
func SuccessMarkerExists(ctx context.Context, s Store, bucket, prefix string) (bool, error) {
	return s.Exists(ctx, bucket, SuccessMarkerKey(prefix))
}
