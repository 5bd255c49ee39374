package objstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsdal/internal/timeutil"
)

func TestSuccessMarkerKey(t *testing.T) {
	assert.Equal(t, "my-prefix/__SUCCESS__", SuccessMarkerKey("my-prefix"))
	assert.Equal(t, "my-prefix/__SUCCESS__", SuccessMarkerKey("my-prefix/"))
}

func TestStoreAndGetSuccessMarker(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	metadata := map[string]string{"aggregators": "bing"}
	require.NoError(t, StoreSuccessMarker(ctx, s, testBucket, "my-prefix", metadata))

	obj, err := GetSuccessMarker(ctx, s, testBucket, "my-prefix")
	require.NoError(t, err)
	assert.Equal(t, metadata, obj.Metadata)

	// The marker body is a parseable lexicographic UTC timestamp.
	_, err = timeutil.FromLexicographic(string(obj.Body))
	assert.NoError(t, err)
}

func TestGetSuccessMarker_Missing(t *testing.T) {
	s := newTestStore(t)
	_, err := GetSuccessMarker(context.Background(), s, testBucket, "my-prefix")
	assert.ErrorIs(t, err, ErrSuccessMarkerMissing)
}

func TestSuccessMarkerExists(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ok, err := SuccessMarkerExists(ctx, s, testBucket, "my-prefix")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, StoreSuccessMarker(ctx, s, testBucket, "my-prefix", nil))
	ok, err = SuccessMarkerExists(ctx, s, testBucket, "my-prefix")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStoreSuccessMarker_OverwriteReplacesMetadata(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, StoreSuccessMarker(ctx, s, testBucket, "my-prefix", map[string]string{"aggregators": "bing"}))
	require.NoError(t, StoreSuccessMarker(ctx, s, testBucket, "my-prefix", map[string]string{"aggregators": "bing,gnews"}))

	obj, err := GetSuccessMarker(ctx, s, testBucket, "my-prefix")
	require.NoError(t, err)
	assert.Equal(t, "bing,gnews", obj.Metadata["aggregators"])
}
