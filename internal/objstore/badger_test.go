package objstore

import (
	"context"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestStore(t *testing.T) *BadgerStore {
	t.Helper()
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	db, err := badger.Open(opts)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewBadgerStore(db, zap.NewNop())
}

const testBucket = "test-bucket"

func TestBadgerStore_PutAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	metadata := map[string]string{"some-key": "some-value"}
	tags := map[string]string{"some-tag-key": "some-tag-value"}
	err := s.Put(ctx, testBucket, "my-prefix/file1.txt", []byte("file1body"), PutOptions{
		Metadata: metadata,
		Tags:     tags,
	})
	require.NoError(t, err)

	obj, err := s.Get(ctx, testBucket, "my-prefix/file1.txt")
	require.NoError(t, err)
	assert.Equal(t, "my-prefix/file1.txt", obj.Key)
	assert.Equal(t, []byte("file1body"), obj.Body)
	assert.Equal(t, metadata, obj.Metadata)
	assert.Equal(t, tags, obj.Tags)
}

func TestBadgerStore_GetMissing(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Get(context.Background(), testBucket, "no/such/key")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBadgerStore_OverwriteDisallowed(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, testBucket, "k", []byte("first"), PutOptions{}))
	err := s.Put(ctx, testBucket, "k", []byte("second"), PutOptions{})
	assert.ErrorIs(t, err, ErrObjectAlreadyExists)

	// The first body must still be in place.
	obj, err := s.Get(ctx, testBucket, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), obj.Body)
}

func TestBadgerStore_OverwriteAllowedReplacesEverything(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, testBucket, "k", []byte("first"), PutOptions{
		Metadata: map[string]string{"m": "1"},
		Tags:     map[string]string{"t": "1"},
	}))
	require.NoError(t, s.Put(ctx, testBucket, "k", []byte("second"), PutOptions{
		OverwriteAllowed: true,
	}))

	obj, err := s.Get(ctx, testBucket, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), obj.Body)
	assert.Empty(t, obj.Metadata, "metadata must be replaced, not merged")
	assert.Empty(t, obj.Tags, "tags must be replaced, not merged")
}

func TestBadgerStore_Exists(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ok, err := s.Exists(ctx, testBucket, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Put(ctx, testBucket, "k", []byte("body"), PutOptions{}))
	ok, err = s.Exists(ctx, testBucket, "k")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestBadgerStore_ListWithSuffix(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Inserted out of order on purpose; listing must come back sorted.
	require.NoError(t, s.Put(ctx, testBucket, "my-prefix/file2.txt", []byte("file2body"), PutOptions{}))
	require.NoError(t, s.Put(ctx, testBucket, "my-prefix/file1.txt", []byte("file1body"), PutOptions{}))
	require.NoError(t, s.Put(ctx, testBucket, "my-prefix/file3.csv", []byte("file3body"), PutOptions{}))
	require.NoError(t, s.Put(ctx, testBucket, "other-prefix/file4.txt", []byte("file4body"), PutOptions{}))

	objs, err := s.ListWithSuffix(ctx, testBucket, "my-prefix/", ".txt", false)
	require.NoError(t, err)
	require.Len(t, objs, 2)
	assert.Equal(t, "my-prefix/file1.txt", objs[0].Key)
	assert.Equal(t, "my-prefix/file2.txt", objs[1].Key)

	objs, err = s.ListWithSuffix(ctx, testBucket, "my-prefix/", ".csv", false)
	require.NoError(t, err)
	require.Len(t, objs, 1)
	assert.Equal(t, []byte("file3body"), objs[0].Body)
}

func TestBadgerStore_ListWithSuffix_SuccessMarkerGate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, testBucket, "my-prefix/file1.txt", []byte("file1body"), PutOptions{}))

	_, err := s.ListWithSuffix(ctx, testBucket, "my-prefix", ".txt", true)
	assert.ErrorIs(t, err, ErrSuccessMarkerMissing)

	// Without the gate the listing succeeds regardless of marker presence.
	objs, err := s.ListWithSuffix(ctx, testBucket, "my-prefix", ".txt", false)
	require.NoError(t, err)
	assert.Len(t, objs, 1)

	require.NoError(t, StoreSuccessMarker(ctx, s, testBucket, "my-prefix", nil))
	objs, err = s.ListWithSuffix(ctx, testBucket, "my-prefix", ".txt", true)
	require.NoError(t, err)
	assert.Len(t, objs, 1)
}

func TestBadgerStore_ReplaceTags(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, testBucket, "k", []byte("body"), PutOptions{
		Tags: map[string]string{"a": "1", "b": "2"},
	}))
	require.NoError(t, s.ReplaceTags(ctx, testBucket, "k", map[string]string{"a": "9"}))

	tags, err := s.GetTags(ctx, testBucket, "k")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "9"}, tags, "old tags must be dropped, not merged")

	err = s.ReplaceTags(ctx, testBucket, "missing", map[string]string{"a": "1"})
	assert.ErrorIs(t, err, ErrNotFound)
}
