package objstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

// BadgerStore is an embedded object-store backend over BadgerDB, used for
// local development and tests. Badger iterates keys in byte order, which
// gives ListWithSuffix its lexicographic guarantee for free, and the
// overwrite-disallowed check runs inside a single transaction, so this
// backend has none of the check-then-act race of remote stores.
type BadgerStore struct {
	db     *badger.DB
	logger *zap.Logger
}

func NewBadgerStore(db *badger.DB, logger *zap.Logger) *BadgerStore {
	return &BadgerStore{db: db, logger: logger}
}

// envelope is the stored value: body plus the metadata and tags a real
// object store would keep out of band.
type envelope struct {
	Body     []byte            `json:"body"`
	Metadata map[string]string `json:"metadata,omitempty"`
	Tags     map[string]string `json:"tags,omitempty"`
}

func storageKey(bucket, key string) []byte {
	return []byte(bucket + "/" + key)
}

func (s *BadgerStore) Get(ctx context.Context, bucket, key string) (Object, error) {
	var env envelope
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(storageKey(bucket, key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &env)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Object{}, fmt.Errorf("%w: %s/%s", ErrNotFound, bucket, key)
	}
	if err != nil {
		return Object{}, fmt.Errorf("reading object %s/%s: %w", bucket, key, err)
	}
	return Object{
		Key:      key,
		Body:     env.Body,
		Metadata: cloneStringMap(env.Metadata),
		Tags:     cloneStringMap(env.Tags),
	}, nil
}

func (s *BadgerStore) Put(ctx context.Context, bucket, key string, body []byte, opts PutOptions) error {
	val, err := json.Marshal(envelope{
		Body:     body,
		Metadata: opts.Metadata,
		Tags:     opts.Tags,
	})
	if err != nil {
		return err
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		sk := storageKey(bucket, key)
		if !opts.OverwriteAllowed {
			_, err := txn.Get(sk)
			if err == nil {
				return fmt.Errorf("%w: %s/%s", ErrObjectAlreadyExists, bucket, key)
			}
			if !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
		}
		return txn.Set(sk, val)
	})
	if err != nil {
		return err
	}
	s.logger.Debug("stored object",
		zap.String("bucket", bucket),
		zap.String("key", key),
		zap.Bool("overwrite_allowed", opts.OverwriteAllowed))
	return nil
}

func (s *BadgerStore) Exists(ctx context.Context, bucket, key string) (bool, error) {
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(storageKey(bucket, key))
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *BadgerStore) ListWithSuffix(ctx context.Context, bucket, prefix, suffix string, requireSuccessMarker bool) ([]Object, error) {
	if requireSuccessMarker {
		ok, err := SuccessMarkerExists(ctx, s, bucket, prefix)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%w: %s/%s", ErrSuccessMarkerMissing, bucket, prefix)
		}
	}
	bucketPrefix := bucket + "/"
	var objs []Object
	err := s.db.View(func(txn *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.Prefix = storageKey(bucket, prefix)
		it := txn.NewIterator(iterOpts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			key := strings.TrimPrefix(string(item.Key()), bucketPrefix)
			if !strings.HasSuffix(key, suffix) {
				continue
			}
			var env envelope
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &env)
			}); err != nil {
				return err
			}
			objs = append(objs, Object{
				Key:      key,
				Body:     env.Body,
				Metadata: cloneStringMap(env.Metadata),
				Tags:     cloneStringMap(env.Tags),
			})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing prefix %s/%s: %w", bucket, prefix, err)
	}
	return objs, nil
}

func (s *BadgerStore) GetTags(ctx context.Context, bucket, key string) (map[string]string, error) {
	obj, err := s.Get(ctx, bucket, key)
	if err != nil {
		return nil, err
	}
	return obj.Tags, nil
}

func (s *BadgerStore) ReplaceTags(ctx context.Context, bucket, key string, tags map[string]string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		sk := storageKey(bucket, key)
		item, err := txn.Get(sk)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: %s/%s", ErrNotFound, bucket, key)
		}
		if err != nil {
			return err
		}
		var env envelope
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &env)
		}); err != nil {
			return err
		}
		env.Tags = tags
		val, err := json.Marshal(env)
		if err != nil {
			return err
		}
		return txn.Set(sk, val)
	})
}
