package objstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"
)

// S3Store is the production object-store backend. The client is injected by
// the caller; this type holds no credentials or connection state of its own.
// Overwrite-disallowed writes use a conditional put (If-None-Match) so two
// concurrent writers cannot silently clobber each other.
type S3Store struct {
	client *s3.Client
	logger *zap.Logger
}

func NewS3Store(client *s3.Client, logger *zap.Logger) *S3Store {
	return &S3Store{client: client, logger: logger}
}

func (s *S3Store) Get(ctx context.Context, bucket, key string) (Object, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return Object{}, fmt.Errorf("%w: %s/%s", ErrNotFound, bucket, key)
		}
		return Object{}, fmt.Errorf("getting object %s/%s: %w", bucket, key, err)
	}
	defer out.Body.Close()
	body, err := io.ReadAll(out.Body)
	if err != nil {
		return Object{}, fmt.Errorf("reading object body %s/%s: %w", bucket, key, err)
	}
	tags, err := s.GetTags(ctx, bucket, key)
	if err != nil {
		return Object{}, err
	}
	return Object{
		Key:      key,
		Body:     body,
		Metadata: cloneStringMap(out.Metadata),
		Tags:     tags,
	}, nil
}

func (s *S3Store) Put(ctx context.Context, bucket, key string, body []byte, opts PutOptions) error {
	input := &s3.PutObjectInput{
		Bucket:   aws.String(bucket),
		Key:      aws.String(key),
		Body:     bytes.NewReader(body),
		Metadata: opts.Metadata,
	}
	if len(opts.Tags) > 0 {
		input.Tagging = aws.String(encodeTagging(opts.Tags))
	}
	if !opts.OverwriteAllowed {
		input.IfNoneMatch = aws.String("*")
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		if isPreconditionFailed(err) {
			return fmt.Errorf("%w: %s/%s", ErrObjectAlreadyExists, bucket, key)
		}
		return fmt.Errorf("putting object %s/%s: %w", bucket, key, err)
	}
	s.logger.Debug("stored object",
		zap.String("bucket", bucket),
		zap.String("key", key),
		zap.Bool("overwrite_allowed", opts.OverwriteAllowed))
	return nil
}

func (s *S3Store) Exists(ctx context.Context, bucket, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, fmt.Errorf("heading object %s/%s: %w", bucket, key, err)
	}
	return true, nil
}

func (s *S3Store) ListWithSuffix(ctx context.Context, bucket, prefix, suffix string, requireSuccessMarker bool) ([]Object, error) {
	if requireSuccessMarker {
		ok, err := SuccessMarkerExists(ctx, s, bucket, prefix)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%w: %s/%s", ErrSuccessMarkerMissing, bucket, prefix)
		}
	}
	// ListObjectsV2 returns keys in ascending lexicographic order already.
	var objs []Object
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing prefix %s/%s: %w", bucket, prefix, err)
		}
		for _, listed := range page.Contents {
			key := aws.ToString(listed.Key)
			if !strings.HasSuffix(key, suffix) {
				continue
			}
			obj, err := s.Get(ctx, bucket, key)
			if err != nil {
				return nil, err
			}
			objs = append(objs, obj)
		}
	}
	return objs, nil
}

func (s *S3Store) GetTags(ctx context.Context, bucket, key string) (map[string]string, error) {
	out, err := s.client.GetObjectTagging(ctx, &s3.GetObjectTaggingInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("getting tags for %s/%s: %w", bucket, key, err)
	}
	tags := make(map[string]string, len(out.TagSet))
	for _, tag := range out.TagSet {
		tags[aws.ToString(tag.Key)] = aws.ToString(tag.Value)
	}
	return tags, nil
}

func (s *S3Store) ReplaceTags(ctx context.Context, bucket, key string, tags map[string]string) error {
	tagSet := make([]types.Tag, 0, len(tags))
	for _, k := range sortedKeys(tags) {
		tagSet = append(tagSet, types.Tag{Key: aws.String(k), Value: aws.String(tags[k])})
	}
	_, err := s.client.PutObjectTagging(ctx, &s3.PutObjectTaggingInput{
		Bucket:  aws.String(bucket),
		Key:     aws.String(key),
		Tagging: &types.Tagging{TagSet: tagSet},
	})
	if err != nil {
		return fmt.Errorf("replacing tags for %s/%s: %w", bucket, key, err)
	}
	return nil
}

// encodeTagging renders tags as the URL-encoded query string PutObject
// expects, with deterministic key order.
func encodeTagging(tags map[string]string) string {
	values := url.Values{}
	for k, v := range tags {
		values.Set(k, v)
	}
	return values.Encode()
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func isPreconditionFailed(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.ErrorCode() {
	case "PreconditionFailed", "ConditionalRequestConflict":
		return true
	}
	return false
}
