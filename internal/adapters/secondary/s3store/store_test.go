package s3store

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"triton-deployer/internal/core/domain"
)

// fakeS3 keeps objects in memory and pages listings two keys at a time.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}}
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) UploadPart(context.Context, *s3.UploadPartInput, ...func(*s3.Options)) (*s3.UploadPartOutput, error) {
	panic("multipart upload not expected")
}

func (f *fakeS3) CreateMultipartUpload(context.Context, *s3.CreateMultipartUploadInput, ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
	panic("multipart upload not expected")
}

func (f *fakeS3) CompleteMultipartUpload(context.Context, *s3.CompleteMultipartUploadInput, ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error) {
	panic("multipart upload not expected")
}

func (f *fakeS3) AbortMultipartUpload(context.Context, *s3.AbortMultipartUploadInput, ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error) {
	panic("multipart upload not expected")
}

func (f *fakeS3) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	bucketPrefix := aws.ToString(in.Bucket) + "/"
	var keys []string
	for k := range f.objects {
		if key, ok := strings.CutPrefix(k, bucketPrefix); ok && strings.HasPrefix(key, aws.ToString(in.Prefix)) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	start := 0
	if in.ContinuationToken != nil {
		start, _ = strconv.Atoi(*in.ContinuationToken)
	}
	end := min(start+2, len(keys))

	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(end < len(keys))}
	for _, k := range keys[start:end] {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k)})
	}
	if end < len(keys) {
		out.NextContinuationToken = aws.String(strconv.Itoa(end))
	}
	return out, nil
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{Message: aws.String("The specified key does not exist.")}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func TestObjectStore_UploadListGet(t *testing.T) {
	fake := newFakeS3()
	store := NewObjectStoreWithAPI(fake)
	ctx := context.Background()

	dir := t.TempDir()
	files := map[string]string{
		"models/fashion/config.pbtxt":   `name: "fashion"`,
		"models/fashion/1/model.pt":     "weights-v1",
		"models/fashion/3/model.pt":     "weights-v3",
		"models/other/1/model.onnx":     "onnx",
		"models/fashion/3/extra/labels": "cat\ndog",
	}
	for key, body := range files {
		local := filepath.Join(dir, filepath.FromSlash(key))
		require.NoError(t, os.MkdirAll(filepath.Dir(local), 0o755))
		require.NoError(t, os.WriteFile(local, []byte(body), 0o600))
		require.NoError(t, store.Upload(ctx, "bucket", key, local))
	}

	keys, err := store.List(ctx, "bucket", "models/fashion/")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"models/fashion/1/model.pt",
		"models/fashion/3/extra/labels",
		"models/fashion/3/model.pt",
		"models/fashion/config.pbtxt",
	}, keys)

	data, err := store.Get(ctx, "bucket", "models/fashion/config.pbtxt")
	require.NoError(t, err)
	assert.Equal(t, `name: "fashion"`, string(data))
}

func TestObjectStore_GetMissingKey(t *testing.T) {
	store := NewObjectStoreWithAPI(newFakeS3())

	_, err := store.Get(context.Background(), "bucket", "models/nope/config.pbtxt")
	assert.ErrorIs(t, err, domain.ErrObjectNotFound)
}

func TestObjectStore_UploadMissingFile(t *testing.T) {
	store := NewObjectStoreWithAPI(newFakeS3())

	err := store.Upload(context.Background(), "bucket", "k", filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestObjectStore_ListEmptyBucket(t *testing.T) {
	store := NewObjectStoreWithAPI(newFakeS3())

	keys, err := store.List(context.Background(), "bucket", "")
	require.NoError(t, err)
	assert.Empty(t, keys)
}
