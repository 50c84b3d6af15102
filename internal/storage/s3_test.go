package storage

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeS3 内存中的对象存储，支持 If-None-Match 条件写
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	puts    []*s3.PutObjectInput
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte)}
}

func (f *fakeS3) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	prefix := aws.ToString(in.Prefix)
	delim := aws.ToString(in.Delimiter)

	var keys []string
	for k := range f.objects {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		if delim != "" && strings.Contains(strings.TrimPrefix(k, prefix), delim) {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(false)}
	for _, k := range keys {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k)})
	}
	return out, nil
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts = append(f.puts, in)
	key := aws.ToString(in.Key)
	if aws.ToString(in.IfNoneMatch) == "*" {
		if _, ok := f.objects[key]; ok {
			return nil, &smithy.GenericAPIError{Code: "PreconditionFailed", Message: "At least one of the pre-conditions you specified did not hold"}
		}
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[key] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) HeadObject(ctx context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{ContentLength: aws.Int64(int64(len(data)))}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewReader(data)),
		ContentLength: aws.Int64(int64(len(data))),
	}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func tempUpload(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "upload")
	require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	return p
}

func TestS3Store_PlaceListOpenRemove(t *testing.T) {
	fake := newFakeS3()
	s := NewS3StoreWithClient(fake, "cards", "/uploads/")
	ctx := context.Background()

	src := tempUpload(t, "hello")
	require.NoError(t, s.Place(ctx, src, "Alice/自我介绍/Alice_自我介绍.jpg"))
	_, err := os.Stat(src)
	assert.True(t, os.IsNotExist(err))

	require.Len(t, fake.puts, 1)
	assert.Equal(t, "uploads/Alice/自我介绍/Alice_自我介绍.jpg", aws.ToString(fake.puts[0].Key))
	assert.Equal(t, "cards", aws.ToString(fake.puts[0].Bucket))

	// 子目录下的对象不应出现在列表中
	fake.objects["uploads/Alice/自我介绍/nested/x.jpg"] = []byte("x")

	names, err := s.List(ctx, "Alice/自我介绍")
	require.NoError(t, err)
	assert.Equal(t, []string{"Alice_自我介绍.jpg"}, names)

	body, size, err := s.Open(ctx, "Alice/自我介绍/Alice_自我介绍.jpg")
	require.NoError(t, err)
	data, _ := io.ReadAll(body)
	body.Close()
	assert.Equal(t, "hello", string(data))
	assert.Equal(t, int64(5), size)

	require.NoError(t, s.Remove(ctx, "Alice/自我介绍/Alice_自我介绍.jpg"))
	assert.ErrorIs(t, s.Remove(ctx, "Alice/自我介绍/Alice_自我介绍.jpg"), ErrNotExist)

	_, _, err = s.Open(ctx, "Alice/自我介绍/Alice_自我介绍.jpg")
	assert.ErrorIs(t, err, ErrNotExist)
}

func TestS3Store_PlaceConflict(t *testing.T) {
	fake := newFakeS3()
	s := NewS3StoreWithClient(fake, "cards", "")
	ctx := context.Background()

	require.NoError(t, s.Place(ctx, tempUpload(t, "first"), "a/b.txt"))

	second := tempUpload(t, "second")
	assert.ErrorIs(t, s.Place(ctx, second, "a/b.txt"), ErrExists)
	_, err := os.Stat(second)
	assert.NoError(t, err, "temp file kept on conflict")
	assert.Equal(t, "first", string(fake.objects["a/b.txt"]))
}

func TestS3Store_EmptyAndInvalid(t *testing.T) {
	s := NewS3StoreWithClient(newFakeS3(), "cards", "")
	ctx := context.Background()

	names, err := s.List(ctx, "Nobody/自我介绍")
	require.NoError(t, err)
	assert.Empty(t, names)

	ok, err := s.Exists(ctx, "Nobody/x.jpg")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.Exists(ctx, "../x")
	assert.ErrorIs(t, err, ErrInvalidPath)
}
