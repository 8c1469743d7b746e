package media

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")
	fixedNow  = time.Date(2026, time.March, 9, 12, 0, 0, 0, time.UTC)
)

type object struct {
	body        []byte
	contentType string
}

// fakeBucket is an in-memory ObjectAPI.
type fakeBucket struct {
	mu      sync.Mutex
	objects map[string]object
	err     error
}

func newFakeBucket() *fakeBucket {
	return &fakeBucket{objects: make(map[string]object)}
}

func (b *fakeBucket) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if b.err != nil {
		return nil, b.err
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[aws.ToString(in.Key)] = object{body: body, contentType: aws.ToString(in.ContentType)}
	return &s3.PutObjectOutput{}, nil
}

func (b *fakeBucket) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if b.err != nil {
		return nil, b.err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (b *fakeBucket) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	if b.err != nil {
		return nil, b.err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	var keys []string
	for k := range b.objects {
		if strings.HasPrefix(k, aws.ToString(in.Prefix)) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(false)}
	for _, k := range keys {
		out.Contents = append(out.Contents, types.Object{
			Key:          aws.String(k),
			Size:         aws.Int64(int64(len(b.objects[k].body))),
			LastModified: aws.Time(fixedNow),
		})
	}
	return out, nil
}

func newTestStore(bucket *fakeBucket, maxSize int64) *Store {
	return NewStore(bucket, Config{
		Bucket:    "studio-media",
		PublicURL: "https://media.example.com/",
		MaxSize:   maxSize,
		Now:       func() time.Time { return fixedNow },
	})
}

func TestUploadImage(t *testing.T) {
	bucket := newFakeBucket()
	store := newTestStore(bucket, 0)

	file, err := store.Upload(context.Background(), "Salon Çalışması.PNG", bytes.NewReader(pngHeader))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(file.Key, "uploads/2026/03/"), file.Key)
	assert.True(t, strings.HasSuffix(file.Key, "-salon-calismasi.png"), file.Key)
	assert.Equal(t, "https://media.example.com/"+file.Key, file.URL)
	assert.Equal(t, "image/png", file.ContentType)
	assert.Equal(t, int64(len(pngHeader)), file.Size)

	stored := bucket.objects[file.Key]
	assert.Equal(t, pngHeader, stored.body)
	assert.Equal(t, "image/png", stored.contentType)
}

func TestUploadIsContentAddressed(t *testing.T) {
	store := newTestStore(newFakeBucket(), 0)

	a, err := store.Upload(context.Background(), "a.png", bytes.NewReader(pngHeader))
	require.NoError(t, err)
	b, err := store.Upload(context.Background(), "a.png", bytes.NewReader(pngHeader))
	require.NoError(t, err)

	assert.Equal(t, a.Key, b.Key)
}

func TestUploadPDF(t *testing.T) {
	store := newTestStore(newFakeBucket(), 0)

	file, err := store.Upload(context.Background(), "brochure.pdf", strings.NewReader("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n"))
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, strings.HasSuffix(file.Key, "-brochure.pdf"), file.Key)
}

func TestUploadRejectsUnsupportedType(t *testing.T) {
	store := newTestStore(newFakeBucket(), 0)

	_, err := store.Upload(context.Background(), "notes.png", strings.NewReader("just some text"))
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestUploadRejectsLargeFile(t *testing.T) {
	store := newTestStore(newFakeBucket(), 16)

	_, err := store.Upload(context.Background(), "big.png", bytes.NewReader(pngHeader))
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestUploadFallsBackToGenericName(t *testing.T) {
	store := newTestStore(newFakeBucket(), 0)

	file, err := store.Upload(context.Background(), "!!!.png", bytes.NewReader(pngHeader))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(file.Key, "-file.png"), file.Key)
}

func TestUploadBackendError(t *testing.T) {
	bucket := newFakeBucket()
	bucket.err = errors.New("r2 down")
	store := newTestStore(bucket, 0)

	_, err := store.Upload(context.Background(), "a.png", bytes.NewReader(pngHeader))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "r2 down")
}

func TestListAndDelete(t *testing.T) {
	bucket := newFakeBucket()
	store := newTestStore(bucket, 0)

	file, err := store.Upload(context.Background(), "a.png", bytes.NewReader(pngHeader))
	require.NoError(t, err)
	bucket.objects["other/secret.txt"] = object{body: []byte("x")}

	files, err := store.List(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, file.Key, files[0].Key)
	assert.Equal(t, file.URL, files[0].URL)
	assert.Equal(t, "2026-03-09T12:00:00Z", files[0].LastModified)

	files, err = store.List(context.Background(), "2025/")
	require.NoError(t, err)
	assert.Empty(t, files)

	require.NoError(t, store.Delete(context.Background(), file.Key))
	files, err = store.List(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestDeleteRejectsKeysOutsideUploads(t *testing.T) {
	store := newTestStore(newFakeBucket(), 0)

	for _, key := range []string{"", "uploads/", "other/a.png", "uploads/../secret"} {
		assert.ErrorIs(t, store.Delete(context.Background(), key), ErrInvalidKey, key)
	}
}

func TestR2Endpoint(t *testing.T) {
	assert.Equal(t, "https://abc.r2.cloudflarestorage.com", R2Config{AccountID: "abc"}.endpoint())
	assert.Equal(t, "https://r2.local", R2Config{Endpoint: "https://r2.local", AccountID: "abc"}.endpoint())

	_, err := NewR2Client(context.Background(), R2Config{})
	assert.Error(t, err)
}
