package storage

import (
	"context"
	stderrors "errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"filedrop/internal/pkg/errors"
	"filedrop/internal/platform/config"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStore_PutAndDelete(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir, "http://localhost:8080/files/")
	require.NoError(t, err)
	ctx := context.Background()

	url, err := store.Put(ctx, "1700000000000-report.pdf", "application/pdf", strings.NewReader("hello"), 5)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/files/1700000000000-report.pdf", url)

	data, err := os.ReadFile(filepath.Join(dir, "1700000000000-report.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	require.NoError(t, store.Delete(ctx, url))
	_, err = os.Stat(filepath.Join(dir, "1700000000000-report.pdf"))
	assert.True(t, os.IsNotExist(err))

	// already gone
	assert.NoError(t, store.Delete(ctx, url))
}

func TestLocalStore_ShortWriteCleansUp(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir, "http://localhost/files")
	require.NoError(t, err)

	_, err = store.Put(context.Background(), "a.txt", "text/plain", strings.NewReader("abc"), 10)
	var storageErr *errors.StorageError
	require.True(t, stderrors.As(err, &storageErr))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLocalStore_DeleteForeignURL(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "http://localhost/files")
	require.NoError(t, err)

	err = store.Delete(context.Background(), "https://elsewhere.example.com/a.txt")
	var storageErr *errors.StorageError
	assert.True(t, stderrors.As(err, &storageErr))

	err = store.Delete(context.Background(), "http://localhost/files/../secret")
	assert.True(t, stderrors.As(err, &storageErr))
}

type fakeS3 struct {
	puts    map[string]string
	deletes []string
	failPut error
	failDel error
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.failPut != nil {
		return nil, f.failPut
	}
	body, _ := io.ReadAll(in.Body)
	f.puts[*in.Key] = string(body)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if f.failDel != nil {
		return nil, f.failDel
	}
	f.deletes = append(f.deletes, *in.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3Store(t *testing.T) {
	fake := &fakeS3{puts: map[string]string{}}
	store := newS3Store(fake, config.StorageConfig{S3Bucket: "uploads", S3Region: "eu-west-1"})
	ctx := context.Background()

	url, err := store.Put(ctx, "123-a.txt", "text/plain", strings.NewReader("abc"), 3)
	require.NoError(t, err)
	assert.Equal(t, "https://uploads.s3.eu-west-1.amazonaws.com/123-a.txt", url)
	assert.Equal(t, "abc", fake.puts["123-a.txt"])

	require.NoError(t, store.Delete(ctx, url))
	assert.Equal(t, []string{"123-a.txt"}, fake.deletes)
}

func TestS3Store_Failures(t *testing.T) {
	fake := &fakeS3{puts: map[string]string{}, failPut: stderrors.New("unreachable"), failDel: stderrors.New("unreachable")}
	store := newS3Store(fake, config.StorageConfig{S3Bucket: "uploads", S3Endpoint: "http://minio:9000"})
	ctx := context.Background()

	var storageErr *errors.StorageError
	_, err := store.Put(ctx, "k", "text/plain", strings.NewReader("x"), 1)
	require.True(t, stderrors.As(err, &storageErr))
	assert.Equal(t, "put", storageErr.Op)

	err = store.Delete(ctx, "http://minio:9000/uploads/k")
	require.True(t, stderrors.As(err, &storageErr))
	assert.Equal(t, "delete", storageErr.Op)
}

func TestNew_UnknownDriver(t *testing.T) {
	_, err := New(context.Background(), config.StorageConfig{Driver: "ftp"})
	assert.Error(t, err)
}
