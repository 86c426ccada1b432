package blobstore

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"subjecthub/internal/models"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestPrepareImage(t *testing.T) {
	valid := pngBytes(t)

	tests := []struct {
		name         string
		providedType string
		content      []byte
		maxBytes     int64
		wantErr      bool
	}{
		{"Valid PNG", "image/png", valid, 1024 * 1024, false},
		{"Valid Without Declared Type", "", valid, 1024 * 1024, false},
		{"Empty", "image/png", nil, 1024 * 1024, true},
		{"Too Large", "image/png", valid, 10, true},
		{"Not An Image", "image/png", []byte("<html><body>hi</body></html>"), 1024 * 1024, true},
		{"Truncated PNG", "image/png", valid[:16], 1024 * 1024, true},
		{"Declared Type Mismatch", "image/jpeg", valid, 1024 * 1024, true},
		{"Declared Type With Parameters", "image/PNG; charset=binary", valid, 1024 * 1024, false},
		{"Declared Unsupported Image Type", "image/svg+xml", valid, 1024 * 1024, true},
		{"Declared Generic Type", "application/octet-stream", valid, 1024 * 1024, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obj, err := PrepareImage("photo.png", tt.providedType, tt.content, tt.maxBytes)
			if tt.wantErr {
				assert.ErrorIs(t, err, models.ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "image/png", obj.ContentType)
			assert.Equal(t, int64(len(tt.content)), obj.Size)
			assert.Equal(t, "photo.png", obj.Name)
		})
	}
}

func TestFormatByType(t *testing.T) {
	tests := []struct {
		contentType string
		want        string
		ok          bool
	}{
		{"image/jpeg", "image/jpeg", true},
		{"image/jpg", "image/jpeg", true},
		{"IMAGE/PJPEG", "image/jpeg", true},
		{"image/webp; q=1", "image/webp", true},
		{"image/gif", "image/gif", true},
		{"image/bmp", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.contentType, func(t *testing.T) {
			f, ok := formatByType(tt.contentType)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, f.contentType)
		})
	}
}

func TestNewKey(t *testing.T) {
	assert.True(t, strings.HasSuffix(NewKey("image/jpeg"), ".jpg"))
	assert.True(t, strings.HasSuffix(NewKey("image/webp"), ".webp"))
	assert.NotContains(t, NewKey("application/pdf"), ".")
	assert.NotEqual(t, NewKey("image/png"), NewKey("image/png"))
}

func TestDiskStore_PutDeleteURL(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")
	store, err := NewDiskStore(dir, "/uploads")
	require.NoError(t, err)

	content := pngBytes(t)
	obj, err := PrepareImage("a.png", "image/png", content, 0)
	require.NoError(t, err)

	key, err := store.Put(context.Background(), obj)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(key, ".png"))
	assert.Equal(t, "/uploads/"+key, store.URL(key))

	written, err := os.ReadFile(filepath.Join(dir, key))
	require.NoError(t, err)
	assert.Equal(t, content, written)

	other, err := store.Put(context.Background(), Object{ContentType: "image/png", Body: bytes.NewReader(content)})
	require.NoError(t, err)
	assert.NotEqual(t, key, other)

	require.NoError(t, store.Delete(context.Background(), key))
	_, err = os.Stat(filepath.Join(dir, key))
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, store.Delete(context.Background(), key), "deleting a missing blob is not an error")
}

func TestDiskStore_DeleteStaysInsideDir(t *testing.T) {
	root := t.TempDir()
	outside := filepath.Join(root, "keep.txt")
	require.NoError(t, os.WriteFile(outside, []byte("x"), 0o644))

	store, err := NewDiskStore(filepath.Join(root, "uploads"), "/uploads")
	require.NoError(t, err)

	require.NoError(t, store.Delete(context.Background(), "../keep.txt"))
	_, err = os.Stat(outside)
	assert.NoError(t, err)
}

func TestDiskStore_PutHonoursCancelledContext(t *testing.T) {
	store, err := NewDiskStore(t.TempDir(), "/uploads")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = store.Put(ctx, Object{ContentType: "image/png", Body: bytes.NewReader([]byte("x"))})
	assert.ErrorIs(t, err, context.Canceled)
}

type mockS3 struct {
	mock.Mock
}

func (m *mockS3) PutObject(ctx context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	args := m.Called(ctx, params)
	if out := args.Get(0); out != nil {
		return out.(*s3.PutObjectOutput), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockS3) DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	args := m.Called(ctx, params)
	if out := args.Get(0); out != nil {
		return out.(*s3.DeleteObjectOutput), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestS3Store_PutAndDelete(t *testing.T) {
	client := new(mockS3)
	store := newS3Store(client, "subjects-bucket", "https://cdn.example.com/")

	client.On("PutObject", mock.Anything, mock.MatchedBy(func(in *s3.PutObjectInput) bool {
		return *in.Bucket == "subjects-bucket" &&
			strings.HasPrefix(*in.Key, "subjects/") &&
			strings.HasSuffix(*in.Key, ".png") &&
			*in.ContentType == "image/png" &&
			*in.ContentLength == 3
	})).Return(&s3.PutObjectOutput{}, nil).Once()

	key, err := store.Put(context.Background(), Object{ContentType: "image/png", Size: 3, Body: bytes.NewReader([]byte("abc"))})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/"+key, store.URL(key))

	client.On("DeleteObject", mock.Anything, mock.MatchedBy(func(in *s3.DeleteObjectInput) bool {
		return *in.Bucket == "subjects-bucket" && *in.Key == key
	})).Return(&s3.DeleteObjectOutput{}, nil).Once()

	require.NoError(t, store.Delete(context.Background(), key))
	client.AssertExpectations(t)
}

func TestS3Store_PutFailure(t *testing.T) {
	client := new(mockS3)
	store := newS3Store(client, "b", "https://cdn.example.com")

	client.On("PutObject", mock.Anything, mock.Anything).Return(nil, errors.New("access denied")).Once()

	key, err := store.Put(context.Background(), Object{ContentType: "image/png", Body: bytes.NewReader(nil)})
	assert.Error(t, err)
	assert.Empty(t, key)
	client.AssertExpectations(t)
}
