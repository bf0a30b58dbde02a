package artifact

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_SaveGetExists(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	content := []byte("hello mcqflow")

	checksum, size, err := s.Save(ctx, "templates/u1/a.jpg", bytes.NewReader(content))
	require.NoError(t, err)
	assert.Equal(t, int64(len(content)), size)
	assert.NotEmpty(t, checksum)

	exists, err := s.Exists(ctx, "templates/u1/a.jpg")
	require.NoError(t, err)
	assert.True(t, exists)

	rc, err := s.Get(ctx, "templates/u1/a.jpg")
	require.NoError(t, err)
	defer rc.Close()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(rc)
	require.NoError(t, err)
	assert.Equal(t, content, buf.Bytes())
}

func TestStore_Get_NotFound(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	_, err = s.Get(context.Background(), "missing/path.json")
	assert.Error(t, err)
}

func TestStore_Delete_Idempotent(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, s.Delete(ctx, "never/existed.json"))

	_, _, err = s.Save(ctx, "a/b.txt", bytes.NewReader([]byte("x")))
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, "a/b.txt"))
	exists, err := s.Exists(ctx, "a/b.txt")
	require.NoError(t, err)
	assert.False(t, exists)

	// deleting again is still not an error
	require.NoError(t, s.Delete(ctx, "a/b.txt"))
}

func TestStore_List(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	paths := []string{
		"results/u1/job1_aaaaaaaa.xlsx",
		"results/u1/job2_bbbbbbbb.xlsx",
		"results/u1/job2_bbbbbbbb.json",
	}
	for _, p := range paths {
		_, _, err := s.Save(ctx, p, bytes.NewReader([]byte("x")))
		require.NoError(t, err)
	}

	xlsx, err := s.List(ctx, "results/u1", "*.xlsx")
	require.NoError(t, err)
	assert.Len(t, xlsx, 2)

	all, err := s.List(ctx, "results/u1", "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestNamePath_Uniqueness(t *testing.T) {
	a := NamePath("uploads/templates/u1", "sheet.png")
	b := NamePath("uploads/templates/u1", "sheet.png")
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasSuffix(a, ".png"))
	assert.True(t, strings.HasPrefix(a, "uploads/templates/u1/sheet_"))
}

func TestStore_ChunkedUpload_CombineInOrder(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	uploadID := "upload-1"
	chunks := []string{"aaa", "bbb", "ccc"}
	for i, c := range chunks {
		require.NoError(t, s.SaveChunk(ctx, uploadID, i, bytes.NewReader([]byte(c))))
	}

	require.NoError(t, s.CombineChunks(ctx, uploadID, len(chunks), "uploads/answer_sheets/u1/final.zip"))

	rc, err := s.Get(ctx, "uploads/answer_sheets/u1/final.zip")
	require.NoError(t, err)
	defer rc.Close()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(rc)
	require.NoError(t, err)
	assert.Equal(t, "aaabbbccc", buf.String())
}

func TestStore_ChunkedUpload_MissingChunkFails(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	uploadID := "upload-2"
	require.NoError(t, s.SaveChunk(ctx, uploadID, 0, bytes.NewReader([]byte("only"))))

	err = s.CombineChunks(ctx, uploadID, 3, "uploads/answer_sheets/u1/final.zip")
	assert.Error(t, err)
}

func TestStore_ChunkedUpload_MetadataSurvivesConcurrentChunks(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	uploadID := "upload-concurrent"

	done := make(chan error, 3)
	for i := 0; i < 3; i++ {
		go func(idx int) {
			done <- s.SaveChunk(ctx, uploadID, idx, bytes.NewReader([]byte("c")))
		}(i)
	}
	for i := 0; i < 3; i++ {
		require.NoError(t, <-done)
	}

	meta, err := s.readMetadataLocked(uploadID)
	require.NoError(t, err)
	assert.Equal(t, 3, meta.ChunksReceived)
}

func TestStore_DeleteUpload(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	uploadID := "upload-3"
	require.NoError(t, s.SaveChunk(ctx, uploadID, 0, bytes.NewReader([]byte("x"))))

	require.NoError(t, s.DeleteUpload(ctx, uploadID))

	exists, err := s.Exists(ctx, s.chunkPath(uploadID, 0))
	require.NoError(t, err)
	assert.False(t, exists)
}
