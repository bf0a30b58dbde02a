package artifact

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/smilemakc/mcqflow/internal/domain/apperr"
)

// uploadMetadata mirrors the temp/uploads/<uploadId>/metadata.json shape:
// the highest chunk index received so far plus one (equal to the number of
// chunks received only when they arrive in order), tracked so a resumed upload can
// report progress without re-scanning the directory.
type uploadMetadata struct {
	ChunksReceived int `json:"chunks_received"`
}

// uploadLocks serializes the read-modify-write cycle on one upload's
// metadata.json per uploadID. A later chunk's metadata write can drop an
// earlier chunk's `chunks_received` bump if the two aren't serialized
// around the full read-then-write cycle, not just the write. Holding
// this lock for the whole of SaveChunk's metadata update (not just the
// file write) avoids that race.
type uploadLocks struct {
	mu   sync.Mutex
	byID map[string]*sync.Mutex
}

func newUploadLocks() *uploadLocks {
	return &uploadLocks{byID: make(map[string]*sync.Mutex)}
}

func (u *uploadLocks) get(uploadID string) *sync.Mutex {
	u.mu.Lock()
	defer u.mu.Unlock()
	l, ok := u.byID[uploadID]
	if !ok {
		l = &sync.Mutex{}
		u.byID[uploadID] = l
	}
	return l
}

var chunkLocks = newUploadLocks()

func (s *Store) uploadDir(uploadID string) string {
	return filepath.Join("temp", "uploads", uploadID)
}

func (s *Store) chunkPath(uploadID string, index int) string {
	return filepath.Join(s.uploadDir(uploadID), fmt.Sprintf("chunk_%04d", index))
}

func (s *Store) metadataPath(uploadID string) string {
	return filepath.Join(s.uploadDir(uploadID), "metadata.json")
}

// SaveChunk writes chunk index of uploadID and updates metadata.json's
// chunks_received counter under a per-upload lock held across the whole
// read-modify-write cycle.
func (s *Store) SaveChunk(ctx context.Context, uploadID string, index int, r io.Reader) error {
	lock := chunkLocks.get(uploadID)
	lock.Lock()
	defer lock.Unlock()

	if _, _, err := s.Save(ctx, s.chunkPath(uploadID, index), r); err != nil {
		return fmt.Errorf("artifact: save chunk %d of %s: %w", index, uploadID, err)
	}

	meta, err := s.readMetadataLocked(uploadID)
	if err != nil {
		return err
	}
	if index+1 > meta.ChunksReceived {
		meta.ChunksReceived = index + 1
	}
	return s.writeMetadataLocked(uploadID, meta)
}

func (s *Store) readMetadataLocked(uploadID string) (uploadMetadata, error) {
	f, err := s.Get(context.Background(), s.metadataPath(uploadID))
	if err != nil {
		var nf *apperr.NotFoundError
		if asNotFound(err, &nf) {
			return uploadMetadata{}, nil
		}
		return uploadMetadata{}, fmt.Errorf("artifact: read metadata for %s: %w", uploadID, err)
	}
	defer f.Close()

	var meta uploadMetadata
	if err := json.NewDecoder(f).Decode(&meta); err != nil {
		return uploadMetadata{}, fmt.Errorf("artifact: decode metadata for %s: %w", uploadID, err)
	}
	return meta, nil
}

func (s *Store) writeMetadataLocked(uploadID string, meta uploadMetadata) error {
	raw, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("artifact: marshal metadata for %s: %w", uploadID, err)
	}
	if _, _, err := s.Save(context.Background(), s.metadataPath(uploadID), bytes.NewReader(raw)); err != nil {
		return fmt.Errorf("artifact: write metadata for %s: %w", uploadID, err)
	}
	return nil
}

// CombineChunks streams chunks 0..total-1 of uploadID in order into
// finalPath, failing if any chunk is missing.
func (s *Store) CombineChunks(ctx context.Context, uploadID string, total int, finalPath string) error {
	fullFinal := s.abs(finalPath)
	if err := os.MkdirAll(filepath.Dir(fullFinal), 0o755); err != nil {
		return fmt.Errorf("artifact: mkdir for combined upload: %w", err)
	}

	out, err := os.Create(fullFinal)
	if err != nil {
		return fmt.Errorf("artifact: create combined file %s: %w", finalPath, err)
	}
	defer out.Close()

	for i := 0; i < total; i++ {
		chunk, err := s.Get(ctx, s.chunkPath(uploadID, i))
		if err != nil {
			os.Remove(fullFinal)
			return fmt.Errorf("artifact: missing chunk %d of %s: %w", i, uploadID, err)
		}
		_, copyErr := io.Copy(out, chunk)
		chunk.Close()
		if copyErr != nil {
			os.Remove(fullFinal)
			return fmt.Errorf("artifact: combine chunk %d of %s: %w", i, uploadID, copyErr)
		}
	}

	return nil
}

// DeleteUpload removes an upload's chunk directory entirely.
func (s *Store) DeleteUpload(ctx context.Context, uploadID string) error {
	if err := os.RemoveAll(s.abs(s.uploadDir(uploadID))); err != nil {
		return fmt.Errorf("artifact: delete upload %s: %w", uploadID, err)
	}
	return nil
}

func asNotFound(err error, target **apperr.NotFoundError) bool {
	nf, ok := err.(*apperr.NotFoundError)
	if ok {
		*target = nf
	}
	return ok
}
