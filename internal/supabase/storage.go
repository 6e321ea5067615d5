package supabase

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	storage "github.com/supabase-community/storage-go"

	"nastia-backend/internal/metrics"
)

// StorageClient persists generated artifacts to a public storage bucket.
type StorageClient struct {
	client  *storage.Client
	bucket  string
	baseURL string
}

func NewStorageClient(supabaseURL, serviceKey, bucket string) (*StorageClient, error) {
	baseURL := strings.TrimSuffix(supabaseURL, "/")
	client := storage.NewClient(baseURL+"/storage/v1", serviceKey, nil)

	return &StorageClient{
		client:  client,
		bucket:  bucket,
		baseURL: baseURL,
	}, nil
}

// Store uploads the artifact under a collision-resistant filename and
// returns its public URL. Soft failure: on upload error it returns "" so a
// finished generation is still delivered to the caller.
func (s *StorageClient) Store(data []byte, ext, contentType string) string {
	filename := fmt.Sprintf("%d_%s.%s", time.Now().Unix(), randomSuffix(), ext)

	_, err := s.client.UploadFile(s.bucket, filename, bytes.NewReader(data), storage.FileOptions{
		ContentType: &contentType,
	})
	if err != nil {
		metrics.StorageUploadFailures.Inc()
		log.Error().Err(err).Str("filename", filename).Msg("artifact upload failed, returning empty reference")
		return ""
	}

	return s.PublicURL(filename)
}

func (s *StorageClient) PublicURL(filename string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", s.baseURL, s.bucket, filename)
}

func randomSuffix() string {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("%08x", time.Now().UnixNano()&0xffffffff)
	}
	return hex.EncodeToString(b)
}
