package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"mediavault/api/internal/config"
	"mediavault/api/internal/ids"
	"mediavault/api/internal/media/sniffer"
	"mediavault/api/internal/models"
	"mediavault/api/internal/repository"
	"mediavault/api/internal/security"
	"mediavault/api/internal/storage"
)

var (
	ErrInvalidUpload  = errors.New("invalid upload payload")
	ErrInvalidUserIDs = errors.New("invalid user ids")
	// ErrMediaNotFound also covers "exists but caller may not see it" on
	// read paths, so unauthorized probing cannot confirm existence.
	ErrMediaNotFound      = errors.New("media not found")
	ErrForbidden          = errors.New("owner only")
	ErrStorageUnavailable = errors.New("stored bytes unavailable")
)

// CleanupStream receives byte-cleanup tasks for objects whose metadata is
// already gone; a storage janitor consumes it.
const CleanupStream = "media:cleanup"

// MediaStore is the metadata persistence surface of the engine.
type MediaStore interface {
	Create(ctx context.Context, media models.Media) error
	GetByID(ctx context.Context, id string) (models.Media, error)
	ListByOwner(ctx context.Context, ownerID string) ([]models.Media, error)
	UpdateAllowList(ctx context.Context, id string, allowedUserIDs []string) error
	Delete(ctx context.Context, id string) error
}

// BlobStore is the byte-store collaborator; keys are opaque handles.
type BlobStore interface {
	Bucket() string
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Remove(ctx context.Context, key string) error
}

type MediaService struct {
	media MediaStore
	blobs BlobStore
	queue *redis.Client
	cfg   *config.AppConfig
	log   zerolog.Logger
}

func NewMediaService(media MediaStore, blobs BlobStore, queue *redis.Client, cfg *config.AppConfig, log zerolog.Logger) *MediaService {
	return &MediaService{
		media: media,
		blobs: blobs,
		queue: queue,
		cfg:   cfg,
		log:   log,
	}
}

type UploadInput struct {
	Identity security.TokenClaims
	File     multipart.File
	Header   *multipart.FileHeader
}

// Upload accepts JPEG only: the declared type and the magic bytes must both
// agree before anything is stored. The part streams straight into the blob
// store; it is never buffered whole.
func (s *MediaService) Upload(ctx context.Context, input UploadInput) (models.Media, error) {
	if input.File == nil || input.Header == nil {
		return models.Media{}, ErrInvalidUpload
	}
	if input.Header.Size <= 0 || input.Header.Size > s.cfg.Upload.MaxSizeBytes {
		return models.Media{}, ErrInvalidUpload
	}

	if declared := sniffer.DeclaredMIME(input.Header.Header); declared != "" && declared != sniffer.MIMEJPEG {
		return models.Media{}, ErrInvalidUpload
	}

	head := make([]byte, 512)
	n, err := io.ReadFull(input.File, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return models.Media{}, fmt.Errorf("read head: %w", err)
	}
	head = head[:n]

	if !sniffer.IsJPEG(head) {
		return models.Media{}, ErrInvalidUpload
	}

	mediaID := ids.New()
	objectKey := buildObjectKey(mediaID)

	body := io.MultiReader(bytes.NewReader(head), input.File)
	if err := s.blobs.Put(ctx, objectKey, body, input.Header.Size, sniffer.MIMEJPEG); err != nil {
		return models.Media{}, fmt.Errorf("store bytes: %w", err)
	}

	media := models.Media{
		ID:             mediaID,
		OwnerID:        input.Identity.UserID,
		AllowedUserIDs: []string{},
		FileName:       input.Header.Filename,
		MimeType:       sniffer.MIMEJPEG,
		SizeBytes:      input.Header.Size,
		Bucket:         s.blobs.Bucket(),
		ObjectKey:      objectKey,
	}

	if err := s.media.Create(ctx, media); err != nil {
		// Metadata is the commit point; orphaned bytes go to the janitor.
		s.enqueueCleanup(ctx, media)
		return models.Media{}, fmt.Errorf("save metadata: %w", err)
	}

	s.log.Info().Str("media_id", media.ID).Str("owner_id", media.OwnerID).Msg("media uploaded")
	return media, nil
}

func (s *MediaService) ListOwned(ctx context.Context, userID string) ([]models.Media, error) {
	return s.media.ListByOwner(ctx, userID)
}

// Get authorizes and loads in one read: the owner check and the allow-list
// check both derive from the same row snapshot.
func (s *MediaService) Get(ctx context.Context, mediaID, userID string) (models.Media, error) {
	media, err := s.media.GetByID(ctx, mediaID)
	if err != nil {
		if errors.Is(err, repository.ErrMediaNotFound) {
			return models.Media{}, ErrMediaNotFound
		}
		return models.Media{}, err
	}
	if !media.CanView(userID) {
		return models.Media{}, ErrMediaNotFound
	}
	return media, nil
}

// Download returns the metadata and an open byte stream. The caller owns the
// reader and must close it.
func (s *MediaService) Download(ctx context.Context, mediaID, userID string) (models.Media, io.ReadCloser, error) {
	media, err := s.Get(ctx, mediaID, userID)
	if err != nil {
		return models.Media{}, nil, err
	}

	rc, err := s.blobs.Open(ctx, media.ObjectKey)
	if err != nil {
		if errors.Is(err, storage.ErrObjectMissing) {
			s.log.Error().Str("media_id", media.ID).Msg("stored bytes missing")
			return models.Media{}, nil, ErrStorageUnavailable
		}
		return models.Media{}, nil, err
	}
	return media, rc, nil
}

func (s *MediaService) Delete(ctx context.Context, mediaID, userID string) error {
	media, err := s.media.GetByID(ctx, mediaID)
	if err != nil {
		if errors.Is(err, repository.ErrMediaNotFound) {
			return ErrMediaNotFound
		}
		return err
	}
	if media.OwnerID != userID {
		return ErrForbidden
	}

	if err := s.media.Delete(ctx, mediaID); err != nil {
		if errors.Is(err, repository.ErrMediaNotFound) {
			// Lost a race with another delete; already gone.
			return ErrMediaNotFound
		}
		return err
	}

	s.cleanupBytes(ctx, media)
	s.log.Info().Str("media_id", media.ID).Str("owner_id", media.OwnerID).Msg("media deleted")
	return nil
}

func (s *MediaService) GetPermissions(ctx context.Context, mediaID, userID string) ([]string, error) {
	media, err := s.media.GetByID(ctx, mediaID)
	if err != nil {
		if errors.Is(err, repository.ErrMediaNotFound) {
			return nil, ErrMediaNotFound
		}
		return nil, err
	}
	if media.OwnerID != userID {
		return nil, ErrForbidden
	}
	return media.AllowedUserIDs, nil
}

// SetPermissions replaces the allow-list wholesale. The whole input is
// validated before any write, so a bad element means nothing changes.
func (s *MediaService) SetPermissions(ctx context.Context, mediaID, userID string, userIDs []string) ([]string, error) {
	for _, id := range userIDs {
		if !ids.IsValid(id) {
			return nil, ErrInvalidUserIDs
		}
	}

	media, err := s.media.GetByID(ctx, mediaID)
	if err != nil {
		if errors.Is(err, repository.ErrMediaNotFound) {
			return nil, ErrMediaNotFound
		}
		return nil, err
	}
	if media.OwnerID != userID {
		return nil, ErrForbidden
	}

	allowed := dedupe(userIDs, media.OwnerID)

	if err := s.media.UpdateAllowList(ctx, mediaID, allowed); err != nil {
		if errors.Is(err, repository.ErrMediaNotFound) {
			return nil, ErrMediaNotFound
		}
		return nil, err
	}
	return allowed, nil
}

// cleanupBytes makes a best-effort removal; on failure the task lands on the
// cleanup stream for the janitor. Metadata is gone either way.
func (s *MediaService) cleanupBytes(ctx context.Context, media models.Media) {
	if err := s.blobs.Remove(ctx, media.ObjectKey); err != nil {
		s.log.Warn().Err(err).Str("media_id", media.ID).Msg("byte cleanup deferred")
		s.enqueueCleanup(ctx, media)
	}
}

func (s *MediaService) enqueueCleanup(ctx context.Context, media models.Media) {
	if s.queue == nil {
		return
	}
	err := s.queue.XAdd(ctx, &redis.XAddArgs{
		Stream: CleanupStream,
		Values: map[string]any{
			"type":    "remove",
			"mediaId": media.ID,
			"bucket":  media.Bucket,
			"object":  media.ObjectKey,
		},
	}).Err()
	if err != nil {
		s.log.Warn().Err(err).Str("media_id", media.ID).Msg("enqueue cleanup failed")
	}
}

// dedupe keeps first occurrences and drops the owner, whose access never
// rides on the allow-list.
func dedupe(userIDs []string, ownerID string) []string {
	seen := make(map[string]struct{}, len(userIDs))
	out := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		if id == ownerID {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func buildObjectKey(mediaID string) string {
	datePrefix := time.Now().UTC().Format("2006/01/02")
	return path.Join(datePrefix, mediaID+".jpg")
}
