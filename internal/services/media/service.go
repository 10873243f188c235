package media

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sparklabs/spark/internal/domain/rules"
	pgrepo "github.com/sparklabs/spark/internal/repo/postgres"
)

var (
	ErrValidation        = errors.New("validation error")
	ErrPhotoNotFound     = errors.New("photo not found")
	ErrPhotoLimitReached = errors.New("photo limit reached")
	ErrUnsupportedType   = errors.New("unsupported content type")
)

const maxPhotoSize = 10 << 20

var allowedContentTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

type PhotoStore interface {
	Insert(ctx context.Context, tx pgx.Tx, userID int64, url, objectKey string, isPrimary bool, position int) (int64, error)
	ListForUser(ctx context.Context, userID int64) ([]pgrepo.PhotoRecord, error)
	CountForUser(ctx context.Context, tx pgx.Tx, userID int64) (int, error)
	Get(ctx context.Context, photoID, userID int64) (pgrepo.PhotoRecord, error)
	Delete(ctx context.Context, tx pgx.Tx, photoID, userID int64) error
	SetPrimary(ctx context.Context, tx pgx.Tx, photoID, userID int64) error
}

type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	PublicURL(key string) string
	Delete(ctx context.Context, key string) error
}

type Photo struct {
	ID        int64
	URL       string
	IsPrimary bool
	Position  int
	CreatedAt time.Time
}

type Dependencies struct {
	Pool    *pgxpool.Pool
	Photos  PhotoStore
	Storage ObjectStorage
}

type Config struct {
	MaxPhotosPerUser int
}

type Service struct {
	photos  PhotoStore
	storage ObjectStorage
	cfg     Config
	runTx   func(ctx context.Context, fn func(context.Context, pgx.Tx) error) error
}

func NewService(deps Dependencies, cfg Config) *Service {
	if cfg.MaxPhotosPerUser <= 0 {
		cfg.MaxPhotosPerUser = rules.MaxPhotosPerUser
	}

	return &Service{
		photos:  deps.Photos,
		storage: deps.Storage,
		cfg:     cfg,
		runTx: func(ctx context.Context, fn func(context.Context, pgx.Tx) error) error {
			return pgrepo.WithTx(ctx, deps.Pool, fn)
		},
	}
}

// Upload stores the object first and inserts the record after, removing the
// object again when the insert fails. The first photo becomes primary.
func (s *Service) Upload(ctx context.Context, userID int64, fileName, contentType string, body io.Reader, size int64) (Photo, error) {
	if userID <= 0 || body == nil {
		return Photo{}, ErrValidation
	}
	if size <= 0 || size > maxPhotoSize {
		return Photo{}, fmt.Errorf("%w: size must be within 1..%d bytes", ErrValidation, maxPhotoSize)
	}
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	ext, ok := allowedContentTypes[contentType]
	if !ok {
		return Photo{}, ErrUnsupportedType
	}

	if err := s.storage.EnsureBucket(ctx); err != nil {
		return Photo{}, fmt.Errorf("ensure bucket: %w", err)
	}

	objectKey, err := buildPhotoObjectKey(userID, fileName, ext)
	if err != nil {
		return Photo{}, fmt.Errorf("build object key: %w", err)
	}

	if err := s.storage.Put(ctx, objectKey, body, size, contentType); err != nil {
		return Photo{}, fmt.Errorf("put object: %w", err)
	}

	url := s.storage.PublicURL(objectKey)

	var photo Photo
	err = s.runTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		count, err := s.photos.CountForUser(ctx, tx, userID)
		if err != nil {
			return fmt.Errorf("count photos: %w", err)
		}
		if count >= s.cfg.MaxPhotosPerUser {
			return ErrPhotoLimitReached
		}

		isPrimary := count == 0
		id, err := s.photos.Insert(ctx, tx, userID, url, objectKey, isPrimary, count)
		if err != nil {
			return fmt.Errorf("insert photo: %w", err)
		}

		photo = Photo{
			ID:        id,
			URL:       url,
			IsPrimary: isPrimary,
			Position:  count,
			CreatedAt: time.Now().UTC(),
		}
		return nil
	})
	if err != nil {
		_ = s.storage.Delete(ctx, objectKey)
		if errors.Is(err, ErrPhotoLimitReached) {
			return Photo{}, ErrPhotoLimitReached
		}
		return Photo{}, err
	}

	return photo, nil
}

func (s *Service) List(ctx context.Context, userID int64) ([]Photo, error) {
	if userID <= 0 {
		return nil, ErrValidation
	}

	records, err := s.photos.ListForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list photos: %w", err)
	}

	photos := make([]Photo, 0, len(records))
	for _, rec := range records {
		photos = append(photos, Photo{
			ID:        rec.ID,
			URL:       rec.URL,
			IsPrimary: rec.IsPrimary,
			Position:  rec.Position,
			CreatedAt: rec.CreatedAt,
		})
	}

	return photos, nil
}

// Delete removes the record and then the object, best effort on the object.
// When the primary photo goes away the oldest remaining one takes its place.
func (s *Service) Delete(ctx context.Context, userID, photoID int64) error {
	if userID <= 0 || photoID <= 0 {
		return ErrValidation
	}

	rec, err := s.photos.Get(ctx, photoID, userID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrPhotoNotFound) {
			return ErrPhotoNotFound
		}
		return fmt.Errorf("get photo: %w", err)
	}

	if err := s.runTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		return s.photos.Delete(ctx, tx, photoID, userID)
	}); err != nil {
		if errors.Is(err, pgrepo.ErrPhotoNotFound) {
			return ErrPhotoNotFound
		}
		return fmt.Errorf("delete photo: %w", err)
	}

	_ = s.storage.Delete(ctx, rec.ObjectKey)

	if rec.IsPrimary {
		if err := s.promoteOldest(ctx, userID); err != nil {
			return err
		}
	}

	return nil
}

func (s *Service) SetPrimary(ctx context.Context, userID, photoID int64) error {
	if userID <= 0 || photoID <= 0 {
		return ErrValidation
	}

	if _, err := s.photos.Get(ctx, photoID, userID); err != nil {
		if errors.Is(err, pgrepo.ErrPhotoNotFound) {
			return ErrPhotoNotFound
		}
		return fmt.Errorf("get photo: %w", err)
	}

	if err := s.runTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		return s.photos.SetPrimary(ctx, tx, photoID, userID)
	}); err != nil {
		return fmt.Errorf("set primary photo: %w", err)
	}

	return nil
}

func (s *Service) promoteOldest(ctx context.Context, userID int64) error {
	remaining, err := s.photos.ListForUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("list remaining photos: %w", err)
	}
	if len(remaining) == 0 {
		return nil
	}

	next := remaining[0]
	for _, rec := range remaining {
		if rec.Position < next.Position {
			next = rec
		}
	}

	if err := s.runTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		return s.photos.SetPrimary(ctx, tx, next.ID, userID)
	}); err != nil {
		return fmt.Errorf("promote photo: %w", err)
	}

	return nil
}

func buildPhotoObjectKey(userID int64, fileName, fallbackExt string) (string, error) {
	rnd := make([]byte, 8)
	if _, err := rand.Read(rnd); err != nil {
		return "", err
	}

	ext := strings.ToLower(path.Ext(strings.TrimSpace(fileName)))
	if ext == "" {
		ext = fallbackExt
	}

	stamp := time.Now().UTC().Format("20060102T150405")
	return fmt.Sprintf("users/%d/photos/%s_%s%s", userID, stamp, hex.EncodeToString(rnd), ext), nil
}
