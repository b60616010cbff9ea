package photo

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/oggyb/birdie/internal/app"
	"github.com/oggyb/birdie/internal/db"
	svcErr "github.com/oggyb/birdie/internal/errors"
	"github.com/oggyb/birdie/internal/repository"
)

// MaxPhotos is how many photos a profile holds; upload orders run 1..MaxPhotos.
const MaxPhotos = 6

// ImageStore is the image host.
type ImageStore interface {
	Put(ctx context.Context, key string, body []byte, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

// AddInput is one photo upload.
type AddInput struct {
	Photo       string `json:"photo"`
	UploadOrder int    `json:"upload_order"`
	IsPrimary   bool   `json:"is_primary"`
}

// DeleteResult describes a removed photo.
type DeleteResult struct {
	Message        string `json:"message"`
	DeletedPhotoID uint64 `json:"deletedPhotoId"`
	UploadOrder    int    `json:"uploadOrder"`
}

// Service manages profile photos across the image host and the database.
type Service struct {
	appCtx *app.AppContext
	store  ImageStore
	photos *repository.PhotoRepository
}

// NewPhotoService creates a new Service instance. store may be nil when no
// image host is configured; uploads then fail with InvalidOperation.
func NewPhotoService(appCtx *app.AppContext, store ImageStore) *Service {
	return &Service{
		appCtx: appCtx,
		store:  store,
		photos: repository.NewPhotoRepository(appCtx.DB),
	}
}

// Add uploads a photo and records it in the user's slot.
//
// Behavior:
//   - upload_order must be 1..6 and free; a user holds at most 6 photos.
//   - The slot checks run once before the upload, so a rejected request never
//     reaches the image host, and again under the owner row lock with the
//     insert, so parallel uploads for one user cannot overshoot the limit.
//   - The upload itself runs outside the transaction.
//   - is_primary unsets the user's other primary photo in the same transaction.
//   - If the transaction fails after the upload, the object is deleted again
//     on a best-effort basis.
//
// Example:
//
//	p, err := svc.Add(ctx, 42, AddInput{Photo: "data:image/png;base64,...", UploadOrder: 1, IsPrimary: true})
func (s *Service) Add(ctx context.Context, userID uint64, in AddInput) (*db.Photo, error) {
	log := s.appCtx.Logger.With("user", userID, "order", in.UploadOrder)
	log.Debug("AddPhoto called", "primary", in.IsPrimary)

	if in.UploadOrder < 1 || in.UploadOrder > MaxPhotos {
		return nil, svcErr.InvalidInput(fmt.Sprintf("Upload order must be between 1 and %d", MaxPhotos))
	}
	img, err := DecodeImage(in.Photo)
	if err != nil {
		return nil, err
	}
	if s.store == nil {
		return nil, svcErr.InvalidOperation("Photo uploads are not configured")
	}

	if err := checkSlot(ctx, s.photos, userID, in.UploadOrder, false); err != nil {
		return nil, err
	}

	key := ObjectKey(userID, img)
	url, err := s.store.Put(ctx, key, img.Data, img.ContentType)
	if err != nil {
		return nil, svcErr.Wrap(svcErr.KindTransient, "Failed to upload image", err)
	}

	photo := &db.Photo{
		UserID:      userID,
		PhotoURL:    url,
		ObjectKey:   key,
		UploadOrder: in.UploadOrder,
		IsPrimary:   in.IsPrimary,
	}
	err = s.appCtx.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.photos.WithTx(tx)
		if err := checkSlot(ctx, repo, userID, in.UploadOrder, true); err != nil {
			return err
		}
		if in.IsPrimary {
			if err := repo.ClearPrimary(ctx, userID); err != nil {
				return err
			}
		}
		return repo.Create(ctx, photo)
	})
	if err != nil {
		log.Warn("photo insert failed after upload, removing object", "key", key, "error", err)
		s.removeObject(ctx, key)
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, svcErr.AlreadyExists(fmt.Sprintf("Photo at position %d already exists", in.UploadOrder))
		}
		return nil, err
	}
	return photo, nil
}

// checkSlot fails unless the user exists, holds fewer than MaxPhotos photos
// and has order free. lock takes the owner row lock first; it needs a
// transaction-bound repo.
func checkSlot(ctx context.Context, repo *repository.PhotoRepository, userID uint64, order int, lock bool) error {
	if lock {
		if err := repo.LockOwner(ctx, userID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return svcErr.NotFound("User not found")
			}
			return err
		}
	} else {
		ok, err := repo.OwnerExists(ctx, userID)
		if err != nil {
			return err
		}
		if !ok {
			return svcErr.NotFound("User not found")
		}
	}

	n, err := repo.Count(ctx, userID)
	if err != nil {
		return err
	}
	if n >= MaxPhotos {
		return svcErr.InvalidOperation(fmt.Sprintf("User already has maximum of %d photos", MaxPhotos))
	}

	taken, err := repo.OrderTaken(ctx, userID, order)
	if err != nil {
		return err
	}
	if taken {
		return svcErr.AlreadyExists(fmt.Sprintf("Photo at position %d already exists", order))
	}
	return nil
}

// List returns the user's photos, primary first, then by upload order.
func (s *Service) List(ctx context.Context, userID uint64) ([]db.Photo, error) {
	rows, err := s.photos.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []db.Photo{}
	}
	return rows, nil
}

// Get returns one of the user's photos.
func (s *Service) Get(ctx context.Context, userID, photoID uint64) (*db.Photo, error) {
	p, err := s.photos.Get(ctx, userID, photoID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, svcErr.NotFound("Photo not found")
	}
	return p, err
}

func (s *Service) Count(ctx context.Context, userID uint64) (int64, error) {
	return s.photos.Count(ctx, userID)
}

// Primary returns the user's primary photo.
func (s *Service) Primary(ctx context.Context, userID uint64) (*db.Photo, error) {
	p, err := s.photos.Primary(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, svcErr.NotFound("No primary photo found")
	}
	return p, err
}

// SetPrimary makes photoID the user's only primary photo.
func (s *Service) SetPrimary(ctx context.Context, userID, photoID uint64) (*db.Photo, error) {
	err := s.appCtx.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.photos.WithTx(tx)
		if _, err := repo.Get(ctx, userID, photoID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return svcErr.NotFound("Photo not found")
			}
			return err
		}
		if err := repo.ClearPrimary(ctx, userID); err != nil {
			return err
		}
		_, err := repo.SetPrimary(ctx, userID, photoID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, userID, photoID)
}

// Reorder assigns upload orders 1..n to photoIDs in the given sequence.
// photoIDs must be exactly the user's photos.
func (s *Service) Reorder(ctx context.Context, userID uint64, photoIDs []uint64) ([]db.Photo, error) {
	if len(photoIDs) == 0 || len(photoIDs) > MaxPhotos {
		return nil, svcErr.InvalidInput(fmt.Sprintf("photo_ids must list 1 to %d photos", MaxPhotos))
	}
	seen := make(map[uint64]bool, len(photoIDs))
	for _, id := range photoIDs {
		if seen[id] {
			return nil, svcErr.InvalidInput("photo_ids must not repeat")
		}
		seen[id] = true
	}

	err := s.appCtx.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.photos.WithTx(tx)
		if err := repo.LockOwner(ctx, userID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return svcErr.NotFound("User not found")
			}
			return err
		}
		current, err := repo.ListForUser(ctx, userID)
		if err != nil {
			return err
		}
		if len(current) != len(photoIDs) {
			return svcErr.InvalidInput("photo_ids must list every photo of the user")
		}
		for _, p := range current {
			if !seen[p.ID] {
				return svcErr.InvalidInput("photo_ids must list every photo of the user")
			}
		}

		// park every photo on a negative slot first so the unique
		// (user_id, upload_order) index never sees two rows in one slot
		for i, id := range photoIDs {
			if _, err := repo.SetOrder(ctx, userID, id, -(i + 1)); err != nil {
				return err
			}
		}
		for i, id := range photoIDs {
			if _, err := repo.SetOrder(ctx, userID, id, i+1); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.List(ctx, userID)
}

// Delete removes one photo. The row delete is authoritative; the object on
// the image host is removed best-effort.
func (s *Service) Delete(ctx context.Context, userID, photoID uint64) (*DeleteResult, error) {
	p, err := s.Get(ctx, userID, photoID)
	if err != nil {
		return nil, err
	}
	deleted, err := s.photos.Delete(ctx, userID, photoID)
	if err != nil {
		return nil, err
	}
	if !deleted {
		return nil, svcErr.NotFound("Photo not found")
	}
	s.removeObject(ctx, p.ObjectKey)

	return &DeleteResult{
		Message:        "Photo deleted successfully",
		DeletedPhotoID: p.ID,
		UploadOrder:    p.UploadOrder,
	}, nil
}

// DeleteAll removes every photo of the user and returns how many went.
func (s *Service) DeleteAll(ctx context.Context, userID uint64) (int, error) {
	var rows []db.Photo
	err := s.appCtx.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		rows, err = s.photos.WithTx(tx).DeleteAll(ctx, userID)
		return err
	})
	if err != nil {
		return 0, err
	}
	for _, p := range rows {
		s.removeObject(ctx, p.ObjectKey)
	}
	return len(rows), nil
}

func (s *Service) removeObject(ctx context.Context, key string) {
	if s.store == nil || key == "" {
		return
	}
	if err := s.store.Delete(ctx, key); err != nil {
		s.appCtx.Logger.Warn("failed to delete image from host", "key", key, "error", err)
	}
}
