package quotes

import (
	"context"

	"gorm.io/datatypes"

	"github.com/danielrocha92/zero20garage-api-orcamentos/internal/models"
	"github.com/danielrocha92/zero20garage-api-orcamentos/validation"
)

// Image attachment bookkeeping. Binaries are already on the media host
// when AttachImages runs; these methods only maintain the reference
// list on the quote. The list is replaced wholesale on every mutation,
// so two concurrent attaches on the same quote can lose one of them —
// a known weakness of the original, kept on purpose.

func (s *Service) AttachImages(ctx context.Context, id uint, refs []models.ImageRef) (*models.Quote, error) {
	if len(refs) == 0 {
		return nil, &ValidationError{Violations: validation.Violations{"images": "required"}}
	}
	q, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	imgs := append(q.Images.Data(), refs...)
	return s.replaceImages(ctx, q, imgs)
}

// DetachImage deletes the binary at the media host first; only when
// that succeeds is the reference list rewritten. A remote failure
// surfaces as ExternalServiceError with the metadata untouched.
func (s *Service) DetachImage(ctx context.Context, id uint, externalID string) (*models.Quote, error) {
	q, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.media.Delete(ctx, externalID); err != nil {
		return nil, &ExternalServiceError{Op: "delete", Err: err}
	}
	imgs := q.Images.Data()
	kept := make([]models.ImageRef, 0, len(imgs))
	for _, img := range imgs {
		if img.ExternalID != externalID {
			kept = append(kept, img)
		}
	}
	return s.replaceImages(ctx, q, kept)
}

func (s *Service) replaceImages(ctx context.Context, q *models.Quote, imgs []models.ImageRef) (*models.Quote, error) {
	updates := map[string]any{"images": datatypes.NewJSONType(imgs)}
	if err := s.db.WithContext(ctx).Model(q).Updates(updates).Error; err != nil {
		return nil, err
	}
	return s.Get(ctx, q.ID)
}
