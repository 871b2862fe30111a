// Package quotes implements the orçamento lifecycle: validated
// creation with order-number assignment, partial updates, deletion,
// filtered listing, and the image attachment bookkeeping.
package quotes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/danielrocha92/zero20garage-api-orcamentos/internal/media"
	"github.com/danielrocha92/zero20garage-api-orcamentos/internal/models"
	"github.com/danielrocha92/zero20garage-api-orcamentos/internal/sequence"
	"github.com/danielrocha92/zero20garage-api-orcamentos/validation"
)

// Service owns all reads and writes on the quotes collection.
type Service struct {
	db    *gorm.DB
	seq   *sequence.Allocator
	media media.Host
}

func NewService(db *gorm.DB, seq *sequence.Allocator, host media.Host) *Service {
	return &Service{db: db, seq: seq, media: host}
}

// allocateAttempts bounds how many times Create asks the sequence for
// a fresh number when an allocated one turns out to be claimed already.
const allocateAttempts = 3

// CreateInput is the intake payload. OrderNumber zero means "allocate
// one for me"; a positive value is accepted as-is after a uniqueness
// check.
type CreateInput struct {
	OrderNumber   int64    `json:"orderNumber"`
	Client        string   `json:"client"`
	Phone         string   `json:"phone"`
	Vehicle       string   `json:"vehicle"`
	Plate         string   `json:"plate"`
	Type          string   `json:"type"`
	Parts         []string `json:"parts"`
	Services      []string `json:"services"`
	PartsTotal    float64  `json:"partsTotal"`
	ServicesTotal float64  `json:"servicesTotal"`
	LaborTotal    float64  `json:"laborTotal"`
	GrandTotal    float64  `json:"grandTotal"`
	PaymentMethod string   `json:"paymentMethod"`
	Warranty      string   `json:"warranty"`
	Notes         string   `json:"notes"`
	Status        string   `json:"status"`
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Quote, error) {
	v := validation.Violations{}
	validation.Required("client", in.Client, v)
	validation.Required("type", in.Type, v)
	validation.NonNegative("partsTotal", in.PartsTotal, v)
	validation.NonNegative("servicesTotal", in.ServicesTotal, v)
	validation.NonNegative("laborTotal", in.LaborTotal, v)
	validation.NonNegative("grandTotal", in.GrandTotal, v)
	status := in.Status
	if status == "" {
		status = models.StatusOpen
	}
	if !models.KnownStatus(status) {
		v["status"] = "invalid_value"
	}
	if in.OrderNumber < 0 {
		v["orderNumber"] = "must_be_positive"
	}
	if !v.Empty() {
		return nil, &ValidationError{Violations: v}
	}

	q := models.Quote{
		Client:        in.Client,
		Phone:         in.Phone,
		Vehicle:       in.Vehicle,
		Plate:         in.Plate,
		Type:          in.Type,
		Parts:         datatypes.JSONSlice[string](emptyIfNil(in.Parts)),
		Services:      datatypes.JSONSlice[string](emptyIfNil(in.Services)),
		PartsTotal:    in.PartsTotal,
		ServicesTotal: in.ServicesTotal,
		LaborTotal:    in.LaborTotal,
		GrandTotal:    in.GrandTotal,
		PaymentMethod: in.PaymentMethod,
		Warranty:      in.Warranty,
		Notes:         in.Notes,
		Status:        status,
		Images:        datatypes.NewJSONType([]models.ImageRef{}),
	}

	if in.OrderNumber > 0 {
		taken, err := s.orderNumberTaken(ctx, in.OrderNumber, 0)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, ErrConflict
		}
		q.OrderNumber = in.OrderNumber
		if err := s.db.WithContext(ctx).Create(&q).Error; err != nil {
			if isUniqueViolation(err) {
				// Lost the race against a concurrent create using the
				// same client-supplied number.
				return nil, ErrConflict
			}
			return nil, err
		}
		// Keep the counter ahead of the accepted number so Next never
		// hands it out again.
		if err := s.seq.Advance(ctx, q.OrderNumber); err != nil {
			logrus.WithError(err).WithField("orderNumber", q.OrderNumber).
				Warn("counter not advanced past accepted order number")
		}
		return &q, nil
	}

	for attempt := 0; attempt < allocateAttempts; attempt++ {
		n, err := s.seq.Next(ctx)
		if err != nil {
			if errors.Is(err, sequence.ErrRetriesExhausted) {
				return nil, fmt.Errorf("%w: %v", ErrTransient, err)
			}
			return nil, err
		}
		q.OrderNumber = n
		err = s.db.WithContext(ctx).Create(&q).Error
		if err == nil {
			return &q, nil
		}
		if !isUniqueViolation(err) {
			return nil, err
		}
		// The allocated number was already claimed out of band;
		// allocate a fresh one instead of reporting a conflict the
		// caller did not cause.
	}
	return nil, fmt.Errorf("%w: no free order number after %d allocations", ErrTransient, allocateAttempts)
}

// Patch carries only the fields the caller wants changed; nil means
// "leave as is".
type Patch struct {
	OrderNumber   *int64    `json:"orderNumber"`
	Client        *string   `json:"client"`
	Phone         *string   `json:"phone"`
	Vehicle       *string   `json:"vehicle"`
	Plate         *string   `json:"plate"`
	Type          *string   `json:"type"`
	Parts         *[]string `json:"parts"`
	Services      *[]string `json:"services"`
	PartsTotal    *float64  `json:"partsTotal"`
	ServicesTotal *float64  `json:"servicesTotal"`
	LaborTotal    *float64  `json:"laborTotal"`
	GrandTotal    *float64  `json:"grandTotal"`
	PaymentMethod *string   `json:"paymentMethod"`
	Warranty      *string   `json:"warranty"`
	Notes         *string   `json:"notes"`
	Status        *string   `json:"status"`
}

func (s *Service) Update(ctx context.Context, id uint, p Patch) (*models.Quote, error) {
	q, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	v := validation.Violations{}
	if p.Client != nil {
		validation.Required("client", *p.Client, v)
	}
	if p.Type != nil {
		validation.Required("type", *p.Type, v)
	}
	if p.Status != nil && !models.KnownStatus(*p.Status) {
		v["status"] = "invalid_value"
	}
	for field, val := range map[string]*float64{
		"partsTotal": p.PartsTotal, "servicesTotal": p.ServicesTotal,
		"laborTotal": p.LaborTotal, "grandTotal": p.GrandTotal,
	} {
		if val != nil {
			validation.NonNegative(field, *val, v)
		}
	}
	if p.OrderNumber != nil && *p.OrderNumber <= 0 {
		v["orderNumber"] = "must_be_positive"
	}
	if !v.Empty() {
		return nil, &ValidationError{Violations: v}
	}

	if p.OrderNumber != nil && *p.OrderNumber != q.OrderNumber {
		taken, err := s.orderNumberTaken(ctx, *p.OrderNumber, id)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, ErrConflict
		}
	}

	updates := map[string]any{}
	if p.OrderNumber != nil {
		updates["order_number"] = *p.OrderNumber
	}
	if p.Client != nil {
		updates["client"] = *p.Client
	}
	if p.Phone != nil {
		updates["phone"] = *p.Phone
	}
	if p.Vehicle != nil {
		updates["vehicle"] = *p.Vehicle
	}
	if p.Plate != nil {
		updates["plate"] = *p.Plate
	}
	if p.Type != nil {
		updates["type"] = *p.Type
	}
	if p.Parts != nil {
		updates["parts"] = datatypes.JSONSlice[string](*p.Parts)
	}
	if p.Services != nil {
		updates["services"] = datatypes.JSONSlice[string](*p.Services)
	}
	if p.PartsTotal != nil {
		updates["parts_total"] = *p.PartsTotal
	}
	if p.ServicesTotal != nil {
		updates["services_total"] = *p.ServicesTotal
	}
	if p.LaborTotal != nil {
		updates["labor_total"] = *p.LaborTotal
	}
	if p.GrandTotal != nil {
		updates["grand_total"] = *p.GrandTotal
	}
	if p.PaymentMethod != nil {
		updates["payment_method"] = *p.PaymentMethod
	}
	if p.Warranty != nil {
		updates["warranty"] = *p.Warranty
	}
	if p.Notes != nil {
		updates["notes"] = *p.Notes
	}
	if p.Status != nil {
		updates["status"] = *p.Status
	}
	if len(updates) == 0 {
		return q, nil
	}
	if err := s.db.WithContext(ctx).Model(q).Updates(updates).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrConflict
		}
		return nil, err
	}
	if p.OrderNumber != nil && *p.OrderNumber != q.OrderNumber {
		if err := s.seq.Advance(ctx, *p.OrderNumber); err != nil {
			logrus.WithError(err).WithField("orderNumber", *p.OrderNumber).
				Warn("counter not advanced past accepted order number")
		}
	}
	return s.Get(ctx, id)
}

// Delete removes the quote and best-effort deletes its binaries on the
// media host. Remote failures are logged, never block the delete.
func (s *Service) Delete(ctx context.Context, id uint) error {
	q, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	for _, img := range q.Images.Data() {
		if err := s.media.Delete(ctx, img.ExternalID); err != nil {
			logrus.WithError(err).WithField("externalId", img.ExternalID).
				Warn("orphaned media object after quote delete")
		}
	}
	return s.db.WithContext(ctx).Delete(&models.Quote{}, id).Error
}

func (s *Service) Get(ctx context.Context, id uint) (*models.Quote, error) {
	var q models.Quote
	if err := s.db.WithContext(ctx).First(&q, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &q, nil
}

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// ListFilters narrows and pages the listing. From/To bound CreatedAt
// inclusively.
type ListFilters struct {
	Client string
	Type   string
	From   *time.Time
	To     *time.Time
	Cursor string
	Limit  int
}

// Page is one listing page plus the token for the next one ("" when
// this was the last page).
type Page struct {
	Items      []models.Quote `json:"items"`
	NextCursor string         `json:"nextCursor,omitempty"`
}

func (s *Service) List(ctx context.Context, f ListFilters) (Page, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	dbq := s.db.WithContext(ctx).Model(&models.Quote{})
	if f.Client != "" {
		dbq = dbq.Where("client = ?", f.Client)
	}
	if f.Type != "" {
		dbq = dbq.Where("type = ?", f.Type)
	}
	if f.From != nil {
		dbq = dbq.Where("created_at >= ?", *f.From)
	}
	if f.To != nil {
		dbq = dbq.Where("created_at <= ?", *f.To)
	}
	if f.Cursor != "" {
		createdAt, id, err := decodeCursor(f.Cursor)
		if err != nil {
			return Page{}, &ValidationError{Violations: validation.Violations{"cursor": "malformed"}}
		}
		dbq = dbq.Where("created_at < ? OR (created_at = ? AND id < ?)", createdAt, createdAt, id)
	}

	var items []models.Quote
	if err := dbq.Order("created_at DESC, id DESC").Limit(limit + 1).Find(&items).Error; err != nil {
		return Page{}, err
	}
	page := Page{Items: items}
	if len(items) > limit {
		page.Items = items[:limit]
		last := page.Items[limit-1]
		page.NextCursor = encodeCursor(last.CreatedAt, last.ID)
	}
	return page, nil
}

func (s *Service) orderNumberTaken(ctx context.Context, n int64, excludeID uint) (bool, error) {
	var count int64
	dbq := s.db.WithContext(ctx).Model(&models.Quote{}).Where("order_number = ?", n)
	if excludeID != 0 {
		dbq = dbq.Where("id <> ?", excludeID)
	}
	if err := dbq.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "unique failed")
}
