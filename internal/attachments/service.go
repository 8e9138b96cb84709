// Package attachments stores files uploaded against leads. Blobs are sealed
// with age before they reach the storage backend.
package attachments

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/kamalsharma29/crm-dashboard/internal/api/validation"
	"github.com/kamalsharma29/crm-dashboard/internal/authz"
	"github.com/kamalsharma29/crm-dashboard/internal/database/models"
	"github.com/kamalsharma29/crm-dashboard/pkg/crypto"
	"gorm.io/gorm"
)

var (
	ErrLeadNotFound = errors.New("lead not found")
	ErrNotFound     = errors.New("attachment not found")
	ErrDisabled     = errors.New("attachment storage is disabled")
)

type Service struct {
	db     *gorm.DB
	store  Storage
	enc    *crypto.Encryptor
	rules  validation.UploadRules
	logger *slog.Logger
}

func NewService(db *gorm.DB, store Storage, enc *crypto.Encryptor, rules validation.UploadRules, logger *slog.Logger) *Service {
	return &Service{db: db, store: store, enc: enc, rules: rules, logger: logger}
}

func (s *Service) Rules() validation.UploadRules {
	return s.rules
}

// Upload is the file being attached.
type Upload struct {
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
}

func (s *Service) List(ctx context.Context, p authz.Principal, leadID uuid.UUID) ([]models.Attachment, error) {
	if err := s.visibleLead(ctx, p.LeadReadScope(), leadID); err != nil {
		return nil, err
	}

	list := []models.Attachment{}
	if err := s.db.WithContext(ctx).Where("lead_id = ?", leadID).Order("created_at DESC").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("listing attachments: %w", err)
	}
	return list, nil
}

func (s *Service) Upload(ctx context.Context, p authz.Principal, leadID uuid.UUID, up Upload) (*models.Attachment, error) {
	if s.store == nil {
		return nil, ErrDisabled
	}
	if err := s.visibleLead(ctx, p.LeadWriteScope(), leadID); err != nil {
		return nil, err
	}

	name := validation.SafeFileName(up.FileName)
	if up.Size > 0 {
		if err := s.rules.Check(name, up.Size); err != nil {
			return nil, err
		}
	}

	// One byte past the limit is enough to detect an oversized body.
	limit := s.rules.MaxSize
	reader := up.Body
	if limit > 0 {
		reader = io.LimitReader(up.Body, limit+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("reading upload: %w", err)
	}
	if err := s.rules.Check(name, int64(len(data))); err != nil {
		return nil, err
	}

	contentType := up.ContentType
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}

	sealed, err := s.enc.Encrypt(data)
	if err != nil {
		return nil, fmt.Errorf("sealing upload: %w", err)
	}

	att := models.Attachment{
		Base:        models.Base{ID: uuid.New()},
		LeadID:      leadID,
		FileName:    name,
		ContentType: contentType,
		Size:        int64(len(data)),
		UploadedBy:  p.UserID,
	}
	att.StorageKey = fmt.Sprintf("leads/%s/%s", leadID, att.ID)

	if err := s.store.Put(ctx, att.StorageKey, sealed, "application/octet-stream"); err != nil {
		return nil, fmt.Errorf("storing upload: %w", err)
	}
	if err := s.db.WithContext(ctx).Create(&att).Error; err != nil {
		if delErr := s.store.Delete(ctx, att.StorageKey); delErr != nil {
			s.logger.Warn("failed to remove orphaned blob", "key", att.StorageKey, "error", delErr)
		}
		return nil, fmt.Errorf("recording attachment: %w", err)
	}
	return &att, nil
}

// Download returns the attachment metadata and its decrypted contents.
func (s *Service) Download(ctx context.Context, p authz.Principal, leadID, id uuid.UUID) (*models.Attachment, []byte, error) {
	if s.store == nil {
		return nil, nil, ErrDisabled
	}
	if err := s.visibleLead(ctx, p.LeadReadScope(), leadID); err != nil {
		return nil, nil, err
	}

	att, err := s.find(ctx, leadID, id)
	if err != nil {
		return nil, nil, err
	}

	sealed, err := s.store.Get(ctx, att.StorageKey)
	if err != nil {
		if errors.Is(err, ErrObjectNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}
	data, err := s.enc.Decrypt(sealed)
	if err != nil {
		return nil, nil, fmt.Errorf("opening attachment: %w", err)
	}
	return att, data, nil
}

func (s *Service) Delete(ctx context.Context, p authz.Principal, leadID, id uuid.UUID) error {
	if err := s.visibleLead(ctx, p.LeadWriteScope(), leadID); err != nil {
		return err
	}

	att, err := s.find(ctx, leadID, id)
	if err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Unscoped().Delete(att).Error; err != nil {
		return fmt.Errorf("deleting attachment: %w", err)
	}
	if s.store != nil {
		if err := s.store.Delete(ctx, att.StorageKey); err != nil {
			s.logger.Warn("failed to remove blob", "key", att.StorageKey, "error", err)
		}
	}
	return nil
}

func (s *Service) visibleLead(ctx context.Context, scope func(*gorm.DB) *gorm.DB, leadID uuid.UUID) error {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.Lead{}).
		Scopes(scope).
		Where("leads.id = ?", leadID).
		Count(&count).Error
	if err != nil {
		return fmt.Errorf("checking lead: %w", err)
	}
	if count == 0 {
		return ErrLeadNotFound
	}
	return nil
}

func (s *Service) find(ctx context.Context, leadID, id uuid.UUID) (*models.Attachment, error) {
	var att models.Attachment
	err := s.db.WithContext(ctx).Where("id = ? AND lead_id = ?", id, leadID).First(&att).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting attachment: %w", err)
	}
	return &att, nil
}
