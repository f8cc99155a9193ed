package settings

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jubileehq/jubilee-backend/pkg/db/models"
)

// Repository reads and writes the single payment settings row.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Find(ctx context.Context) (*models.PaymentSettings, error)
	Save(ctx context.Context, settings *models.PaymentSettings) error
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository binds the settings repository to a connection.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

// Find returns the settings row, creating the default one on first read so
// callers never deal with a missing row.
func (r *repositoryImpl) Find(ctx context.Context) (*models.PaymentSettings, error) {
	var settings models.PaymentSettings
	err := r.db.WithContext(ctx).Order("created_at ASC").First(&settings).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		settings = models.PaymentSettings{
			ID:                  uuid.New(),
			GatewayEnabled:      true,
			BankTransferEnabled: true,
		}
		if createErr := r.db.WithContext(ctx).Create(&settings).Error; createErr != nil {
			return nil, createErr
		}
		return &settings, nil
	}
	if err != nil {
		return nil, err
	}
	return &settings, nil
}

func (r *repositoryImpl) Save(ctx context.Context, settings *models.PaymentSettings) error {
	return r.db.WithContext(ctx).Save(settings).Error
}
