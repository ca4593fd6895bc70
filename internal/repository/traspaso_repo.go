package repository

import (
	"context"
	"time"

	"fornoro/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TraspasoFilter defines filters for listing transfers.
// Sucursal matches either the source or the target branch.
type TraspasoFilter struct {
	Sucursal string
	Estado   string
	Page     int
	Limit    int
}

type TraspasoRepository interface {
	CreateTx(tx *gorm.DB, t *model.Traspaso) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Traspaso, error)
	FindByIDForUpdateTx(tx *gorm.DB, id uuid.UUID) (*model.Traspaso, error)
	// TransicionarTx flips the status only if the row is still in desde.
	// It returns false when another caller already moved it.
	TransicionarTx(tx *gorm.DB, id uuid.UUID, desde, hacia model.EstadoTraspaso, campos map[string]interface{}) (bool, error)
	List(ctx context.Context, filter TraspasoFilter) ([]model.Traspaso, int64, error)
	DB() *gorm.DB
}

type traspasoRepo struct{ db *gorm.DB }

func NewTraspasoRepository(db *gorm.DB) TraspasoRepository { return &traspasoRepo{db: db} }

func (r *traspasoRepo) DB() *gorm.DB { return r.db }

func (r *traspasoRepo) CreateTx(tx *gorm.DB, t *model.Traspaso) error {
	return tx.Create(t).Error
}

func (r *traspasoRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Traspaso, error) {
	var t model.Traspaso
	err := r.db.WithContext(ctx).Preload("Items").First(&t, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *traspasoRepo) FindByIDForUpdateTx(tx *gorm.DB, id uuid.UUID) (*model.Traspaso, error) {
	var t model.Traspaso
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&t, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	if err := tx.Where("traspaso_id = ?", id).Order("nombre ASC").Find(&t.Items).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *traspasoRepo) TransicionarTx(tx *gorm.DB, id uuid.UUID, desde, hacia model.EstadoTraspaso, campos map[string]interface{}) (bool, error) {
	updates := map[string]interface{}{
		"estado":     hacia,
		"updated_at": time.Now(),
	}
	for k, v := range campos {
		updates[k] = v
	}
	res := tx.Model(&model.Traspaso{}).
		Where("id = ? AND estado = ?", id, desde).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *traspasoRepo) List(ctx context.Context, filter TraspasoFilter) ([]model.Traspaso, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Traspaso{})
	if filter.Sucursal != "" {
		q = q.Where("sucursal_origen = ? OR sucursal_destino = ?", filter.Sucursal, filter.Sucursal)
	}
	if filter.Estado != "" {
		q = q.Where("estado = ?", filter.Estado)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := filter.Page
	limit := filter.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 500 {
		limit = 100
	}
	offset := (page - 1) * limit

	var traspasos []model.Traspaso
	err := q.Preload("Items").Order("created_at DESC").Offset(offset).Limit(limit).Find(&traspasos).Error
	return traspasos, total, err
}
