package repository

import (
	"context"

	"fornoro/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InsumoRepository defines the data access contract for ingredients.
// Services depend on this interface, not on the concrete GORM implementation.
type InsumoRepository interface {
	Create(ctx context.Context, i *model.Insumo) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Insumo, error)
	// ListAll returns every record of every branch (catalog included) in creation order.
	ListAll(ctx context.Context) ([]model.Insumo, error)
	ListBySucursal(ctx context.Context, sucursal string) ([]model.Insumo, error)
	ListAlertas(ctx context.Context, sucursal string) ([]model.Insumo, error)

	// Used inside transactions; callers must pass the tx instance
	CreateTx(tx *gorm.DB, i *model.Insumo) error
	FindByIDTx(tx *gorm.DB, id uuid.UUID) (*model.Insumo, error)
	// FindByIDForUpdateTx reads the row with SELECT … FOR UPDATE where the dialect supports it.
	FindByIDForUpdateTx(tx *gorm.DB, id uuid.UUID) (*model.Insumo, error)
	FindLocalByNombreTx(tx *gorm.DB, sucursal, nombre string) (*model.Insumo, error)
	ListAllTx(tx *gorm.DB) ([]model.Insumo, error)
	ListBySucursalTx(tx *gorm.DB, sucursal string) ([]model.Insumo, error)
	UpdateDatosTx(tx *gorm.DB, i *model.Insumo) error
	ReplaceComposicionTx(tx *gorm.DB, insumoID uuid.UUID, comp []model.ComponenteReceta) error
	SetStockTx(tx *gorm.DB, id uuid.UUID, stock decimal.Decimal) error
	SetCostoTx(tx *gorm.DB, id uuid.UUID, costo decimal.Decimal) error

	// DB exposes the underlying *gorm.DB so services can open transactions.
	DB() *gorm.DB
}

type insumoRepo struct{ db *gorm.DB }

func NewInsumoRepository(db *gorm.DB) InsumoRepository { return &insumoRepo{db: db} }

func preloadComposicion(db *gorm.DB) *gorm.DB {
	return db.Preload("Composicion", func(q *gorm.DB) *gorm.DB {
		return q.Order("posicion ASC")
	})
}

func (r *insumoRepo) Create(ctx context.Context, i *model.Insumo) error {
	return r.CreateTx(r.db.WithContext(ctx), i)
}

func (r *insumoRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Insumo, error) {
	return r.FindByIDTx(r.db.WithContext(ctx), id)
}

func (r *insumoRepo) ListAll(ctx context.Context) ([]model.Insumo, error) {
	return r.ListAllTx(r.db.WithContext(ctx))
}

func (r *insumoRepo) ListBySucursal(ctx context.Context, sucursal string) ([]model.Insumo, error) {
	return r.ListBySucursalTx(r.db.WithContext(ctx), sucursal)
}

func (r *insumoRepo) ListAlertas(ctx context.Context, sucursal string) ([]model.Insumo, error) {
	var insumos []model.Insumo
	err := r.db.WithContext(ctx).
		Where("sucursal_id = ? AND stock <= stock_minimo", sucursal).
		Order("stock ASC").
		Find(&insumos).Error
	return insumos, err
}

func (r *insumoRepo) CreateTx(tx *gorm.DB, i *model.Insumo) error {
	comp := i.Composicion
	i.Composicion = nil
	if err := tx.Omit(clause.Associations).Create(i).Error; err != nil {
		i.Composicion = comp
		return err
	}
	if err := r.ReplaceComposicionTx(tx, i.ID, comp); err != nil {
		return err
	}
	i.Composicion = comp
	return nil
}

func (r *insumoRepo) FindByIDTx(tx *gorm.DB, id uuid.UUID) (*model.Insumo, error) {
	var i model.Insumo
	err := preloadComposicion(tx).First(&i, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &i, nil
}

func (r *insumoRepo) FindByIDForUpdateTx(tx *gorm.DB, id uuid.UUID) (*model.Insumo, error) {
	var i model.Insumo
	err := preloadComposicion(tx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&i, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &i, nil
}

func (r *insumoRepo) FindLocalByNombreTx(tx *gorm.DB, sucursal, nombre string) (*model.Insumo, error) {
	var i model.Insumo
	err := preloadComposicion(tx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("sucursal_id = ? AND nombre_normalizado = ?", sucursal, model.NormalizarNombre(nombre)).
		First(&i).Error
	if err != nil {
		return nil, err
	}
	return &i, nil
}

func (r *insumoRepo) ListAllTx(tx *gorm.DB) ([]model.Insumo, error) {
	var insumos []model.Insumo
	err := preloadComposicion(tx).Order("created_at ASC, id ASC").Find(&insumos).Error
	return insumos, err
}

func (r *insumoRepo) ListBySucursalTx(tx *gorm.DB, sucursal string) ([]model.Insumo, error) {
	var insumos []model.Insumo
	err := preloadComposicion(tx).
		Where("sucursal_id = ?", sucursal).
		Order("nombre_normalizado ASC").
		Find(&insumos).Error
	return insumos, err
}

// UpdateDatosTx writes the editable definition columns. Stock is never written here.
func (r *insumoRepo) UpdateDatosTx(tx *gorm.DB, i *model.Insumo) error {
	return tx.Model(&model.Insumo{}).Where("id = ?", i.ID).Updates(map[string]interface{}{
		"nombre":             i.Nombre,
		"nombre_normalizado": model.NormalizarNombre(i.Nombre),
		"unidad":             i.Unidad,
		"unidad_compra":      i.UnidadCompra,
		"factor_conversion":  i.FactorConversion,
		"costo":              i.Costo,
		"stock_minimo":       i.StockMinimo,
		"es_sub_receta":      i.EsSubReceta,
		"tamano_lote":        i.TamanoLote,
	}).Error
}

func (r *insumoRepo) ReplaceComposicionTx(tx *gorm.DB, insumoID uuid.UUID, comp []model.ComponenteReceta) error {
	if err := tx.Where("insumo_id = ?", insumoID).Delete(&model.ComponenteReceta{}).Error; err != nil {
		return err
	}
	for idx := range comp {
		comp[idx].ID = uuid.Nil
		comp[idx].InsumoID = insumoID
		comp[idx].Posicion = idx
		if err := tx.Create(&comp[idx]).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *insumoRepo) SetStockTx(tx *gorm.DB, id uuid.UUID, stock decimal.Decimal) error {
	return tx.Model(&model.Insumo{}).Where("id = ?", id).Update("stock", stock).Error
}

func (r *insumoRepo) SetCostoTx(tx *gorm.DB, id uuid.UUID, costo decimal.Decimal) error {
	return tx.Model(&model.Insumo{}).Where("id = ?", id).Update("costo", costo).Error
}

func (r *insumoRepo) DB() *gorm.DB { return r.db }
