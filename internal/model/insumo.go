package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SucursalCatalogo marks a definition-only record: it has no local stock in any branch.
const SucursalCatalogo = "CATALOG"

// Insumo is a raw material or an internally produced sub-recipe.
// The join key across branches is NombreNormalizado, not ID.
type Insumo struct {
	ID                uuid.UUID       `gorm:"type:uuid;primaryKey"`
	SucursalID        string          `gorm:"type:varchar(64);not null;uniqueIndex:idx_insumo_sucursal_nombre"`
	Nombre            string          `gorm:"not null"`
	NombreNormalizado string          `gorm:"not null;uniqueIndex:idx_insumo_sucursal_nombre"`
	Unidad            string          `gorm:"not null;default:'unidad'"`
	UnidadCompra      string          `gorm:"not null;default:'unidad'"`
	FactorConversion  decimal.Decimal `gorm:"type:decimal(14,4);not null;default:1"`
	// Costo is per one Unidad. For sub-recipes it is derived from Composicion.
	Costo       decimal.Decimal `gorm:"type:decimal(14,4);not null;default:0"`
	Stock       decimal.Decimal `gorm:"type:decimal(14,4);not null;default:0"`
	StockMinimo decimal.Decimal `gorm:"type:decimal(14,4);not null;default:0"`
	EsSubReceta bool            `gorm:"not null;default:false"`
	TamanoLote  decimal.Decimal `gorm:"type:decimal(14,4);not null;default:1"`
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Composicion []ComponenteReceta `gorm:"foreignKey:InsumoID"`
}

// ComponenteReceta is one line of a sub-recipe: Cantidad of ComponenteID is consumed
// to produce one TamanoLote of the owning Insumo.
type ComponenteReceta struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey"`
	InsumoID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	ComponenteID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Cantidad     decimal.Decimal `gorm:"type:decimal(14,4);not null"`
	Posicion     int             `gorm:"not null;default:0"`
}

// TableName overrides GORM's default pluralization (componente_recetas → componentes_receta).
func (ComponenteReceta) TableName() string { return "componentes_receta" }

// EsLocal reports whether the record holds stock for the given branch.
func (i *Insumo) EsLocal(sucursal string) bool {
	return i.SucursalID != SucursalCatalogo && i.SucursalID == sucursal
}

func (i *Insumo) BeforeCreate(_ *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	i.NombreNormalizado = NormalizarNombre(i.Nombre)
	return nil
}

func (c *ComponenteReceta) BeforeCreate(_ *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
