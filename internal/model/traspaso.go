package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// EstadoTraspaso is the lifecycle state of an inter-branch transfer.
type EstadoTraspaso string

const (
	TraspasoPendiente  EstadoTraspaso = "PENDING"
	TraspasoCompletado EstadoTraspaso = "COMPLETED"
	TraspasoCancelado  EstadoTraspaso = "CANCELLED"
)

// transicionesValidas: COMPLETED and CANCELLED are terminal.
var transicionesValidas = map[EstadoTraspaso][]EstadoTraspaso{
	TraspasoPendiente:  {TraspasoCompletado, TraspasoCancelado},
	TraspasoCompletado: {},
	TraspasoCancelado:  {},
}

// PuedeTransicionar returns true if the transition from actual to siguiente is valid.
func PuedeTransicionar(actual, siguiente EstadoTraspaso) bool {
	for _, s := range transicionesValidas[actual] {
		if s == siguiente {
			return true
		}
	}
	return false
}

// Traspaso moves stock from SucursalOrigen to SucursalDestino.
// Stock leaves the source when the transfer is created (escrow) and reaches the
// target only on confirmed receipt.
type Traspaso struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey"`
	SucursalOrigen  string         `gorm:"type:varchar(64);not null;index"`
	SucursalDestino string         `gorm:"type:varchar(64);not null;index"`
	Estado          EstadoTraspaso `gorm:"type:varchar(20);not null;default:'PENDING';index"`
	CreadoPor       string         `gorm:"not null"`
	RecibidoPor     *string
	RecibidoEn      *time.Time // set only on completion
	CanceladoEn     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time

	Items []ItemTraspaso `gorm:"foreignKey:TraspasoID"`
}

// ItemTraspaso is a snapshot of the ingredient line at send time.
type ItemTraspaso struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey"`
	TraspasoID uuid.UUID       `gorm:"type:uuid;not null;index"`
	InsumoID   uuid.UUID       `gorm:"type:uuid;not null"`
	Nombre     string          `gorm:"not null"`
	Cantidad   decimal.Decimal `gorm:"type:decimal(14,4);not null"`
	Unidad     string          `gorm:"not null"`
	Costo      decimal.Decimal `gorm:"type:decimal(14,4);not null"`
}

// TableName overrides GORM's default pluralization (item_traspasos → items_traspaso).
func (ItemTraspaso) TableName() string { return "items_traspaso" }

// TableName overrides GORM's default pluralization (traspasos is already correct but kept explicit).
func (Traspaso) TableName() string { return "traspasos" }

func (t *Traspaso) BeforeCreate(_ *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

func (it *ItemTraspaso) BeforeCreate(_ *gorm.DB) error {
	if it.ID == uuid.Nil {
		it.ID = uuid.New()
	}
	return nil
}

// Total returns Σ Cantidad × Costo over all lines.
func (t *Traspaso) Total() decimal.Decimal {
	total := decimal.Zero
	for _, it := range t.Items {
		total = total.Add(it.Cantidad.Mul(it.Costo))
	}
	return total
}
