package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Tipos de MovimientoStock.
const (
	MovAltaInicial         = "alta_inicial"
	MovAjusteManual        = "ajuste_manual"
	MovProduccionConsumo   = "produccion_consumo"
	MovProduccionSalida    = "produccion_salida"
	MovAuditoria           = "auditoria"
	MovTraspasoEnvio       = "traspaso_envio"
	MovTraspasoCancelacion = "traspaso_cancelacion"
	MovTraspasoRecepcion   = "traspaso_recepcion"
)

// MovimientoStock registra cada cambio de stock en un insumo.
// Se crea en la misma transacción que el cambio de stock.
type MovimientoStock struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey"`
	InsumoID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	SucursalID    string          `gorm:"type:varchar(64);not null;index"`
	Tipo          string          `gorm:"not null"`
	Cantidad      decimal.Decimal `gorm:"type:decimal(14,4);not null"` // positive = entrada, negative = salida
	StockAnterior decimal.Decimal `gorm:"type:decimal(14,4);not null"`
	StockNuevo    decimal.Decimal `gorm:"type:decimal(14,4);not null"`
	// Valor is Cantidad × costo at the time of the movement
	Valor        decimal.Decimal `gorm:"type:decimal(14,4);not null;default:0"`
	Motivo       string
	Usuario      string
	ReferenciaID *uuid.UUID `gorm:"type:uuid"` // traspaso_id or produccion id if applicable
	CreatedAt    time.Time

	Insumo *Insumo `gorm:"foreignKey:InsumoID"`
}

// TableName overrides GORM's default pluralization (movimiento_stocks → movimientos_stock).
func (MovimientoStock) TableName() string { return "movimientos_stock" }

func (m *MovimientoStock) BeforeCreate(_ *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
