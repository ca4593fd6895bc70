package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type ItemTraspasoRequest struct {
	InsumoID string          `json:"insumo_id" validate:"required,uuid"`
	Cantidad decimal.Decimal `json:"cantidad"  validate:"required,gt=0"`
}

type CrearTraspasoRequest struct {
	SucursalDestino string                `json:"sucursal_destino" validate:"required"`
	Items           []ItemTraspasoRequest `json:"items"            validate:"required,min=1,dive"`
}

// RecibirTraspasoRequest lists the ingredient ids physically checked at the target.
// Every line of the transfer must be present.
type RecibirTraspasoRequest struct {
	Validados []string `json:"validados" validate:"required,dive,uuid"`
}

type TraspasoFilter struct {
	Estado string `form:"estado" validate:"omitempty,oneof=PENDING COMPLETED CANCELLED"`
	Page   int    `form:"page,default=1"   validate:"min=1"`
	Limit  int    `form:"limit,default=50" validate:"min=1,max=500"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type ItemTraspasoResponse struct {
	InsumoID string          `json:"insumo_id"`
	Nombre   string          `json:"nombre"`
	Cantidad decimal.Decimal `json:"cantidad"`
	Unidad   string          `json:"unidad"`
	Costo    decimal.Decimal `json:"costo"`
}

type TraspasoResponse struct {
	ID              string                 `json:"id"`
	SucursalOrigen  string                 `json:"sucursal_origen"`
	SucursalDestino string                 `json:"sucursal_destino"`
	Estado          string                 `json:"estado"`
	Items           []ItemTraspasoResponse `json:"items"`
	Total           decimal.Decimal        `json:"total"`
	CreadoPor       string                 `json:"creado_por"`
	CreatedAt       string                 `json:"created_at"`
	RecibidoPor     *string                `json:"recibido_por"`
	RecibidoEn      *string                `json:"recibido_en"`
	CanceladoEn     *string                `json:"cancelado_en"`
	Advertencias    []string               `json:"advertencias,omitempty"`
}

type TraspasoListResponse struct {
	Data  []TraspasoResponse `json:"data"`
	Total int64              `json:"total"`
	Page  int                `json:"page"`
	Limit int                `json:"limit"`
}
