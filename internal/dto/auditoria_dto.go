package dto

import "github.com/shopspring/decimal"

type ConteoItem struct {
	InsumoID string          `json:"insumo_id" validate:"required,uuid"`
	Cantidad decimal.Decimal `json:"cantidad"  validate:"min=0"`
}

type ConciliarRequest struct {
	Conteo []ConteoItem `json:"conteo" validate:"required,min=1,dive"`
}

type AjusteResponse struct {
	InsumoID     string          `json:"insumo_id"`
	Nombre       string          `json:"nombre"`
	StockSistema decimal.Decimal `json:"stock_sistema"`
	StockNuevo   decimal.Decimal `json:"stock_nuevo"`
	Diferencia   decimal.Decimal `json:"diferencia"`
	Costo        decimal.Decimal `json:"costo"`
	Impacto      decimal.Decimal `json:"impacto"` // negative = pérdida
}

type AuditoriaResponse struct {
	SucursalID  string           `json:"sucursal_id"`
	SinCambios  bool             `json:"sin_cambios"`
	Ajustes     []AjusteResponse `json:"ajustes"`
	Perdidas    decimal.Decimal  `json:"perdidas"`
	Ganancias   decimal.Decimal  `json:"ganancias"`
	ImpactoNeto decimal.Decimal  `json:"impacto_neto"`
	Usuario     string           `json:"usuario"`
	CreatedAt   string           `json:"created_at"`
}
