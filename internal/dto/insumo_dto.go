package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type ComponenteRequest struct {
	InsumoID string          `json:"insumo_id" validate:"required,uuid"`
	Cantidad decimal.Decimal `json:"cantidad"  validate:"required,gt=0"`
}

type CrearInsumoRequest struct {
	Nombre           string              `json:"nombre"            validate:"required,min=2,max=120"`
	Unidad           string              `json:"unidad"            validate:"required"`
	UnidadCompra     string              `json:"unidad_compra"`
	FactorConversion decimal.Decimal     `json:"factor_conversion" validate:"omitempty,gt=0"`
	Costo            decimal.Decimal     `json:"costo"             validate:"min=0"`
	Stock            decimal.Decimal     `json:"stock"             validate:"min=0"`
	StockMinimo      decimal.Decimal     `json:"stock_minimo"      validate:"min=0"`
	EsSubReceta      bool                `json:"es_sub_receta"`
	TamanoLote       decimal.Decimal     `json:"tamano_lote"`
	Composicion      []ComponenteRequest `json:"composicion"       validate:"omitempty,dive"`
}

// ActualizarInsumoRequest edits the definition. Stock is not editable here:
// it only changes through production, audits, transfers or an explicit adjustment.
type ActualizarInsumoRequest struct {
	Nombre           *string              `json:"nombre"            validate:"omitempty,min=2,max=120"`
	Unidad           *string              `json:"unidad"`
	UnidadCompra     *string              `json:"unidad_compra"`
	FactorConversion *decimal.Decimal     `json:"factor_conversion"`
	Costo            *decimal.Decimal     `json:"costo"`
	StockMinimo      *decimal.Decimal     `json:"stock_minimo"`
	EsSubReceta      *bool                `json:"es_sub_receta"`
	TamanoLote       *decimal.Decimal     `json:"tamano_lote"`
	Composicion      *[]ComponenteRequest `json:"composicion"`
}

type InstanciarInsumoRequest struct {
	OriginalID string `json:"original_id" validate:"required,uuid"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type ComponenteResponse struct {
	InsumoID string          `json:"insumo_id"`
	Cantidad decimal.Decimal `json:"cantidad"`
}

type InsumoResponse struct {
	ID               string               `json:"id"`
	SucursalID       string               `json:"sucursal_id"`
	Nombre           string               `json:"nombre"`
	Unidad           string               `json:"unidad"`
	UnidadCompra     string               `json:"unidad_compra"`
	FactorConversion decimal.Decimal      `json:"factor_conversion"`
	Costo            decimal.Decimal      `json:"costo"`
	Stock            decimal.Decimal      `json:"stock"`
	StockMinimo      decimal.Decimal      `json:"stock_minimo"`
	EsSubReceta      bool                 `json:"es_sub_receta"`
	TamanoLote       decimal.Decimal      `json:"tamano_lote"`
	Composicion      []ComponenteResponse `json:"composicion"`
	// EsLocal=false means a catalog entry: zero stock, OriginalID points to the source record
	EsLocal    bool    `json:"es_local"`
	OriginalID *string `json:"original_id,omitempty"`
}

type AlertaStockResponse struct {
	InsumoID    string          `json:"insumo_id"`
	Nombre      string          `json:"nombre"`
	Stock       decimal.Decimal `json:"stock"`
	StockMinimo decimal.Decimal `json:"stock_minimo"`
	Unidad      string          `json:"unidad"`
}

type RecalculoCostoResponse struct {
	InsumoID      string          `json:"insumo_id"`
	Nombre        string          `json:"nombre"`
	CostoAnterior decimal.Decimal `json:"costo_anterior"`
	CostoNuevo    decimal.Decimal `json:"costo_nuevo"`
}

type MovimientoStockResponse struct {
	ID            string          `json:"id"`
	InsumoID      string          `json:"insumo_id"`
	Insumo        string          `json:"insumo"`
	Tipo          string          `json:"tipo"`
	Cantidad      decimal.Decimal `json:"cantidad"`
	StockAnterior decimal.Decimal `json:"stock_anterior"`
	StockNuevo    decimal.Decimal `json:"stock_nuevo"`
	Valor         decimal.Decimal `json:"valor"`
	Motivo        string          `json:"motivo"`
	Usuario       string          `json:"usuario"`
	ReferenciaID  *string         `json:"referencia_id"`
	CreatedAt     string          `json:"created_at"`
}

type MovimientoStockListResponse struct {
	Data  []MovimientoStockResponse `json:"data"`
	Total int64                     `json:"total"`
	Page  int                       `json:"page"`
	Limit int                       `json:"limit"`
}

// ─── Stock adjustments & ledger ──────────────────────────────────────────────

// AjusteStockRequest is a signed manual correction (purchase received, breakage, ...).
type AjusteStockRequest struct {
	Cantidad decimal.Decimal `json:"cantidad" validate:"required"`
	Motivo   string          `json:"motivo"   validate:"required,min=3,max=200"`
}

type MovimientoFilter struct {
	InsumoID     string `form:"insumo_id"     validate:"omitempty,uuid"`
	ReferenciaID string `form:"referencia_id" validate:"omitempty,uuid"`
	Tipo         string `form:"tipo"`
	Page         int    `form:"page,default=1"    validate:"min=1"`
	Limit        int    `form:"limit,default=100" validate:"min=1,max=500"`
}
