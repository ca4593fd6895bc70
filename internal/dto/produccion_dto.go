package dto

import "github.com/shopspring/decimal"

type ProducirRequest struct {
	InsumoID string `json:"insumo_id" validate:"required,uuid"`
	Ciclos   int    `json:"ciclos"    validate:"required,min=1"`
	// Produccion is the actual output obtained, in the ingredient's unit
	Produccion decimal.Decimal `json:"produccion" validate:"required,gt=0"`
}

type ConsumoProduccion struct {
	InsumoID string          `json:"insumo_id"`
	Nombre   string          `json:"nombre"`
	Cantidad decimal.Decimal `json:"cantidad"`
	Unidad   string          `json:"unidad"`
	Costo    decimal.Decimal `json:"costo"`
}

// RegistroProduccion is both the API response and the production ticket payload.
type RegistroProduccion struct {
	ID                 string              `json:"id"`
	SucursalID         string              `json:"sucursal_id"`
	InsumoID           string              `json:"insumo_id"`
	Nombre             string              `json:"nombre"`
	Unidad             string              `json:"unidad"`
	Ciclos             int                 `json:"ciclos"`
	ProduccionEsperada decimal.Decimal     `json:"produccion_esperada"`
	ProduccionReal     decimal.Decimal     `json:"produccion_real"`
	Variacion          decimal.Decimal     `json:"variacion"` // real - esperada
	Consumos           []ConsumoProduccion `json:"consumos"`
	CostoLote          decimal.Decimal     `json:"costo_lote"`
	CostoUnitarioReal  decimal.Decimal     `json:"costo_unitario_real"`
	StockResultante    decimal.Decimal     `json:"stock_resultante"`
	Usuario            string              `json:"usuario"`
	CreatedAt          string              `json:"created_at"`
	Advertencias       []string            `json:"advertencias,omitempty"`
}
