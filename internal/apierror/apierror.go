// Package apierror provides standardized error response structures for the API.
// All errors returned to clients go through this package to ensure consistency
// and to prevent leaking internal details (stack traces, DB errors, etc.).
package apierror

import "github.com/shopspring/decimal"

// APIError is the canonical error envelope for all 4xx/5xx HTTP responses.
type APIError struct {
	Detail string `json:"detail"`
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}

// Validation wraps multiple field errors.
type ValidationError struct {
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Detail: "Error de validacion", Fields: fields}
}

// StockError tells the operator how much is on hand so the request can be retried.
type StockError struct {
	Detail     string          `json:"detail"`
	InsumoID   string          `json:"insumo_id"`
	Nombre     string          `json:"nombre"`
	Disponible decimal.Decimal `json:"disponible"`
	Requerido  decimal.Decimal `json:"requerido"`
}

func NewStock(insumoID, nombre string, disponible, requerido decimal.Decimal) *StockError {
	return &StockError{
		Detail:     "Stock insuficiente",
		InsumoID:   insumoID,
		Nombre:     nombre,
		Disponible: disponible,
		Requerido:  requerido,
	}
}

// EstadoError is a transition attempted from the wrong transfer state.
type EstadoError struct {
	Detail       string `json:"detail"`
	EstadoActual string `json:"estado_actual"`
}

func NewEstado(msg, actual string) *EstadoError {
	return &EstadoError{Detail: msg, EstadoActual: actual}
}

type ItemPendiente struct {
	InsumoID string `json:"insumo_id"`
	Nombre   string `json:"nombre"`
}

// PendientesError lists the transfer lines still waiting for physical validation.
type PendientesError struct {
	Detail     string          `json:"detail"`
	Pendientes []ItemPendiente `json:"pendientes"`
}

func NewPendientes(msg string, items []ItemPendiente) *PendientesError {
	return &PendientesError{Detail: msg, Pendientes: items}
}
