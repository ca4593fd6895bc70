package service

import (
	"errors"
	"fmt"
	"strings"

	"fornoro/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ErrNoEncontrado wraps lookups of ids that do not exist.
var ErrNoEncontrado = errors.New("recurso no encontrado")

// ValidationError is malformed input, rejected before touching the store.
type ValidationError struct {
	Campo   string
	Mensaje string
}

func (e *ValidationError) Error() string {
	if e.Campo == "" {
		return e.Mensaje
	}
	return fmt.Sprintf("%s: %s", e.Campo, e.Mensaje)
}

func validacion(campo, format string, args ...interface{}) error {
	return &ValidationError{Campo: campo, Mensaje: fmt.Sprintf(format, args...)}
}

// InsufficientStockError means the requested quantity exceeds local stock.
type InsufficientStockError struct {
	InsumoID   uuid.UUID
	Nombre     string
	Disponible decimal.Decimal
	Requerido  decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("stock insuficiente de %s: disponible %s, requerido %s",
		e.Nombre, e.Disponible.String(), e.Requerido.String())
}

// InvalidStateTransitionError is returned when a transfer is not in the state the operation needs.
type InvalidStateTransitionError struct {
	TraspasoID uuid.UUID
	Actual     model.EstadoTraspaso
	Destino    model.EstadoTraspaso
}

func (e *InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("el traspaso %s está %s y no puede pasar a %s", e.TraspasoID, e.Actual, e.Destino)
}

type ItemPendiente struct {
	InsumoID uuid.UUID `json:"insumo_id"`
	Nombre   string    `json:"nombre"`
}

// IncompleteValidationError lists the transfer lines that were not physically confirmed.
type IncompleteValidationError struct {
	Pendientes []ItemPendiente
}

func (e *IncompleteValidationError) Error() string {
	nombres := make([]string, 0, len(e.Pendientes))
	for _, p := range e.Pendientes {
		nombres = append(nombres, p.Nombre)
	}
	return fmt.Sprintf("faltan validar %d ítems: %s", len(e.Pendientes), strings.Join(nombres, ", "))
}

// NotLocalError is an operation against a catalog-only entry of the branch.
type NotLocalError struct {
	InsumoID uuid.UUID
	Nombre   string
	Sucursal string
}

func (e *NotLocalError) Error() string {
	return fmt.Sprintf("%s no tiene stock local en la sucursal %s", e.Nombre, e.Sucursal)
}

// noEncontrado maps gorm's not-found to ErrNoEncontrado and leaves other errors as they are.
func noEncontrado(err error, recurso string, id uuid.UUID) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %s: %w", recurso, id, ErrNoEncontrado)
	}
	return err
}
