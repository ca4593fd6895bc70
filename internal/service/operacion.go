package service

// operacion.go: plumbing shared by every stock-changing operation.
// A mutation locks the branches it touches, runs inside one transaction and
// only then fires its side effects (tickets). Nothing here knows about HTTP.

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"fornoro/internal/dto"
	"fornoro/internal/infra"
	"fornoro/internal/model"
	"fornoro/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Identidad is who is calling: the current branch and the operator's display name.
type Identidad struct {
	SucursalID string
	Usuario    string
}

func (id Identidad) validar() error {
	if strings.TrimSpace(id.SucursalID) == "" || id.SucursalID == model.SucursalCatalogo {
		return validacion("sucursal", "la identidad no tiene una sucursal válida")
	}
	return nil
}

// Impresora is the printing collaborator. Calls are fire-and-forget:
// an error is reported as a warning and never undoes the operation.
type Impresora interface {
	ImprimirProduccion(ctx context.Context, reg *dto.RegistroProduccion) error
	ImprimirTraspaso(ctx context.Context, t *dto.TraspasoResponse) error
}

// runTx executes fn inside a GORM transaction; any error rolls everything back.
func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	return db.WithContext(ctx).Transaction(fn)
}

// bajoBloqueo holds the given branches for the duration of one transaction.
func bajoBloqueo(ctx context.Context, locker infra.BranchLocker, db *gorm.DB, sucursales []string, fn func(tx *gorm.DB) error) error {
	unlock, err := locker.Lock(ctx, sucursales...)
	if err != nil {
		return err
	}
	defer unlock()
	return runTx(ctx, db, fn)
}

// ── Stock ledger ──────────────────────────────────────────────────────────────

// libroStock applies stock deltas and writes the matching MovimientoStock row.
type libroStock struct {
	insumos     repository.InsumoRepository
	movimientos repository.MovimientoStockRepository
}

type asiento struct {
	tipo       string
	motivo     string
	usuario    string
	referencia *uuid.UUID
}

// moverTx adds delta to ins.Stock. A result below zero is rejected with
// InsufficientStockError and nothing is written.
func (l libroStock) moverTx(tx *gorm.DB, ins *model.Insumo, delta decimal.Decimal, a asiento) error {
	nuevo := ins.Stock.Add(delta)
	if nuevo.IsNegative() {
		return &InsufficientStockError{
			InsumoID:   ins.ID,
			Nombre:     ins.Nombre,
			Disponible: ins.Stock,
			Requerido:  delta.Neg(),
		}
	}
	return l.fijarTx(tx, ins, nuevo, a)
}

// fijarTx sets ins.Stock to an absolute value (audits).
func (l libroStock) fijarTx(tx *gorm.DB, ins *model.Insumo, nuevo decimal.Decimal, a asiento) error {
	if nuevo.IsNegative() {
		return validacion("stock", "el stock de %s no puede ser negativo", ins.Nombre)
	}
	anterior := ins.Stock
	if err := l.insumos.SetStockTx(tx, ins.ID, nuevo); err != nil {
		return fmt.Errorf("actualizar stock de %s: %w", ins.Nombre, err)
	}
	diff := nuevo.Sub(anterior)
	mov := &model.MovimientoStock{
		InsumoID:      ins.ID,
		SucursalID:    ins.SucursalID,
		Tipo:          a.tipo,
		Cantidad:      diff,
		StockAnterior: anterior,
		StockNuevo:    nuevo,
		Valor:         diff.Mul(ins.Costo).Round(4),
		Motivo:        a.motivo,
		Usuario:       a.usuario,
		ReferenciaID:  a.referencia,
	}
	if err := l.movimientos.CreateTx(tx, mov); err != nil {
		return fmt.Errorf("registrar movimiento de %s: %w", ins.Nombre, err)
	}
	ins.Stock = nuevo
	return nil
}

// ── Branch-local resolution ──────────────────────────────────────────────────

// ResolverLocalTx maps a referenced ingredient to the record that holds stock in
// sucursal, joining by normalized name. It returns nil when the branch has none.
func ResolverLocalTx(tx *gorm.DB, repo repository.InsumoRepository, sucursal string, ref *model.Insumo) (*model.Insumo, error) {
	if ref.EsLocal(sucursal) {
		return ref, nil
	}
	local, err := repo.FindLocalByNombreTx(tx, sucursal, ref.Nombre)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return local, nil
}

func parseIDs(campo string, raw []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(raw))
	for _, r := range raw {
		id, err := uuid.Parse(r)
		if err != nil {
			return nil, validacion(campo, "id inválido %q", r)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
