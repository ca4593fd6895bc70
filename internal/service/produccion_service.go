package service

import (
	"context"
	"fmt"
	"time"

	"fornoro/internal/dto"
	"fornoro/internal/infra"
	"fornoro/internal/model"
	"fornoro/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ProduccionService interface {
	Producir(ctx context.Context, id Identidad, req dto.ProducirRequest) (*dto.RegistroProduccion, error)
}

type produccionService struct {
	insumos   repository.InsumoRepository
	locker    infra.BranchLocker
	impresora Impresora
	libro     libroStock
}

func NewProduccionService(
	insumos repository.InsumoRepository,
	movimientos repository.MovimientoStockRepository,
	locker infra.BranchLocker,
	impresora Impresora,
) ProduccionService {
	return &produccionService{
		insumos:   insumos,
		locker:    locker,
		impresora: impresora,
		libro:     libroStock{insumos: insumos, movimientos: movimientos},
	}
}

// ── Producir ─────────────────────────────────────────────────────────────────
// One production run, all-or-nothing:
//   1. Validate cycles ≥ 1 and actual output > 0 (before any store access)
//   2. Lock the branch, BEGIN TX
//   3. Resolve every component to its branch-local record and check stock for
//      cycles × quantity; any shortfall aborts with nothing written
//   4. Deduct consumption, add the actual output to the finished ingredient
//   5. COMMIT, then print the ticket (best-effort)

func (s *produccionService) Producir(ctx context.Context, id Identidad, req dto.ProducirRequest) (*dto.RegistroProduccion, error) {
	if err := id.validar(); err != nil {
		return nil, err
	}
	if req.Ciclos < 1 {
		return nil, validacion("ciclos", "debe ser al menos 1")
	}
	if !req.Produccion.IsPositive() {
		return nil, validacion("produccion", "la producción obtenida debe ser mayor a cero")
	}
	insumoID, err := uuid.Parse(req.InsumoID)
	if err != nil {
		return nil, validacion("insumo_id", "id inválido")
	}

	ciclos := decimal.NewFromInt(int64(req.Ciclos))
	registro := &dto.RegistroProduccion{
		ID:             uuid.New().String(),
		SucursalID:     id.SucursalID,
		InsumoID:       insumoID.String(),
		Ciclos:         req.Ciclos,
		ProduccionReal: req.Produccion,
		Usuario:        id.Usuario,
	}
	refID := uuid.MustParse(registro.ID)

	err = bajoBloqueo(ctx, s.locker, s.insumos.DB(), []string{id.SucursalID}, func(tx *gorm.DB) error {
		producto, err := s.insumos.FindByIDForUpdateTx(tx, insumoID)
		if err != nil {
			return noEncontrado(err, "insumo", insumoID)
		}
		if !producto.EsLocal(id.SucursalID) {
			return &NotLocalError{InsumoID: producto.ID, Nombre: producto.Nombre, Sucursal: id.SucursalID}
		}
		if !producto.EsSubReceta || len(producto.Composicion) == 0 {
			return validacion("insumo_id", "%s no es una sub-receta", producto.Nombre)
		}

		// requirements per local record; two lines can resolve to the same one
		type consumo struct {
			insumo   *model.Insumo
			cantidad decimal.Decimal
		}
		var orden []uuid.UUID
		consumos := make(map[uuid.UUID]*consumo)

		for _, linea := range producto.Composicion {
			ref, err := s.insumos.FindByIDTx(tx, linea.ComponenteID)
			if err != nil {
				return noEncontrado(err, "componente", linea.ComponenteID)
			}
			local, err := ResolverLocalTx(tx, s.insumos, id.SucursalID, ref)
			if err != nil {
				return err
			}
			requerido := linea.Cantidad.Mul(ciclos)
			if local == nil {
				return &InsufficientStockError{
					InsumoID:   ref.ID,
					Nombre:     ref.Nombre,
					Disponible: decimal.Zero,
					Requerido:  requerido,
				}
			}
			if local.ID == producto.ID {
				return validacion("composicion", "%s se consume a sí mismo", producto.Nombre)
			}
			if c, ok := consumos[local.ID]; ok {
				c.cantidad = c.cantidad.Add(requerido)
				continue
			}
			bloqueado, err := s.insumos.FindByIDForUpdateTx(tx, local.ID)
			if err != nil {
				return err
			}
			consumos[local.ID] = &consumo{insumo: bloqueado, cantidad: requerido}
			orden = append(orden, local.ID)
		}

		// check everything before the first write
		for _, cid := range orden {
			c := consumos[cid]
			if c.insumo.Stock.LessThan(c.cantidad) {
				return &InsufficientStockError{
					InsumoID:   c.insumo.ID,
					Nombre:     c.insumo.Nombre,
					Disponible: c.insumo.Stock,
					Requerido:  c.cantidad,
				}
			}
		}

		motivo := fmt.Sprintf("producción de %s x%d", producto.Nombre, req.Ciclos)
		costoLote := decimal.Zero
		for _, cid := range orden {
			c := consumos[cid]
			if err := s.libro.moverTx(tx, c.insumo, c.cantidad.Neg(), asiento{
				tipo:       model.MovProduccionConsumo,
				motivo:     motivo,
				usuario:    id.Usuario,
				referencia: &refID,
			}); err != nil {
				return err
			}
			costoLote = costoLote.Add(c.cantidad.Mul(c.insumo.Costo))
			registro.Consumos = append(registro.Consumos, dto.ConsumoProduccion{
				InsumoID: c.insumo.ID.String(),
				Nombre:   c.insumo.Nombre,
				Cantidad: c.cantidad,
				Unidad:   c.insumo.Unidad,
				Costo:    c.insumo.Costo,
			})
		}

		if err := s.libro.moverTx(tx, producto, req.Produccion, asiento{
			tipo:       model.MovProduccionSalida,
			motivo:     motivo,
			usuario:    id.Usuario,
			referencia: &refID,
		}); err != nil {
			return err
		}

		lote := producto.TamanoLote
		if lote.LessThan(decimal.NewFromInt(1)) {
			lote = decimal.NewFromInt(1)
		}
		registro.Nombre = producto.Nombre
		registro.Unidad = producto.Unidad
		registro.ProduccionEsperada = lote.Mul(ciclos)
		registro.Variacion = req.Produccion.Sub(registro.ProduccionEsperada)
		registro.CostoLote = costoLote.Round(4)
		registro.CostoUnitarioReal = costoLote.Div(req.Produccion).Round(4)
		registro.StockResultante = producto.Stock
		return nil
	})
	if err != nil {
		return nil, err
	}
	registro.CreatedAt = time.Now().Format(time.RFC3339)

	log.Info().
		Str("sucursal", id.SucursalID).
		Str("insumo", registro.Nombre).
		Int("ciclos", registro.Ciclos).
		Str("variacion", registro.Variacion.String()).
		Msg("producción registrada")

	// Printing is fire-and-forget: the stock change is already committed.
	if err := s.impresora.ImprimirProduccion(ctx, registro); err != nil {
		log.Warn().Err(err).Str("registro", registro.ID).Msg("produccion: ticket no impreso")
		registro.Advertencias = append(registro.Advertencias, "no se pudo imprimir el ticket: "+err.Error())
	}
	return registro, nil
}
