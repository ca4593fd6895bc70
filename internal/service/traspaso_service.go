package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
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

// TraspasoService drives the inter-branch transfer lifecycle:
// PENDING → COMPLETED | CANCELLED. Stock leaves the source when the transfer is
// created and reaches the target only on a fully validated receipt.
type TraspasoService interface {
	Crear(ctx context.Context, id Identidad, req dto.CrearTraspasoRequest) (*dto.TraspasoResponse, error)
	Cancelar(ctx context.Context, id Identidad, traspasoID uuid.UUID) (*dto.TraspasoResponse, error)
	Recibir(ctx context.Context, id Identidad, traspasoID uuid.UUID, req dto.RecibirTraspasoRequest) (*dto.TraspasoResponse, error)
	Listar(ctx context.Context, id Identidad, filter dto.TraspasoFilter) (*dto.TraspasoListResponse, error)
	ObtenerPorID(ctx context.Context, traspasoID uuid.UUID) (*dto.TraspasoResponse, error)
}

type traspasoService struct {
	repo      repository.TraspasoRepository
	insumos   repository.InsumoRepository
	locker    infra.BranchLocker
	impresora Impresora
	libro     libroStock
}

func NewTraspasoService(
	repo repository.TraspasoRepository,
	insumos repository.InsumoRepository,
	movimientos repository.MovimientoStockRepository,
	locker infra.BranchLocker,
	impresora Impresora,
) TraspasoService {
	return &traspasoService{
		repo:      repo,
		insumos:   insumos,
		locker:    locker,
		impresora: impresora,
		libro:     libroStock{insumos: insumos, movimientos: movimientos},
	}
}

// ── Crear ────────────────────────────────────────────────────────────────────
//   1. Validate target ≠ source, non-empty lines, quantities > 0 (no store access)
//   2. Lock the source branch, BEGIN TX
//   3. Every line must be local at the source with enough stock
//   4. Persist PENDING and deduct every line (escrow)
//   5. COMMIT, then print the send ticket (best-effort)

func (s *traspasoService) Crear(ctx context.Context, id Identidad, req dto.CrearTraspasoRequest) (*dto.TraspasoResponse, error) {
	if err := id.validar(); err != nil {
		return nil, err
	}
	origen := id.SucursalID
	destino := strings.TrimSpace(req.SucursalDestino)
	if destino == "" || destino == model.SucursalCatalogo {
		return nil, validacion("sucursal_destino", "requerida")
	}
	if destino == origen {
		return nil, validacion("sucursal_destino", "el destino debe ser distinto del origen")
	}
	if len(req.Items) == 0 {
		return nil, validacion("items", "el traspaso no tiene ítems")
	}
	cantidades := make(map[uuid.UUID]decimal.Decimal, len(req.Items))
	orden := make([]uuid.UUID, 0, len(req.Items))
	for _, it := range req.Items {
		iid, err := uuid.Parse(it.InsumoID)
		if err != nil {
			return nil, validacion("items", "id inválido %q", it.InsumoID)
		}
		if !it.Cantidad.IsPositive() {
			return nil, validacion("items", "la cantidad debe ser mayor a cero")
		}
		if _, dup := cantidades[iid]; dup {
			return nil, validacion("items", "el insumo %s aparece más de una vez", iid)
		}
		cantidades[iid] = it.Cantidad
		orden = append(orden, iid)
	}

	t := &model.Traspaso{
		ID:              uuid.New(),
		SucursalOrigen:  origen,
		SucursalDestino: destino,
		Estado:          model.TraspasoPendiente,
		CreadoPor:       id.Usuario,
	}

	err := bajoBloqueo(ctx, s.locker, s.repo.DB(), []string{origen}, func(tx *gorm.DB) error {
		insumos := make([]*model.Insumo, 0, len(orden))
		for _, iid := range orden {
			ins, err := s.insumos.FindByIDForUpdateTx(tx, iid)
			if err != nil {
				return noEncontrado(err, "insumo", iid)
			}
			if !ins.EsLocal(origen) {
				return &NotLocalError{InsumoID: ins.ID, Nombre: ins.Nombre, Sucursal: origen}
			}
			if ins.Stock.LessThan(cantidades[iid]) {
				return &InsufficientStockError{
					InsumoID:   ins.ID,
					Nombre:     ins.Nombre,
					Disponible: ins.Stock,
					Requerido:  cantidades[iid],
				}
			}
			insumos = append(insumos, ins)
			t.Items = append(t.Items, model.ItemTraspaso{
				InsumoID: ins.ID,
				Nombre:   ins.Nombre,
				Cantidad: cantidades[iid],
				Unidad:   ins.Unidad,
				Costo:    ins.Costo,
			})
		}

		if err := s.repo.CreateTx(tx, t); err != nil {
			return err
		}
		for _, ins := range insumos {
			if err := s.libro.moverTx(tx, ins, cantidades[ins.ID].Neg(), asiento{
				tipo:       model.MovTraspasoEnvio,
				motivo:     "traspaso a " + destino,
				usuario:    id.Usuario,
				referencia: &t.ID,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("traspaso_id", t.ID.String()).
		Str("origen", origen).
		Str("destino", destino).
		Int("items", len(t.Items)).
		Msg("traspaso creado")

	resp := traspasoToResponse(t)
	if err := s.impresora.ImprimirTraspaso(ctx, resp); err != nil {
		log.Warn().Err(err).Str("traspaso_id", t.ID.String()).Msg("traspaso: remito no impreso")
		resp.Advertencias = append(resp.Advertencias, "no se pudo imprimir el remito: "+err.Error())
	}
	return resp, nil
}

// ── Cancelar ─────────────────────────────────────────────────────────────────

func (s *traspasoService) Cancelar(ctx context.Context, id Identidad, traspasoID uuid.UUID) (*dto.TraspasoResponse, error) {
	if err := id.validar(); err != nil {
		return nil, err
	}
	previo, err := s.repo.FindByID(ctx, traspasoID)
	if err != nil {
		return nil, noEncontrado(err, "traspaso", traspasoID)
	}
	if previo.SucursalOrigen != id.SucursalID {
		return nil, validacion("sucursal", "solo la sucursal de origen puede cancelar el traspaso")
	}

	var t *model.Traspaso
	err = bajoBloqueo(ctx, s.locker, s.repo.DB(), []string{previo.SucursalOrigen, previo.SucursalDestino}, func(tx *gorm.DB) error {
		var err error
		t, err = s.repo.FindByIDForUpdateTx(tx, traspasoID)
		if err != nil {
			return noEncontrado(err, "traspaso", traspasoID)
		}
		if !model.PuedeTransicionar(t.Estado, model.TraspasoCancelado) {
			return &InvalidStateTransitionError{TraspasoID: t.ID, Actual: t.Estado, Destino: model.TraspasoCancelado}
		}

		ahora := time.Now()
		ok, err := s.repo.TransicionarTx(tx, t.ID, model.TraspasoPendiente, model.TraspasoCancelado, map[string]interface{}{
			"cancelado_en": ahora,
		})
		if err != nil {
			return err
		}
		if !ok {
			return s.transicionPerdidaTx(tx, t.ID, model.TraspasoCancelado)
		}

		for _, it := range t.Items {
			ins, err := s.insumos.FindByIDForUpdateTx(tx, it.InsumoID)
			if err != nil {
				return noEncontrado(err, "insumo", it.InsumoID)
			}
			if err := s.libro.moverTx(tx, ins, it.Cantidad, asiento{
				tipo:       model.MovTraspasoCancelacion,
				motivo:     "traspaso cancelado",
				usuario:    id.Usuario,
				referencia: &t.ID,
			}); err != nil {
				return err
			}
		}
		t.Estado = model.TraspasoCancelado
		t.CanceladoEn = &ahora
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("traspaso_id", t.ID.String()).Str("usuario", id.Usuario).Msg("traspaso cancelado")
	return traspasoToResponse(t), nil
}

// ── Recibir ──────────────────────────────────────────────────────────────────
// Exactly-once: the row is read FOR UPDATE, the state flip is conditional on
// estado = PENDING and happens in the same transaction as the stock credits.
// A second caller finds the transfer terminal and fails without side effects.

func (s *traspasoService) Recibir(ctx context.Context, id Identidad, traspasoID uuid.UUID, req dto.RecibirTraspasoRequest) (*dto.TraspasoResponse, error) {
	if err := id.validar(); err != nil {
		return nil, err
	}
	validados, err := parseIDs("validados", req.Validados)
	if err != nil {
		return nil, err
	}
	previo, err := s.repo.FindByID(ctx, traspasoID)
	if err != nil {
		return nil, noEncontrado(err, "traspaso", traspasoID)
	}
	if previo.SucursalDestino != id.SucursalID {
		return nil, validacion("sucursal", "solo la sucursal de destino puede recibir el traspaso")
	}

	var t *model.Traspaso
	err = bajoBloqueo(ctx, s.locker, s.repo.DB(), []string{previo.SucursalOrigen, previo.SucursalDestino}, func(tx *gorm.DB) error {
		var err error
		t, err = s.repo.FindByIDForUpdateTx(tx, traspasoID)
		if err != nil {
			return noEncontrado(err, "traspaso", traspasoID)
		}
		if !model.PuedeTransicionar(t.Estado, model.TraspasoCompletado) {
			return &InvalidStateTransitionError{TraspasoID: t.ID, Actual: t.Estado, Destino: model.TraspasoCompletado}
		}
		if pendientes := itemsPendientes(t.Items, validados); len(pendientes) > 0 {
			return &IncompleteValidationError{Pendientes: pendientes}
		}

		ahora := time.Now()
		ok, err := s.repo.TransicionarTx(tx, t.ID, model.TraspasoPendiente, model.TraspasoCompletado, map[string]interface{}{
			"recibido_en":  ahora,
			"recibido_por": id.Usuario,
		})
		if err != nil {
			return err
		}
		if !ok {
			return s.transicionPerdidaTx(tx, t.ID, model.TraspasoCompletado)
		}

		for _, it := range t.Items {
			local, err := s.insumos.FindLocalByNombreTx(tx, t.SucursalDestino, it.Nombre)
			if errors.Is(err, gorm.ErrRecordNotFound) {
				local, err = s.instanciarDestinoTx(tx, t.SucursalDestino, it)
			}
			if err != nil {
				return fmt.Errorf("resolver %s en destino: %w", it.Nombre, err)
			}
			if err := s.libro.moverTx(tx, local, it.Cantidad, asiento{
				tipo:       model.MovTraspasoRecepcion,
				motivo:     "traspaso desde " + t.SucursalOrigen,
				usuario:    id.Usuario,
				referencia: &t.ID,
			}); err != nil {
				return err
			}
		}
		usuario := id.Usuario
		t.Estado = model.TraspasoCompletado
		t.RecibidoEn = &ahora
		t.RecibidoPor = &usuario
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("traspaso_id", t.ID.String()).
		Str("destino", t.SucursalDestino).
		Str("usuario", id.Usuario).
		Msg("traspaso recibido")
	return traspasoToResponse(t), nil
}

// instanciarDestinoTx creates the target's local record from the catalog
// definition of the line, priced at the cost snapshot taken at send time.
func (s *traspasoService) instanciarDestinoTx(tx *gorm.DB, destino string, it model.ItemTraspaso) (*model.Insumo, error) {
	original, err := s.insumos.FindByIDTx(tx, it.InsumoID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		original = &model.Insumo{
			Nombre:           it.Nombre,
			Unidad:           it.Unidad,
			UnidadCompra:     it.Unidad,
			FactorConversion: decimal.NewFromInt(1),
			TamanoLote:       decimal.NewFromInt(1),
		}
	} else if err != nil {
		return nil, err
	}
	return instanciarTx(tx, s.insumos, destino, original, it.Costo)
}

// transicionPerdidaTx builds the error for a conditional update that matched no row.
func (s *traspasoService) transicionPerdidaTx(tx *gorm.DB, id uuid.UUID, destino model.EstadoTraspaso) error {
	actual := model.EstadoTraspaso("desconocido")
	var t model.Traspaso
	if err := tx.Select("estado").First(&t, "id = ?", id).Error; err == nil {
		actual = t.Estado
	}
	return &InvalidStateTransitionError{TraspasoID: id, Actual: actual, Destino: destino}
}

func itemsPendientes(items []model.ItemTraspaso, validados []uuid.UUID) []ItemPendiente {
	ok := make(map[uuid.UUID]bool, len(validados))
	for _, v := range validados {
		ok[v] = true
	}
	var pendientes []ItemPendiente
	for _, it := range items {
		if !ok[it.InsumoID] {
			pendientes = append(pendientes, ItemPendiente{InsumoID: it.InsumoID, Nombre: it.Nombre})
		}
	}
	return pendientes
}

// ── Queries ──────────────────────────────────────────────────────────────────

func (s *traspasoService) Listar(ctx context.Context, id Identidad, filter dto.TraspasoFilter) (*dto.TraspasoListResponse, error) {
	traspasos, total, err := s.repo.List(ctx, repository.TraspasoFilter{
		Sucursal: id.SucursalID,
		Estado:   filter.Estado,
		Page:     filter.Page,
		Limit:    filter.Limit,
	})
	if err != nil {
		return nil, err
	}
	data := make([]dto.TraspasoResponse, 0, len(traspasos))
	for i := range traspasos {
		data = append(data, *traspasoToResponse(&traspasos[i]))
	}
	return &dto.TraspasoListResponse{Data: data, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

func (s *traspasoService) ObtenerPorID(ctx context.Context, traspasoID uuid.UUID) (*dto.TraspasoResponse, error) {
	t, err := s.repo.FindByID(ctx, traspasoID)
	if err != nil {
		return nil, noEncontrado(err, "traspaso", traspasoID)
	}
	return traspasoToResponse(t), nil
}

func traspasoToResponse(t *model.Traspaso) *dto.TraspasoResponse {
	items := make([]dto.ItemTraspasoResponse, 0, len(t.Items))
	for _, it := range t.Items {
		items = append(items, dto.ItemTraspasoResponse{
			InsumoID: it.InsumoID.String(),
			Nombre:   it.Nombre,
			Cantidad: it.Cantidad,
			Unidad:   it.Unidad,
			Costo:    it.Costo,
		})
	}
	resp := &dto.TraspasoResponse{
		ID:              t.ID.String(),
		SucursalOrigen:  t.SucursalOrigen,
		SucursalDestino: t.SucursalDestino,
		Estado:          string(t.Estado),
		Items:           items,
		Total:           t.Total(),
		CreadoPor:       t.CreadoPor,
		CreatedAt:       t.CreatedAt.Format(time.RFC3339),
		RecibidoPor:     t.RecibidoPor,
	}
	if t.RecibidoEn != nil {
		s := t.RecibidoEn.Format(time.RFC3339)
		resp.RecibidoEn = &s
	}
	if t.CanceladoEn != nil {
		s := t.CanceladoEn.Format(time.RFC3339)
		resp.CanceladoEn = &s
	}
	return resp
}
