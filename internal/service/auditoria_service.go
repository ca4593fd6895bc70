package service

import (
	"context"
	"sort"
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

// AjusteAuditoria is one counted item whose physical stock differs from the system.
// It only lives for the duration of a reconciliation.
type AjusteAuditoria struct {
	InsumoID     uuid.UUID
	Nombre       string
	StockSistema decimal.Decimal
	StockNuevo   decimal.Decimal
	Costo        decimal.Decimal
}

func (a AjusteAuditoria) Diferencia() decimal.Decimal { return a.StockNuevo.Sub(a.StockSistema) }

// Impacto is the signed money effect: negative for losses, positive for gains.
func (a AjusteAuditoria) Impacto() decimal.Decimal { return a.Diferencia().Mul(a.Costo).Round(4) }

// CalcularAjustes diffs a physical count against system stock. Items with no
// difference are skipped; the result is ordered by name.
func CalcularAjustes(locales []model.Insumo, conteo map[uuid.UUID]decimal.Decimal) []AjusteAuditoria {
	var ajustes []AjusteAuditoria
	for _, ins := range locales {
		contado, ok := conteo[ins.ID]
		if !ok || contado.Equal(ins.Stock) {
			continue
		}
		ajustes = append(ajustes, AjusteAuditoria{
			InsumoID:     ins.ID,
			Nombre:       ins.Nombre,
			StockSistema: ins.Stock,
			StockNuevo:   contado,
			Costo:        ins.Costo,
		})
	}
	sort.Slice(ajustes, func(i, j int) bool { return ajustes[i].Nombre < ajustes[j].Nombre })
	return ajustes
}

type AuditoriaService interface {
	Conciliar(ctx context.Context, id Identidad, req dto.ConciliarRequest) (*dto.AuditoriaResponse, error)
}

type auditoriaService struct {
	insumos repository.InsumoRepository
	locker  infra.BranchLocker
	libro   libroStock
}

func NewAuditoriaService(
	insumos repository.InsumoRepository,
	movimientos repository.MovimientoStockRepository,
	locker infra.BranchLocker,
) AuditoriaService {
	return &auditoriaService{
		insumos: insumos,
		locker:  locker,
		libro:   libroStock{insumos: insumos, movimientos: movimientos},
	}
}

// ── Conciliar ────────────────────────────────────────────────────────────────
// Items not present in the count are left untouched. Every counted id must be a
// local record of the branch: catalog entries cannot be counted.

func (s *auditoriaService) Conciliar(ctx context.Context, id Identidad, req dto.ConciliarRequest) (*dto.AuditoriaResponse, error) {
	if err := id.validar(); err != nil {
		return nil, err
	}
	if len(req.Conteo) == 0 {
		return nil, validacion("conteo", "el conteo está vacío")
	}
	conteo := make(map[uuid.UUID]decimal.Decimal, len(req.Conteo))
	ids := make([]uuid.UUID, 0, len(req.Conteo))
	for _, c := range req.Conteo {
		iid, err := uuid.Parse(c.InsumoID)
		if err != nil {
			return nil, validacion("conteo", "id inválido %q", c.InsumoID)
		}
		if c.Cantidad.IsNegative() {
			return nil, validacion("conteo", "la cantidad contada no puede ser negativa")
		}
		if _, dup := conteo[iid]; dup {
			return nil, validacion("conteo", "el insumo %s está contado dos veces", iid)
		}
		conteo[iid] = c.Cantidad
		ids = append(ids, iid)
	}

	auditoriaID := uuid.New()
	resp := &dto.AuditoriaResponse{
		SucursalID:  id.SucursalID,
		Ajustes:     []dto.AjusteResponse{},
		Perdidas:    decimal.Zero,
		Ganancias:   decimal.Zero,
		ImpactoNeto: decimal.Zero,
		Usuario:     id.Usuario,
	}

	err := bajoBloqueo(ctx, s.locker, s.insumos.DB(), []string{id.SucursalID}, func(tx *gorm.DB) error {
		locales := make([]model.Insumo, 0, len(ids))
		for _, iid := range ids {
			ins, err := s.insumos.FindByIDForUpdateTx(tx, iid)
			if err != nil {
				return noEncontrado(err, "insumo", iid)
			}
			if !ins.EsLocal(id.SucursalID) {
				return &NotLocalError{InsumoID: ins.ID, Nombre: ins.Nombre, Sucursal: id.SucursalID}
			}
			locales = append(locales, *ins)
		}

		ajustes := CalcularAjustes(locales, conteo)
		if len(ajustes) == 0 {
			resp.SinCambios = true
			return nil
		}

		porID := make(map[uuid.UUID]*model.Insumo, len(locales))
		for i := range locales {
			porID[locales[i].ID] = &locales[i]
		}
		for _, a := range ajustes {
			if err := s.libro.fijarTx(tx, porID[a.InsumoID], a.StockNuevo, asiento{
				tipo:       model.MovAuditoria,
				motivo:     "auditoría de stock",
				usuario:    id.Usuario,
				referencia: &auditoriaID,
			}); err != nil {
				return err
			}
			impacto := a.Impacto()
			if impacto.IsNegative() {
				resp.Perdidas = resp.Perdidas.Add(impacto.Neg())
			} else {
				resp.Ganancias = resp.Ganancias.Add(impacto)
			}
			resp.ImpactoNeto = resp.ImpactoNeto.Add(impacto)
			resp.Ajustes = append(resp.Ajustes, dto.AjusteResponse{
				InsumoID:     a.InsumoID.String(),
				Nombre:       a.Nombre,
				StockSistema: a.StockSistema,
				StockNuevo:   a.StockNuevo,
				Diferencia:   a.Diferencia(),
				Costo:        a.Costo,
				Impacto:      impacto,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	resp.CreatedAt = time.Now().Format(time.RFC3339)

	if resp.SinCambios {
		log.Info().Str("sucursal", id.SucursalID).Msg("auditoría sin diferencias")
		return resp, nil
	}
	log.Info().
		Str("sucursal", id.SucursalID).
		Str("auditoria_id", auditoriaID.String()).
		Int("ajustes", len(resp.Ajustes)).
		Str("perdidas", resp.Perdidas.String()).
		Str("ganancias", resp.Ganancias.String()).
		Msg("auditoría aplicada")
	return resp, nil
}
