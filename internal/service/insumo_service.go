package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"fornoro/internal/dto"
	"fornoro/internal/infra"
	"fornoro/internal/model"
	"fornoro/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// InsumoService is the ingredient editor: definitions, compositions and costs.
type InsumoService interface {
	Crear(ctx context.Context, id Identidad, req dto.CrearInsumoRequest) (*dto.InsumoResponse, error)
	Actualizar(ctx context.Context, id Identidad, insumoID uuid.UUID, req dto.ActualizarInsumoRequest) (*dto.InsumoResponse, error)
	ObtenerPorID(ctx context.Context, sucursal string, insumoID uuid.UUID) (*dto.InsumoResponse, error)
	AjustarStock(ctx context.Context, id Identidad, insumoID uuid.UUID, req dto.AjusteStockRequest) (*dto.InsumoResponse, error)
	// RecalcularCostos re-derives every local sub-recipe cost of the branch in
	// dependency order. Price edits on raw ingredients never cascade on their own.
	RecalcularCostos(ctx context.Context, id Identidad) ([]dto.RecalculoCostoResponse, error)
	ListarMovimientos(ctx context.Context, sucursal string, filter dto.MovimientoFilter) (*dto.MovimientoStockListResponse, error)
}

type insumoService struct {
	insumos     repository.InsumoRepository
	movimientos repository.MovimientoStockRepository
	locker      infra.BranchLocker
	libro       libroStock
}

func NewInsumoService(
	insumos repository.InsumoRepository,
	movimientos repository.MovimientoStockRepository,
	locker infra.BranchLocker,
) InsumoService {
	return &insumoService{
		insumos:     insumos,
		movimientos: movimientos,
		locker:      locker,
		libro:       libroStock{insumos: insumos, movimientos: movimientos},
	}
}

// ── Branch graph ─────────────────────────────────────────────────────────────

// grafoSucursal is every record of every branch, indexed for one branch's point of view.
type grafoSucursal struct {
	sucursal string
	porID    map[uuid.UUID]*model.Insumo
	vista    map[string]EntradaUnificada
}

func cargarGrafoTx(tx *gorm.DB, repo repository.InsumoRepository, sucursal string) (*grafoSucursal, error) {
	todos, err := repo.ListAllTx(tx)
	if err != nil {
		return nil, err
	}
	g := &grafoSucursal{
		sucursal: sucursal,
		porID:    make(map[uuid.UUID]*model.Insumo, len(todos)),
		vista:    ResolverCatalogo(todos, sucursal),
	}
	for i := range todos {
		g.porID[todos[i].ID] = &todos[i]
	}
	return g, nil
}

func (g *grafoSucursal) nombres() map[uuid.UUID]string {
	out := make(map[uuid.UUID]string, len(g.porID))
	for id, ins := range g.porID {
		out[id] = ins.Nombre
	}
	return out
}

// local returns the branch-local record standing for component id, if any.
func (g *grafoSucursal) local(id uuid.UUID) (*model.Insumo, bool) {
	ref, ok := g.porID[id]
	if !ok {
		return nil, false
	}
	e, ok := g.vista[model.NormalizarNombre(ref.Nombre)]
	if !ok || !e.EsLocal {
		return nil, false
	}
	return g.porID[e.ID], true
}

// costoMaterializado is the stored cost used for a component: the branch-local
// record when it exists, otherwise the referenced record itself.
func (g *grafoSucursal) costoMaterializado(id uuid.UUID) (decimal.Decimal, error) {
	if l, ok := g.local(id); ok {
		return l.Costo, nil
	}
	ref, ok := g.porID[id]
	if !ok {
		return decimal.Zero, validacion("composicion", "el componente %s no existe", id)
	}
	return ref.Costo, nil
}

// ── Request validation ───────────────────────────────────────────────────────

func componentesDesdeRequest(lineas []dto.ComponenteRequest) ([]model.ComponenteReceta, error) {
	comp := make([]model.ComponenteReceta, 0, len(lineas))
	vistos := make(map[uuid.UUID]bool, len(lineas))
	for _, l := range lineas {
		cid, err := uuid.Parse(l.InsumoID)
		if err != nil {
			return nil, validacion("composicion", "id de componente inválido %q", l.InsumoID)
		}
		if !l.Cantidad.IsPositive() {
			return nil, validacion("composicion", "la cantidad de cada componente debe ser mayor a cero")
		}
		if vistos[cid] {
			return nil, validacion("composicion", "el componente %s está repetido", cid)
		}
		vistos[cid] = true
		comp = append(comp, model.ComponenteReceta{ComponenteID: cid, Cantidad: l.Cantidad})
	}
	return comp, nil
}

func validarDefinicion(ins *model.Insumo) error {
	if strings.TrimSpace(ins.Nombre) == "" {
		return validacion("nombre", "requerido")
	}
	if !ins.FactorConversion.IsPositive() {
		return validacion("factor_conversion", "debe ser mayor a cero")
	}
	if ins.Costo.IsNegative() {
		return validacion("costo", "no puede ser negativo")
	}
	if ins.StockMinimo.IsNegative() {
		return validacion("stock_minimo", "no puede ser negativo")
	}
	if ins.EsSubReceta {
		if len(ins.Composicion) == 0 {
			return validacion("composicion", "una sub-receta necesita al menos un componente")
		}
		if ins.TamanoLote.LessThan(decimal.NewFromInt(1)) {
			return validacion("tamano_lote", "debe ser al menos 1")
		}
	} else if len(ins.Composicion) > 0 {
		return validacion("composicion", "solo las sub-recetas tienen composición")
	}
	return nil
}

// aplicarReceta checks the proposed composition against the branch graph and,
// for sub-recipes, recomputes the cost before the record is persisted.
func aplicarReceta(g *grafoSucursal, ins *model.Insumo) error {
	if !ins.EsSubReceta {
		return nil
	}
	for _, c := range ins.Composicion {
		if c.ComponenteID == ins.ID {
			return validacion("composicion", "%s no puede ser componente de sí mismo", ins.Nombre)
		}
		if _, ok := g.porID[c.ComponenteID]; !ok {
			return validacion("composicion", "el componente %s no existe", c.ComponenteID)
		}
	}
	if ins.ID != uuid.Nil {
		// the graph was loaded before this edit; replace the stale node
		for k, e := range g.vista {
			if e.ID == ins.ID {
				delete(g.vista, k)
			}
		}
		g.porID[ins.ID] = ins
		g.vista[model.NormalizarNombre(ins.Nombre)] = EntradaUnificada{Insumo: *ins, EsLocal: true}
	}
	if err := DetectarCiclo(ins.Nombre, ins.Composicion, g.vista, g.nombres()); err != nil {
		return err
	}
	costo, err := CalcularCostoReceta(ins.Composicion, ins.TamanoLote, g.costoMaterializado)
	if err != nil {
		return err
	}
	ins.Costo = costo
	return nil
}

// ── Crear ────────────────────────────────────────────────────────────────────

func (s *insumoService) Crear(ctx context.Context, id Identidad, req dto.CrearInsumoRequest) (*dto.InsumoResponse, error) {
	if err := id.validar(); err != nil {
		return nil, err
	}
	comp, err := componentesDesdeRequest(req.Composicion)
	if err != nil {
		return nil, err
	}
	ins := &model.Insumo{
		SucursalID:       id.SucursalID,
		Nombre:           strings.TrimSpace(req.Nombre),
		Unidad:           valorOrDefault(req.Unidad, "unidad"),
		UnidadCompra:     valorOrDefault(req.UnidadCompra, valorOrDefault(req.Unidad, "unidad")),
		FactorConversion: decimalOrDefault(req.FactorConversion, decimal.NewFromInt(1)),
		Costo:            req.Costo,
		StockMinimo:      req.StockMinimo,
		EsSubReceta:      req.EsSubReceta,
		TamanoLote:       decimalOrDefault(req.TamanoLote, decimal.NewFromInt(1)),
		Composicion:      comp,
	}
	if req.Stock.IsNegative() {
		return nil, validacion("stock", "no puede ser negativo")
	}
	if err := validarDefinicion(ins); err != nil {
		return nil, err
	}

	err = bajoBloqueo(ctx, s.locker, s.insumos.DB(), []string{id.SucursalID}, func(tx *gorm.DB) error {
		if _, err := s.insumos.FindLocalByNombreTx(tx, id.SucursalID, ins.Nombre); err == nil {
			return validacion("nombre", "%s ya existe en la sucursal %s", ins.Nombre, id.SucursalID)
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		g, err := cargarGrafoTx(tx, s.insumos, id.SucursalID)
		if err != nil {
			return err
		}
		if err := aplicarReceta(g, ins); err != nil {
			return err
		}
		if err := s.insumos.CreateTx(tx, ins); err != nil {
			return err
		}
		if req.Stock.IsPositive() {
			return s.libro.moverTx(tx, ins, req.Stock, asiento{
				tipo:    model.MovAltaInicial,
				motivo:  "stock inicial",
				usuario: id.Usuario,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	resp := insumoToResponse(ins, id.SucursalID)
	return &resp, nil
}

// ── Actualizar ───────────────────────────────────────────────────────────────

func (s *insumoService) Actualizar(ctx context.Context, id Identidad, insumoID uuid.UUID, req dto.ActualizarInsumoRequest) (*dto.InsumoResponse, error) {
	if err := id.validar(); err != nil {
		return nil, err
	}
	var nuevaComp []model.ComponenteReceta
	if req.Composicion != nil {
		c, err := componentesDesdeRequest(*req.Composicion)
		if err != nil {
			return nil, err
		}
		nuevaComp = c
	}

	var ins *model.Insumo
	err := bajoBloqueo(ctx, s.locker, s.insumos.DB(), []string{id.SucursalID}, func(tx *gorm.DB) error {
		var err error
		ins, err = s.insumos.FindByIDForUpdateTx(tx, insumoID)
		if err != nil {
			return noEncontrado(err, "insumo", insumoID)
		}
		if !ins.EsLocal(id.SucursalID) {
			return &NotLocalError{InsumoID: ins.ID, Nombre: ins.Nombre, Sucursal: id.SucursalID}
		}

		recalcular := false
		if req.Nombre != nil {
			nombre := strings.TrimSpace(*req.Nombre)
			if model.NormalizarNombre(nombre) != ins.NombreNormalizado {
				otro, err := s.insumos.FindLocalByNombreTx(tx, id.SucursalID, nombre)
				if err == nil && otro.ID != ins.ID {
					return validacion("nombre", "%s ya existe en la sucursal %s", nombre, id.SucursalID)
				} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
					return err
				}
			}
			ins.Nombre = nombre
			ins.NombreNormalizado = model.NormalizarNombre(nombre)
			recalcular = true
		}
		if req.Unidad != nil {
			ins.Unidad = *req.Unidad
		}
		if req.UnidadCompra != nil {
			ins.UnidadCompra = *req.UnidadCompra
		}
		if req.FactorConversion != nil {
			ins.FactorConversion = *req.FactorConversion
		}
		if req.StockMinimo != nil {
			ins.StockMinimo = *req.StockMinimo
		}
		if req.EsSubReceta != nil {
			ins.EsSubReceta = *req.EsSubReceta
			recalcular = true
		}
		if req.TamanoLote != nil {
			ins.TamanoLote = *req.TamanoLote
			recalcular = true
		}
		if req.Composicion != nil {
			ins.Composicion = nuevaComp
			recalcular = true
		}
		if !ins.EsSubReceta && req.Composicion == nil && req.EsSubReceta != nil {
			ins.Composicion = nil
		}
		if req.Costo != nil {
			if ins.EsSubReceta {
				return validacion("costo", "el costo de una sub-receta se calcula desde su composición")
			}
			ins.Costo = *req.Costo
		}
		if err := validarDefinicion(ins); err != nil {
			return err
		}

		if recalcular && ins.EsSubReceta {
			g, err := cargarGrafoTx(tx, s.insumos, id.SucursalID)
			if err != nil {
				return err
			}
			if err := aplicarReceta(g, ins); err != nil {
				return err
			}
		}
		if err := s.insumos.UpdateDatosTx(tx, ins); err != nil {
			return err
		}
		return s.insumos.ReplaceComposicionTx(tx, ins.ID, ins.Composicion)
	})
	if err != nil {
		return nil, err
	}

	resp := insumoToResponse(ins, id.SucursalID)
	return &resp, nil
}

func (s *insumoService) ObtenerPorID(ctx context.Context, sucursal string, insumoID uuid.UUID) (*dto.InsumoResponse, error) {
	ins, err := s.insumos.FindByID(ctx, insumoID)
	if err != nil {
		return nil, noEncontrado(err, "insumo", insumoID)
	}
	resp := insumoToResponse(ins, sucursal)
	return &resp, nil
}

// ── AjustarStock ─────────────────────────────────────────────────────────────

func (s *insumoService) AjustarStock(ctx context.Context, id Identidad, insumoID uuid.UUID, req dto.AjusteStockRequest) (*dto.InsumoResponse, error) {
	if err := id.validar(); err != nil {
		return nil, err
	}
	if req.Cantidad.IsZero() {
		return nil, validacion("cantidad", "el ajuste no puede ser cero")
	}
	if strings.TrimSpace(req.Motivo) == "" {
		return nil, validacion("motivo", "requerido")
	}

	var ins *model.Insumo
	err := bajoBloqueo(ctx, s.locker, s.insumos.DB(), []string{id.SucursalID}, func(tx *gorm.DB) error {
		var err error
		ins, err = s.insumos.FindByIDForUpdateTx(tx, insumoID)
		if err != nil {
			return noEncontrado(err, "insumo", insumoID)
		}
		if !ins.EsLocal(id.SucursalID) {
			return &NotLocalError{InsumoID: ins.ID, Nombre: ins.Nombre, Sucursal: id.SucursalID}
		}
		return s.libro.moverTx(tx, ins, req.Cantidad, asiento{
			tipo:    model.MovAjusteManual,
			motivo:  req.Motivo,
			usuario: id.Usuario,
		})
	})
	if err != nil {
		return nil, err
	}
	resp := insumoToResponse(ins, id.SucursalID)
	return &resp, nil
}

// ── RecalcularCostos ─────────────────────────────────────────────────────────

func (s *insumoService) RecalcularCostos(ctx context.Context, id Identidad) ([]dto.RecalculoCostoResponse, error) {
	if err := id.validar(); err != nil {
		return nil, err
	}

	var cambios []dto.RecalculoCostoResponse
	err := bajoBloqueo(ctx, s.locker, s.insumos.DB(), []string{id.SucursalID}, func(tx *gorm.DB) error {
		g, err := cargarGrafoTx(tx, s.insumos, id.SucursalID)
		if err != nil {
			return err
		}

		calculado := make(map[uuid.UUID]decimal.Decimal)
		enCurso := make(map[uuid.UUID]bool)

		// costoDe follows a component to its local record and, for local
		// sub-recipes, derives that cost first (post-order).
		var costoDe func(cid uuid.UUID) (decimal.Decimal, error)
		costoDe = func(cid uuid.UUID) (decimal.Decimal, error) {
			l, ok := g.local(cid)
			if !ok {
				return g.costoMaterializado(cid)
			}
			if !l.EsSubReceta {
				return l.Costo, nil
			}
			if c, ok := calculado[l.ID]; ok {
				return c, nil
			}
			if enCurso[l.ID] {
				return decimal.Zero, validacion("composicion", "la receta de %s forma un ciclo", l.Nombre)
			}
			enCurso[l.ID] = true
			c, err := CalcularCostoReceta(l.Composicion, l.TamanoLote, costoDe)
			if err != nil {
				return decimal.Zero, err
			}
			enCurso[l.ID] = false
			calculado[l.ID] = c
			return c, nil
		}

		locales := make([]*model.Insumo, 0)
		for _, e := range g.vista {
			if e.EsLocal && e.EsSubReceta {
				locales = append(locales, g.porID[e.ID])
			}
		}
		sort.Slice(locales, func(i, j int) bool { return locales[i].NombreNormalizado < locales[j].NombreNormalizado })

		for _, l := range locales {
			nuevo, err := costoDe(l.ID)
			if err != nil {
				return err
			}
			if nuevo.Equal(l.Costo) {
				continue
			}
			if err := s.insumos.SetCostoTx(tx, l.ID, nuevo); err != nil {
				return fmt.Errorf("actualizar costo de %s: %w", l.Nombre, err)
			}
			cambios = append(cambios, dto.RecalculoCostoResponse{
				InsumoID:      l.ID.String(),
				Nombre:        l.Nombre,
				CostoAnterior: l.Costo,
				CostoNuevo:    nuevo,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("sucursal", id.SucursalID).Int("actualizados", len(cambios)).Msg("costos de sub-recetas recalculados")
	return cambios, nil
}

// ── Ledger ───────────────────────────────────────────────────────────────────

func (s *insumoService) ListarMovimientos(ctx context.Context, sucursal string, filter dto.MovimientoFilter) (*dto.MovimientoStockListResponse, error) {
	f := repository.MovimientoStockFilter{
		SucursalID: sucursal,
		Tipo:       filter.Tipo,
		Page:       filter.Page,
		Limit:      filter.Limit,
	}
	if filter.InsumoID != "" {
		iid, err := uuid.Parse(filter.InsumoID)
		if err != nil {
			return nil, validacion("insumo_id", "id inválido")
		}
		f.InsumoID = &iid
	}
	if filter.ReferenciaID != "" {
		rid, err := uuid.Parse(filter.ReferenciaID)
		if err != nil {
			return nil, validacion("referencia_id", "id inválido")
		}
		f.ReferenciaID = &rid
	}

	movs, total, err := s.movimientos.List(ctx, f)
	if err != nil {
		return nil, err
	}
	data := make([]dto.MovimientoStockResponse, 0, len(movs))
	for _, m := range movs {
		r := dto.MovimientoStockResponse{
			ID:            m.ID.String(),
			InsumoID:      m.InsumoID.String(),
			Tipo:          m.Tipo,
			Cantidad:      m.Cantidad,
			StockAnterior: m.StockAnterior,
			StockNuevo:    m.StockNuevo,
			Valor:         m.Valor,
			Motivo:        m.Motivo,
			Usuario:       m.Usuario,
			CreatedAt:     m.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		}
		if m.Insumo != nil {
			r.Insumo = m.Insumo.Nombre
		}
		if m.ReferenciaID != nil {
			ref := m.ReferenciaID.String()
			r.ReferenciaID = &ref
		}
		data = append(data, r)
	}
	return &dto.MovimientoStockListResponse{Data: data, Total: total, Page: f.Page, Limit: f.Limit}, nil
}

func valorOrDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func decimalOrDefault(v, def decimal.Decimal) decimal.Decimal {
	if v.IsZero() {
		return def
	}
	return v
}
