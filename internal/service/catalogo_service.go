package service

import (
	"context"
	"io"
	"sort"

	"fornoro/internal/dto"
	"fornoro/internal/infra"
	"fornoro/internal/model"
	"fornoro/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// EntradaUnificada is one row of a branch's unified inventory. Catalog entries
// carry zero stock, SucursalID = CATALOG and the id of the record they mirror.
type EntradaUnificada struct {
	model.Insumo
	EsLocal    bool
	OriginalID *uuid.UUID
}

// ResolverCatalogo projects the multi-branch ingredient set onto one branch.
// Keys are normalized names. A record owned by sucursal always wins; otherwise
// the first record seen for the name becomes a synthetic catalog entry.
func ResolverCatalogo(insumos []model.Insumo, sucursal string) map[string]EntradaUnificada {
	vista := make(map[string]EntradaUnificada, len(insumos))
	for _, ins := range insumos {
		clave := model.NormalizarNombre(ins.Nombre)
		if ins.EsLocal(sucursal) {
			vista[clave] = EntradaUnificada{Insumo: ins, EsLocal: true}
			continue
		}
		if _, ok := vista[clave]; ok {
			continue
		}
		sintetico := ins
		sintetico.Stock = decimal.Zero
		sintetico.SucursalID = model.SucursalCatalogo
		sintetico.Composicion = append([]model.ComponenteReceta(nil), ins.Composicion...)
		original := ins.ID
		vista[clave] = EntradaUnificada{Insumo: sintetico, OriginalID: &original}
	}
	return vista
}

// ordenarVista returns the projection sorted by normalized name.
func ordenarVista(vista map[string]EntradaUnificada) []EntradaUnificada {
	claves := make([]string, 0, len(vista))
	for k := range vista {
		claves = append(claves, k)
	}
	sort.Strings(claves)
	out := make([]EntradaUnificada, 0, len(claves))
	for _, k := range claves {
		out = append(out, vista[k])
	}
	return out
}

// CatalogoService exposes the unified inventory and the "instantiate from catalog" path.
type CatalogoService interface {
	InventarioUnificado(ctx context.Context, sucursal string) ([]dto.InsumoResponse, error)
	Instanciar(ctx context.Context, id Identidad, req dto.InstanciarInsumoRequest) (*dto.InsumoResponse, error)
	ObtenerAlertas(ctx context.Context, sucursal string) ([]dto.AlertaStockResponse, error)
	ExportarXLSX(ctx context.Context, sucursal string, w io.Writer) error
}

type catalogoService struct {
	insumos repository.InsumoRepository
	locker  infra.BranchLocker
}

func NewCatalogoService(insumos repository.InsumoRepository, locker infra.BranchLocker) CatalogoService {
	return &catalogoService{insumos: insumos, locker: locker}
}

func (s *catalogoService) vista(ctx context.Context, sucursal string) ([]EntradaUnificada, error) {
	todos, err := s.insumos.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return ordenarVista(ResolverCatalogo(todos, sucursal)), nil
}

func (s *catalogoService) InventarioUnificado(ctx context.Context, sucursal string) ([]dto.InsumoResponse, error) {
	if sucursal == "" {
		return nil, validacion("sucursal", "requerida")
	}
	entradas, err := s.vista(ctx, sucursal)
	if err != nil {
		return nil, err
	}
	out := make([]dto.InsumoResponse, 0, len(entradas))
	for _, e := range entradas {
		out = append(out, entradaToResponse(e))
	}
	return out, nil
}

func (s *catalogoService) ExportarXLSX(ctx context.Context, sucursal string, w io.Writer) error {
	filas, err := s.InventarioUnificado(ctx, sucursal)
	if err != nil {
		return err
	}
	return infra.ExportarInventarioXLSX(w, sucursal, filas)
}

func (s *catalogoService) ObtenerAlertas(ctx context.Context, sucursal string) ([]dto.AlertaStockResponse, error) {
	insumos, err := s.insumos.ListAlertas(ctx, sucursal)
	if err != nil {
		return nil, err
	}
	out := make([]dto.AlertaStockResponse, 0, len(insumos))
	for _, i := range insumos {
		out = append(out, dto.AlertaStockResponse{
			InsumoID:    i.ID.String(),
			Nombre:      i.Nombre,
			Stock:       i.Stock,
			StockMinimo: i.StockMinimo,
			Unidad:      i.Unidad,
		})
	}
	return out, nil
}

// ── Instanciar ───────────────────────────────────────────────────────────────

func (s *catalogoService) Instanciar(ctx context.Context, id Identidad, req dto.InstanciarInsumoRequest) (*dto.InsumoResponse, error) {
	if err := id.validar(); err != nil {
		return nil, err
	}
	originalID, err := uuid.Parse(req.OriginalID)
	if err != nil {
		return nil, validacion("original_id", "id inválido")
	}

	var creado *model.Insumo
	err = bajoBloqueo(ctx, s.locker, s.insumos.DB(), []string{id.SucursalID}, func(tx *gorm.DB) error {
		original, err := s.insumos.FindByIDTx(tx, originalID)
		if err != nil {
			return noEncontrado(err, "insumo", originalID)
		}
		existente, err := ResolverLocalTx(tx, s.insumos, id.SucursalID, original)
		if err != nil {
			return err
		}
		if existente != nil {
			return validacion("nombre", "%s ya existe en la sucursal %s", original.Nombre, id.SucursalID)
		}
		creado, err = instanciarTx(tx, s.insumos, id.SucursalID, original, original.Costo)
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("sucursal", id.SucursalID).
		Str("insumo", creado.Nombre).
		Str("original_id", originalID.String()).
		Msg("insumo instanciado desde catálogo")
	resp := insumoToResponse(creado, id.SucursalID)
	return &resp, nil
}

// instanciarTx creates a zero-stock local copy of original in sucursal. The
// composition keeps pointing at the original component ids; they are resolved
// by name whenever the recipe is costed or produced.
func instanciarTx(tx *gorm.DB, repo repository.InsumoRepository, sucursal string, original *model.Insumo, costo decimal.Decimal) (*model.Insumo, error) {
	comp := make([]model.ComponenteReceta, 0, len(original.Composicion))
	for _, c := range original.Composicion {
		comp = append(comp, model.ComponenteReceta{ComponenteID: c.ComponenteID, Cantidad: c.Cantidad})
	}
	local := &model.Insumo{
		SucursalID:       sucursal,
		Nombre:           original.Nombre,
		Unidad:           original.Unidad,
		UnidadCompra:     original.UnidadCompra,
		FactorConversion: original.FactorConversion,
		Costo:            costo,
		Stock:            decimal.Zero,
		StockMinimo:      original.StockMinimo,
		EsSubReceta:      original.EsSubReceta,
		TamanoLote:       original.TamanoLote,
		Composicion:      comp,
	}
	if err := repo.CreateTx(tx, local); err != nil {
		return nil, err
	}
	return local, nil
}

// ── Mapping helpers ──────────────────────────────────────────────────────────

func entradaToResponse(e EntradaUnificada) dto.InsumoResponse {
	resp := insumoToResponse(&e.Insumo, "")
	resp.EsLocal = e.EsLocal
	if e.OriginalID != nil {
		s := e.OriginalID.String()
		resp.OriginalID = &s
	}
	return resp
}

func insumoToResponse(i *model.Insumo, sucursal string) dto.InsumoResponse {
	comp := make([]dto.ComponenteResponse, 0, len(i.Composicion))
	for _, c := range i.Composicion {
		comp = append(comp, dto.ComponenteResponse{InsumoID: c.ComponenteID.String(), Cantidad: c.Cantidad})
	}
	return dto.InsumoResponse{
		ID:               i.ID.String(),
		SucursalID:       i.SucursalID,
		Nombre:           i.Nombre,
		Unidad:           i.Unidad,
		UnidadCompra:     i.UnidadCompra,
		FactorConversion: i.FactorConversion,
		Costo:            i.Costo,
		Stock:            i.Stock,
		StockMinimo:      i.StockMinimo,
		EsSubReceta:      i.EsSubReceta,
		TamanoLote:       i.TamanoLote,
		Composicion:      comp,
		EsLocal:          sucursal != "" && i.EsLocal(sucursal),
	}
}
