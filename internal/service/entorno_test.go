package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"fornoro/internal/dto"
	"fornoro/internal/infra"
	"fornoro/internal/model"
	"fornoro/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// impresoraFake records every ticket; err makes every call fail.
type impresoraFake struct {
	mu           sync.Mutex
	err          error
	producciones []*dto.RegistroProduccion
	traspasos    []*dto.TraspasoResponse
}

func (f *impresoraFake) ImprimirProduccion(_ context.Context, reg *dto.RegistroProduccion) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.producciones = append(f.producciones, reg)
	return nil
}

func (f *impresoraFake) ImprimirTraspaso(_ context.Context, t *dto.TraspasoResponse) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.traspasos = append(f.traspasos, t)
	return nil
}

type entorno struct {
	db         *gorm.DB
	insumoRepo repository.InsumoRepository
	movRepo    repository.MovimientoStockRepository
	insumos    InsumoService
	catalogo   CatalogoService
	produccion ProduccionService
	auditoria  AuditoriaService
	traspasos  TraspasoService
	impresora  *impresoraFake
}

func nuevoEntorno(t *testing.T) *entorno {
	t.Helper()
	db, err := infra.NewSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	insumoRepo := repository.NewInsumoRepository(db)
	movRepo := repository.NewMovimientoStockRepository(db)
	traspasoRepo := repository.NewTraspasoRepository(db)
	locker := infra.NewLocalLocker(2 * time.Second)
	imp := &impresoraFake{}

	return &entorno{
		db:         db,
		insumoRepo: insumoRepo,
		movRepo:    movRepo,
		insumos:    NewInsumoService(insumoRepo, movRepo, locker),
		catalogo:   NewCatalogoService(insumoRepo, locker),
		produccion: NewProduccionService(insumoRepo, movRepo, locker, imp),
		auditoria:  NewAuditoriaService(insumoRepo, movRepo, locker),
		traspasos:  NewTraspasoService(traspasoRepo, insumoRepo, movRepo, locker, imp),
		impresora:  imp,
	}
}

func ident(sucursal string) Identidad {
	return Identidad{SucursalID: sucursal, Usuario: "ana"}
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func requireDec(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	require.Truef(t, d(want).Equal(got), "want %s, got %s %v", want, got.String(), msgAndArgs)
}

// crudo creates a raw ingredient in sucursal.
func (e *entorno) crudo(t *testing.T, sucursal, nombre, costo, stock string) *dto.InsumoResponse {
	t.Helper()
	resp, err := e.insumos.Crear(context.Background(), ident(sucursal), dto.CrearInsumoRequest{
		Nombre: nombre,
		Unidad: "kg",
		Costo:  d(costo),
		Stock:  d(stock),
	})
	require.NoError(t, err)
	return resp
}

// receta creates a sub-recipe in sucursal from (id, cantidad) pairs.
func (e *entorno) receta(t *testing.T, sucursal, nombre, lote string, comp ...dto.ComponenteRequest) *dto.InsumoResponse {
	t.Helper()
	resp, err := e.insumos.Crear(context.Background(), ident(sucursal), dto.CrearInsumoRequest{
		Nombre:      nombre,
		Unidad:      "kg",
		EsSubReceta: true,
		TamanoLote:  d(lote),
		Composicion: comp,
	})
	require.NoError(t, err)
	return resp
}

func linea(id, cantidad string) dto.ComponenteRequest {
	return dto.ComponenteRequest{InsumoID: id, Cantidad: d(cantidad)}
}

func (e *entorno) insumo(t *testing.T, id string) *model.Insumo {
	t.Helper()
	ins, err := e.insumoRepo.FindByID(context.Background(), uuid.MustParse(id))
	require.NoError(t, err)
	return ins
}

func (e *entorno) stock(t *testing.T, id string) decimal.Decimal {
	t.Helper()
	return e.insumo(t, id).Stock
}

func (e *entorno) local(t *testing.T, sucursal, nombre string) *model.Insumo {
	t.Helper()
	ins, err := e.insumoRepo.FindLocalByNombreTx(e.db, sucursal, nombre)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	require.NoError(t, err)
	return ins
}

func (e *entorno) contarMovimientos(t *testing.T, sucursal, tipo string) int64 {
	t.Helper()
	_, total, err := e.movRepo.List(context.Background(), repository.MovimientoStockFilter{SucursalID: sucursal, Tipo: tipo})
	require.NoError(t, err)
	return total
}
