package service

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"fornoro/internal/dto"
	"fornoro/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func registro(sucursal, nombre, stock string) model.Insumo {
	return model.Insumo{
		ID:                uuid.New(),
		SucursalID:        sucursal,
		Nombre:            nombre,
		NombreNormalizado: model.NormalizarNombre(nombre),
		Stock:             d(stock),
		Costo:             d("1"),
	}
}

func TestResolverCatalogo_LocalGanaSobreCatalogo(t *testing.T) {
	salB := registro("B", "Sal", "7")
	harinaB := registro("B", "HARINA", "3")
	harinaA := registro("A", "harina", "9")

	vista := ResolverCatalogo([]model.Insumo{salB, harinaB, harinaA}, "A")
	require.Len(t, vista, 2)

	h := vista["harina"]
	assert.True(t, h.EsLocal)
	assert.Equal(t, harinaA.ID, h.ID)
	assert.Nil(t, h.OriginalID)
	requireDec(t, "9", h.Stock)

	s := vista["sal"]
	assert.False(t, s.EsLocal)
	assert.Equal(t, model.SucursalCatalogo, s.SucursalID)
	requireDec(t, "0", s.Stock)
	require.NotNil(t, s.OriginalID)
	assert.Equal(t, salB.ID, *s.OriginalID)

	// the source record is not modified
	requireDec(t, "7", salB.Stock)
}

func TestResolverCatalogo_UnaEntradaPorNombre(t *testing.T) {
	insumos := []model.Insumo{
		registro("A", "Harina", "1"),
		registro("B", "harina", "2"),
		registro("C", " Harina ", "3"),
		registro("B", "Agua", "1"),
		registro("C", "agua", "1"),
		registro("C", "Sal", "1"),
	}
	for _, suc := range []string{"A", "B", "C", "D"} {
		vista := ResolverCatalogo(insumos, suc)
		assert.Len(t, vista, 3, suc)
		for clave, e := range vista {
			assert.Equal(t, clave, model.NormalizarNombre(e.Nombre))
			if e.EsLocal {
				assert.Equal(t, suc, e.SucursalID)
			} else {
				assert.True(t, e.Stock.IsZero())
				assert.NotNil(t, e.OriginalID)
			}
		}
	}
	// D owns nothing, so every entry is catalog
	for _, e := range ResolverCatalogo(insumos, "D") {
		assert.False(t, e.EsLocal)
	}
}

func TestInventarioUnificado(t *testing.T) {
	e := nuevoEntorno(t)
	ctx := context.Background()
	e.crudo(t, "A", "Sal", "2", "5")
	e.crudo(t, "B", "Harina", "1", "8")

	vista, err := e.catalogo.InventarioUnificado(ctx, "B")
	require.NoError(t, err)
	require.Len(t, vista, 2)

	assert.Equal(t, "Harina", vista[0].Nombre)
	assert.True(t, vista[0].EsLocal)
	assert.Equal(t, "Sal", vista[1].Nombre)
	assert.False(t, vista[1].EsLocal)
	assert.Equal(t, model.SucursalCatalogo, vista[1].SucursalID)
	requireDec(t, "0", vista[1].Stock)
	require.NotNil(t, vista[1].OriginalID)

	_, err = e.catalogo.InventarioUnificado(ctx, "")
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestInstanciar(t *testing.T) {
	e := nuevoEntorno(t)
	ctx := context.Background()
	sal := e.crudo(t, "A", "Sal", "2", "5")

	resp, err := e.catalogo.Instanciar(ctx, ident("B"), dto.InstanciarInsumoRequest{OriginalID: sal.ID})
	require.NoError(t, err)
	assert.NotEqual(t, sal.ID, resp.ID)
	assert.Equal(t, "B", resp.SucursalID)
	assert.True(t, resp.EsLocal)
	requireDec(t, "0", resp.Stock)
	requireDec(t, "2", resp.Costo)

	// source untouched, target now local
	requireDec(t, "5", e.stock(t, sal.ID))
	require.NotNil(t, e.local(t, "B", "sal"))

	_, err = e.catalogo.Instanciar(ctx, ident("B"), dto.InstanciarInsumoRequest{OriginalID: sal.ID})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	_, err = e.catalogo.Instanciar(ctx, ident("B"), dto.InstanciarInsumoRequest{OriginalID: uuid.NewString()})
	assert.True(t, errors.Is(err, ErrNoEncontrado))
}

func TestInstanciar_SubRecetaConservaComposicion(t *testing.T) {
	e := nuevoEntorno(t)
	harina := e.crudo(t, "A", "Harina", "1", "0")
	masa := e.receta(t, "A", "Masa", "2", linea(harina.ID, "4"))

	resp, err := e.catalogo.Instanciar(context.Background(), ident("B"), dto.InstanciarInsumoRequest{OriginalID: masa.ID})
	require.NoError(t, err)
	assert.True(t, resp.EsSubReceta)
	require.Len(t, resp.Composicion, 1)
	assert.Equal(t, harina.ID, resp.Composicion[0].InsumoID)
	requireDec(t, "4", resp.Composicion[0].Cantidad)
}

func TestObtenerAlertas(t *testing.T) {
	e := nuevoEntorno(t)
	ctx := context.Background()
	_, err := e.insumos.Crear(ctx, ident("A"), dto.CrearInsumoRequest{Nombre: "Harina", Unidad: "kg", Stock: d("2"), StockMinimo: d("5")})
	require.NoError(t, err)
	_, err = e.insumos.Crear(ctx, ident("A"), dto.CrearInsumoRequest{Nombre: "Agua", Unidad: "l", Stock: d("50"), StockMinimo: d("5")})
	require.NoError(t, err)

	alertas, err := e.catalogo.ObtenerAlertas(ctx, "A")
	require.NoError(t, err)
	require.Len(t, alertas, 1)
	assert.Equal(t, "Harina", alertas[0].Nombre)

	otras, err := e.catalogo.ObtenerAlertas(ctx, "B")
	require.NoError(t, err)
	assert.Empty(t, otras)
}

func TestExportarXLSX(t *testing.T) {
	e := nuevoEntorno(t)
	e.crudo(t, "A", "Harina", "1", "3")
	e.crudo(t, "B", "Sal", "1", "3")

	var buf bytes.Buffer
	require.NoError(t, e.catalogo.ExportarXLSX(context.Background(), "A", &buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	filas, err := f.GetRows("Inventario")
	require.NoError(t, err)
	require.Len(t, filas, 3)
	assert.Equal(t, "Nombre", filas[0][0])
	assert.Equal(t, "Harina", filas[1][0])
	assert.Equal(t, "sí", filas[1][9])
	assert.Equal(t, "Sal", filas[2][0])
	assert.Equal(t, "no", filas[2][9])
}
