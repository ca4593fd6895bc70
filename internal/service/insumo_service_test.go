package service

import (
	"context"
	"errors"
	"testing"

	"fornoro/internal/dto"
	"fornoro/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCrear_SubRecetaCalculaCosto(t *testing.T) {
	e := nuevoEntorno(t)
	harina := e.crudo(t, "A", "Harina", "1", "100")
	agua := e.crudo(t, "A", "Agua", "3", "100")

	masa := e.receta(t, "A", "Masa", "5", linea(harina.ID, "2"), linea(agua.ID, "1"))

	// (2×1 + 1×3) / 5
	requireDec(t, "1", masa.Costo)
	assert.True(t, masa.EsLocal)
	requireDec(t, "0", masa.Stock)
	requireDec(t, "1", e.insumo(t, masa.ID).Costo)
	assert.Len(t, e.insumo(t, masa.ID).Composicion, 2)
}

func TestCrear_StockInicialRegistraMovimiento(t *testing.T) {
	e := nuevoEntorno(t)
	harina := e.crudo(t, "A", "Harina", "2", "10")

	movs, err := e.insumos.ListarMovimientos(context.Background(), "A", dto.MovimientoFilter{InsumoID: harina.ID})
	require.NoError(t, err)
	require.Len(t, movs.Data, 1)
	assert.Equal(t, model.MovAltaInicial, movs.Data[0].Tipo)
	requireDec(t, "10", movs.Data[0].Cantidad)
	requireDec(t, "20", movs.Data[0].Valor)
	assert.Equal(t, "Harina", movs.Data[0].Insumo)
}

func TestCrear_NombreDuplicadoEnSucursal(t *testing.T) {
	e := nuevoEntorno(t)
	e.crudo(t, "A", "Harina", "1", "0")

	_, err := e.insumos.Crear(context.Background(), ident("A"), dto.CrearInsumoRequest{Nombre: "  HARINA ", Unidad: "kg"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "nombre", verr.Campo)

	// the same name in another branch is a different record
	e.crudo(t, "B", "harina", "1", "0")
}

func TestCrear_Validaciones(t *testing.T) {
	e := nuevoEntorno(t)
	harina := e.crudo(t, "A", "Harina", "1", "0")

	casos := []struct {
		nombre string
		id     Identidad
		req    dto.CrearInsumoRequest
	}{
		{"sin sucursal", ident(""), dto.CrearInsumoRequest{Nombre: "Sal"}},
		{"sucursal catalogo", ident(model.SucursalCatalogo), dto.CrearInsumoRequest{Nombre: "Sal"}},
		{"costo negativo", ident("A"), dto.CrearInsumoRequest{Nombre: "Sal", Costo: d("-1")}},
		{"stock negativo", ident("A"), dto.CrearInsumoRequest{Nombre: "Sal", Stock: d("-1")}},
		{"sub-receta vacia", ident("A"), dto.CrearInsumoRequest{Nombre: "Masa", EsSubReceta: true}},
		{"composicion en crudo", ident("A"), dto.CrearInsumoRequest{
			Nombre: "Sal", Composicion: []dto.ComponenteRequest{linea(harina.ID, "1")},
		}},
		{"componente inexistente", ident("A"), dto.CrearInsumoRequest{
			Nombre: "Masa", EsSubReceta: true, Composicion: []dto.ComponenteRequest{linea(uuid.NewString(), "1")},
		}},
		{"componente repetido", ident("A"), dto.CrearInsumoRequest{
			Nombre: "Masa", EsSubReceta: true,
			Composicion: []dto.ComponenteRequest{linea(harina.ID, "1"), linea(harina.ID, "2")},
		}},
		{"cantidad cero", ident("A"), dto.CrearInsumoRequest{
			Nombre: "Masa", EsSubReceta: true, Composicion: []dto.ComponenteRequest{linea(harina.ID, "0")},
		}},
	}
	for _, c := range casos {
		t.Run(c.nombre, func(t *testing.T) {
			_, err := e.insumos.Crear(context.Background(), c.id, c.req)
			var verr *ValidationError
			assert.ErrorAs(t, err, &verr)
		})
	}
}

func TestActualizar_CicloRechazado(t *testing.T) {
	e := nuevoEntorno(t)
	harina := e.crudo(t, "A", "Harina", "1", "0")
	agua := e.crudo(t, "A", "Agua", "3", "0")
	masa := e.receta(t, "A", "Masa", "5", linea(harina.ID, "2"), linea(agua.ID, "1"))

	// Harina := Masa closes harina → masa → harina
	si := true
	comp := []dto.ComponenteRequest{linea(masa.ID, "1")}
	_, err := e.insumos.Actualizar(context.Background(), ident("A"), uuid.MustParse(harina.ID), dto.ActualizarInsumoRequest{
		EsSubReceta: &si,
		Composicion: &comp,
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Mensaje, "ciclo")

	// nothing persisted
	h := e.insumo(t, harina.ID)
	assert.False(t, h.EsSubReceta)
	assert.Empty(t, h.Composicion)
}

func TestActualizar_AutoReferencia(t *testing.T) {
	e := nuevoEntorno(t)
	harina := e.crudo(t, "A", "Harina", "1", "0")
	masa := e.receta(t, "A", "Masa", "1", linea(harina.ID, "1"))

	comp := []dto.ComponenteRequest{linea(masa.ID, "1")}
	_, err := e.insumos.Actualizar(context.Background(), ident("A"), uuid.MustParse(masa.ID), dto.ActualizarInsumoRequest{Composicion: &comp})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestActualizar_CostoNoCascadaHastaRecalcular(t *testing.T) {
	e := nuevoEntorno(t)
	ctx := context.Background()
	harina := e.crudo(t, "A", "Harina", "1", "0")
	agua := e.crudo(t, "A", "Agua", "3", "0")
	masa := e.receta(t, "A", "Masa", "5", linea(harina.ID, "2"), linea(agua.ID, "1"))
	pizza := e.receta(t, "A", "Pizza", "1", linea(masa.ID, "2"))
	requireDec(t, "2", pizza.Costo)

	nuevo := d("6")
	_, err := e.insumos.Actualizar(ctx, ident("A"), uuid.MustParse(harina.ID), dto.ActualizarInsumoRequest{Costo: &nuevo})
	require.NoError(t, err)

	// stored costs stay stale
	requireDec(t, "1", e.insumo(t, masa.ID).Costo)
	requireDec(t, "2", e.insumo(t, pizza.ID).Costo)

	cambios, err := e.insumos.RecalcularCostos(ctx, ident("A"))
	require.NoError(t, err)
	require.Len(t, cambios, 2)

	// masa = (2×6 + 1×3) / 5 = 3; pizza = 2×3 = 6
	requireDec(t, "3", e.insumo(t, masa.ID).Costo)
	requireDec(t, "6", e.insumo(t, pizza.ID).Costo)

	again, err := e.insumos.RecalcularCostos(ctx, ident("A"))
	require.NoError(t, err)
	assert.Empty(t, again)
}

func TestActualizar_CostoDeSubRecetaNoEditable(t *testing.T) {
	e := nuevoEntorno(t)
	harina := e.crudo(t, "A", "Harina", "1", "0")
	masa := e.receta(t, "A", "Masa", "1", linea(harina.ID, "1"))

	c := d("9")
	_, err := e.insumos.Actualizar(context.Background(), ident("A"), uuid.MustParse(masa.ID), dto.ActualizarInsumoRequest{Costo: &c})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestActualizar_Renombrar(t *testing.T) {
	e := nuevoEntorno(t)
	ctx := context.Background()
	harina := e.crudo(t, "A", "Harina", "1", "0")
	e.crudo(t, "A", "Agua", "1", "0")

	nombre := "Harina 000"
	resp, err := e.insumos.Actualizar(ctx, ident("A"), uuid.MustParse(harina.ID), dto.ActualizarInsumoRequest{Nombre: &nombre})
	require.NoError(t, err)
	assert.Equal(t, "Harina 000", resp.Nombre)
	assert.Equal(t, "harina 000", e.insumo(t, harina.ID).NombreNormalizado)

	dup := "AGUA"
	_, err = e.insumos.Actualizar(ctx, ident("A"), uuid.MustParse(harina.ID), dto.ActualizarInsumoRequest{Nombre: &dup})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestActualizar_NoLocal(t *testing.T) {
	e := nuevoEntorno(t)
	harina := e.crudo(t, "A", "Harina", "1", "0")

	c := d("2")
	_, err := e.insumos.Actualizar(context.Background(), ident("B"), uuid.MustParse(harina.ID), dto.ActualizarInsumoRequest{Costo: &c})
	var nl *NotLocalError
	require.ErrorAs(t, err, &nl)
	assert.Equal(t, "B", nl.Sucursal)
}

func TestActualizar_NoEncontrado(t *testing.T) {
	e := nuevoEntorno(t)
	c := d("2")
	_, err := e.insumos.Actualizar(context.Background(), ident("A"), uuid.New(), dto.ActualizarInsumoRequest{Costo: &c})
	assert.True(t, errors.Is(err, ErrNoEncontrado))
}

func TestAjustarStock(t *testing.T) {
	e := nuevoEntorno(t)
	ctx := context.Background()
	harina := e.crudo(t, "A", "Harina", "1", "5")
	id := uuid.MustParse(harina.ID)

	resp, err := e.insumos.AjustarStock(ctx, ident("A"), id, dto.AjusteStockRequest{Cantidad: d("2.5"), Motivo: "compra"})
	require.NoError(t, err)
	requireDec(t, "7.5", resp.Stock)

	_, err = e.insumos.AjustarStock(ctx, ident("A"), id, dto.AjusteStockRequest{Cantidad: d("-8"), Motivo: "rotura"})
	var ins *InsufficientStockError
	require.ErrorAs(t, err, &ins)
	requireDec(t, "7.5", ins.Disponible)
	requireDec(t, "8", ins.Requerido)
	requireDec(t, "7.5", e.stock(t, harina.ID))

	_, err = e.insumos.AjustarStock(ctx, ident("A"), id, dto.AjusteStockRequest{Cantidad: d("0"), Motivo: "nada"})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	_, err = e.insumos.AjustarStock(ctx, ident("B"), id, dto.AjusteStockRequest{Cantidad: d("1"), Motivo: "compra"})
	var nl *NotLocalError
	assert.ErrorAs(t, err, &nl)

	assert.EqualValues(t, 1, e.contarMovimientos(t, "A", model.MovAjusteManual))
}

func TestListarMovimientos_IDInvalido(t *testing.T) {
	e := nuevoEntorno(t)
	_, err := e.insumos.ListarMovimientos(context.Background(), "A", dto.MovimientoFilter{InsumoID: "x"})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}
