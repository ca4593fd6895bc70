package service

import (
	"errors"
	"testing"

	"fornoro/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalcularCostoReceta(t *testing.T) {
	harina, agua := uuid.New(), uuid.New()
	costos := map[uuid.UUID]decimal.Decimal{harina: d("1"), agua: d("3")}
	costoDe := func(id uuid.UUID) (decimal.Decimal, error) { return costos[id], nil }
	comp := []model.ComponenteReceta{
		{ComponenteID: harina, Cantidad: d("2")},
		{ComponenteID: agua, Cantidad: d("1")},
	}

	costo, err := CalcularCostoReceta(comp, d("5"), costoDe)
	require.NoError(t, err)
	requireDec(t, "1", costo)

	// a batch size below one is treated as one
	costo, err = CalcularCostoReceta(comp, d("0.5"), costoDe)
	require.NoError(t, err)
	requireDec(t, "5", costo)

	costo, err = CalcularCostoReceta(comp, d("3"), costoDe)
	require.NoError(t, err)
	requireDec(t, "1.6667", costo)
}

func TestCalcularCostoReceta_PropagaError(t *testing.T) {
	boom := errors.New("boom")
	_, err := CalcularCostoReceta(
		[]model.ComponenteReceta{{ComponenteID: uuid.New(), Cantidad: d("1")}},
		d("1"),
		func(uuid.UUID) (decimal.Decimal, error) { return decimal.Zero, boom },
	)
	assert.ErrorIs(t, err, boom)
}

// grafo builds a projection where each name maps to a sub-recipe of the given children.
func grafo(recetas map[string][]string) (map[string]EntradaUnificada, map[uuid.UUID]string, map[string]uuid.UUID) {
	ids := make(map[string]uuid.UUID)
	idDe := func(n string) uuid.UUID {
		if id, ok := ids[n]; ok {
			return id
		}
		ids[n] = uuid.New()
		return ids[n]
	}
	vista := make(map[string]EntradaUnificada)
	for nombre, hijos := range recetas {
		ins := model.Insumo{ID: idDe(nombre), Nombre: nombre, EsSubReceta: len(hijos) > 0}
		for _, h := range hijos {
			ins.Composicion = append(ins.Composicion, model.ComponenteReceta{ComponenteID: idDe(h), Cantidad: d("1")})
		}
		vista[model.NormalizarNombre(nombre)] = EntradaUnificada{Insumo: ins, EsLocal: true}
	}
	nombres := make(map[uuid.UUID]string, len(ids))
	for n, id := range ids {
		nombres[id] = n
	}
	return vista, nombres, ids
}

func TestDetectarCiclo(t *testing.T) {
	vista, nombres, ids := grafo(map[string][]string{
		"Pizza":  {"Masa", "Salsa"},
		"Masa":   {"Harina", "Agua"},
		"Salsa":  {"Tomate"},
		"Harina": nil,
		"Agua":   nil,
		"Tomate": nil,
	})
	comp := func(hijos ...string) []model.ComponenteReceta {
		var out []model.ComponenteReceta
		for _, h := range hijos {
			out = append(out, model.ComponenteReceta{ComponenteID: ids[h], Cantidad: d("1")})
		}
		return out
	}

	// diamond-free DAG: fine
	assert.NoError(t, DetectarCiclo("Pizza", comp("Masa", "Salsa"), vista, nombres))
	// sharing a component twice down different paths is not a cycle
	assert.NoError(t, DetectarCiclo("Fugazza", comp("Masa", "Pizza"), vista, nombres))

	// Harina := Pizza closes harina → pizza → masa → harina
	err := DetectarCiclo("Harina", comp("Pizza"), vista, nombres)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Mensaje, "harina")

	// names are compared normalized
	err = DetectarCiclo(" TOMATE ", comp("Salsa"), vista, nombres)
	assert.ErrorAs(t, err, &verr)
}
