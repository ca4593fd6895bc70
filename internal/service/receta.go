package service

import (
	"strings"

	"fornoro/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CalcularCostoReceta returns the unit cost of a composite ingredient:
// Σ(cantidad × costo del componente) / max(tamanoLote, 1).
// costoDe supplies the materialized cost of each component; composite
// components are not walked here.
func CalcularCostoReceta(comp []model.ComponenteReceta, tamanoLote decimal.Decimal, costoDe func(uuid.UUID) (decimal.Decimal, error)) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, c := range comp {
		costo, err := costoDe(c.ComponenteID)
		if err != nil {
			return decimal.Zero, err
		}
		total = total.Add(c.Cantidad.Mul(costo))
	}
	lote := tamanoLote
	if lote.LessThan(decimal.NewFromInt(1)) {
		lote = decimal.NewFromInt(1)
	}
	return total.Div(lote).Round(4), nil
}

// DetectarCiclo walks the composition graph of a branch (depth-first) starting
// at raiz, with comp as raiz's proposed composition. Nodes are normalized names
// so a loop closed through another branch's record is still found.
// nombreDe maps a component id to its display name; vista is the branch projection.
func DetectarCiclo(raiz string, comp []model.ComponenteReceta, vista map[string]EntradaUnificada, nombreDe map[uuid.UUID]string) error {
	const (
		blanco = iota
		gris
		negro
	)
	raiz = model.NormalizarNombre(raiz)
	color := map[string]int{}

	hijos := func(nodo string) []string {
		var lineas []model.ComponenteReceta
		if nodo == raiz {
			lineas = comp
		} else if e, ok := vista[nodo]; ok && e.EsSubReceta {
			lineas = e.Composicion
		}
		out := make([]string, 0, len(lineas))
		for _, l := range lineas {
			if n, ok := nombreDe[l.ComponenteID]; ok {
				out = append(out, model.NormalizarNombre(n))
			}
		}
		return out
	}

	var camino []string
	var visitar func(nodo string) bool
	visitar = func(nodo string) bool {
		color[nodo] = gris
		camino = append(camino, nodo)
		for _, h := range hijos(nodo) {
			switch color[h] {
			case gris:
				camino = append(camino, h)
				return true
			case blanco:
				if visitar(h) {
					return true
				}
			}
		}
		camino = camino[:len(camino)-1]
		color[nodo] = negro
		return false
	}

	if visitar(raiz) {
		return validacion("composicion", "la receta forma un ciclo: %s", strings.Join(camino, " → "))
	}
	return nil
}
