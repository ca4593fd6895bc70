package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"fornoro/internal/dto"
	"fornoro/internal/model"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// fila is one ingredient row before component names are resolved to ids.
type fila struct {
	linea       int
	req         dto.CrearInsumoRequest
	componentes []componenteNombrado
}

type componenteNombrado struct {
	nombre   string
	cantidad decimal.Decimal
}

// columnas recognised in the header row; only nombre is mandatory.
var columnas = []string{
	"nombre", "unidad", "unidad_compra", "factor_conversion", "costo", "stock",
	"stock_minimo", "es_sub_receta", "tamano_lote", "composicion",
}

func leerCSV(r io.Reader) ([]fila, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1
	registros, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("csv: %w", err)
	}
	return parsearRegistros(registros)
}

func leerXLSX(r io.Reader) ([]fila, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("xlsx: %w", err)
	}
	defer f.Close()
	hoja := f.GetSheetName(0)
	registros, err := f.GetRows(hoja)
	if err != nil {
		return nil, fmt.Errorf("xlsx: %w", err)
	}
	return parsearRegistros(registros)
}

func parsearRegistros(registros [][]string) ([]fila, error) {
	if len(registros) == 0 {
		return nil, fmt.Errorf("archivo vacío")
	}
	idx := make(map[string]int)
	for i, h := range registros[0] {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if _, ok := idx["nombre"]; !ok {
		return nil, fmt.Errorf("falta la columna nombre (columnas: %s)", strings.Join(columnas, ", "))
	}

	var filas []fila
	for n, rec := range registros[1:] {
		linea := n + 2
		campo := func(col string) string {
			i, ok := idx[col]
			if !ok || i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}
		if campo("nombre") == "" {
			continue
		}
		fl := fila{linea: linea}
		fl.req.Nombre = campo("nombre")
		fl.req.Unidad = campo("unidad")
		fl.req.UnidadCompra = campo("unidad_compra")

		var err error
		for col, dst := range map[string]*decimal.Decimal{
			"factor_conversion": &fl.req.FactorConversion,
			"costo":             &fl.req.Costo,
			"stock":             &fl.req.Stock,
			"stock_minimo":      &fl.req.StockMinimo,
			"tamano_lote":       &fl.req.TamanoLote,
		} {
			if *dst, err = parsearDecimal(campo(col)); err != nil {
				return nil, fmt.Errorf("línea %d, %s: %w", linea, col, err)
			}
		}
		if v := campo("es_sub_receta"); v != "" {
			if fl.req.EsSubReceta, err = strconv.ParseBool(v); err != nil {
				return nil, fmt.Errorf("línea %d, es_sub_receta: %w", linea, err)
			}
		}
		if fl.componentes, err = parsearComposicion(campo("composicion")); err != nil {
			return nil, fmt.Errorf("línea %d, composicion: %w", linea, err)
		}
		filas = append(filas, fl)
	}
	return filas, nil
}

// parsearDecimal accepts both "1.5" and "1,5".
func parsearDecimal(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(strings.Replace(s, ",", ".", 1))
}

// parsearComposicion reads "harina:2; agua:1.5" (name:quantity pairs).
func parsearComposicion(s string) ([]componenteNombrado, error) {
	if s == "" {
		return nil, nil
	}
	var out []componenteNombrado
	for _, parte := range strings.Split(s, ";") {
		parte = strings.TrimSpace(parte)
		if parte == "" {
			continue
		}
		i := strings.LastIndex(parte, ":")
		if i <= 0 {
			return nil, fmt.Errorf("se esperaba nombre:cantidad en %q", parte)
		}
		cant, err := parsearDecimal(strings.TrimSpace(parte[i+1:]))
		if err != nil {
			return nil, err
		}
		out = append(out, componenteNombrado{nombre: strings.TrimSpace(parte[:i]), cantidad: cant})
	}
	return out, nil
}

// ordenarPorDependencia puts raw ingredients first and every sub-recipe after
// the rows it names, so component ids exist by the time a recipe is created.
func ordenarPorDependencia(filas []fila) ([]fila, error) {
	porNombre := make(map[string]int, len(filas))
	for i, f := range filas {
		porNombre[model.NormalizarNombre(f.req.Nombre)] = i
	}
	visitado := make(map[int]int) // 1 = en curso, 2 = listo
	var out []fila
	var visitar func(i int) error
	visitar = func(i int) error {
		switch visitado[i] {
		case 1:
			return fmt.Errorf("línea %d: la composición de %s forma un ciclo", filas[i].linea, filas[i].req.Nombre)
		case 2:
			return nil
		}
		visitado[i] = 1
		for _, c := range filas[i].componentes {
			if j, ok := porNombre[model.NormalizarNombre(c.nombre)]; ok {
				if err := visitar(j); err != nil {
					return err
				}
			}
		}
		visitado[i] = 2
		out = append(out, filas[i])
		return nil
	}
	for i := range filas {
		if err := visitar(i); err != nil {
			return nil, err
		}
	}
	return out, nil
}
