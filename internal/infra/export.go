package infra

import (
	"fmt"
	"io"

	"fornoro/internal/dto"

	"github.com/xuri/excelize/v2"
)

const hojaInventario = "Inventario"

var columnasInventario = []string{
	"Nombre", "Unidad", "Unidad compra", "Factor", "Costo", "Stock", "Stock mínimo",
	"Sub-receta", "Lote", "Local",
}

// ExportarInventarioXLSX writes the unified inventory view of one branch as a
// single-sheet workbook. Catalog entries are included with Local = "no".
func ExportarInventarioXLSX(w io.Writer, sucursal string, entradas []dto.InsumoResponse) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", hojaInventario); err != nil {
		return err
	}

	for i, col := range columnasInventario {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(hojaInventario, cell, col); err != nil {
			return err
		}
	}

	for r, e := range entradas {
		row := r + 2
		local := "no"
		if e.EsLocal {
			local = "sí"
		}
		costo, _ := e.Costo.Float64()
		stock, _ := e.Stock.Float64()
		minimo, _ := e.StockMinimo.Float64()
		factor, _ := e.FactorConversion.Float64()
		lote, _ := e.TamanoLote.Float64()
		valores := []interface{}{
			e.Nombre, e.Unidad, e.UnidadCompra, factor, costo, stock, minimo,
			e.EsSubReceta, lote, local,
		}
		for c, v := range valores {
			cell, _ := excelize.CoordinatesToCellName(c+1, row)
			if err := f.SetCellValue(hojaInventario, cell, v); err != nil {
				return fmt.Errorf("xlsx: fila %d: %w", row, err)
			}
		}
	}

	if err := f.SetDocProps(&excelize.DocProperties{
		Title:   "Inventario " + sucursal,
		Creator: "fornoro",
	}); err != nil {
		return err
	}
	return f.Write(w)
}
