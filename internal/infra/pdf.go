package infra

// pdf.go — kitchen ticket generation using go-pdf/fpdf.
// Two layouts share the same A7 thermal-style page:
//   - production ticket: recipe, cycles, expected vs actual output, consumed components
//   - transfer ticket: source/target branches, lines and valued total
//
// Files are written to storagePath/{prefix}_{id}.pdf.

import (
	"fmt"
	"os"
	"path/filepath"

	"fornoro/internal/dto"

	"github.com/go-pdf/fpdf"
)

type ticket struct {
	pdf      *fpdf.Fpdf
	pageW    float64
	contentW float64
	tr       func(string) string // UTF-8 → cp1252 for the core fonts
}

// nuevoTicket creates the page (A7 ≈ 74mm × 105mm, custom size) with a title header.
func nuevoTicket(titulo, subtitulo string) *ticket {
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: 74, Ht: 105},
	})
	pdf.SetMargins(4, 4, 4)
	pdf.SetAutoPageBreak(true, 4)
	pdf.AddPage()

	pageW, _ := pdf.GetPageSize()
	t := &ticket{pdf: pdf, pageW: pageW, contentW: pageW - 8, tr: pdf.UnicodeTranslatorFromDescriptor("")}

	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(t.contentW, 7, t.tr("Fornoro"), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 8)
	pdf.CellFormat(t.contentW, 5, t.tr(titulo), "", 1, "C", false, 0, "")
	if subtitulo != "" {
		pdf.CellFormat(t.contentW, 4, t.tr(subtitulo), "", 1, "C", false, 0, "")
	}
	pdf.Ln(2)
	return t
}

func (t *ticket) separador() {
	t.pdf.Ln(1)
	t.pdf.Line(4, t.pdf.GetY(), t.pageW-4, t.pdf.GetY())
	t.pdf.Ln(2)
}

func (t *ticket) linea(label, valor string, bold bool) {
	style := ""
	if bold {
		style = "B"
	}
	t.pdf.SetFont("Helvetica", style, 7)
	t.pdf.CellFormat(t.contentW*0.5, 4, t.tr(label), "", 0, "L", false, 0, "")
	t.pdf.CellFormat(t.contentW*0.5, 4, t.tr(valor), "", 1, "R", false, 0, "")
}

// tabla renders a 3-column item table (name, quantity, value).
func (t *ticket) tabla(cabecera [3]string, filas [][3]string) {
	col1 := t.contentW * 0.52
	col2 := t.contentW * 0.22
	col3 := t.contentW * 0.26

	t.pdf.SetFont("Helvetica", "B", 7)
	t.pdf.CellFormat(col1, 5, t.tr(cabecera[0]), "B", 0, "L", false, 0, "")
	t.pdf.CellFormat(col2, 5, t.tr(cabecera[1]), "B", 0, "C", false, 0, "")
	t.pdf.CellFormat(col3, 5, t.tr(cabecera[2]), "B", 1, "R", false, 0, "")

	t.pdf.SetFont("Helvetica", "", 7)
	for _, f := range filas {
		nombre := f[0]
		if r := []rune(nombre); len(r) > 24 {
			nombre = string(r[:22]) + ".."
		}
		t.pdf.CellFormat(col1, 4, t.tr(nombre), "", 0, "L", false, 0, "")
		t.pdf.CellFormat(col2, 4, t.tr(f[1]), "", 0, "C", false, 0, "")
		t.pdf.CellFormat(col3, 4, t.tr(f[2]), "", 1, "R", false, 0, "")
	}
}

func (t *ticket) guardar(storagePath, fileName string) (string, error) {
	if err := os.MkdirAll(storagePath, 0755); err != nil {
		return "", fmt.Errorf("pdf: create storage dir: %w", err)
	}
	filePath := filepath.Join(storagePath, fileName)
	if err := t.pdf.OutputFileAndClose(filePath); err != nil {
		return "", fmt.Errorf("pdf: write file: %w", err)
	}
	return filePath, nil
}

// GenerateProduccionPDF renders the production ticket for a finished batch.
// Returns the path of the generated file.
func GenerateProduccionPDF(reg *dto.RegistroProduccion, storagePath string) (string, error) {
	t := nuevoTicket("Ticket de Producción", reg.SucursalID)

	// ── Batch info ────────────────────────────────────────────────────────────
	t.pdf.SetFont("Helvetica", "B", 8)
	t.pdf.CellFormat(t.contentW, 5, t.tr(reg.Nombre), "", 1, "L", false, 0, "")
	t.pdf.SetFont("Helvetica", "", 7)
	t.pdf.CellFormat(t.contentW, 4, t.tr(fmt.Sprintf("%s  ·  %s", reg.CreatedAt, reg.Usuario)), "", 1, "L", false, 0, "")
	t.separador()

	t.linea("Ciclos", fmt.Sprintf("%d", reg.Ciclos), false)
	t.linea("Esperado", reg.ProduccionEsperada.StringFixed(2)+" "+reg.Unidad, false)
	t.linea("Obtenido", reg.ProduccionReal.StringFixed(2)+" "+reg.Unidad, true)
	t.linea("Variación", reg.Variacion.StringFixed(2)+" "+reg.Unidad, false)
	t.separador()

	// ── Consumed components ──────────────────────────────────────────────────
	filas := make([][3]string, 0, len(reg.Consumos))
	for _, c := range reg.Consumos {
		filas = append(filas, [3]string{
			c.Nombre,
			c.Cantidad.StringFixed(2) + " " + c.Unidad,
			"$" + c.Cantidad.Mul(c.Costo).StringFixed(2),
		})
	}
	t.tabla([3]string{"Insumo", "Cant", "Costo"}, filas)
	t.separador()

	// ── Costs ────────────────────────────────────────────────────────────────
	t.linea("Costo lote", "$"+reg.CostoLote.StringFixed(2), true)
	t.linea("Costo unitario real", "$"+reg.CostoUnitarioReal.StringFixed(4), false)

	return t.guardar(storagePath, fmt.Sprintf("produccion_%s.pdf", reg.ID))
}

// GenerateTraspasoPDF renders the send ticket that travels with the goods.
func GenerateTraspasoPDF(tr *dto.TraspasoResponse, storagePath string) (string, error) {
	t := nuevoTicket("Remito de Traspaso", tr.Estado)

	t.pdf.SetFont("Helvetica", "B", 8)
	t.pdf.CellFormat(t.contentW, 5, t.tr(fmt.Sprintf("%s  >  %s", tr.SucursalOrigen, tr.SucursalDestino)), "", 1, "L", false, 0, "")
	t.pdf.SetFont("Helvetica", "", 6)
	t.pdf.CellFormat(t.contentW, 4, t.tr(tr.ID), "", 1, "L", false, 0, "")
	t.pdf.SetFont("Helvetica", "", 7)
	t.pdf.CellFormat(t.contentW, 4, t.tr(fmt.Sprintf("%s  ·  %s", tr.CreatedAt, tr.CreadoPor)), "", 1, "L", false, 0, "")
	t.separador()

	filas := make([][3]string, 0, len(tr.Items))
	for _, it := range tr.Items {
		filas = append(filas, [3]string{
			it.Nombre,
			it.Cantidad.StringFixed(2) + " " + it.Unidad,
			"$" + it.Cantidad.Mul(it.Costo).StringFixed(2),
		})
	}
	t.tabla([3]string{"Insumo", "Cant", "Valor"}, filas)
	t.separador()

	t.linea("TOTAL", "$"+tr.Total.StringFixed(2), true)
	t.pdf.Ln(4)

	// ── Footer: signature line for the receiving branch ─────────────────────
	t.pdf.SetFont("Helvetica", "I", 6)
	t.pdf.CellFormat(t.contentW, 4, t.tr("Recibido por: ____________________"), "", 1, "L", false, 0, "")

	return t.guardar(storagePath, fmt.Sprintf("traspaso_%s.pdf", tr.ID))
}
