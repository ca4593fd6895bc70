package handler

import (
	"fmt"
	"net/http"
	"time"

	"fornoro/internal/dto"
	"fornoro/internal/service"

	"github.com/gin-gonic/gin"
)

type InventarioHandler struct {
	catalogo service.CatalogoService
	insumos  service.InsumoService
}

func NewInventarioHandler(catalogo service.CatalogoService, insumos service.InsumoService) *InventarioHandler {
	return &InventarioHandler{catalogo: catalogo, insumos: insumos}
}

// Unificado godoc
// @Summary      Inventario unificado de la sucursal
// @Description  Una entrada por nombre normalizado: el registro local si existe, si no una entrada de catálogo con stock 0 y original_id.
// @Tags         inventario
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}  dto.InsumoResponse
// @Router       /v1/inventario [get]
func (h *InventarioHandler) Unificado(c *gin.Context) {
	resp, err := h.catalogo.InventarioUnificado(c.Request.Context(), identidad(c).SucursalID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *InventarioHandler) Alertas(c *gin.Context) {
	resp, err := h.catalogo.ObtenerAlertas(c.Request.Context(), identidad(c).SucursalID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Exportar godoc
// @Summary      Exportar inventario unificado (xlsx)
// @Tags         inventario
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security     BearerAuth
// @Router       /v1/inventario/export [get]
func (h *InventarioHandler) Exportar(c *gin.Context) {
	sucursal := identidad(c).SucursalID
	nombre := fmt.Sprintf("inventario_%s_%s.xlsx", sucursal, time.Now().Format("20060102"))

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename="+nombre)
	if err := h.catalogo.ExportarXLSX(c.Request.Context(), sucursal, c.Writer); err != nil {
		respondError(c, err)
		return
	}
}

func (h *InventarioHandler) Movimientos(c *gin.Context) {
	var filter dto.MovimientoFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.insumos.ListarMovimientos(c.Request.Context(), identidad(c).SucursalID, filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
