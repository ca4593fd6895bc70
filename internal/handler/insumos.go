package handler

import (
	"net/http"

	"fornoro/internal/dto"
	"fornoro/internal/service"

	"github.com/gin-gonic/gin"
)

type InsumosHandler struct {
	svc      service.InsumoService
	catalogo service.CatalogoService
}

func NewInsumosHandler(svc service.InsumoService, catalogo service.CatalogoService) *InsumosHandler {
	return &InsumosHandler{svc: svc, catalogo: catalogo}
}

// Crear godoc
// @Summary      Crear insumo o sub-receta
// @Description  Para sub-recetas el costo se calcula desde la composición; una composición cíclica se rechaza.
// @Tags         insumos
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.CrearInsumoRequest true "Definición"
// @Success      201  {object} dto.InsumoResponse
// @Failure      422  {object} apierror.ValidationError
// @Router       /v1/insumos [post]
func (h *InsumosHandler) Crear(c *gin.Context) {
	var req dto.CrearInsumoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Crear(c.Request.Context(), identidad(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *InsumosHandler) ObtenerPorID(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.ObtenerPorID(c.Request.Context(), identidad(c).SucursalID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Actualizar godoc
// @Summary      Editar insumo
// @Description  Cambios de composición o tamaño de lote recalculan el costo antes de guardar. El stock no se edita aquí.
// @Tags         insumos
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string true "Insumo ID"
// @Param        body body dto.ActualizarInsumoRequest true "Campos a modificar"
// @Success      200  {object} dto.InsumoResponse
// @Router       /v1/insumos/{id} [put]
func (h *InsumosHandler) Actualizar(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var req dto.ActualizarInsumoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Actualizar(c.Request.Context(), identidad(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *InsumosHandler) AjustarStock(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var req dto.AjusteStockRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.AjustarStock(c.Request.Context(), identidad(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Instanciar godoc
// @Summary      Instanciar desde catálogo
// @Description  Crea en la sucursal una copia local, con stock 0, de un insumo definido en otra sucursal.
// @Tags         insumos
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.InstanciarInsumoRequest true "Insumo de origen"
// @Success      201  {object} dto.InsumoResponse
// @Router       /v1/insumos/instanciar [post]
func (h *InsumosHandler) Instanciar(c *gin.Context) {
	var req dto.InstanciarInsumoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.catalogo.Instanciar(c.Request.Context(), identidad(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// RecalcularCostos godoc
// @Summary      Recalcular costos de sub-recetas
// @Description  Los cambios de precio de un insumo no se propagan solos; esta operación recalcula todas las sub-recetas locales en orden de dependencia.
// @Tags         insumos
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array} dto.RecalculoCostoResponse
// @Router       /v1/insumos/recalcular-costos [post]
func (h *InsumosHandler) RecalcularCostos(c *gin.Context) {
	resp, err := h.svc.RecalcularCostos(c.Request.Context(), identidad(c))
	if err != nil {
		respondError(c, err)
		return
	}
	if resp == nil {
		resp = []dto.RecalculoCostoResponse{}
	}
	c.JSON(http.StatusOK, resp)
}
