package handler

import (
	"net/http"

	"fornoro/internal/dto"
	"fornoro/internal/service"

	"github.com/gin-gonic/gin"
)

type TraspasosHandler struct{ svc service.TraspasoService }

func NewTraspasosHandler(svc service.TraspasoService) *TraspasosHandler {
	return &TraspasosHandler{svc: svc}
}

// Crear godoc
// @Summary      Crear traspaso
// @Description  Descuenta el stock de la sucursal origen al enviar y deja el traspaso PENDING.
// @Tags         traspasos
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.CrearTraspasoRequest true "Destino e ítems"
// @Success      201  {object} dto.TraspasoResponse
// @Failure      409  {object} apierror.StockError
// @Router       /v1/traspasos [post]
func (h *TraspasosHandler) Crear(c *gin.Context) {
	var req dto.CrearTraspasoRequest
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

func (h *TraspasosHandler) Listar(c *gin.Context) {
	var filter dto.TraspasoFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.svc.Listar(c.Request.Context(), identidad(c), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *TraspasosHandler) ObtenerPorID(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.ObtenerPorID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Recibir godoc
// @Summary      Recibir traspaso
// @Description  Requiere que todos los ítems estén validados. Acredita el stock en destino una sola vez.
// @Tags         traspasos
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string true "Traspaso ID"
// @Param        body body dto.RecibirTraspasoRequest true "Insumos validados"
// @Success      200  {object} dto.TraspasoResponse
// @Failure      409  {object} apierror.EstadoError
// @Failure      422  {object} apierror.PendientesError
// @Router       /v1/traspasos/{id}/recibir [post]
func (h *TraspasosHandler) Recibir(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var req dto.RecibirTraspasoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Recibir(c.Request.Context(), identidad(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Cancelar godoc
// @Summary      Cancelar traspaso
// @Description  Solo mientras está PENDING. Devuelve el stock a la sucursal origen.
// @Tags         traspasos
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string true "Traspaso ID"
// @Success      200  {object} dto.TraspasoResponse
// @Failure      409  {object} apierror.EstadoError
// @Router       /v1/traspasos/{id}/cancelar [post]
func (h *TraspasosHandler) Cancelar(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.Cancelar(c.Request.Context(), identidad(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
