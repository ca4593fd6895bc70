package handler

import (
	"net/http"

	"fornoro/internal/dto"
	"fornoro/internal/service"

	"github.com/gin-gonic/gin"
)

type ProduccionHandler struct{ svc service.ProduccionService }

func NewProduccionHandler(svc service.ProduccionService) *ProduccionHandler {
	return &ProduccionHandler{svc: svc}
}

// Producir godoc
// @Summary      Registrar producción
// @Description  Consume ciclos × cantidad de cada componente y suma la producción real obtenida. Falla sin cambios si falta stock.
// @Tags         produccion
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.ProducirRequest true "Producción"
// @Success      201  {object} dto.RegistroProduccion
// @Failure      409  {object} apierror.StockError
// @Router       /v1/produccion [post]
func (h *ProduccionHandler) Producir(c *gin.Context) {
	var req dto.ProducirRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Producir(c.Request.Context(), identidad(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}
