package handler

import (
	"net/http"

	"fornoro/internal/dto"
	"fornoro/internal/service"

	"github.com/gin-gonic/gin"
)

type AuditoriasHandler struct{ svc service.AuditoriaService }

func NewAuditoriasHandler(svc service.AuditoriaService) *AuditoriasHandler {
	return &AuditoriasHandler{svc: svc}
}

// Conciliar godoc
// @Summary      Conciliar conteo físico
// @Description  Ajusta el stock de los insumos contados. Si no hay diferencias responde sin_cambios=true.
// @Tags         auditorias
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.ConciliarRequest true "Conteo"
// @Success      200  {object} dto.AuditoriaResponse
// @Router       /v1/auditorias [post]
func (h *AuditoriasHandler) Conciliar(c *gin.Context) {
	var req dto.ConciliarRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Conciliar(c.Request.Context(), identidad(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
