package handler

import (
	"errors"
	"net/http"
	"reflect"

	"fornoro/internal/apierror"
	"fornoro/internal/infra"
	"fornoro/internal/middleware"
	"fornoro/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

func init() {
	// Register decimal.Decimal as a numeric type so that validator tags like
	// min=0, gt=0, required work without panicking ("Bad field type decimal.Decimal").
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if v, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := v.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
}

// bindAndValidate binds JSON body and runs go-playground/validator tags.
// Returns false and writes the error response if validation fails —
// the caller should return immediately without writing another response.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("JSON invalido: "+err.Error()))
		return false
	}
	return validateStruct(c, req)
}

// bindQuery is bindAndValidate for query-string filters.
func bindQuery(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("Parametros invalidos: "+err.Error()))
		return false
	}
	return validateStruct(c, req)
}

func validateStruct(c *gin.Context, req interface{}) bool {
	if err := validate.Struct(req); err != nil {
		fields := make(map[string]string)
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				fields[fe.Field()] = fe.Tag()
			}
		}
		c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(fields))
		return false
	}
	return true
}

func paramUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID invalido"))
		return uuid.Nil, false
	}
	return id, true
}

// identidad builds the caller identity from the JWT claims.
func identidad(c *gin.Context) service.Identidad {
	claims := middleware.GetClaims(c)
	if claims == nil {
		return service.Identidad{}
	}
	return service.Identidad{SucursalID: claims.SucursalID, Usuario: claims.Username}
}

// respondError maps the core's typed errors to HTTP status codes. Anything
// unrecognized is logged and answered with a generic 500.
func respondError(c *gin.Context, err error) {
	var (
		verr    *service.ValidationError
		stock   *service.InsufficientStockError
		estado  *service.InvalidStateTransitionError
		pend    *service.IncompleteValidationError
		noLocal *service.NotLocalError
	)
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(map[string]string{verr.Campo: verr.Mensaje}))
	case errors.As(err, &stock):
		c.JSON(http.StatusConflict, apierror.NewStock(stock.InsumoID.String(), stock.Nombre, stock.Disponible, stock.Requerido))
	case errors.As(err, &estado):
		c.JSON(http.StatusConflict, apierror.NewEstado(err.Error(), string(estado.Actual)))
	case errors.As(err, &pend):
		items := make([]apierror.ItemPendiente, 0, len(pend.Pendientes))
		for _, p := range pend.Pendientes {
			items = append(items, apierror.ItemPendiente{InsumoID: p.InsumoID.String(), Nombre: p.Nombre})
		}
		c.JSON(http.StatusUnprocessableEntity, apierror.NewPendientes(err.Error(), items))
	case errors.As(err, &noLocal):
		c.JSON(http.StatusUnprocessableEntity, apierror.New(err.Error()))
	case errors.Is(err, service.ErrNoEncontrado):
		c.JSON(http.StatusNotFound, apierror.New(err.Error()))
	case errors.Is(err, infra.ErrLockTimeout):
		c.Header("Retry-After", "1")
		c.JSON(http.StatusServiceUnavailable, apierror.New("La sucursal está ocupada, intente nuevamente"))
	default:
		log.Error().
			Err(err).
			Str("request_id", c.GetString(middleware.RequestIDKey)).
			Str("path", c.FullPath()).
			Msg("unhandled service error")
		c.JSON(http.StatusInternalServerError, apierror.New("Error interno del servidor"))
	}
}
