package router

import (
	"time"

	"fornoro/internal/config"
	"fornoro/internal/handler"
	"fornoro/internal/infra"
	"fornoro/internal/middleware"
	"fornoro/internal/repository"
	"fornoro/internal/service"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
// impresora is the printing collaborator (worker.Dispatcher in production).
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, impresora service.Impresora, impresoraCB *infra.CircuitBreaker) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter("api", cfg.RateLimitPerMinute, time.Minute, middleware.PorIP))

	// ── Infrastructure ───────────────────────────────────────────────────────
	locker := NewBranchLocker(cfg, rdb)

	// ── Repositories ─────────────────────────────────────────────────────────
	insumoRepo := repository.NewInsumoRepository(db)
	traspasoRepo := repository.NewTraspasoRepository(db)
	movimientoStockRepo := repository.NewMovimientoStockRepository(db)

	// ── Services ─────────────────────────────────────────────────────────────
	catalogoSvc := service.NewCatalogoService(insumoRepo, locker)
	insumoSvc := service.NewInsumoService(insumoRepo, movimientoStockRepo, locker)
	produccionSvc := service.NewProduccionService(insumoRepo, movimientoStockRepo, locker, impresora)
	auditoriaSvc := service.NewAuditoriaService(insumoRepo, movimientoStockRepo, locker)
	traspasoSvc := service.NewTraspasoService(traspasoRepo, insumoRepo, movimientoStockRepo, locker, impresora)

	// ── Handlers ─────────────────────────────────────────────────────────────
	inventarioH := handler.NewInventarioHandler(catalogoSvc, insumoSvc)
	insumosH := handler.NewInsumosHandler(insumoSvc, catalogoSvc)
	produccionH := handler.NewProduccionHandler(produccionSvc)
	auditoriasH := handler.NewAuditoriasHandler(auditoriaSvc)
	traspasosH := handler.NewTraspasosHandler(traspasoSvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb, impresoraCB))

	// Protected routes: every operation runs on behalf of the token's branch
	jwtMW := middleware.JWTAuth(cfg.JWTSecret)
	todos := middleware.RequireRole(middleware.RolCocina, middleware.RolEncargado, middleware.RolAdmin)
	gestion := middleware.RequireRole(middleware.RolEncargado, middleware.RolAdmin)
	// mutations are additionally limited per branch so one location cannot starve the others
	mutaciones := middleware.RateLimiter("mutaciones", cfg.RateLimitPerMinute/4+1, time.Minute, middleware.PorSucursal)

	v1 := r.Group("/v1", jwtMW)
	{
		inv := v1.Group("/inventario", todos)
		{
			inv.GET("", inventarioH.Unificado)
			inv.GET("/alertas", inventarioH.Alertas)
			inv.GET("/export", inventarioH.Exportar)
			inv.GET("/movimientos", gestion, inventarioH.Movimientos)
		}

		ins := v1.Group("/insumos", mutaciones)
		{
			ins.GET("/:id", todos, insumosH.ObtenerPorID)
			ins.POST("", gestion, insumosH.Crear)
			ins.PUT("/:id", gestion, insumosH.Actualizar)
			ins.POST("/:id/ajuste", gestion, insumosH.AjustarStock)
			ins.POST("/instanciar", gestion, insumosH.Instanciar)
			ins.POST("/recalcular-costos", gestion, insumosH.RecalcularCostos)
		}

		v1.POST("/produccion", todos, mutaciones, produccionH.Producir)
		v1.POST("/auditorias", gestion, mutaciones, auditoriasH.Conciliar)

		tr := v1.Group("/traspasos", todos)
		{
			tr.POST("", mutaciones, traspasosH.Crear)
			tr.GET("", traspasosH.Listar)
			tr.GET("/:id", traspasosH.ObtenerPorID)
			tr.POST("/:id/recibir", mutaciones, traspasosH.Recibir)
			tr.POST("/:id/cancelar", gestion, mutaciones, traspasosH.Cancelar)
		}

		v1.POST("/admin/tickets/reencolar", middleware.RequireRole(middleware.RolAdmin), handler.ReencolarTickets(rdb))
	}

	// Swagger UI — only enabled outside production
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}

// NewBranchLocker picks the per-branch lock implementation from LOCK_BACKEND.
// "redis" shares locks across API instances; anything else is in-process.
func NewBranchLocker(cfg *config.Config, rdb *redis.Client) infra.BranchLocker {
	if cfg.LockBackend == "redis" && rdb != nil {
		return infra.NewRedisLocker(rdb, cfg.LockTTL, cfg.LockTimeout)
	}
	return infra.NewLocalLocker(cfg.LockTimeout)
}
