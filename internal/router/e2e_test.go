//go:build integration

package router

// End-to-end tests against real Postgres + Redis via testcontainers.
// Run with: go test -tags integration ./internal/router/... -v

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"fornoro/internal/config"
	"fornoro/internal/dto"
	"fornoro/internal/infra"
	"fornoro/internal/middleware"
	"fornoro/internal/worker"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcRedis "github.com/testcontainers/testcontainers-go/modules/redis"
)

// ── Helpers ──────────────────────────────────────────────────────────────────

func jsonBody(t *testing.T, v any) *bytes.Buffer {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewBuffer(b)
}

func do(t *testing.T, srv *httptest.Server, method, path string, body *bytes.Buffer, token string) *http.Response {
	t.Helper()
	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequest(method, srv.URL+path, body)
	} else {
		req, err = http.NewRequest(method, srv.URL+path, nil)
	}
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, dest any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dest))
}

// ── Test Suite Setup ─────────────────────────────────────────────────────────

type testEnv struct {
	server *httptest.Server
	rdb    *redis.Client
	cfg    *config.Config
}

func (e *testEnv) token(t *testing.T, sucursal, rol string) string {
	t.Helper()
	tok, err := middleware.IssueToken(e.cfg.JWTSecret, sucursal, "e2e-"+sucursal, rol, time.Hour)
	require.NoError(t, err)
	return tok
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	pgC, err := tcPostgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:15-alpine"),
		tcPostgres.WithDatabase("fornoro_test"),
		tcPostgres.WithUsername("fornoro"),
		tcPostgres.WithPassword("fornoro"),
		testcontainers.WithWaitStrategy(
			tcPostgres.BasicWaitStrategies()...,
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })

	pgURL, err := pgC.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	rdC, err := tcRedis.RunContainer(ctx,
		testcontainers.WithImage("redis:7-alpine"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdC.Terminate(ctx) })

	rdURL, err := rdC.ConnectionString(ctx)
	require.NoError(t, err)

	cfg := &config.Config{
		Port:               8000,
		Env:                "test",
		JWTSecret:          "test-secret-key",
		JWTExpirationHours: 8,
		DBDriver:           "postgres",
		DatabaseURL:        pgURL,
		RedisURL:           rdURL,
		LockBackend:        "redis",
		LockTimeout:        5 * time.Second,
		LockTTL:            30 * time.Second,
		WorkerPoolSize:     1,
		TicketStoragePath:  t.TempDir(),
		RateLimitPerMinute: 10000,
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	require.NoError(t, err)

	rdb, err := infra.NewRedis(cfg.RedisURL)
	require.NoError(t, err)

	cb := infra.NewCircuitBreaker(infra.DefaultCBConfig())
	// no worker pool: ticket jobs stay queued so the test can count them
	engine := New(cfg, db, rdb, worker.NewDispatcher(rdb), cb)
	srv := httptest.NewServer(engine)
	t.Cleanup(srv.Close)

	return &testEnv{server: srv, rdb: rdb, cfg: cfg}
}

func crearInsumo(t *testing.T, env *testEnv, token string, req dto.CrearInsumoRequest) dto.InsumoResponse {
	t.Helper()
	resp := do(t, env.server, http.MethodPost, "/v1/insumos", jsonBody(t, req), token)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var out dto.InsumoResponse
	decodeJSON(t, resp, &out)
	return out
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// ── Tests ────────────────────────────────────────────────────────────────────

func TestE2E_Health(t *testing.T) {
	env := setupTestEnv(t)
	resp := do(t, env.server, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]any
	decodeJSON(t, resp, &body)
	assert.Equal(t, "connected", body["db"])
	assert.Equal(t, "connected", body["redis"])
}

func TestE2E_ProduccionYTraspaso(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	tokA := env.token(t, "centro", middleware.RolEncargado)
	tokB := env.token(t, "norte", middleware.RolEncargado)

	harina := crearInsumo(t, env, tokA, dto.CrearInsumoRequest{Nombre: "Harina", Unidad: "kg", Costo: dec("1"), Stock: dec("10")})
	agua := crearInsumo(t, env, tokA, dto.CrearInsumoRequest{Nombre: "Agua", Unidad: "l", Costo: dec("3"), Stock: dec("5")})
	masa := crearInsumo(t, env, tokA, dto.CrearInsumoRequest{
		Nombre: "Masa", Unidad: "kg", EsSubReceta: true, TamanoLote: dec("5"),
		Composicion: []dto.ComponenteRequest{
			{InsumoID: harina.ID, Cantidad: dec("2")},
			{InsumoID: agua.ID, Cantidad: dec("1")},
		},
	})
	assert.True(t, dec("1").Equal(masa.Costo))

	// 6 cycles need 12 kg of flour: rejected, nothing changes
	resp := do(t, env.server, http.MethodPost, "/v1/produccion", jsonBody(t, dto.ProducirRequest{InsumoID: masa.ID, Ciclos: 6, Produccion: dec("30")}), tokA)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	resp = do(t, env.server, http.MethodPost, "/v1/produccion", jsonBody(t, dto.ProducirRequest{InsumoID: masa.ID, Ciclos: 5, Produccion: dec("24")}), tokA)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var reg dto.RegistroProduccion
	decodeJSON(t, resp, &reg)
	assert.True(t, dec("-1").Equal(reg.Variacion))

	// transfer 4 kg of dough to the north branch
	resp = do(t, env.server, http.MethodPost, "/v1/traspasos", jsonBody(t, dto.CrearTraspasoRequest{
		SucursalDestino: "norte",
		Items:           []dto.ItemTraspasoRequest{{InsumoID: masa.ID, Cantidad: dec("4")}},
	}), tokA)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var tr dto.TraspasoResponse
	decodeJSON(t, resp, &tr)
	assert.Equal(t, "PENDING", tr.Estado)

	// north sees dough as a catalog entry until it arrives
	resp = do(t, env.server, http.MethodGet, "/v1/inventario", nil, tokB)
	var vista []dto.InsumoResponse
	decodeJSON(t, resp, &vista)
	for _, e := range vista {
		assert.False(t, e.EsLocal, e.Nombre)
	}

	// concurrent receipts: exactly one credits the stock
	var wg sync.WaitGroup
	codes := make(chan int, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r := do(t, env.server, http.MethodPost, "/v1/traspasos/"+tr.ID+"/recibir",
				jsonBody(t, dto.RecibirTraspasoRequest{Validados: []string{masa.ID}}), tokB)
			r.Body.Close()
			codes <- r.StatusCode
		}()
	}
	wg.Wait()
	close(codes)
	ok, conflict := 0, 0
	for c := range codes {
		switch c {
		case http.StatusOK:
			ok++
		case http.StatusConflict:
			conflict++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 3, conflict)

	// a completed transfer cannot be cancelled
	resp = do(t, env.server, http.MethodPost, "/v1/traspasos/"+tr.ID+"/cancelar", nil, tokA)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	resp = do(t, env.server, http.MethodGet, "/v1/inventario", nil, tokB)
	decodeJSON(t, resp, &vista)
	var masaNorte *dto.InsumoResponse
	for i := range vista {
		if vista[i].Nombre == "Masa" {
			masaNorte = &vista[i]
		}
	}
	require.NotNil(t, masaNorte)
	assert.True(t, masaNorte.EsLocal)
	assert.True(t, dec("4").Equal(masaNorte.Stock))

	// one production ticket + one transfer ticket queued
	n, err := env.rdb.LLen(ctx, worker.QueueTickets).Result()
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}

func TestE2E_AuditoriaIdempotente(t *testing.T) {
	env := setupTestEnv(t)
	tok := env.token(t, "centro", middleware.RolEncargado)
	harina := crearInsumo(t, env, tok, dto.CrearInsumoRequest{Nombre: "Harina", Unidad: "kg", Costo: dec("2"), Stock: dec("10")})

	req := dto.ConciliarRequest{Conteo: []dto.ConteoItem{{InsumoID: harina.ID, Cantidad: dec("7")}}}
	resp := do(t, env.server, http.MethodPost, "/v1/auditorias", jsonBody(t, req), tok)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out dto.AuditoriaResponse
	decodeJSON(t, resp, &out)
	assert.True(t, dec("6").Equal(out.Perdidas))

	resp = do(t, env.server, http.MethodPost, "/v1/auditorias", jsonBody(t, req), tok)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeJSON(t, resp, &out)
	assert.True(t, out.SinCambios)
}

func TestE2E_ReencolarTickets(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	worker.SendToDLQ(ctx, env.rdb, worker.QueueTickets, worker.JobTicketTraspaso, json.RawMessage(`{"id":"x"}`), "spool", 3)

	resp := do(t, env.server, http.MethodPost, "/v1/admin/tickets/reencolar", nil, env.token(t, "centro", middleware.RolEncargado))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	resp = do(t, env.server, http.MethodPost, "/v1/admin/tickets/reencolar", nil, env.token(t, "centro", middleware.RolAdmin))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out map[string]int
	decodeJSON(t, resp, &out)
	assert.Equal(t, 1, out["reencolados"])

	n, err := worker.DLQLength(ctx, env.rdb, worker.QueueTickets)
	require.NoError(t, err)
	assert.Zero(t, n)
}
