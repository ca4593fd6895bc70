package worker

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"fornoro/internal/dto"
	"fornoro/internal/infra"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func payload(t *testing.T, v interface{}) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func TestTicketWorker_RendersBothTickets(t *testing.T) {
	dir := t.TempDir()
	w := NewTicketWorker(dir, infra.NewCircuitBreaker(infra.DefaultCBConfig()))
	h := w.Handlers()
	ctx := context.Background()

	require.NoError(t, h[JobTicketProduccion](ctx, payload(t, dto.RegistroProduccion{
		ID: "p-1", Nombre: "Masa", Ciclos: 1, ProduccionReal: decimal.NewFromInt(5),
	})))
	require.NoError(t, h[JobTicketTraspaso](ctx, payload(t, dto.TraspasoResponse{
		ID: "t-1", SucursalOrigen: "A", SucursalDestino: "B", Total: decimal.Zero,
	})))

	for _, f := range []string{"produccion_p-1.pdf", "traspaso_t-1.pdf"} {
		_, err := os.Stat(filepath.Join(dir, f))
		assert.NoError(t, err, f)
	}
}

func TestTicketWorker_PayloadInvalido(t *testing.T) {
	w := NewTicketWorker(t.TempDir(), infra.NewCircuitBreaker(infra.DefaultCBConfig()))
	assert.Error(t, w.ProcessProduccion(context.Background(), json.RawMessage(`{"ciclos":"x"}`)))
}

func TestTicketWorker_SpoolRotoAbreElBreaker(t *testing.T) {
	// a regular file where the spool directory should be
	archivo := filepath.Join(t.TempDir(), "spool")
	require.NoError(t, os.WriteFile(archivo, []byte("x"), 0o644))

	cb := infra.NewCircuitBreaker(infra.CircuitBreakerConfig{FailureThreshold: 2, OpenTimeout: time.Minute})
	w := NewTicketWorker(archivo, cb)
	raw := payload(t, dto.RegistroProduccion{ID: "p-1"})

	assert.Error(t, w.ProcessProduccion(context.Background(), raw))
	assert.Error(t, w.ProcessProduccion(context.Background(), raw))
	assert.Equal(t, infra.CBOpen, cb.State())
	assert.ErrorIs(t, w.ProcessProduccion(context.Background(), raw), infra.ErrCircuitOpen)
}

func TestWithRetry(t *testing.T) {
	intentos := 0
	err := withRetry(context.Background(), 3, func(attempt int) error {
		intentos++
		if attempt == 0 {
			return errors.New("primero falla")
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 2, intentos)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = withRetry(ctx, 3, func(int) error { return errors.New("siempre") })
	assert.ErrorIs(t, err, context.Canceled)
}
