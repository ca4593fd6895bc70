package worker

// ticket_worker.go
// Renders production and transfer tickets to PDF. Rendering goes through a
// circuit breaker: while the spool is failing, jobs fail fast and, after the
// retry budget, land in the DLQ instead of piling up behind a broken printer.

import (
	"context"
	"encoding/json"
	"fmt"

	"fornoro/internal/dto"
	"fornoro/internal/infra"

	"github.com/rs/zerolog/log"
)

type TicketWorker struct {
	storagePath string
	cb          *infra.CircuitBreaker
}

func NewTicketWorker(storagePath string, cb *infra.CircuitBreaker) *TicketWorker {
	return &TicketWorker{storagePath: storagePath, cb: cb}
}

// Handlers maps each ticket job type to its renderer.
func (w *TicketWorker) Handlers() map[string]JobHandler {
	return map[string]JobHandler{
		JobTicketProduccion: w.ProcessProduccion,
		JobTicketTraspaso:   w.ProcessTraspaso,
	}
}

func (w *TicketWorker) ProcessProduccion(_ context.Context, raw json.RawMessage) error {
	var reg dto.RegistroProduccion
	if err := json.Unmarshal(raw, &reg); err != nil {
		return fmt.Errorf("ticket_worker: invalid produccion payload: %w", err)
	}
	return w.render("produccion", reg.ID, func() (string, error) {
		return infra.GenerateProduccionPDF(&reg, w.storagePath)
	})
}

func (w *TicketWorker) ProcessTraspaso(_ context.Context, raw json.RawMessage) error {
	var t dto.TraspasoResponse
	if err := json.Unmarshal(raw, &t); err != nil {
		return fmt.Errorf("ticket_worker: invalid traspaso payload: %w", err)
	}
	return w.render("traspaso", t.ID, func() (string, error) {
		return infra.GenerateTraspasoPDF(&t, w.storagePath)
	})
}

func (w *TicketWorker) render(tipo, id string, fn func() (string, error)) error {
	var path string
	err := w.cb.Execute(func() error {
		p, err := fn()
		path = p
		return err
	})
	if err != nil {
		return err
	}
	log.Info().Str("tipo", tipo).Str("id", id).Str("path", path).Msg("ticket_worker: ticket generado")
	return nil
}
