// Package printjob moves receipt printing off the request path. The API
// enqueues asynq tasks; cmd/worker renders the receipt and drives the printer.
package printjob

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-pos/internal/common"
	"github.com/noah-isme/toko-pos/internal/events"
	"github.com/noah-isme/toko-pos/internal/lock"
	"github.com/noah-isme/toko-pos/internal/obs"
	"github.com/noah-isme/toko-pos/internal/receipt"
	"github.com/noah-isme/toko-pos/internal/resilience"
)

// TaskType is the asynq task name for receipt printing.
const TaskType = "receipt:print"

// DefaultQueue is the asynq queue print tasks are placed on.
const DefaultQueue = "receipts"

// Payload identifies the invoice to print.
type Payload struct {
	InvoiceNo string `json:"invoiceNo"`
}

// NewTask builds a print task for invoiceNo.
func NewTask(invoiceNo string) (*asynq.Task, error) {
	no := strings.TrimSpace(invoiceNo)
	if no == "" {
		return nil, errors.New("printjob: invoice number is required")
	}
	body, err := json.Marshal(Payload{InvoiceNo: no})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskType, body), nil
}

// Enqueuer submits print tasks to asynq. Tasks are never retried by the
// queue; a reprint needs an explicit print request.
type Enqueuer struct {
	Client  *asynq.Client
	Queue   string
	Timeout time.Duration
}

// EnqueuePrint implements invoice.PrintQueue.
func (e Enqueuer) EnqueuePrint(ctx context.Context, invoiceNo string) error {
	if e.Client == nil {
		return errors.New("printjob: asynq client not configured")
	}
	task, err := NewTask(invoiceNo)
	if err != nil {
		return err
	}
	queue := e.Queue
	if queue == "" {
		queue = DefaultQueue
	}
	timeout := e.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	_, err = e.Client.EnqueueContext(ctx, task,
		asynq.Queue(queue),
		asynq.MaxRetry(0),
		asynq.Timeout(timeout),
	)
	if err != nil {
		return fmt.Errorf("enqueue print %s: %w", invoiceNo, err)
	}
	return nil
}

// PrintQueue is satisfied by Enqueuer.
type PrintQueue interface {
	EnqueuePrint(ctx context.Context, invoiceNo string) error
}

// AutoPrint schedules a print for every saved invoice when Enabled.
type AutoPrint struct {
	Queue   PrintQueue
	Enabled bool
}

// Schedule implements events.Scheduler.
func (a AutoPrint) Schedule(ctx context.Context, ev events.Event) error {
	if !a.Enabled || a.Queue == nil || ev.Topic != events.TopicInvoiceSaved {
		return nil
	}
	var payload events.InvoiceSaved
	if err := ev.Decode(&payload); err != nil {
		return fmt.Errorf("decode invoice.saved: %w", err)
	}
	no := payload.InvoiceNo
	if no == "" {
		no = ev.AggregateID
	}
	return a.Queue.EnqueuePrint(ctx, no)
}

// ReceiptSource loads the receipt of a persisted invoice.
type ReceiptSource interface {
	Receipt(ctx context.Context, invoiceNo string) (receipt.Receipt, error)
}

// Locker serialises access to a shared printer across worker processes.
type Locker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error
}

// Worker prints receipts for dequeued tasks.
type Worker struct {
	Receipts ReceiptSource
	Printer  receipt.Printer
	Width    int
	Locker   Locker
	LockKey  string
	LockTTL  time.Duration
	Breaker  *resilience.Breaker
	Logger   zerolog.Logger
}

// Mux routes print tasks to w.
func (w Worker) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.Handle(TaskType, w)
	return mux
}

// ProcessTask implements asynq.Handler. Every failure is marked SkipRetry
// so a receipt is printed at most once per request.
func (w Worker) ProcessTask(ctx context.Context, task *asynq.Task) error {
	if w.Receipts == nil || w.Printer == nil {
		return fmt.Errorf("printjob: worker not configured: %w", asynq.SkipRetry)
	}
	var payload Payload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil || strings.TrimSpace(payload.InvoiceNo) == "" {
		obs.CountResult(obs.ReceiptsPrintedTotal, "invalid")
		return fmt.Errorf("printjob: bad payload: %w", asynq.SkipRetry)
	}
	rec, err := w.Receipts.Receipt(ctx, payload.InvoiceNo)
	if err != nil {
		if common.HasCode(err, common.CodeNotFound) {
			obs.CountResult(obs.ReceiptsPrintedTotal, "invalid")
			return fmt.Errorf("printjob: invoice %s: %v: %w", payload.InvoiceNo, err, asynq.SkipRetry)
		}
		obs.CountResult(obs.ReceiptsPrintedTotal, "error")
		return fmt.Errorf("printjob: load %s: %w: %w", payload.InvoiceNo, err, asynq.SkipRetry)
	}
	width := w.Width
	if width <= 0 {
		width = 48
	}
	data := rec.ESCPOS(width)

	send := func(ctx context.Context) error {
		start := time.Now()
		err := w.Breaker.Do(ctx, func(ctx context.Context) error {
			return w.Printer.Print(ctx, data)
		})
		if h := obs.ReceiptPrintLatency; h != nil {
			h.Observe(obs.DurationMillis(time.Since(start)))
		}
		return err
	}
	if w.Locker != nil {
		key := w.LockKey
		if key == "" {
			key = lock.PrinterKey("")
		}
		err = w.Locker.WithLock(ctx, key, w.LockTTL, send)
	} else {
		err = send(ctx)
	}
	if err != nil {
		obs.CountResult(obs.ReceiptsPrintedTotal, "error")
		w.Logger.Error().Err(err).Str("invoice_no", payload.InvoiceNo).Msg("receipt print failed")
		return fmt.Errorf("printjob: print %s: %w: %w", payload.InvoiceNo, err, asynq.SkipRetry)
	}
	obs.CountResult(obs.ReceiptsPrintedTotal, "ok")
	w.Logger.Info().Str("invoice_no", payload.InvoiceNo).Int("bytes", len(data)).Msg("receipt printed")
	return nil
}
