package printjob_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-pos/internal/common"
	"github.com/noah-isme/toko-pos/internal/events"
	"github.com/noah-isme/toko-pos/internal/lock"
	"github.com/noah-isme/toko-pos/internal/pricing"
	"github.com/noah-isme/toko-pos/internal/printjob"
	"github.com/noah-isme/toko-pos/internal/receipt"
	"github.com/noah-isme/toko-pos/internal/resilience"
)

type receipts struct {
	known map[string]receipt.Receipt
	err   error
}

func (r receipts) Receipt(_ context.Context, no string) (receipt.Receipt, error) {
	if r.err != nil {
		return receipt.Receipt{}, r.err
	}
	rec, ok := r.known[no]
	if !ok {
		return receipt.Receipt{}, &common.AppError{Code: common.CodeNotFound, Message: "Invoice not found", HTTPStatus: http.StatusNotFound}
	}
	return rec, nil
}

type queueStub struct {
	got []string
}

func (q *queueStub) EnqueuePrint(_ context.Context, no string) error {
	q.got = append(q.got, no)
	return nil
}

func sampleReceipt(t *testing.T) receipt.Receipt {
	t.Helper()
	summary := pricing.Compute([]pricing.Line{{
		ItemID:        "1",
		Name:          "Teh Botol",
		Quantity:      decimal.NewFromInt(2),
		UnitPrice:     decimal.NewFromInt(5000),
		TaxRate:       decimal.RequireFromString("0.05"),
		DiscountType:  pricing.Percent,
		DiscountValue: decimal.Zero,
	}}, decimal.Zero)
	rec, err := receipt.Composer{
		Store: receipt.StoreHeader{Name: "Toko Makmur"},
		Now:   func() time.Time { return time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC) },
	}.Compose(summary, "INV-20260101-000007", receipt.Cash)
	require.NoError(t, err)
	return rec
}

func TestWorkerPrintsReceipt(t *testing.T) {
	var out bytes.Buffer
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	w := printjob.Worker{
		Receipts: receipts{known: map[string]receipt.Receipt{"INV-20260101-000007": sampleReceipt(t)}},
		Printer:  receipt.NewWriterPrinter(&out),
		Width:    48,
		Locker:   lock.Locker{Client: client},
		LockKey:  "lock:printer:test",
	}
	task, err := printjob.NewTask("INV-20260101-000007")
	require.NoError(t, err)
	require.Equal(t, printjob.TaskType, task.Type())

	require.NoError(t, w.ProcessTask(context.Background(), task))
	require.True(t, bytes.HasPrefix(out.Bytes(), []byte{0x1b, '@'}))
	require.Contains(t, out.String(), "Teh Botol")
	require.Contains(t, out.String(), "INV-20260101-000007")
	require.False(t, mr.Exists("lock:printer:test"))
}

func TestWorkerSkipsRetryForUnknownInvoice(t *testing.T) {
	w := printjob.Worker{
		Receipts: receipts{known: map[string]receipt.Receipt{}},
		Printer:  receipt.NewWriterPrinter(&bytes.Buffer{}),
	}
	task, err := printjob.NewTask("INV-20260101-000099")
	require.NoError(t, err)
	err = w.ProcessTask(context.Background(), task)
	require.ErrorIs(t, err, asynq.SkipRetry)

	err = w.ProcessTask(context.Background(), asynq.NewTask(printjob.TaskType, []byte(`{`)))
	require.ErrorIs(t, err, asynq.SkipRetry)

	dbDown := errors.New("db down")
	failing := printjob.Worker{Receipts: receipts{err: dbDown}, Printer: receipt.NewWriterPrinter(&bytes.Buffer{})}
	err = failing.ProcessTask(context.Background(), task)
	require.ErrorIs(t, err, dbDown)
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestAutoPrintSchedulesSavedInvoices(t *testing.T) {
	q := &queueStub{}
	bus := events.Bus{Scheduler: printjob.AutoPrint{Queue: q, Enabled: true}}

	_, err := bus.Emit(context.Background(), events.TopicInvoiceSaved, "INV-20260101-000001", events.InvoiceSaved{InvoiceNo: "INV-20260101-000001"})
	require.NoError(t, err)
	_, err = bus.Emit(context.Background(), events.TopicItemAdded, "5", nil)
	require.NoError(t, err)
	require.Equal(t, []string{"INV-20260101-000001"}, q.got)

	off := events.Bus{Scheduler: printjob.AutoPrint{Queue: q}}
	_, err = off.Emit(context.Background(), events.TopicInvoiceSaved, "INV-20260101-000002", nil)
	require.NoError(t, err)
	require.Len(t, q.got, 1)
}

func TestNewTaskAndEnqueuerValidation(t *testing.T) {
	_, err := printjob.NewTask("  ")
	require.Error(t, err)
	require.Error(t, printjob.Enqueuer{}.EnqueuePrint(context.Background(), "INV-1"))
}

func TestEnqueuedPrintIsNeverRetried(t *testing.T) {
	mr := miniredis.RunT(t)
	opt := asynq.RedisClientOpt{Addr: mr.Addr()}
	client := asynq.NewClient(opt)
	t.Cleanup(func() { _ = client.Close() })
	inspector := asynq.NewInspector(opt)
	t.Cleanup(func() { _ = inspector.Close() })

	q := printjob.Enqueuer{Client: client}
	require.NoError(t, q.EnqueuePrint(context.Background(), "INV-20260101-000007"))

	pending, err := inspector.ListPendingTasks(printjob.DefaultQueue)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, printjob.TaskType, pending[0].Type)
	require.Equal(t, 0, pending[0].MaxRetry)
}

type offlinePrinter struct {
	calls int
}

func (p *offlinePrinter) Print(context.Context, []byte) error {
	p.calls++
	return errors.New("dial tcp 10.0.0.9:9100: connection refused")
}
func (p *offlinePrinter) Close() error      { return nil }
func (p *offlinePrinter) IsConnected() bool { return false }

func TestWorkerBreakerStopsHammeringOfflinePrinter(t *testing.T) {
	printer := &offlinePrinter{}
	w := printjob.Worker{
		Receipts: receipts{known: map[string]receipt.Receipt{"INV-20260101-000007": sampleReceipt(t)}},
		Printer:  printer,
		Breaker:  resilience.NewBreaker(1, 0.5, time.Minute).WithTarget("printer"),
	}
	task, err := printjob.NewTask("INV-20260101-000007")
	require.NoError(t, err)

	require.Error(t, w.ProcessTask(context.Background(), task))
	err = w.ProcessTask(context.Background(), task)
	require.ErrorIs(t, err, resilience.ErrOpenCircuit)
	require.ErrorIs(t, err, asynq.SkipRetry)
	require.Equal(t, 1, printer.calls)
}
