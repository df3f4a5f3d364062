package service

import (
	"context"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/nulln0ne/portfolio-amm/internal/amm"
	"github.com/nulln0ne/portfolio-amm/internal/deployments"
	"github.com/nulln0ne/portfolio-amm/internal/metrics"
	"github.com/nulln0ne/portfolio-amm/internal/state"
)

// DefaultDeadlineWindow is added to the execution time when a request
// carries no deadline.
const DefaultDeadlineWindow = 20 * 60

// Engine runs operations against the ledger and the deployed contracts.
// Every read goes through View and every write through Execute, so callers
// never observe an operation half way.
type Engine struct {
	logger  *slog.Logger
	st      *state.State
	d       *deployments.Deployment
	metrics *metrics.Metrics
}

func NewEngine(logger *slog.Logger, st *state.State, d *deployments.Deployment, m *metrics.Metrics) *Engine {
	return &Engine{logger: logger, st: st, d: d, metrics: m}
}

func (e *Engine) Deployment() *deployments.Deployment { return e.d }

// Receipt is the JSON view of a committed operation.
type Receipt struct {
	Seq       uint64         `json:"seq"`
	Timestamp uint64         `json:"timestamp"`
	Sender    common.Address `json:"sender"`
	Logs      []Log          `json:"logs"`
}

// Log is one emitted event. Data holds the event value; it decodes back as
// a generic JSON object.
type Log struct {
	Address common.Address `json:"address"`
	Topic   *common.Hash   `json:"topic,omitempty"`
	Event   string         `json:"event"`
	Data    any            `json:"data"`
}

func newReceipt(r *state.Receipt) *Receipt {
	out := &Receipt{Seq: r.Seq, Timestamp: r.Timestamp, Sender: r.Sender, Logs: make([]Log, 0, len(r.Logs))}
	for _, l := range r.Logs {
		entry := Log{Address: l.Address, Event: l.Event.EventName(), Data: l.Event}
		if topic, ok := amm.Topic(l.Event); ok {
			entry.Topic = &topic
		}
		out.Logs = append(out.Logs, entry)
	}
	return out
}

// execute submits fn as one operation from from. Cancellation is only
// honored before submission.
func (e *Engine) execute(ctx context.Context, op string, from common.Address, value *big.Int, fn func(tx *state.Tx) error) (receipt *Receipt, err error) {
	defer e.metrics.Observe(op, e.metrics.Timer(op), &err)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r, err := e.st.Execute(state.Call{From: from, Value: value}, fn)
	if err != nil {
		e.logger.Debug("operation rejected", "op", op, "from", from.Hex(), "err", err)
		return nil, err
	}
	e.refreshGauges(r.Seq)
	e.logger.Debug("operation committed", "op", op, "from", from.Hex(), "seq", r.Seq, "logs", len(r.Logs))
	return newReceipt(r), nil
}

func (e *Engine) view(ctx context.Context, fn func(tx *state.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.st.View(fn)
}

func (e *Engine) refreshGauges(seq uint64) {
	e.metrics.CommittedSeq.Set(float64(seq))
	_ = e.st.View(func(*state.Tx) error {
		e.metrics.PairsInRegistry.Set(float64(e.d.Factory.AllPairsLength()))
		e.metrics.PortfoliosInRegistry.Set(float64(e.d.Portfolios.Len()))
		return nil
	})
}

func withDeadline(tx *state.Tx, deadline uint64) uint64 {
	if deadline == 0 {
		return tx.Timestamp() + DefaultDeadlineWindow
	}
	return deadline
}
