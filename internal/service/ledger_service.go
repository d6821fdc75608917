package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"payments_ledger/internal/domain"
	"payments_ledger/internal/ledgerio"
	"payments_ledger/internal/processor"
	"payments_ledger/internal/repository"
)

// ErrInvalidInput marks failures to decode the transaction input. No ledger
// is produced when it is returned.
var ErrInvalidInput = errors.New("invalid transaction input")

// BuildRecorder receives the duration and result of every finished build.
type BuildRecorder interface {
	RecordBuild(duration time.Duration, ledger domain.Ledger)
}

// ReportSigner signs rendered ledgers.
type ReportSigner interface {
	Sign(data []byte) string
}

// Report is the result of one ledger run.
type Report struct {
	RunID     uuid.UUID
	Ledger    domain.Ledger
	Format    ledgerio.Format
	Body      []byte
	Signature string
	Duration  time.Duration
}

// LedgerService runs the whole pipeline for one input: decode, build,
// render, then optionally sign and export. Every run starts from an empty
// state, so runs are independent and may execute concurrently.
type LedgerService struct {
	observer processor.Observer
	recorder BuildRecorder
	signer   ReportSigner
	store    repository.LedgerRepository
	workers  int
	logger   *slog.Logger
}

type Option func(*LedgerService)

func WithObserver(o processor.Observer) Option {
	return func(s *LedgerService) { s.observer = o }
}

func WithRecorder(r BuildRecorder) Option {
	return func(s *LedgerService) { s.recorder = r }
}

func WithSigner(signer ReportSigner) Option {
	return func(s *LedgerService) { s.signer = signer }
}

func WithStore(store repository.LedgerRepository) Option {
	return func(s *LedgerService) { s.store = store }
}

func WithWorkers(n int) Option {
	return func(s *LedgerService) { s.workers = n }
}

func NewLedgerService(logger *slog.Logger, opts ...Option) *LedgerService {
	if logger == nil {
		logger = slog.Default()
	}

	s := &LedgerService{workers: 1, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *LedgerService) Run(ctx context.Context, input io.Reader, format ledgerio.Format) (*Report, error) {
	runID := uuid.New()
	logger := s.logger.With(slog.String("run_id", runID.String()))

	txs, err := ledgerio.Decode(input)
	if err != nil {
		logger.WarnContext(ctx, "Transaction input rejected", slog.String("error", err.Error()))
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	engine := processor.NewEngine(
		processor.WithLogger(logger),
		processor.WithObserver(s.observer),
	)

	startTime := time.Now()
	ledger, err := engine.ShardedBuild(ctx, nil, processor.Transactions(txs), s.workers)
	if err != nil {
		return nil, fmt.Errorf("build ledger: %w", err)
	}
	duration := time.Since(startTime)
	ledger = ledger.Sorted()

	if s.recorder != nil {
		s.recorder.RecordBuild(duration, ledger)
	}

	var buf bytes.Buffer
	if err := ledgerio.NewWriter(&buf, format).Write(ledger); err != nil {
		return nil, fmt.Errorf("render ledger: %w", err)
	}

	report := &Report{
		RunID:    runID,
		Ledger:   ledger,
		Format:   format,
		Body:     buf.Bytes(),
		Duration: duration,
	}
	if s.signer != nil {
		report.Signature = s.signer.Sign(report.Body)
	}

	if s.store != nil {
		if err := s.store.SaveLedger(ctx, runID, ledger); err != nil {
			return nil, fmt.Errorf("export ledger: %w", err)
		}
	}

	logger.InfoContext(ctx, "Ledger run complete",
		slog.Int("transactions", len(txs)),
		slog.Int("clients", len(ledger)),
		slog.Duration("duration", duration))
	return report, nil
}
