package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/xavierca1/ligue-crm/internal/usecase"
)

// ResyncWorker força um reload periódico da tabela. Cobre notificações que se
// perderam no caminho (trigger desligado, fila fora do ar).
type ResyncWorker struct {
	refresher    usecase.Refresher
	tickInterval time.Duration
	logger       *zap.Logger
}

func NewResyncWorker(refresher usecase.Refresher, interval time.Duration, logger *zap.Logger) *ResyncWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResyncWorker{
		refresher:    refresher,
		tickInterval: interval,
		logger:       logger,
	}
}

// Start bloqueia até ctx ser cancelado. Intervalo zero desliga o worker.
func (w *ResyncWorker) Start(ctx context.Context) {
	if w.tickInterval <= 0 {
		return
	}
	w.logger.Info("resync worker iniciado", zap.Duration("interval", w.tickInterval))

	ticker := time.NewTicker(w.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("resync worker encerrado")
			return
		case <-ticker.C:
			w.resync(ctx)
		}
	}
}

func (w *ResyncWorker) resync(ctx context.Context) {
	if err := w.refresher.Refresh(ctx); err != nil {
		w.logger.Warn("resync falhou", zap.Error(err))
	}
}
