package usecase

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/xavierca1/ligue-crm/internal/entity"
	"github.com/xavierca1/ligue-crm/internal/store"
)

type ChangePolicy string

const (
	// PolicyReload busca a tabela inteira a cada notificação.
	PolicyReload ChangePolicy = "reload"
	// PolicyDelta aplica o payload da notificação direto no store.
	PolicyDelta ChangePolicy = "delta"
)

// maxLoadAttempts limita as novas tentativas quando a carga perde o journal.
const maxLoadAttempts = 3

type IngestionStatus struct {
	Version    uint64    `json:"version"`
	Records    int       `json:"records"`
	LastLoadAt time.Time `json:"last_load_at,omitempty"`
	LastError  string    `json:"last_error,omitempty"`
	Live       bool      `json:"live"`
}

// IngestLeadsUseCase mantém o store em sincronia com a tabela remota: uma
// carga completa no início, a assinatura de mudanças e os refreshes manuais.
// Cada carga recebe um ticket do store, então resposta antiga nunca
// sobrescreve uma mais nova nem um delta que chegou depois dela.
type IngestLeadsUseCase struct {
	Repo       LeadRepositoryInterface
	Store      *store.Store
	Subscriber ChangeSubscriber
	Cache      SnapshotCache
	Metrics    MetricsRecorder
	Policy     ChangePolicy

	logger *zap.Logger
	reload chan struct{}
	wg     sync.WaitGroup

	// closeMu separa o fechamento da aplicação de uma carga: Load segura o
	// RLock entre checar closed e aplicar, Close pega o Lock para marcar.
	closeMu sync.RWMutex
	closed  atomic.Bool

	mu         sync.Mutex
	cancel     context.CancelFunc
	sub        entity.Subscription
	started    bool
	statusSeq  uint64
	lastErr    error
	lastLoadAt time.Time
}

func NewIngestLeadsUseCase(
	repo LeadRepositoryInterface,
	st *store.Store,
	subscriber ChangeSubscriber,
	cache SnapshotCache,
	metrics MetricsRecorder,
	policy ChangePolicy,
	logger *zap.Logger,
) *IngestLeadsUseCase {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if policy == "" {
		policy = PolicyReload
	}
	return &IngestLeadsUseCase{
		Repo:       repo,
		Store:      st,
		Subscriber: subscriber,
		Cache:      cache,
		Metrics:    metrics,
		Policy:     policy,
		logger:     logger,
		reload:     make(chan struct{}, 1),
	}
}

// Start abre a assinatura de mudanças e roda a primeira carga. A assinatura
// continua de pé mesmo se essa carga falhar; nesse caso o erro devolvido é um
// *IngestionError. Se a assinatura falhar, nada fica rodando e Start pode ser
// chamado de novo.
func (uc *IngestLeadsUseCase) Start(ctx context.Context) error {
	uc.mu.Lock()
	if uc.closed.Load() {
		uc.mu.Unlock()
		return ErrIngestorClosed
	}
	if uc.started {
		uc.mu.Unlock()
		return nil
	}
	uc.started = true
	runCtx, cancel := context.WithCancel(ctx)
	uc.cancel = cancel
	uc.mu.Unlock()

	uc.warmFromCache(runCtx)

	if uc.Subscriber != nil {
		sub, err := uc.Subscriber.Subscribe(runCtx, uc.handleEvent)
		if err != nil {
			cancel()
			uc.mu.Lock()
			uc.started = false
			uc.cancel = nil
			uc.mu.Unlock()
			uc.logger.Error("falha ao assinar mudanças", zap.Error(err))
			return err
		}
		uc.mu.Lock()
		if uc.closed.Load() {
			uc.mu.Unlock()
			_ = sub.Close()
			return ErrIngestorClosed
		}
		uc.sub = sub
		uc.mu.Unlock()
	}

	uc.wg.Add(1)
	go uc.reloadLoop(runCtx)

	return uc.Load(runCtx)
}

// Load busca a tabela inteira e troca o conteúdo do store. Em caso de falha o
// snapshot anterior continua valendo e o erro é um *IngestionError.
func (uc *IngestLeadsUseCase) Load(ctx context.Context) error {
	var err error
	for attempt := 1; attempt <= maxLoadAttempts; attempt++ {
		err = uc.loadOnce(ctx)
		if !errors.Is(err, store.ErrJournalGap) {
			return err
		}
		uc.logger.Warn("carga perdeu deltas recebidos em voo, buscando de novo",
			zap.Int("attempt", attempt), zap.Error(err))
	}
	return uc.recordFailure(0, "INGESTION_GAP", "mudanças demais durante a carga", err)
}

func (uc *IngestLeadsUseCase) loadOnce(ctx context.Context) error {
	if uc.closed.Load() {
		return ErrIngestorClosed
	}
	ticket := uc.Store.BeginLoad()

	records, err := uc.Repo.FetchAll(ctx)
	if err != nil {
		if uc.closed.Load() {
			return ErrIngestorClosed
		}
		return uc.recordFailure(ticket.Seq, "INGESTION_FAILED", "falha ao carregar leads", err)
	}

	uc.closeMu.RLock()
	if uc.closed.Load() {
		uc.closeMu.RUnlock()
		return ErrIngestorClosed
	}
	applied, err := uc.Store.CompleteLoad(ticket, records)
	uc.closeMu.RUnlock()
	if err != nil {
		return err
	}
	if !applied {
		uc.Metrics.RecordStaleDrop()
		return nil
	}

	uc.mu.Lock()
	if ticket.Seq > uc.statusSeq {
		uc.statusSeq = ticket.Seq
		uc.lastErr = nil
		uc.lastLoadAt = time.Now()
	}
	uc.mu.Unlock()

	uc.Metrics.RecordLoad("ok")
	uc.Metrics.SetStoreSize(uc.Store.Len())
	uc.logger.Debug("carga aplicada", zap.Uint64("seq", ticket.Seq), zap.Int("records", len(records)))

	if uc.Cache != nil {
		if err := uc.Cache.Save(ctx, records); err != nil {
			uc.logger.Warn("falha ao salvar snapshot no cache", zap.Error(err))
		}
	}
	return nil
}

// recordFailure registra a falha no status, a não ser que uma carga mais nova
// já tenha terminado. seq 0 sempre registra.
func (uc *IngestLeadsUseCase) recordFailure(seq uint64, code, msg string, err error) error {
	ierr := &IngestionError{Code: code, Message: msg, Seq: seq, Err: err}

	uc.mu.Lock()
	if seq == 0 || seq > uc.statusSeq {
		if seq > 0 {
			uc.statusSeq = seq
		}
		uc.lastErr = ierr
	}
	uc.mu.Unlock()

	uc.Metrics.RecordLoad("error")
	uc.logger.Warn("carga falhou, mantendo último snapshot",
		zap.Uint64("seq", seq), zap.Int("records", uc.Store.Len()), zap.Error(err))
	return ierr
}

// Refresh é o re-fetch manual.
func (uc *IngestLeadsUseCase) Refresh(ctx context.Context) error {
	return uc.Load(ctx)
}

// Close derruba a assinatura e descarta o efeito de qualquer carga ainda em
// voo. Pode ser chamado mais de uma vez.
func (uc *IngestLeadsUseCase) Close() error {
	uc.closeMu.Lock()
	if uc.closed.Load() {
		uc.closeMu.Unlock()
		return nil
	}
	uc.closed.Store(true)
	uc.closeMu.Unlock()

	uc.mu.Lock()
	cancel := uc.cancel
	sub := uc.sub
	uc.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	var err error
	if sub != nil {
		err = sub.Close()
	}
	uc.wg.Wait()
	return err
}

func (uc *IngestLeadsUseCase) Status() IngestionStatus {
	snap := uc.Store.Snapshot()
	uc.mu.Lock()
	defer uc.mu.Unlock()

	st := IngestionStatus{
		Version:    snap.Version,
		Records:    len(snap.Records),
		LastLoadAt: uc.lastLoadAt,
		Live:       uc.sub != nil && !uc.closed.Load(),
	}
	if uc.lastErr != nil {
		st.LastError = uc.lastErr.Error()
	}
	return st
}

func (uc *IngestLeadsUseCase) LastError() error {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	return uc.lastErr
}

func (uc *IngestLeadsUseCase) handleEvent(ev entity.ChangeEvent, err error) {
	if err != nil {
		if !IsMalformedChangeEvent(err) {
			err = &MalformedChangeEventError{Err: err}
		}
		uc.Metrics.RecordMalformedEvent()
		uc.logger.Warn("ignorando evento de mudança malformado", zap.Error(err))
		return
	}
	uc.Metrics.RecordChangeEvent(string(ev.Kind))

	// evento parcial só traz o id; a linha vem da próxima carga
	if uc.Policy == PolicyDelta && ev.Kind != entity.ChangeResync && !(ev.Partial && ev.Kind != entity.ChangeDelete) {
		if err := uc.Store.ApplyChange(ev); err != nil {
			if errors.Is(err, entity.ErrLeadNotFound) {
				return
			}
			uc.Metrics.RecordMalformedEvent()
			uc.logger.Warn("evento de mudança não aplicado", zap.String("kind", string(ev.Kind)), zap.Error(err))
			return
		}
		uc.Metrics.SetStoreSize(uc.Store.Len())
		return
	}

	uc.requestReload()
}

// requestReload agrupa rajadas: no máximo um reload pendente, sempre iniciado
// depois da última notificação.
func (uc *IngestLeadsUseCase) requestReload() {
	select {
	case uc.reload <- struct{}{}:
	default:
	}
}

func (uc *IngestLeadsUseCase) reloadLoop(ctx context.Context) {
	defer uc.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-uc.reload:
			if err := uc.Load(ctx); err != nil && !errors.Is(err, ErrIngestorClosed) {
				uc.logger.Debug("reload após mudança falhou", zap.Error(err))
			}
		}
	}
}

func (uc *IngestLeadsUseCase) warmFromCache(ctx context.Context) {
	if uc.Cache == nil {
		return
	}
	records, err := uc.Cache.Load(ctx)
	if err != nil {
		uc.logger.Debug("sem snapshot em cache", zap.Error(err))
		return
	}
	if uc.Store.Warm(records) {
		uc.Metrics.SetStoreSize(len(records))
		uc.logger.Info("store aquecido com snapshot do cache", zap.Int("records", len(records)))
	}
}
