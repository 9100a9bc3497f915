package usecase

import (
	"context"

	"github.com/xavierca1/ligue-crm/internal/entity"
)

type LeadRepositoryInterface interface {
	FetchAll(ctx context.Context) ([]entity.Lead, error)
	UpdateByID(ctx context.Context, id int64, patch entity.LeadPatch) error
}

// ChangeSubscriber entrega as notificações de mudança da tabela de leads até a
// assinatura ser fechada ou ctx acabar. onEvent recebe o evento decodificado
// ou o erro que tornou o payload inutilizável.
type ChangeSubscriber interface {
	Subscribe(ctx context.Context, onEvent func(entity.ChangeEvent, error)) (entity.Subscription, error)
}

// ChangePublisher avisa as outras instâncias do painel sobre uma edição gravada.
type ChangePublisher interface {
	PublishChange(ctx context.Context, ev entity.ChangeEvent) error
}

// SnapshotCache guarda a última carga boa entre reinícios.
type SnapshotCache interface {
	Save(ctx context.Context, records []entity.Lead) error
	Load(ctx context.Context) ([]entity.Lead, error)
}

type Refresher interface {
	Refresh(ctx context.Context) error
}

type MetricsRecorder interface {
	RecordLoad(result string)
	RecordStaleDrop()
	RecordChangeEvent(kind string)
	RecordMalformedEvent()
	RecordCommit(result string)
	SetStoreSize(n int)
}

type noopMetrics struct{}

func (noopMetrics) RecordLoad(string)        {}
func (noopMetrics) RecordStaleDrop()         {}
func (noopMetrics) RecordChangeEvent(string) {}
func (noopMetrics) RecordMalformedEvent()    {}
func (noopMetrics) RecordCommit(string)      {}
func (noopMetrics) SetStoreSize(int)         {}
