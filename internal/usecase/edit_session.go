package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xavierca1/ligue-crm/internal/entity"
)

type SessionState string

const (
	StateClosed SessionState = "closed"
	StateOpen   SessionState = "open"
	StateSaving SessionState = "saving"
)

// Draft é a cópia editável de um lead.
type Draft struct {
	LeadID  int64  `json:"lead_id"`
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Subject string `json:"subject"`
	Status  string `json:"status"`
	Stage   string `json:"stage"`
	Origin  string `json:"origin"`
}

func (d Draft) patch() entity.LeadPatch {
	return entity.LeadPatch{
		Name:    d.Name,
		Phone:   d.Phone,
		Subject: d.Subject,
		Status:  NormalizeStatus(d.Status),
		Stage:   d.Stage,
		Origin:  d.Origin,
	}
}

// NormalizeStatus é a forma canônica gravada de um status do funil.
func NormalizeStatus(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

type SessionView struct {
	ID    string       `json:"id,omitempty"`
	State SessionState `json:"state"`
	Draft *Draft       `json:"draft,omitempty"`
}

// EditSessionUseCase conduz a única sessão de edição de uma instância do
// painel: Closed -> Open -> Saving -> Closed, voltando a Open se o commit falhar.
type EditSessionUseCase struct {
	Repo      LeadRepositoryInterface
	Refresher Refresher
	Publisher ChangePublisher
	Catalog   *entity.StageCatalog
	Metrics   MetricsRecorder

	logger *zap.Logger

	mu    sync.Mutex
	state SessionState
	id    string
	draft Draft
}

func NewEditSessionUseCase(
	repo LeadRepositoryInterface,
	refresher Refresher,
	publisher ChangePublisher,
	catalog *entity.StageCatalog,
	metrics MetricsRecorder,
	logger *zap.Logger,
) *EditSessionUseCase {
	if catalog == nil {
		catalog = entity.NewStageCatalog(nil)
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EditSessionUseCase{
		Repo:      repo,
		Refresher: refresher,
		Publisher: publisher,
		Catalog:   catalog,
		Metrics:   metrics,
		logger:    logger,
		state:     StateClosed,
	}
}

// Open copia lead para um rascunho novo. Lead vazio deixa a sessão como está;
// abrir com um commit em voo devolve ErrSessionBusy.
func (uc *EditSessionUseCase) Open(lead entity.Lead) (SessionView, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	if uc.state == StateSaving {
		return uc.viewLocked(), ErrSessionBusy
	}
	if lead.IsEmpty() {
		return uc.viewLocked(), nil
	}

	status := lead.RawStatus()
	if status == "" {
		status = uc.Catalog.DefaultKey()
	}
	stage := strings.TrimSpace(lead.StageValue())
	if stage == "" {
		stage = entity.DefaultStage
	}

	uc.id = uuid.New().String()
	uc.state = StateOpen
	uc.draft = Draft{
		LeadID:  lead.ID,
		Name:    lead.NameValue(),
		Phone:   lead.PhoneValue(),
		Subject: lead.SubjectValue(),
		Status:  status,
		Stage:   stage,
		Origin:  lead.OriginValue(),
	}
	uc.logger.Debug("sessão de edição aberta", zap.String("session", uc.id), zap.Int64("lead_id", lead.ID))
	return uc.viewLocked(), nil
}

// UpdateField altera um campo editável do rascunho. Aceita o nome do campo
// (name, phone, subject, status, stage, origin) ou o nome da coluna.
func (uc *EditSessionUseCase) UpdateField(key, value string) (SessionView, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	if err := uc.requireOpenLocked(); err != nil {
		return uc.viewLocked(), err
	}

	switch strings.TrimSpace(key) {
	case "name", "nomewpp":
		uc.draft.Name = value
	case "phone", "telefone":
		uc.draft.Phone = value
	case "subject", "ASSUNTO":
		uc.draft.Subject = value
	case "status", "STATUS":
		uc.draft.Status = value
	case "stage", "etapa_atendimento":
		uc.draft.Stage = value
	case "origin", "ORIGEM":
		uc.draft.Origin = value
	default:
		return uc.viewLocked(), fmt.Errorf("%w: %q", ErrUnknownField, key)
	}
	return uc.viewLocked(), nil
}

// Commit grava os campos editáveis do rascunho na tabela remota e, se der
// certo, fecha a sessão e dispara uma recarga. Se falhar, a sessão volta a
// Open com o rascunho intacto.
func (uc *EditSessionUseCase) Commit(ctx context.Context) error {
	uc.mu.Lock()
	if err := uc.requireOpenLocked(); err != nil {
		uc.mu.Unlock()
		return err
	}
	if errs := ValidateDraft(uc.draft); len(errs) > 0 {
		uc.mu.Unlock()
		return &DomainError{Code: "VALIDATION_ERROR", Message: joinValidationErrors(errs)}
	}
	uc.state = StateSaving
	sessionID := uc.id
	leadID := uc.draft.LeadID
	patch := uc.draft.patch()
	uc.mu.Unlock()

	if err := uc.Repo.UpdateByID(ctx, leadID, patch); err != nil {
		uc.mu.Lock()
		uc.state = StateOpen
		uc.mu.Unlock()

		uc.Metrics.RecordCommit("error")
		uc.logger.Warn("update do lead falhou, rascunho mantido",
			zap.String("session", sessionID), zap.Int64("lead_id", leadID), zap.Error(err))
		return &EditCommitError{
			Code:    "EDIT_COMMIT_FAILED",
			Message: "falha ao salvar lead",
			LeadID:  leadID,
			Err:     err,
		}
	}

	uc.mu.Lock()
	uc.state = StateClosed
	uc.id = ""
	uc.draft = Draft{}
	uc.mu.Unlock()

	uc.Metrics.RecordCommit("ok")
	uc.logger.Info("lead atualizado", zap.String("session", sessionID), zap.Int64("lead_id", leadID))

	if uc.Publisher != nil {
		ev := entity.ChangeEvent{Kind: entity.ChangeUpdate, Record: patchedLead(leadID, patch)}
		if err := uc.Publisher.PublishChange(ctx, ev); err != nil {
			uc.logger.Warn("falha ao publicar mudança", zap.Int64("lead_id", leadID), zap.Error(err))
		}
	}
	if uc.Refresher != nil {
		if err := uc.Refresher.Refresh(ctx); err != nil {
			uc.logger.Warn("reload após commit falhou", zap.Int64("lead_id", leadID), zap.Error(err))
		}
	}
	return nil
}

// Discard descarta o rascunho sem efeito remoto.
func (uc *EditSessionUseCase) Discard() (SessionView, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	if uc.state == StateSaving {
		return uc.viewLocked(), ErrSessionBusy
	}
	uc.state = StateClosed
	uc.id = ""
	uc.draft = Draft{}
	return uc.viewLocked(), nil
}

func (uc *EditSessionUseCase) Current() SessionView {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	return uc.viewLocked()
}

func (uc *EditSessionUseCase) requireOpenLocked() error {
	switch uc.state {
	case StateOpen:
		return nil
	case StateSaving:
		return ErrSessionBusy
	default:
		return ErrSessionNotOpen
	}
}

func (uc *EditSessionUseCase) viewLocked() SessionView {
	v := SessionView{ID: uc.id, State: uc.state}
	if uc.state != StateClosed {
		d := uc.draft
		v.Draft = &d
	}
	return v
}

func patchedLead(id int64, p entity.LeadPatch) *entity.Lead {
	return &entity.Lead{
		ID:      id,
		Name:    &p.Name,
		Phone:   &p.Phone,
		Subject: &p.Subject,
		Status:  &p.Status,
		Stage:   &p.Stage,
		Origin:  &p.Origin,
	}
}
