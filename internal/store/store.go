// Package store guarda em memória a coleção de leads da qual todas as views
// do painel são derivadas.
//
// As mutações são serializadas por um mutex e nunca alteram um slice já
// publicado: cada mudança monta um slice novo, então o leitor sempre vê uma
// versão inteira.
package store

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/xavierca1/ligue-crm/internal/entity"
)

// journalCap limita quantos deltas ficam guardados para replay.
const journalCap = 1024

var (
	// ErrNotADelta é devolvido quando um evento RESYNC chega em ApplyChange.
	ErrNotADelta = errors.New("evento não é um delta aplicável")
	// ErrJournalGap indica que deltas recebidos durante a carga já saíram do
	// journal; o resultado foi descartado e é preciso carregar de novo.
	ErrJournalGap = errors.New("deltas da carga não estão mais no journal")
)

// Snapshot é uma cópia somente leitura da coleção em uma versão.
type Snapshot struct {
	Records []entity.Lead
	Version uint64
}

// LoadTicket identifica um bulk load. Seq ordena as cargas; mark é a posição
// do journal de deltas quando a carga começou.
type LoadTicket struct {
	Seq  uint64
	mark uint64
}

type Store struct {
	mu         sync.RWMutex
	records    []entity.Lead
	version    uint64
	loadSeq    uint64
	appliedSeq uint64

	journal     []entity.ChangeEvent
	journalBase uint64

	subMu  sync.Mutex
	subs   map[int]func(version uint64)
	nextID int

	logger *zap.Logger
}

func New(logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		subs:   make(map[int]func(uint64)),
		logger: logger,
	}
}

// ReplaceAll troca a coleção inteira sem condição.
func (s *Store) ReplaceAll(records []entity.Lead) {
	s.mu.Lock()
	s.records = dedupe(records)
	s.version++
	v := s.version
	s.mu.Unlock()

	s.notify(v)
}

// BeginLoad abre um bulk load. Chame antes de buscar a tabela.
func (s *Store) BeginLoad() LoadTicket {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadSeq++
	return LoadTicket{Seq: s.loadSeq, mark: s.journalEnd()}
}

// CompleteLoad aplica o resultado de uma carga. Resposta mais antiga que a
// última aplicada é descartada (false, nil). Os deltas recebidos depois do
// BeginLoad são reaplicados por cima do resultado, então uma carga lenta não
// apaga uma mudança que chegou enquanto ela estava em voo.
func (s *Store) CompleteLoad(t LoadTicket, records []entity.Lead) (bool, error) {
	s.mu.Lock()
	if t.Seq <= s.appliedSeq {
		applied := s.appliedSeq
		s.mu.Unlock()
		s.logger.Debug("descartando carga antiga",
			zap.Uint64("seq", t.Seq), zap.Uint64("applied_seq", applied))
		return false, nil
	}
	if t.mark < s.journalBase {
		s.mu.Unlock()
		return false, fmt.Errorf("%w: seq %d", ErrJournalGap, t.Seq)
	}

	next := dedupe(records)
	pending := s.journal[t.mark-s.journalBase:]
	for _, ev := range pending {
		next, _, _ = applyDelta(next, ev)
	}

	// cargas futuras começam com mark >= t.mark
	s.journal = slices.Clone(pending)
	s.journalBase = t.mark

	s.appliedSeq = t.Seq
	s.records = next
	s.version++
	v := s.version
	s.mu.Unlock()

	if len(pending) > 0 {
		s.logger.Debug("deltas reaplicados sobre a carga",
			zap.Uint64("seq", t.Seq), zap.Int("deltas", len(pending)))
	}
	s.notify(v)
	return true, nil
}

// Warm popula um store vazio que nunca foi carregado. Depois de qualquer dado
// aplicado, não faz nada.
func (s *Store) Warm(records []entity.Lead) bool {
	s.mu.Lock()
	if s.version != 0 || len(records) == 0 {
		s.mu.Unlock()
		return false
	}
	s.records = dedupe(records)
	s.version++
	v := s.version
	s.mu.Unlock()

	s.notify(v)
	return true
}

// ApplyChange aplica um insert/update/delete. Update de id desconhecido
// devolve entity.ErrLeadNotFound sem mudar nada; delete de id desconhecido é
// ignorado. RESYNC não é delta e devolve ErrNotADelta.
//
// Todo delta válido entra no journal, mesmo sem efeito local: a carga em voo
// pode trazer a linha que ele altera.
func (s *Store) ApplyChange(ev entity.ChangeEvent) error {
	if err := ev.Validate(); err != nil {
		return err
	}
	if ev.Kind == entity.ChangeResync {
		return ErrNotADelta
	}

	s.mu.Lock()
	s.appendJournal(ev)
	next, changed, err := applyDelta(s.records, ev)
	if !changed {
		s.mu.Unlock()
		if err != nil {
			id, _ := ev.LeadID()
			s.logger.Warn("update de lead desconhecido ignorado", zap.Int64("lead_id", id))
		}
		return err
	}
	s.records = next
	s.version++
	v := s.version
	s.mu.Unlock()

	s.notify(v)
	return nil
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{Records: slices.Clone(s.records), Version: s.version}
}

func (s *Store) Get(id int64) (entity.Lead, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := indexOf(s.records, id); i >= 0 {
		return s.records[i], true
	}
	return entity.Lead{}, false
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Subscribe registra fn para ser chamada depois de cada mutação aplicada. Os
// callbacks rodam na goroutine que mutou o store e não podem bloquear. A
// função devolvida cancela a assinatura.
func (s *Store) Subscribe(fn func(version uint64)) (unsubscribe func()) {
	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
		})
	}
}

func (s *Store) notify(version uint64) {
	s.subMu.Lock()
	fns := make([]func(uint64), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(version)
	}
}

// journalEnd e appendJournal exigem mu.
func (s *Store) journalEnd() uint64 {
	return s.journalBase + uint64(len(s.journal))
}

func (s *Store) appendJournal(ev entity.ChangeEvent) {
	s.journal = append(s.journal, ev)
	if over := len(s.journal) - journalCap; over > 0 {
		s.journal = slices.Clone(s.journal[over:])
		s.journalBase += uint64(over)
	}
}

// applyDelta devolve a coleção com ev aplicado, sem tocar em records.
func applyDelta(records []entity.Lead, ev entity.ChangeEvent) ([]entity.Lead, bool, error) {
	id, _ := ev.LeadID()
	pos := indexOf(records, id)

	switch ev.Kind {
	case entity.ChangeInsert:
		if pos >= 0 {
			next := slices.Clone(records)
			next[pos] = *ev.Record
			return next, true, nil
		}
		next := make([]entity.Lead, 0, len(records)+1)
		next = append(next, *ev.Record)
		return append(next, records...), true, nil

	case entity.ChangeUpdate:
		if pos < 0 {
			return records, false, fmt.Errorf("%w: id %d", entity.ErrLeadNotFound, id)
		}
		next := slices.Clone(records)
		next[pos] = next[pos].Merge(*ev.Record)
		return next, true, nil

	case entity.ChangeDelete:
		if pos < 0 {
			return records, false, nil
		}
		next := make([]entity.Lead, 0, len(records)-1)
		next = append(next, records[:pos]...)
		return append(next, records[pos+1:]...), true, nil
	}
	return records, false, nil
}

func indexOf(records []entity.Lead, id int64) int {
	for i := range records {
		if records[i].ID == id {
			return i
		}
	}
	return -1
}

// dedupe mantém o primeiro registro de cada id, na ordem original.
func dedupe(records []entity.Lead) []entity.Lead {
	seen := make(map[int64]struct{}, len(records))
	out := make([]entity.Lead, 0, len(records))
	for _, r := range records {
		if _, ok := seen[r.ID]; ok {
			continue
		}
		seen[r.ID] = struct{}{}
		out = append(out, r)
	}
	return out
}
