package entity

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

type ChangeKind string

const (
	ChangeInsert ChangeKind = "INSERT"
	ChangeUpdate ChangeKind = "UPDATE"
	ChangeDelete ChangeKind = "DELETE"
	// ChangeResync avisa que notificações podem ter se perdido e a tabela
	// inteira precisa ser lida de novo.
	ChangeResync ChangeKind = "RESYNC"
)

var (
	ErrUnknownChangeKind = errors.New("unknown change kind")
	ErrMissingLeadID     = errors.New("change event without lead id")
)

// ChangeEvent é uma notificação da tabela remota de leads. Record traz a
// linha nova em insert/update; OldID identifica a linha removida no delete.
// Partial marca um evento cujo registro veio só com o id porque a linha não
// cabia no payload do NOTIFY.
type ChangeEvent struct {
	Kind    ChangeKind `json:"type"`
	Table   string     `json:"table,omitempty"`
	Record  *Lead      `json:"record,omitempty"`
	OldID   int64      `json:"-"`
	Partial bool       `json:"truncated,omitempty"`
}

// LeadID devolve o id a que o evento se refere.
func (e ChangeEvent) LeadID() (int64, bool) {
	if e.Record != nil && e.Record.ID != 0 {
		return e.Record.ID, true
	}
	if e.OldID != 0 {
		return e.OldID, true
	}
	return 0, false
}

// Validate diz se o evento tem dados suficientes para ser aplicado.
func (e ChangeEvent) Validate() error {
	switch e.Kind {
	case ChangeInsert, ChangeUpdate:
		if e.Record == nil || e.Record.ID == 0 {
			return ErrMissingLeadID
		}
	case ChangeDelete:
		if _, ok := e.LeadID(); !ok {
			return ErrMissingLeadID
		}
	case ChangeResync:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownChangeKind, e.Kind)
	}
	return nil
}

// changePayload espelha o corpo do webhook/trigger: {"type", "table", "record", "old_record"}.
type changePayload struct {
	Type      string          `json:"type"`
	EventType string          `json:"eventType"`
	Table     string          `json:"table"`
	Record    json.RawMessage `json:"record"`
	New       json.RawMessage `json:"new"`
	OldRecord json.RawMessage `json:"old_record"`
	Old       json.RawMessage `json:"old"`
	Truncated bool            `json:"truncated"`
}

// DecodeChangeEvent interpreta o corpo da notificação e valida o formato.
func DecodeChangeEvent(body []byte) (ChangeEvent, error) {
	var p changePayload
	if err := json.Unmarshal(body, &p); err != nil {
		return ChangeEvent{}, fmt.Errorf("invalid change payload: %w", err)
	}

	kind := p.Type
	if kind == "" {
		kind = p.EventType
	}
	ev := ChangeEvent{
		Kind:    ChangeKind(strings.ToUpper(strings.TrimSpace(kind))),
		Table:   p.Table,
		Partial: p.Truncated,
	}

	if raw := firstPresent(p.Record, p.New); raw != nil {
		var rec Lead
		if err := json.Unmarshal(raw, &rec); err != nil {
			return ChangeEvent{}, fmt.Errorf("invalid change record: %w", err)
		}
		if rec.ID != 0 {
			ev.Record = &rec
		}
	}
	if raw := firstPresent(p.OldRecord, p.Old); raw != nil {
		var old struct {
			ID int64 `json:"id"`
		}
		if err := json.Unmarshal(raw, &old); err != nil {
			return ChangeEvent{}, fmt.Errorf("invalid change old_record: %w", err)
		}
		ev.OldID = old.ID
	}

	if err := ev.Validate(); err != nil {
		return ev, err
	}
	return ev, nil
}

func firstPresent(raws ...json.RawMessage) json.RawMessage {
	for _, r := range raws {
		if len(r) > 0 && string(r) != "null" && string(r) != "{}" {
			return r
		}
	}
	return nil
}

// Subscription é um feed de mudanças ativo. Close precisa ser idempotente.
type Subscription interface {
	Close() error
}
