package entity

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"time"
)

// Rótulos usados quando um campo opcional está ausente.
const (
	Placeholder   = "—"
	DefaultOrigin = "organic"
	DefaultStage  = "0"
)

// Lead é uma linha da tabela remota de leads. ID e CreatedAt vêm da camada de
// persistência; todo o resto é opcional.
type Lead struct {
	ID              int64     `json:"id"`
	Name            *string   `json:"nomewpp,omitempty"`
	Phone           *string   `json:"telefone,omitempty"`
	Subject         *string   `json:"ASSUNTO,omitempty"`
	Status          *string   `json:"STATUS,omitempty"`
	Stage           *string   `json:"etapa_atendimento,omitempty"`
	Origin          *string   `json:"ORIGEM,omitempty"`
	AttendanceState *string   `json:"atendimento,omitempty"`
	CreativeRef     *string   `json:"criativo,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// LeadPatch carrega os campos editáveis de um update parcial.
type LeadPatch struct {
	Name    string `json:"nomewpp"`
	Phone   string `json:"telefone"`
	Subject string `json:"ASSUNTO"`
	Status  string `json:"STATUS"`
	Stage   string `json:"etapa_atendimento"`
	Origin  string `json:"ORIGEM"`
}

type LeadRepositoryInterface interface {
	FetchAll(ctx context.Context) ([]Lead, error)
	UpdateByID(ctx context.Context, id int64, patch LeadPatch) error
}

// StringPtr devolve nil para string vazia.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func value(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func orDefault(p *string, def string) string {
	if v := strings.TrimSpace(value(p)); v != "" {
		return v
	}
	return def
}

func (l Lead) IsEmpty() bool { return l.ID == 0 }

func (l Lead) DisplayName() string { return orDefault(l.Name, Placeholder) }
func (l Lead) DisplayPhone() string { return orDefault(l.Phone, Placeholder) }
func (l Lead) DisplaySubject() string { return orDefault(l.Subject, Placeholder) }
func (l Lead) DisplayStage() string { return orDefault(l.Stage, DefaultStage) }

// OriginLabel devolve o canal de aquisição, "organic" quando vazio.
func (l Lead) OriginLabel() string { return orDefault(l.Origin, DefaultOrigin) }

// StatusKey é o status do funil sem espaços e em minúsculas ("" quando vazio).
func (l Lead) StatusKey() string {
	return strings.ToLower(strings.TrimSpace(value(l.Status)))
}

// RawStatus é o status como está gravado, sem espaços nas pontas.
func (l Lead) RawStatus() string { return strings.TrimSpace(value(l.Status)) }

func (l Lead) AttendanceKey() string {
	return strings.ToLower(strings.TrimSpace(value(l.AttendanceState)))
}

func (l Lead) Creative() string { return strings.TrimSpace(value(l.CreativeRef)) }

// NameValue, PhoneValue etc. expõem os valores crus ("" quando vazios).
func (l Lead) NameValue() string    { return value(l.Name) }
func (l Lead) PhoneValue() string   { return value(l.Phone) }
func (l Lead) SubjectValue() string { return value(l.Subject) }
func (l Lead) StageValue() string   { return value(l.Stage) }
func (l Lead) OriginValue() string  { return value(l.Origin) }

// Merge devolve uma cópia de l com cada campo não nil de other aplicado.
// ID e CreatedAt nunca mudam.
func (l Lead) Merge(other Lead) Lead {
	out := l
	if other.Name != nil {
		out.Name = other.Name
	}
	if other.Phone != nil {
		out.Phone = other.Phone
	}
	if other.Subject != nil {
		out.Subject = other.Subject
	}
	if other.Status != nil {
		out.Status = other.Status
	}
	if other.Stage != nil {
		out.Stage = other.Stage
	}
	if other.Origin != nil {
		out.Origin = other.Origin
	}
	if other.AttendanceState != nil {
		out.AttendanceState = other.AttendanceState
	}
	if other.CreativeRef != nil {
		out.CreativeRef = other.CreativeRef
	}
	return out
}

// UnmarshalJSON aceita etapa_atendimento como string ou número.
func (l *Lead) UnmarshalJSON(data []byte) error {
	type alias Lead
	aux := struct {
		*alias
		Stage     json.RawMessage `json:"etapa_atendimento,omitempty"`
		CreatedAt *time.Time      `json:"created_at,omitempty"`
	}{alias: (*alias)(l)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.CreatedAt != nil {
		l.CreatedAt = *aux.CreatedAt
	}

	raw := bytes.TrimSpace(aux.Stage)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		l.Stage = nil
		return nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return err
		}
		l.Stage = &s
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return err
	}
	s := n.String()
	l.Stage = &s
	return nil
}
