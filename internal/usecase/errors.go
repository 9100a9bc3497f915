package usecase

import "errors"

var (
	ErrSessionNotOpen = errors.New("edit session is not open")
	ErrSessionBusy    = errors.New("edit session is saving")
	ErrUnknownField   = errors.New("field is not editable")
	ErrIngestorClosed = errors.New("ingestion closed")
)

type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

func IsDomainError(err error) bool {
	var de *DomainError
	return errors.As(err, &de)
}

type TechnicalError struct {
	Code    string
	Message string
	Err     error
}

func (e *TechnicalError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *TechnicalError) Unwrap() error { return e.Err }

func IsTechnicalError(err error) bool {
	var te *TechnicalError
	return errors.As(err, &te)
}

// IngestionError indica que a carga falhou; o snapshot anterior continua visível.
type IngestionError struct {
	Code    string
	Message string
	Seq     uint64
	Err     error
}

func (e *IngestionError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *IngestionError) Unwrap() error { return e.Err }

func IsIngestionError(err error) bool {
	var ie *IngestionError
	return errors.As(err, &ie)
}

// EditCommitError indica que o update parcial foi recusado; o rascunho fica.
type EditCommitError struct {
	Code    string
	Message string
	LeadID  int64
	Err     error
}

func (e *EditCommitError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *EditCommitError) Unwrap() error { return e.Err }

func IsEditCommitError(err error) bool {
	var ce *EditCommitError
	return errors.As(err, &ce)
}

// MalformedChangeEventError envolve uma notificação que não pôde ser decodificada nem aplicada.
type MalformedChangeEventError struct {
	Body []byte
	Err  error
}

func (e *MalformedChangeEventError) Error() string {
	return "malformed change event: " + e.Err.Error()
}

func (e *MalformedChangeEventError) Unwrap() error { return e.Err }

func IsMalformedChangeEvent(err error) bool {
	var me *MalformedChangeEventError
	return errors.As(err, &me)
}
