package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/xavierca1/ligue-crm/internal/entity"
)

const DefaultLeadsTable = "dados_cliente"

var (
	ErrPermissionDenied = errors.New("sem permissão na tabela de leads")
	ErrTableNotFound    = errors.New("tabela de leads não encontrada")
)

var _ entity.LeadRepositoryInterface = (*LeadRepository)(nil)

// LeadRepository lê e atualiza a tabela de leads do CRM.
type LeadRepository struct {
	DB     *sql.DB
	table  string
	logger *zap.Logger
}

func NewLeadRepository(db *sql.DB, table string, logger *zap.Logger) *LeadRepository {
	if table == "" {
		table = DefaultLeadsTable
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LeadRepository{
		DB:     db,
		table:  pgx.Identifier{table}.Sanitize(),
		logger: logger,
	}
}

// FetchAll traz a tabela inteira, mais recentes primeiro.
func (r *LeadRepository) FetchAll(ctx context.Context) ([]entity.Lead, error) {
	query := fmt.Sprintf(`
		SELECT id, nomewpp, telefone, "ASSUNTO", "STATUS", etapa_atendimento::text,
		       "ORIGEM", atendimento, criativo, created_at
		FROM %s
		ORDER BY created_at DESC NULLS LAST, id DESC
	`, r.table)

	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, r.mapError("fetch", err)
	}
	defer rows.Close()

	leads := make([]entity.Lead, 0, 64)
	for rows.Next() {
		var (
			l                                   entity.Lead
			name, phone, subject, status, stage sql.NullString
			origin, attendance, creative        sql.NullString
			createdAt                           sql.NullTime
		)
		if err := rows.Scan(
			&l.ID, &name, &phone, &subject, &status, &stage,
			&origin, &attendance, &creative, &createdAt,
		); err != nil {
			return nil, fmt.Errorf("scan lead: %w", err)
		}
		l.Name = fromNull(name)
		l.Phone = fromNull(phone)
		l.Subject = fromNull(subject)
		l.Status = fromNull(status)
		l.Stage = fromNull(stage)
		l.Origin = fromNull(origin)
		l.AttendanceState = fromNull(attendance)
		l.CreativeRef = fromNull(creative)
		if createdAt.Valid {
			l.CreatedAt = createdAt.Time
		}
		leads = append(leads, l)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapError("fetch", err)
	}
	return leads, nil
}

// UpdateByID grava os seis campos editáveis. String vazia vira NULL.
func (r *LeadRepository) UpdateByID(ctx context.Context, id int64, patch entity.LeadPatch) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET nomewpp = $1, telefone = $2, "ASSUNTO" = $3, "STATUS" = $4,
		    etapa_atendimento = $5, "ORIGEM" = $6
		WHERE id = $7
	`, r.table)

	res, err := r.DB.ExecContext(ctx, query,
		nullString(patch.Name),
		nullString(patch.Phone),
		nullString(patch.Subject),
		nullString(patch.Status),
		nullString(patch.Stage),
		nullString(patch.Origin),
		id,
	)
	if err != nil {
		return r.mapError("update", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: id %d", entity.ErrLeadNotFound, id)
	}
	return nil
}

func (r *LeadRepository) mapError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		r.logger.Error("erro no banco",
			zap.String("op", op),
			zap.String("code", pgErr.Code),
			zap.String("message", pgErr.Message))
		switch pgErr.Code {
		case "42501":
			return fmt.Errorf("%w: %s", ErrPermissionDenied, pgErr.Message)
		case "42P01":
			return fmt.Errorf("%w: %s", ErrTableNotFound, pgErr.Message)
		}
	}
	return fmt.Errorf("%s leads: %w", op, err)
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func fromNull(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}
