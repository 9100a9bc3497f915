package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xavierca1/ligue-crm/internal/entity"
)

func TestNewLeadRepositoryDefaults(t *testing.T) {
	repo := NewLeadRepository(nil, "", nil)
	assert.Equal(t, `"dados_cliente"`, repo.table)

	repo = NewLeadRepository(nil, `leads"; drop table x; --`, nil)
	assert.Equal(t, `"leads""; drop table x; --"`, repo.table)
}

// TestMapError - códigos do Postgres viram erros sentinela
func TestMapError(t *testing.T) {
	repo := NewLeadRepository(nil, "", nil)

	err := repo.mapError("fetch", &pgconn.PgError{Code: "42501", Message: "permission denied for table dados_cliente"})
	assert.ErrorIs(t, err, ErrPermissionDenied)

	err = repo.mapError("fetch", &pgconn.PgError{Code: "42P01", Message: "relation does not exist"})
	assert.ErrorIs(t, err, ErrTableNotFound)

	cause := errors.New("connection reset")
	err = repo.mapError("update", cause)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "update leads: connection reset", err.Error())
}

func TestNullStringHelpers(t *testing.T) {
	assert.Nil(t, nullString(""))
	require.NotNil(t, nullString("x"))
	assert.Equal(t, "x", *nullString("x"))

	assert.Nil(t, fromNull(sql.NullString{}))
	assert.Equal(t, "", *fromNull(sql.NullString{Valid: true}))
}

func TestDefaultPoolConfig(t *testing.T) {
	cfg := DefaultPoolConfig()
	assert.Equal(t, 10, cfg.MaxOpenConns)
	assert.Equal(t, 5, cfg.MaxIdleConns)
	assert.Equal(t, 5*time.Minute, cfg.ConnMaxLifetime)
}

// TestNotifyTriggerFallsBackForLargeRows - linha grande publica só os ids
func TestNotifyTriggerFallsBackForLargeRows(t *testing.T) {
	stmts := notifyTriggerSQL("dados_cliente", "leads_changes")
	require.Len(t, stmts, 3)

	fn := stmts[0]
	assert.Contains(t, fn, `"dados_cliente_notify_change"()`)
	assert.Contains(t, fn, "octet_length(payload) > 7900")
	assert.Contains(t, fn, "'truncated', true")
	assert.Contains(t, fn, "pg_notify('leads_changes', payload)")
	assert.Contains(t, stmts[2], `ON "dados_cliente"`)
}

func TestNotifyTriggerDefaults(t *testing.T) {
	stmts := notifyTriggerSQL("", "")
	assert.Contains(t, stmts[0], "pg_notify('"+DefaultNotifyChannel+"', payload)")
	assert.Contains(t, stmts[1], pgx.Identifier{DefaultLeadsTable}.Sanitize())
}

// Os testes abaixo precisam de um Postgres de verdade (TEST_DATABASE_URL).
func openTestDB(t *testing.T) (*sql.DB, string, string) {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL não definido")
	}

	ctx := context.Background()
	db, err := NewDBConnection(ctx, dsn, DefaultPoolConfig())
	require.NoError(t, err)

	table := "leads_test_" + uuid.NewString()[:8]
	_, err = db.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE %s (
			id bigserial PRIMARY KEY,
			nomewpp text,
			telefone text,
			"ASSUNTO" text,
			"STATUS" text,
			etapa_atendimento text,
			"ORIGEM" text,
			atendimento text,
			criativo text,
			created_at timestamptz DEFAULT now()
		)`, table))
	require.NoError(t, err)

	t.Cleanup(func() {
		db.ExecContext(context.Background(), fmt.Sprintf(`DROP TABLE IF EXISTS %s CASCADE`, table))
		db.ExecContext(context.Background(), fmt.Sprintf(`DROP FUNCTION IF EXISTS %s_notify_change()`, table))
		db.Close()
	})
	return db, dsn, table
}

func TestLeadRepositoryIntegration(t *testing.T) {
	db, _, table := openTestDB(t)
	ctx := context.Background()
	repo := NewLeadRepository(db, table, nil)

	_, err := db.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (nomewpp, "STATUS", etapa_atendimento, created_at) VALUES
			('Antigo', 'new', '1', now() - interval '1 day'),
			('Novo', NULL, NULL, now()),
			('Sem data', 'client', '2', NULL)`, table))
	require.NoError(t, err)

	leads, err := repo.FetchAll(ctx)
	require.NoError(t, err)
	require.Len(t, leads, 3)
	assert.Equal(t, "Novo", leads[0].NameValue())
	assert.Nil(t, leads[0].Status)
	assert.Equal(t, "Antigo", leads[1].NameValue())
	assert.True(t, leads[2].CreatedAt.IsZero())

	id := leads[0].ID
	err = repo.UpdateByID(ctx, id, entity.LeadPatch{Name: "Novo", Status: "client", Stage: "3"})
	require.NoError(t, err)

	leads, err = repo.FetchAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, "client", leads[0].RawStatus())
	assert.Equal(t, "3", leads[0].StageValue())
	assert.Nil(t, leads[0].Phone)

	err = repo.UpdateByID(ctx, 999999, entity.LeadPatch{Status: "new"})
	assert.ErrorIs(t, err, entity.ErrLeadNotFound)

	_, err = NewLeadRepository(db, table+"_missing", nil).FetchAll(ctx)
	assert.ErrorIs(t, err, ErrTableNotFound)
}

// TestChangeListenerIntegration - o trigger publica INSERT/DELETE no canal
func TestChangeListenerIntegration(t *testing.T) {
	db, dsn, table := openTestDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	channel := table + "_changes"
	require.NoError(t, InstallNotifyTrigger(ctx, db, table, channel))

	events := make(chan entity.ChangeEvent, 4)
	sub, err := NewChangeListener(dsn, channel, nil).Subscribe(ctx, func(ev entity.ChangeEvent, err error) {
		if err == nil {
			events <- ev
		}
	})
	require.NoError(t, err)
	defer sub.Close()

	var id int64
	require.NoError(t, db.QueryRowContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (nomewpp) VALUES ('Ana') RETURNING id`, table)).Scan(&id))
	_, err = db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, table), id)
	require.NoError(t, err)

	next := func() entity.ChangeEvent {
		select {
		case ev := <-events:
			return ev
		case <-time.After(5 * time.Second):
			t.Fatal("notificação não chegou")
			return entity.ChangeEvent{}
		}
	}

	ev := next()
	assert.Equal(t, entity.ChangeInsert, ev.Kind)
	require.NotNil(t, ev.Record)
	assert.Equal(t, id, ev.Record.ID)
	assert.Equal(t, "Ana", ev.Record.NameValue())

	ev = next()
	assert.Equal(t, entity.ChangeDelete, ev.Kind)
	assert.Equal(t, id, ev.OldID)

	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close())
}

// TestChangeListenerLargeRowIntegration - assunto longo não aborta o UPDATE e
// a notificação chega truncada
func TestChangeListenerLargeRowIntegration(t *testing.T) {
	db, dsn, table := openTestDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	channel := table + "_changes"
	require.NoError(t, InstallNotifyTrigger(ctx, db, table, channel))

	events := make(chan entity.ChangeEvent, 4)
	sub, err := NewChangeListener(dsn, channel, nil).Subscribe(ctx, func(ev entity.ChangeEvent, err error) {
		if err == nil {
			events <- ev
		}
	})
	require.NoError(t, err)
	defer sub.Close()

	var id int64
	require.NoError(t, db.QueryRowContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (nomewpp) VALUES ('Ana') RETURNING id`, table)).Scan(&id))

	repo := NewLeadRepository(db, table, nil)
	subject := strings.Repeat("ç", 5000)
	require.NoError(t, repo.UpdateByID(ctx, id, entity.LeadPatch{Name: "Ana", Subject: subject}))

	var got []entity.ChangeEvent
	for len(got) < 2 {
		select {
		case ev := <-events:
			got = append(got, ev)
		case <-time.After(5 * time.Second):
			t.Fatal("notificação não chegou")
		}
	}

	assert.False(t, got[0].Partial)
	assert.Equal(t, entity.ChangeUpdate, got[1].Kind)
	assert.True(t, got[1].Partial)
	require.NotNil(t, got[1].Record)
	assert.Equal(t, id, got[1].Record.ID)

	leads, err := repo.FetchAll(ctx)
	require.NoError(t, err)
	require.Len(t, leads, 1)
	assert.Equal(t, subject, leads[0].SubjectValue())
}
