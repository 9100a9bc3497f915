package database

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/xavierca1/ligue-crm/internal/entity"
)

const DefaultNotifyChannel = "leads_changes"

// ChangeListener assina o canal LISTEN/NOTIFY alimentado pelo trigger da
// tabela de leads. Cada payload é um ChangeEvent em JSON.
type ChangeListener struct {
	dsn          string
	channel      string
	minReconnect time.Duration
	maxReconnect time.Duration
	pingEvery    time.Duration
	logger       *zap.Logger
}

func NewChangeListener(dsn, channel string, logger *zap.Logger) *ChangeListener {
	if channel == "" {
		channel = DefaultNotifyChannel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChangeListener{
		dsn:          dsn,
		channel:      channel,
		minReconnect: 10 * time.Second,
		maxReconnect: time.Minute,
		pingEvery:    90 * time.Second,
		logger:       logger,
	}
}

type listenerSubscription struct {
	listener *pq.Listener
	done     chan struct{}
	wg       sync.WaitGroup
	once     sync.Once
	err      error
}

// Close para o loop de leitura e fecha a conexão dedicada.
func (s *listenerSubscription) Close() error {
	s.once.Do(func() {
		close(s.done)
		s.err = s.listener.Close()
		s.wg.Wait()
	})
	return s.err
}

// Subscribe abre a conexão de LISTEN. Um payload inválido chega em onEvent como
// erro; uma reconexão chega como ChangeResync, já que notificações podem ter
// sido perdidas enquanto a conexão estava fora.
func (l *ChangeListener) Subscribe(ctx context.Context, onEvent func(entity.ChangeEvent, error)) (entity.Subscription, error) {
	listener := pq.NewListener(l.dsn, l.minReconnect, l.maxReconnect, func(ev pq.ListenerEventType, err error) {
		switch ev {
		case pq.ListenerEventDisconnected, pq.ListenerEventConnectionAttemptFailed:
			l.logger.Warn("listener desconectado", zap.String("channel", l.channel), zap.Error(err))
		case pq.ListenerEventReconnected:
			l.logger.Info("listener reconectado", zap.String("channel", l.channel))
		}
	})

	if err := listener.Listen(l.channel); err != nil {
		listener.Close()
		return nil, fmt.Errorf("listen %s: %w", l.channel, err)
	}

	sub := &listenerSubscription{listener: listener, done: make(chan struct{})}
	sub.wg.Add(1)
	go func() {
		defer sub.wg.Done()
		l.loop(ctx, sub, onEvent)
	}()

	l.logger.Info("escutando mudanças de leads", zap.String("channel", l.channel))
	return sub, nil
}

func (l *ChangeListener) loop(ctx context.Context, sub *listenerSubscription, onEvent func(entity.ChangeEvent, error)) {
	ticker := time.NewTicker(l.pingEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.done:
			return
		case n, ok := <-sub.listener.Notify:
			if !ok {
				return
			}
			if n == nil {
				onEvent(entity.ChangeEvent{Kind: entity.ChangeResync}, nil)
				continue
			}
			onEvent(entity.DecodeChangeEvent([]byte(n.Extra)))
		case <-ticker.C:
			if err := sub.listener.Ping(); err != nil {
				l.logger.Debug("ping do listener falhou", zap.Error(err))
			}
		}
	}
}

// maxNotifyPayload fica abaixo do limite de 8000 bytes do pg_notify. Acima
// dele o trigger manda só os ids com "truncated": true.
const maxNotifyPayload = 7900

// InstallNotifyTrigger cria (ou substitui) a função e o trigger que publicam
// cada INSERT/UPDATE/DELETE da tabela no canal informado.
func InstallNotifyTrigger(ctx context.Context, db *sql.DB, table, channel string) error {
	for _, stmt := range notifyTriggerSQL(table, channel) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("install notify trigger: %w", err)
		}
	}
	return nil
}

// notifyTriggerSQL monta os comandos do trigger. Um payload grande demais
// abortaria a escrita da linha, então ele cai para a versão só com ids.
func notifyTriggerSQL(table, channel string) []string {
	if table == "" {
		table = DefaultLeadsTable
	}
	if channel == "" {
		channel = DefaultNotifyChannel
	}
	fn := pgx.Identifier{table + "_notify_change"}.Sanitize()
	trg := pgx.Identifier{table + "_notify_change_trg"}.Sanitize()
	tbl := pgx.Identifier{table}.Sanitize()

	return []string{
		fmt.Sprintf(`
		CREATE OR REPLACE FUNCTION %[1]s() RETURNS trigger AS $$
		DECLARE
			payload text;
		BEGIN
			payload := json_build_object(
				'type', TG_OP,
				'table', TG_TABLE_NAME,
				'record', CASE WHEN TG_OP = 'DELETE' THEN NULL ELSE row_to_json(NEW) END,
				'old_record', CASE WHEN TG_OP = 'INSERT' THEN NULL ELSE json_build_object('id', OLD.id) END
			)::text;
			IF octet_length(payload) > %[3]d THEN
				payload := json_build_object(
					'type', TG_OP,
					'table', TG_TABLE_NAME,
					'record', CASE WHEN TG_OP = 'DELETE' THEN NULL ELSE json_build_object('id', NEW.id) END,
					'old_record', CASE WHEN TG_OP = 'INSERT' THEN NULL ELSE json_build_object('id', OLD.id) END,
					'truncated', true
				)::text;
			END IF;
			PERFORM pg_notify(%[2]s, payload);
			RETURN NULL;
		END;
		$$ LANGUAGE plpgsql`, fn, pq.QuoteLiteral(channel), maxNotifyPayload),
		fmt.Sprintf(`DROP TRIGGER IF EXISTS %s ON %s`, trg, tbl),
		fmt.Sprintf(`CREATE TRIGGER %s AFTER INSERT OR UPDATE OR DELETE ON %s
		FOR EACH ROW EXECUTE FUNCTION %s()`, trg, tbl, fn),
	}
}
