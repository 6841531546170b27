package msgstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/wazend/go-whatsapp-instance-api/pkg/whatsapp"
)

const schema = `
CREATE TABLE IF NOT EXISTS wa_messages (
    id         TEXT PRIMARY KEY,
    instance   TEXT NOT NULL,
    reference  TEXT NOT NULL,
    jid        TEXT NOT NULL,
    from_me    BOOLEAN NOT NULL DEFAULT FALSE,
    message_id TEXT NOT NULL,
    push_name  TEXT NOT NULL DEFAULT '',
    message    JSONB,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS wa_messages_instance_reference_idx ON wa_messages (instance, reference);
CREATE INDEX IF NOT EXISTS wa_messages_jid_idx ON wa_messages (jid);
`

// Store is the PostgreSQL-backed durable message log.
type Store struct {
	db *sql.DB
}

func New(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// Migrate creates the message table when missing.
func (s *Store) Migrate(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Save(ctx context.Context, record whatsapp.MessageRecord) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if record.ID == "" {
		record.ID = uuid.NewString()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO wa_messages (id, instance, reference, jid, from_me, message_id, push_name, message)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		record.ID, record.Instance, record.Reference, record.JID,
		record.FromMe, record.MessageID, record.PushName, []byte(record.Message))
	return err
}

// Find returns the stored messages for one account, optionally narrowed to
// a single remote JID.
func (s *Store) Find(ctx context.Context, instance string, reference string, jid string) ([]whatsapp.MessageRecord, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	query := `SELECT id, instance, reference, jid, from_me, message_id, push_name, message, created_at
              FROM wa_messages WHERE instance = $1 AND reference = $2`
	args := []any{instance, reference}
	if jid != "" {
		query += ` AND jid = $3`
		args = append(args, jid)
	}
	query += ` ORDER BY created_at ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []whatsapp.MessageRecord
	for rows.Next() {
		var record whatsapp.MessageRecord
		var message []byte
		if err := rows.Scan(&record.ID, &record.Instance, &record.Reference, &record.JID,
			&record.FromMe, &record.MessageID, &record.PushName, &message, &record.CreatedAt); err != nil {
			return nil, err
		}
		record.Message = message
		records = append(records, record)
	}
	return records, rows.Err()
}
