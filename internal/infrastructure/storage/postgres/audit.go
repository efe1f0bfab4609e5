package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"

	appctx "hospicore/internal/core/context"
	"hospicore/internal/core/id"
	"hospicore/internal/domain/audit"
)

// CompressionAlgo specifies the compression algorithm used for a stored entry.
type CompressionAlgo string

const (
	CompressionNone CompressionAlgo = "none"
	CompressionZstd CompressionAlgo = "zstd"
)

// AuditRecord is one row of sys_audit_log.
type AuditRecord struct {
	ID                id.ID           `db:"id"`
	EntityType        string          `db:"entity_type"`
	EntityID          id.ID           `db:"entity_id"`
	Action            string          `db:"action"`
	ActorID           string          `db:"actor_id"`
	ActorEmail        string          `db:"actor_email"`
	Description       string          `db:"description"`
	Changes           json.RawMessage `db:"changes"`
	ChangesCompressed []byte          `db:"changes_compressed"`
	CompressionAlgo   CompressionAlgo `db:"compression_algo"`
	CreatedAt         time.Time       `db:"created_at"`
}

// AuditStore persists audit entries into sys_audit_log. Large change payloads
// are zstd-compressed. Implements audit.Logger.
type AuditStore struct {
	txManager         *TxManager
	encoder           *zstd.Encoder
	decoder           *zstd.Decoder
	compressThreshold int
}

var _ audit.Logger = (*AuditStore)(nil)

// NewAuditStore creates a new audit store.
func NewAuditStore(txManager *TxManager) (*AuditStore, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	return &AuditStore{
		txManager:         txManager,
		encoder:           encoder,
		decoder:           decoder,
		compressThreshold: 10 * 1024, // 10KB
	}, nil
}

// LogAction implements audit.Logger.
func (s *AuditStore) LogAction(ctx context.Context, entry audit.Entry) error {
	rec := AuditRecord{
		ID:          id.New(),
		EntityType:  entry.EntityType,
		EntityID:    entry.EntityID,
		Action:      string(entry.Action),
		ActorID:     entry.ActorID,
		Description: entry.Description,
		CreatedAt:   time.Now().UTC(),
	}

	if user := appctx.GetUser(ctx); user != nil {
		if rec.ActorID == "" {
			rec.ActorID = user.UserID
		}
		rec.ActorEmail = user.Email
	}

	changes, err := json.Marshal(map[string]any{
		"old": entry.OldValues,
		"new": entry.NewValues,
	})
	if err != nil {
		return fmt.Errorf("marshal changes: %w", err)
	}

	rec.Changes = changes
	rec.CompressionAlgo = CompressionNone
	if len(changes) > s.compressThreshold {
		rec.ChangesCompressed = s.encoder.EncodeAll(changes, nil)
		rec.Changes = nil
		rec.CompressionAlgo = CompressionZstd
	}

	sql := `
		INSERT INTO sys_audit_log (
			id, entity_type, entity_id, action, actor_id, actor_email,
			description, changes, changes_compressed, compression_algo,
			created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	querier := s.txManager.GetQuerier(ctx)
	_, err = querier.Exec(ctx, sql,
		rec.ID, rec.EntityType, rec.EntityID, rec.Action,
		rec.ActorID, rec.ActorEmail, rec.Description,
		rec.Changes, rec.ChangesCompressed, rec.CompressionAlgo,
		rec.CreatedAt,
	)

	return err
}

// GetEntityHistory retrieves the audit trail for one entity, newest first.
func (s *AuditStore) GetEntityHistory(
	ctx context.Context,
	entityType string,
	entityID id.ID,
	limit int,
) ([]AuditRecord, error) {
	sql := `
		SELECT id, entity_type, entity_id, action, actor_id, actor_email,
			   description, changes, changes_compressed, compression_algo,
			   created_at
		FROM sys_audit_log
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY created_at DESC
		LIMIT $3
	`

	rows, err := s.txManager.GetQuerier(ctx).Query(ctx, sql, entityType, entityID, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var records []AuditRecord
	for rows.Next() {
		var rec AuditRecord
		err := rows.Scan(
			&rec.ID, &rec.EntityType, &rec.EntityID, &rec.Action,
			&rec.ActorID, &rec.ActorEmail, &rec.Description,
			&rec.Changes, &rec.ChangesCompressed, &rec.CompressionAlgo,
			&rec.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}

		if rec.CompressionAlgo == CompressionZstd && len(rec.ChangesCompressed) > 0 {
			decompressed, err := s.decoder.DecodeAll(rec.ChangesCompressed, nil)
			if err != nil {
				return nil, fmt.Errorf("decompress changes: %w", err)
			}
			rec.Changes = decompressed
			rec.ChangesCompressed = nil
		}

		records = append(records, rec)
	}

	return records, rows.Err()
}
