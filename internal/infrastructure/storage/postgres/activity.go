package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"

	"rwpay/internal/core/id"
	"rwpay/internal/domain/audit"
)

type CompressionAlgo string

const (
	CompressionNone CompressionAlgo = "none"
	CompressionZstd CompressionAlgo = "zstd"
)

const defaultCompressThreshold = 10 * 1024

// ActivityLog stores audit entries in activity_log. Change sets larger than
// the threshold are stored zstd-compressed in changes_compressed.
type ActivityLog struct {
	txManager         *TxManager
	encoder           *zstd.Encoder
	decoder           *zstd.Decoder
	compressThreshold int
}

var _ audit.Recorder = (*ActivityLog)(nil)

func NewActivityLog(txManager *TxManager) (*ActivityLog, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	return &ActivityLog{
		txManager:         txManager,
		encoder:           encoder,
		decoder:           decoder,
		compressThreshold: defaultCompressThreshold,
	}, nil
}

// Close releases the decoder goroutines.
func (l *ActivityLog) Close() {
	l.decoder.Close()
}

// pack returns the plain and compressed forms; exactly one is non-nil.
func (l *ActivityLog) pack(changes []byte) ([]byte, []byte, CompressionAlgo) {
	if len(changes) <= l.compressThreshold {
		return changes, nil, CompressionNone
	}
	return nil, l.encoder.EncodeAll(changes, nil), CompressionZstd
}

func (l *ActivityLog) unpack(plain, compressed []byte, algo CompressionAlgo) ([]byte, error) {
	if algo != CompressionZstd {
		return plain, nil
	}
	out, err := l.decoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress changes: %w", err)
	}
	return out, nil
}

func (l *ActivityLog) Record(ctx context.Context, e audit.Entry) error {
	if id.IsNil(e.ID) {
		e.ID = id.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	plain, compressed, algo := l.pack(e.Changes)

	_, err := l.txManager.GetQuerier(ctx).Exec(ctx, `
		INSERT INTO activity_log (
			id, action, table_name, record_id,
			changes, changes_compressed, compression_algo,
			user_id, ip_address, user_agent, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		e.ID, e.Action, e.TableName, e.RecordID,
		plain, compressed, algo,
		e.UserID, e.IPAddress, e.UserAgent, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

// History returns entries for one record, newest first.
func (l *ActivityLog) History(ctx context.Context, tableName, recordID string, limit int) ([]audit.Entry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	rows, err := l.txManager.GetQuerier(ctx).Query(ctx, `
		SELECT id, action, table_name, record_id,
		       changes, changes_compressed, compression_algo,
		       user_id, ip_address, user_agent, created_at
		FROM activity_log
		WHERE table_name = $1 AND record_id = $2
		ORDER BY created_at DESC
		LIMIT $3`, tableName, recordID, limit)
	if err != nil {
		return nil, fmt.Errorf("query activity: %w", err)
	}
	defer rows.Close()

	var entries []audit.Entry
	for rows.Next() {
		var (
			e          audit.Entry
			plain      []byte
			compressed []byte
			algo       CompressionAlgo
		)
		if err := rows.Scan(
			&e.ID, &e.Action, &e.TableName, &e.RecordID,
			&plain, &compressed, &algo,
			&e.UserID, &e.IPAddress, &e.UserAgent, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		if e.Changes, err = l.unpack(plain, compressed, algo); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
