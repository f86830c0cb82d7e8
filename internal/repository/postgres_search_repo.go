package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/weatherdesk/internal/model"
)

// PostgresSearchRepo はPostgreSQLを使用した検索履歴リポジトリ。
type PostgresSearchRepo struct {
	db *sql.DB
}

// NewPostgresSearchRepo はPostgresSearchRepoを生成する。
func NewPostgresSearchRepo(db *sql.DB) *PostgresSearchRepo {
	return &PostgresSearchRepo{db: db}
}

// Create は検索履歴を1件INSERTする。
// 単一文のINSERTなので、失敗時に部分的なレコードが残ることはない。
func (r *PostgresSearchRepo) Create(ctx context.Context, record *model.SearchRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO search_records (id, owner_id, city, created_at)
		 VALUES ($1, $2, $3, $4)`,
		record.ID, record.OwnerID, record.City, record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert search record: %w", err)
	}
	return nil
}

// ListRecentByOwner は指定所有者の検索履歴を新しい順に最大limit件取得する。
// created_atが同値の場合はidの降順で順序を確定させる。
func (r *PostgresSearchRepo) ListRecentByOwner(ctx context.Context, ownerID string, limit int) ([]model.SearchRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, owner_id, city, created_at
		 FROM search_records
		 WHERE owner_id = $1
		 ORDER BY created_at DESC, id DESC
		 LIMIT $2`,
		ownerID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list search records: %w", err)
	}
	defer rows.Close()

	records := make([]model.SearchRecord, 0, limit)
	for rows.Next() {
		var rec model.SearchRecord
		if err := rows.Scan(&rec.ID, &rec.OwnerID, &rec.City, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan search record: %w", err)
		}
		rec.CreatedAt = rec.CreatedAt.UTC()
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate search records: %w", err)
	}

	return records, nil
}
