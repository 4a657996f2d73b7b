package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/bunn/internal/model"
)

// PostgresUsageLogRepo はPostgreSQLを使用した利用記録リポジトリ。
type PostgresUsageLogRepo struct {
	db *sql.DB
}

// NewPostgresUsageLogRepo はPostgresUsageLogRepoを生成する。
func NewPostgresUsageLogRepo(db *sql.DB) *PostgresUsageLogRepo {
	return &PostgresUsageLogRepo{db: db}
}

// Create は利用記録を1行追加する。
func (r *PostgresUsageLogRepo) Create(ctx context.Context, entry *model.UsageLogEntry) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO usage_logs (id, user_id, action_type, related_id, related_type, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.ID, entry.UserID, string(entry.ActionType), entry.RelatedID, entry.RelatedType, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("利用記録の作成に失敗しました: %w", err)
	}
	return nil
}

// CountSince は指定時刻以降の(user, action)の利用件数を返す。
func (r *PostgresUsageLogRepo) CountSince(ctx context.Context, userID string, action model.ActionType, since time.Time) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM usage_logs
		 WHERE user_id = $1 AND action_type = $2 AND created_at >= $3`,
		userID, string(action), since,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("利用件数の取得に失敗しました: %w", err)
	}
	return count, nil
}

// CountsByActionSince は指定時刻以降のユーザーの利用件数をアクション種別ごとに返す。
func (r *PostgresUsageLogRepo) CountsByActionSince(ctx context.Context, userID string, since time.Time) (map[model.ActionType]int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT action_type, COUNT(*) FROM usage_logs
		 WHERE user_id = $1 AND created_at >= $2
		 GROUP BY action_type`,
		userID, since,
	)
	if err != nil {
		return nil, fmt.Errorf("利用件数一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	counts := make(map[model.ActionType]int)
	for rows.Next() {
		var action string
		var count int
		if err := rows.Scan(&action, &count); err != nil {
			return nil, fmt.Errorf("利用件数行の読み取りに失敗しました: %w", err)
		}
		counts[model.ActionType(action)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("利用件数一覧の走査に失敗しました: %w", err)
	}
	return counts, nil
}

// compile-time interface check
var _ UsageLogRepository = (*PostgresUsageLogRepo)(nil)
