package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/mergington/internal/model"
)

// PostgresRegistrationEventRepo はPostgreSQLを使用した登録イベントリポジトリ。
type PostgresRegistrationEventRepo struct {
	db *sql.DB
}

// NewPostgresRegistrationEventRepo はPostgresRegistrationEventRepoを生成する。
func NewPostgresRegistrationEventRepo(db *sql.DB) *PostgresRegistrationEventRepo {
	return &PostgresRegistrationEventRepo{db: db}
}

// Create は登録イベントを追記する。
func (r *PostgresRegistrationEventRepo) Create(ctx context.Context, event *model.RegistrationEvent) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO registration_events (id, activity_name, email, action, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		event.ID, event.ActivityName, event.Email, string(event.Action), event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create registration event: %w", err)
	}
	return nil
}

// compile-time interface check
var _ RegistrationEventRepository = (*PostgresRegistrationEventRepo)(nil)
