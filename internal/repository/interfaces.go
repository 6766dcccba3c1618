// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/mergington/internal/model"
)

// RegistrationEventRepository は登録イベント監査ログの永続化インターフェース。
// 追記専用であり、活動レジストリの復元には使わない。
type RegistrationEventRepository interface {
	// Create は登録イベントを1件追記する。
	Create(ctx context.Context, event *model.RegistrationEvent) error
}
