// Package activity は課外活動の登録管理のドメインロジックを提供する。
package activity

import (
	"fmt"
	"slices"

	"github.com/hitoshi/mergington/internal/model"
)

// Registry は活動名をキーとした課外活動のインメモリレジストリ。
//
// Registry自体は排他制御を行わない。複数goroutineから利用する場合は
// 呼び出し側（Service）がロックを提供すること。
type Registry struct {
	activities       map[string]*model.Activity
	rejectDuplicates bool
}

// RegistryOption はRegistryの挙動を変更するオプション。
type RegistryOption func(*Registry)

// WithRejectDuplicates は同一メールアドレスの重複登録を拒否するかどうかを設定する。
// デフォルトでは既存クライアントとの互換のため重複をそのまま追加する。
func WithRejectDuplicates(reject bool) RegistryOption {
	return func(r *Registry) {
		r.rejectDuplicates = reject
	}
}

// NewRegistry は初期データからRegistryを生成する。
// 初期データは深いコピーとして取り込むため、呼び出し側のスライスを変更しても影響しない。
// 活動名が空または重複している場合はエラーを返す。
func NewRegistry(seed []model.Activity, opts ...RegistryOption) (*Registry, error) {
	r := &Registry{
		activities: make(map[string]*model.Activity, len(seed)),
	}
	for _, opt := range opts {
		opt(r)
	}

	for _, a := range seed {
		if a.Name == "" {
			return nil, fmt.Errorf("activity name must not be empty")
		}
		if _, exists := r.activities[a.Name]; exists {
			return nil, fmt.Errorf("duplicate activity name: %q", a.Name)
		}
		c := a.Clone()
		r.activities[a.Name] = &c
	}

	return r, nil
}

// List は全活動のスナップショットを返す。
// 戻り値を変更してもレジストリには影響しない。
func (r *Registry) List() map[string]model.Activity {
	out := make(map[string]model.Activity, len(r.activities))
	for name, a := range r.activities {
		out[name] = a.Clone()
	}
	return out
}

// Get は指定した活動のコピーを返す。存在しない場合はfalseを返す。
func (r *Registry) Get(name string) (model.Activity, bool) {
	a, ok := r.activities[name]
	if !ok {
		return model.Activity{}, false
	}
	return a.Clone(), true
}

// Signup は活動の参加者リスト末尾にメールアドレスを追加し、確認メッセージを返す。
// 定員（MaxParticipants）は検査しない。
func (r *Registry) Signup(activityName, email string) (string, error) {
	a, ok := r.activities[activityName]
	if !ok {
		return "", model.NewActivityNotFoundError()
	}

	if r.rejectDuplicates && a.HasParticipant(email) {
		return "", model.NewAlreadySignedUpError()
	}

	a.Participants = append(a.Participants, email)

	return fmt.Sprintf("Signed up %s for %s", email, activityName), nil
}

// Unregister は活動の参加者リストからメールアドレスを1件だけ削除し、確認メッセージを返す。
// 活動の存在確認はメールアドレスの登録確認より先に行う。
func (r *Registry) Unregister(activityName, email string) (string, error) {
	a, ok := r.activities[activityName]
	if !ok {
		return "", model.NewActivityNotFoundError()
	}

	idx := slices.Index(a.Participants, email)
	if idx < 0 {
		return "", model.NewNotSignedUpError()
	}
	a.Participants = slices.Delete(a.Participants, idx, idx+1)

	return fmt.Sprintf("Unregistered %s from %s", email, activityName), nil
}

// Len は登録されている活動数を返す。
func (r *Registry) Len() int {
	return len(r.activities)
}
