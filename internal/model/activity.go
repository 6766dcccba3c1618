// Package model はドメインモデルを定義する。
package model

import (
	"slices"
	"time"
)

// Activity は課外活動1件を表す。
// Nameがレジストリ上のキーとなり、大文字小文字・空白を区別する。
type Activity struct {
	Name            string
	Description     string
	Schedule        string
	MaxParticipants int      // 定員（表示用。登録時には検査しない）
	Participants    []string // 登録済みメールアドレス。登録順を保持する
}

// Clone はParticipantsを含めたActivityの深いコピーを返す。
func (a Activity) Clone() Activity {
	c := a
	c.Participants = slices.Clone(a.Participants)
	if c.Participants == nil {
		c.Participants = []string{}
	}
	return c
}

// HasParticipant は指定メールアドレスが登録済みかどうかを返す。
func (a Activity) HasParticipant(email string) bool {
	return slices.Contains(a.Participants, email)
}

// RegistrationAction は登録イベントの種別を表す。
type RegistrationAction string

const (
	RegistrationActionSignup     RegistrationAction = "signup"
	RegistrationActionUnregister RegistrationAction = "unregister"
)

// RegistrationEvent は登録・登録解除の監査ログ1件を表す。
type RegistrationEvent struct {
	ID           string
	ActivityName string
	Email        string
	Action       RegistrationAction
	CreatedAt    time.Time
}
