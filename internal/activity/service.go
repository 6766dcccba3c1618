package activity

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/mergington/internal/model"
)

// EventRecorder は登録イベントの監査ログ書き込みインターフェース。
// repository.RegistrationEventRepositoryの部分集合として定義する。
type EventRecorder interface {
	Create(ctx context.Context, event *model.RegistrationEvent) error
}

// MetricsRecorder はサービス層が利用するメトリクス記録インターフェース。
type MetricsRecorder interface {
	RecordSignup(activityName string)
	RecordUnregister(activityName string)
	RecordFailure(operation, code string)
	RecordEventWriteFailure()
	SetParticipants(activityName string, count int)
}

// 操作名（メトリクスのラベルとログに使う）
const (
	OperationSignup     = "signup"
	OperationUnregister = "unregister"
)

// Service は課外活動登録のサービス層。
// Registryを単一のRWMutexで保護し、HTTPハンドラーなど並行な呼び出し元から安全に利用できるようにする。
type Service struct {
	mu       sync.RWMutex
	registry *Registry

	recorder EventRecorder
	metrics  MetricsRecorder
	logger   *slog.Logger

	now   func() time.Time
	newID func() string
}

// NewService はServiceの新しいインスタンスを生成する。
// recorderとmetricsはnilでもよい（監査ログ・メトリクスを記録しない）。
func NewService(registry *Registry, recorder EventRecorder, metrics MetricsRecorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		registry: registry,
		recorder: recorder,
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
		newID:    uuid.NewString,
	}

	if s.metrics != nil {
		for name, a := range registry.List() {
			s.metrics.SetParticipants(name, len(a.Participants))
		}
	}

	return s
}

// ListActivities は全活動のスナップショットを返す。
// 呼び出し前に完了した登録・登録解除はすべて反映されている。
func (s *Service) ListActivities(ctx context.Context) (map[string]model.Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.registry.List(), nil
}

// Signup は活動にメールアドレスを登録し、確認メッセージを返す。
// 活動が存在しない場合はNotFoundのAPIErrorを返し、レジストリは変更しない。
func (s *Service) Signup(ctx context.Context, activityName, email string) (string, error) {
	s.mu.Lock()
	msg, err := s.registry.Signup(activityName, email)
	if err == nil {
		s.setParticipantsLocked(activityName)
	}
	s.mu.Unlock()

	if err != nil {
		s.recordFailure(OperationSignup, activityName, err)
		return "", err
	}

	if s.metrics != nil {
		s.metrics.RecordSignup(activityName)
	}
	s.logger.Info("student signed up", slog.String("activity", activityName))
	s.recordEvent(ctx, activityName, email, model.RegistrationActionSignup)

	return msg, nil
}

// Unregister は活動からメールアドレスを1件登録解除し、確認メッセージを返す。
// 活動が存在しない場合はNotFound、未登録の場合はInvalidStateのAPIErrorを返す。
func (s *Service) Unregister(ctx context.Context, activityName, email string) (string, error) {
	s.mu.Lock()
	msg, err := s.registry.Unregister(activityName, email)
	if err == nil {
		s.setParticipantsLocked(activityName)
	}
	s.mu.Unlock()

	if err != nil {
		s.recordFailure(OperationUnregister, activityName, err)
		return "", err
	}

	if s.metrics != nil {
		s.metrics.RecordUnregister(activityName)
	}
	s.logger.Info("student unregistered", slog.String("activity", activityName))
	s.recordEvent(ctx, activityName, email, model.RegistrationActionUnregister)

	return msg, nil
}

// setParticipantsLocked は参加者数ゲージを更新する。ロック保持中に呼び出すこと。
// ロック外で更新すると並行な操作の古い値で上書きされうる。
func (s *Service) setParticipantsLocked(activityName string) {
	if s.metrics == nil {
		return
	}
	a, ok := s.registry.activities[activityName]
	if !ok {
		return
	}
	s.metrics.SetParticipants(activityName, len(a.Participants))
}

func (s *Service) recordFailure(operation, activityName string, err error) {
	code := model.ErrCodeInternal
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		code = apiErr.Code
	}

	if s.metrics != nil {
		s.metrics.RecordFailure(operation, code)
	}
	s.logger.Info("registration rejected",
		slog.String("operation", operation),
		slog.String("activity", activityName),
		slog.String("code", code),
	)
}

// recordEvent は監査ログを書き込む。
// 書き込みに失敗してもレジストリの変更は取り消さず、エラーログとメトリクスに残す。
// 変更は確定済みのため、リクエストのキャンセルでは書き込みを中断しない。
func (s *Service) recordEvent(ctx context.Context, activityName, email string, action model.RegistrationAction) {
	if s.recorder == nil {
		return
	}

	event := &model.RegistrationEvent{
		ID:           s.newID(),
		ActivityName: activityName,
		Email:        email,
		Action:       action,
		CreatedAt:    s.now(),
	}

	if err := s.recorder.Create(context.WithoutCancel(ctx), event); err != nil {
		if s.metrics != nil {
			s.metrics.RecordEventWriteFailure()
		}
		s.logger.Error("failed to record registration event",
			slog.String("event_id", event.ID),
			slog.String("activity", activityName),
			slog.String("action", string(action)),
			slog.String("error", err.Error()),
		)
	}
}
