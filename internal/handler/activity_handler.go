// Package handler はHTTPハンドラーとルーティングを提供する。
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/mergington/internal/middleware"
	"github.com/hitoshi/mergington/internal/model"
)

// ActivityServiceInterface は活動ハンドラーが必要とするサービスインターフェース。
type ActivityServiceInterface interface {
	// ListActivities は全活動のスナップショットを返す。
	ListActivities(ctx context.Context) (map[string]model.Activity, error)
	// Signup は活動にメールアドレスを登録する。
	Signup(ctx context.Context, activityName, email string) (string, error)
	// Unregister は活動からメールアドレスの登録を解除する。
	Unregister(ctx context.Context, activityName, email string) (string, error)
}

// ActivityHandler は課外活動のHTTPハンドラー。
type ActivityHandler struct {
	service ActivityServiceInterface
}

// NewActivityHandler はActivityHandlerを生成する。
func NewActivityHandler(service ActivityServiceInterface) *ActivityHandler {
	return &ActivityHandler{service: service}
}

// activityResponse は活動情報のAPIレスポンス。名前はマップのキーとして返す。
type activityResponse struct {
	Description     string   `json:"description"`
	Schedule        string   `json:"schedule"`
	MaxParticipants int      `json:"max_participants"`
	Participants    []string `json:"participants"`
}

// messageResponse は登録・登録解除成功時のAPIレスポンス。
type messageResponse struct {
	Message string `json:"message"`
}

// ListActivities は全活動を返す。
// GET /activities
func (h *ActivityHandler) ListActivities(w http.ResponseWriter, r *http.Request) {
	activities, err := h.service.ListActivities(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	resp := make(map[string]activityResponse, len(activities))
	for name, a := range activities {
		resp[name] = toActivityResponse(a)
	}

	writeJSON(w, http.StatusOK, resp)
}

// Signup は活動への参加登録を処理する。
// POST /activities/{activity_name}/signup?email=
func (h *ActivityHandler) Signup(w http.ResponseWriter, r *http.Request) {
	h.handleRegistration(w, r, h.service.Signup)
}

// Unregister は活動の参加登録解除を処理する。
// POST /activities/{activity_name}/unregister?email=
func (h *ActivityHandler) Unregister(w http.ResponseWriter, r *http.Request) {
	h.handleRegistration(w, r, h.service.Unregister)
}

type registrationFunc func(ctx context.Context, activityName, email string) (string, error)

func (h *ActivityHandler) handleRegistration(w http.ResponseWriter, r *http.Request, op registrationFunc) {
	query := r.URL.Query()
	if !query.Has("email") {
		middleware.WriteErrorResponse(w, http.StatusUnprocessableEntity, model.NewMissingEmailError())
		return
	}

	message, err := op(r.Context(), activityNameParam(r), validUTF8(query.Get("email")))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: message})
}

// --- ヘルパー関数 ---

// activityNameParam はパスパラメータから活動名を取り出す。
// chiはRawPathがある場合はエンコードされたままのパスでルーティングするため、その場合のみ復号する。
// 復号できない場合は生の値を使う。
func activityNameParam(r *http.Request) string {
	raw := chi.URLParam(r, "activity_name")
	if r.URL.RawPath == "" {
		return validUTF8(raw)
	}
	if name, err := url.PathUnescape(raw); err == nil {
		return validUTF8(name)
	}
	return validUTF8(raw)
}

// validUTF8 は不正なUTF-8バイト列をU+FFFDに置き換える。
// JSONレスポンスは常にU+FFFDで返るため、保存する値もそれに揃えて登録解除で一致させる。
func validUTF8(s string) string {
	return strings.ToValidUTF8(s, "\uFFFD")
}

// toActivityResponse はmodel.ActivityからAPIレスポンスに変換する。
// 参加者が空でもnullではなく空配列を返す。
func toActivityResponse(a model.Activity) activityResponse {
	participants := a.Participants
	if participants == nil {
		participants = []string{}
	}
	return activityResponse{
		Description:     a.Description,
		Schedule:        a.Schedule,
		MaxParticipants: a.MaxParticipants,
		Participants:    participants,
	}
}

func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		middleware.WriteErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error",
		slog.String("error", err.Error()),
		slog.String("path", r.URL.Path),
		slog.String("request_id", middleware.RequestIDFromContext(r.Context())),
	)
	middleware.WriteInternalServerError(w)
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeActivityNotFound:
		return http.StatusNotFound
	case model.ErrCodeNotSignedUp, model.ErrCodeAlreadySignedUp:
		return http.StatusBadRequest
	case model.ErrCodeMissingEmail:
		return http.StatusUnprocessableEntity
	case model.ErrCodeRateLimitExceeded:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
