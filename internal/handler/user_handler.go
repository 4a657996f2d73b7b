package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/bunn/internal/middleware"
	"github.com/hitoshi/bunn/internal/model"
)

// EntitlementChecker はサブスクリプション状態の確認に必要なインターフェース。
type EntitlementChecker interface {
	HasActiveSubscription(ctx context.Context, userID string, now time.Time) (bool, error)
}

// UsageCounter は当日の利用件数の取得に必要なインターフェース。
// quota.Gateの部分集合として定義する。
type UsageCounter interface {
	TodayCounts(ctx context.Context, userID string) (map[model.ActionType]int, error)
}

// UserHandler はユーザー情報関連のHTTPハンドラー。
type UserHandler struct {
	entitlements EntitlementChecker
	usage        UsageCounter
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(entitlements EntitlementChecker, usage UsageCounter) *UserHandler {
	return &UserHandler{
		entitlements: entitlements,
		usage:        usage,
	}
}

// Info は認証済みユーザーの情報を返す。
// GET /api/user/info
// 名前・メール等はセッショントークンのスナップショットから返すが、
// サブスクリプション状態と利用件数は現在値を読み直す
// （トークンのhas_subscriptionは発行時点の値のため）。
func (h *UserHandler) Info(w http.ResponseWriter, r *http.Request) {
	claims, err := middleware.ClaimsFromContext(r.Context())
	if err != nil {
		middleware.WriteError(w, http.StatusUnauthorized, model.ErrUnauthenticated.Error())
		return
	}

	hasSubscription, err := h.entitlements.HasActiveSubscription(r.Context(), claims.UserID, time.Now())
	if err != nil {
		slog.Error("failed to read subscription status",
			slog.String("user_id", claims.UserID),
			slog.String("error", err.Error()),
		)
		middleware.WriteInternalServerError(w)
		return
	}

	counts, err := h.usage.TodayCounts(r.Context(), claims.UserID)
	if err != nil {
		slog.Error("failed to read usage counts",
			slog.String("user_id", claims.UserID),
			slog.String("error", err.Error()),
		)
		middleware.WriteInternalServerError(w)
		return
	}

	writeSuccess(w, map[string]any{
		"user": map[string]any{
			"user_id":            claims.UserID,
			"name":               claims.Name,
			"email":              claims.Email,
			"profile":            claims.Profile,
			"has_subscription":   hasSubscription,
			"today_usage_counts": counts,
		},
	})
}
