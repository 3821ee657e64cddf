package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/hitoshi/mediashelf/internal/model"
)

// ErrorResponseBody はAPIが返すエラーJSONの形。コードとカテゴリで
// クライアント側の分岐を、actionでユーザー向けの案内文を運ぶ。
type ErrorResponseBody struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// WriteErrorResponse はAPIErrorを統一フォーマットのJSONとして書き込む。
// ハンドラーとミドルウェアの両方がこれを使い、エラーの形を揃える。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	body := ErrorResponseBody{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("エラーレスポンスの書き込みに失敗しました", slog.String("error", err.Error()))
	}
}

// WriteInternalServerError は500の定型レスポンスを書き込む。
// 原因の詳細はログにのみ残し、レスポンスには載せない。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}
