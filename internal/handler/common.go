// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/mediashelf/internal/model"
)

// apiErrorResponse は統一エラーフォーマットのレスポンス。
type apiErrorResponse struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// apiErrorStatus はAPIErrorコードとHTTPステータスコードの対応表。
// 載っていないコードは500として扱う。
var apiErrorStatus = map[string]int{
	model.ErrCodeValidationFailed:        http.StatusBadRequest,
	model.ErrCodeNormalizationFailed:     http.StatusUnprocessableEntity,
	model.ErrCodeLookupFailed:            http.StatusBadGateway,
	model.ErrCodeAllLookupsFailed:        http.StatusBadGateway,
	model.ErrCodeDuplicateCollectionItem: http.StatusConflict,
	model.ErrCodeMediaLogNotFound:        http.StatusNotFound,
	model.ErrCodeCollectionNotFound:      http.StatusNotFound,
	model.ErrCodeCollectionItemNotFound:  http.StatusNotFound,
	model.ErrCodeUserNotFound:            http.StatusNotFound,
	model.ErrCodeStorageFailed:           http.StatusInternalServerError,
}

func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	if status, ok := apiErrorStatus[apiErr.Code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	resp := apiErrorResponse{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("エラーレスポンスの書き込みに失敗しました", slog.String("error", err.Error()))
	}
}

// handleServiceError はサービス層のエラーをHTTPレスポンスに変換する。
// model.APIError以外のエラーはログに残して500で返す。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		slog.Error("unexpected error from service layer", slog.String("error", err.Error()))
		apiErr = &model.APIError{
			Code:     "INTERNAL_ERROR",
			Message:  "内部エラーが発生しました。",
			Category: "system",
			Action:   "しばらく待ってから再度お試しください。",
		}
	}
	writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
}

// writeUnauthorizedResponse は認証エラーの統一レスポンスを書き込む。
func writeUnauthorizedResponse(w http.ResponseWriter) {
	writeAPIErrorResponse(w, http.StatusUnauthorized, &model.APIError{
		Code:     "UNAUTHORIZED",
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	})
}

// writeInvalidRequestResponse はリクエストボディ解析エラーのレスポンスを書き込む。
func writeInvalidRequestResponse(w http.ResponseWriter) {
	writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
		Code:     "INVALID_REQUEST",
		Message:  "リクエストボディの解析に失敗しました。",
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。",
	})
}
