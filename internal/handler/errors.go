package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/hitoshi/weatherdesk/internal/middleware"
	"github.com/hitoshi/weatherdesk/internal/model"
	"github.com/hitoshi/weatherdesk/internal/weather"
)

// maxRequestBodySize はJSONリクエストボディの読み取り上限。
const maxRequestBodySize = 64 << 10

var validate = validator.New()

// 操作ごとの500レスポンス文言
const (
	msgFetchWeatherFailed  = "Failed to fetch weather data"
	msgFetchSearchesFailed = "Failed to fetch searches"
	msgCreateSearchFailed  = "Failed to create search"
)

// writeJSON はステータスコードとJSONボディを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// decodeJSONBody はリクエストボディをdstにデコードし、validateタグで検証する。
// 返すエラーはINVALID_REQUESTのAPIError、またはvalidator.ValidationErrors。
func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return model.NewInvalidRequestError("malformed JSON body")
	}
	return validate.Struct(dst)
}

// handleServiceError はサービス層から返されたエラーを統一フォーマットのレスポンスに変換する。
// 分類できないエラーはログに詳細を残し、internalMessageだけをクライアントに返す。
func handleServiceError(w http.ResponseWriter, r *http.Request, err error, internalMessage string) {
	if errors.Is(err, model.ErrAuthenticationRequired) {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var upstreamErr *weather.UpstreamError
	if errors.As(err, &upstreamErr) {
		status := upstreamErr.Status
		if status < http.StatusBadRequest {
			status = http.StatusBadGateway
		}
		middleware.WriteErrorResponse(w, status, &model.APIError{
			Code:     model.ErrCodeUpstream,
			Message:  upstreamErr.Message,
			Category: "upstream",
		})
		return
	}

	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		middleware.WriteErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	slog.Error("request failed",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
	middleware.WriteInternalServerError(w, internalMessage)
}

// mapAPIErrorToHTTPStatus はAPIErrorからHTTPステータスコードにマッピングする。
// validationカテゴリのエラーはコードにかかわらず400になる。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	if model.IsValidationError(apiErr) {
		return http.StatusBadRequest
	}
	switch apiErr.Code {
	case model.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case model.ErrCodeUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// validationAPIError はvalidatorのエラーをAPIErrorに変換する。
// cityフィールドの欠落はCITY_REQUIREDとして扱う。
func validationAPIError(err error) *model.APIError {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		if fe.Field() == "City" && fe.Tag() == "required" {
			return model.NewCityRequiredError()
		}
		return model.NewInvalidRequestError(fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag()))
	}

	return model.NewInvalidRequestError("invalid body")
}
