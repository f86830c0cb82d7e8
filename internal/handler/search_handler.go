package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/weatherdesk/internal/metrics"
	"github.com/hitoshi/weatherdesk/internal/middleware"
	"github.com/hitoshi/weatherdesk/internal/model"
)

// SearchServiceInterface は検索履歴ハンドラーが必要とするサービスインターフェース。
type SearchServiceInterface interface {
	ListRecent(ctx context.Context, identity *model.Identity) ([]model.SearchRecord, error)
	Create(ctx context.Context, identity *model.Identity, city string) (*model.SearchRecord, error)
}

// createSearchRequest はPOST /api/searchesのリクエストボディ。
// 所有者はセッションから決まるため、ボディのownerIdなどは読まない。
type createSearchRequest struct {
	City string `json:"city" validate:"required,max=200"`
}

// SearchHandler は検索履歴のHTTPハンドラー。
type SearchHandler struct {
	service SearchServiceInterface
	metrics metrics.MetricsCollector
}

// NewSearchHandler はSearchHandlerを生成する。collectorはnilでもよい。
func NewSearchHandler(service SearchServiceInterface, collector metrics.MetricsCollector) *SearchHandler {
	return &SearchHandler{service: service, metrics: collector}
}

// ListSearches は呼び出し元の検索履歴を新しい順に最大5件返す。
// GET /api/searches
func (h *SearchHandler) ListSearches(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromContext(r.Context())
	if identity == nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	records, err := h.service.ListRecent(r.Context(), identity)
	if err != nil {
		handleServiceError(w, r, err, msgFetchSearchesFailed)
		return
	}

	writeJSON(w, http.StatusOK, records)
}

// CreateSearch は呼び出し元を所有者とする検索履歴を作成する。
// POST /api/searches
func (h *SearchHandler) CreateSearch(w http.ResponseWriter, r *http.Request) {
	// ボディを読む前に認証を確認し、未認証では何も作らない
	identity := middleware.IdentityFromContext(r.Context())
	if identity == nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req createSearchRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, validationAPIError(err))
		return
	}

	record, err := h.service.Create(r.Context(), identity, req.City)
	if err != nil {
		handleServiceError(w, r, err, msgCreateSearchFailed)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordSearchCreated()
	}
	writeJSON(w, http.StatusOK, record)
}
