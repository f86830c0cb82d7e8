package handler

import (
	"net/http"

	"github.com/hitoshi/weatherdesk/internal/chat"
	"github.com/hitoshi/weatherdesk/internal/middleware"
	"github.com/hitoshi/weatherdesk/internal/weather"
)

type chatRequest struct {
	Message string `json:"message" validate:"max=1000"`
}

type chatResponse struct {
	Reply   string                     `json:"reply"`
	Weather *weather.NormalizedWeather `json:"weather,omitempty"`
}

// ChatHandler は会話UIからのメッセージを処理する。
type ChatHandler struct {
	fetcher weather.Fetcher
}

// NewChatHandler はChatHandlerを生成する。
func NewChatHandler(fetcher weather.Fetcher) *ChatHandler {
	return &ChatHandler{fetcher: fetcher}
}

// PostMessage は「weather in X」を含むメッセージなら天気を取得して返信する。
// 一致しなければ上流を呼ばずにヘルプ文を返す。
// POST /api/chat
func (h *ChatHandler) PostMessage(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, validationAPIError(err))
		return
	}

	city, ok := chat.ExtractCity(req.Message)
	if !ok {
		writeJSON(w, http.StatusOK, chatResponse{Reply: chat.HelpReply})
		return
	}

	current, err := h.fetcher.FetchCurrent(r.Context(), city)
	if err != nil {
		handleServiceError(w, r, err, msgFetchWeatherFailed)
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{
		Reply:   chat.FormatReply(current),
		Weather: current,
	})
}
