package handler

import (
	"net/http"
	"strings"

	"github.com/hitoshi/weatherdesk/internal/middleware"
	"github.com/hitoshi/weatherdesk/internal/model"
	"github.com/hitoshi/weatherdesk/internal/weather"
)

// WeatherHandler は天気検索のHTTPハンドラー。認証は不要。
type WeatherHandler struct {
	fetcher weather.Fetcher
}

// NewWeatherHandler はWeatherHandlerを生成する。
func NewWeatherHandler(fetcher weather.Fetcher) *WeatherHandler {
	return &WeatherHandler{fetcher: fetcher}
}

// GetWeather は指定都市の現在の天気を返す。
// GET /api/weather?city=London
func (h *WeatherHandler) GetWeather(w http.ResponseWriter, r *http.Request) {
	city := strings.TrimSpace(r.URL.Query().Get("city"))
	if city == "" {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewCityRequiredError())
		return
	}

	current, err := h.fetcher.FetchCurrent(r.Context(), city)
	if err != nil {
		handleServiceError(w, r, err, msgFetchWeatherFailed)
		return
	}

	writeJSON(w, http.StatusOK, current)
}
