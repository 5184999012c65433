package handler

import (
	"net/http"

	"cosmetics-shop-api/internal/service"
	"cosmetics-shop-api/pkg/response"
)

// NewsHandler serves the upstream news feed.
type NewsHandler struct {
	news *service.NewsService
}

// NewNewsHandler creates a new news handler.
func NewNewsHandler(news *service.NewsService) *NewsHandler {
	return &NewsHandler{news: news}
}

// Get handles GET /api/v1/news
func (h *NewsHandler) Get(w http.ResponseWriter, r *http.Request) {
	news, err := h.news.Get(r.Context())
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, news)
}
