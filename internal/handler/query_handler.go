package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/knowd-io/knowd/internal/channel"
	"github.com/knowd-io/knowd/internal/pkg/errcode"
	"github.com/knowd-io/knowd/internal/pkg/response"
	"github.com/knowd-io/knowd/internal/service"
)

type QueryHandler struct {
	svc *service.QueryService
}

func NewQueryHandler(svc *service.QueryService) *QueryHandler {
	return &QueryHandler{svc: svc}
}

type queryRequest struct {
	Query   string `json:"query"`
	Channel string `json:"channel"`
	UserID  string `json:"user_id"`
}

func (h *QueryHandler) Submit(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request body")
		return
	}
	if req.UserID == "" {
		req.UserID = c.GetHeader("X-User-Id")
	}
	ch := req.Channel
	if ch == "" {
		ch = string(channel.API)
	}
	result, err := h.svc.Process(c.Request.Context(), service.QueryRequest{
		Query:   req.Query,
		Channel: channel.Channel(ch),
		UserID:  req.UserID,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, result)
}
