package handler

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/knowd-io/knowd/internal/channel"
	"github.com/knowd-io/knowd/internal/model"
	"github.com/knowd-io/knowd/internal/pkg/errcode"
	"github.com/knowd-io/knowd/internal/pkg/response"
	"github.com/knowd-io/knowd/internal/service"
)

type IntegrationHandler struct {
	svc   *service.IntegrationService
	query *service.QueryService
}

func NewIntegrationHandler(svc *service.IntegrationService, query *service.QueryService) *IntegrationHandler {
	return &IntegrationHandler{svc: svc, query: query}
}

func (h *IntegrationHandler) List(c *gin.Context) {
	items, err := h.svc.List(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, items)
}

type telegramConfig struct {
	BotToken string `json:"bot_token"`
}

func (h *IntegrationHandler) ConfigureTelegram(c *gin.Context) {
	var req telegramConfig
	if err := c.ShouldBindJSON(&req); err != nil || req.BotToken == "" {
		response.Error(c, errcode.ErrInvalid, "missing bot_token")
		return
	}
	integ, err := h.svc.Configure(c.Request.Context(), "telegram", "Telegram Bot", req.BotToken)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, integ)
}

type teamsConfig struct {
	AppID       string `json:"app_id"`
	AppPassword string `json:"app_password"`
}

func (h *IntegrationHandler) ConfigureTeams(c *gin.Context) {
	var req teamsConfig
	if err := c.ShouldBindJSON(&req); err != nil || req.AppID == "" {
		response.Error(c, errcode.ErrInvalid, "missing app_id")
		return
	}
	integ, err := h.svc.Configure(c.Request.Context(), "teams", "Microsoft Teams", req.AppPassword)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, integ)
}

type testResult struct {
	Success        bool   `json:"success"`
	ResponseTimeMs int64  `json:"response_time_ms"`
	Message        string `json:"message"`
}

func (h *IntegrationHandler) test(c *gin.Context, channelName string) {
	start := time.Now()
	integ, err := h.svc.Test(c.Request.Context(), channelName)
	if err != nil {
		handleError(c, err)
		return
	}
	result := testResult{
		Success:        integ.Status == model.IntegrationStatusConnected,
		ResponseTimeMs: time.Since(start).Milliseconds(),
		Message:        "connection ok",
	}
	if !result.Success {
		result.Message = integ.ErrorMsg
	}
	response.Success(c, result)
}

func (h *IntegrationHandler) TestTelegram(c *gin.Context) { h.test(c, "telegram") }
func (h *IntegrationHandler) TestTeams(c *gin.Context)    { h.test(c, "teams") }

// teamsActivity is the subset of a Bot Framework activity the webhook needs.
type teamsActivity struct {
	Type string `json:"type"`
	Text string `json:"text"`
	From struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"from"`
}

// TeamsMessages answers an inbound Teams activity synchronously with a reply
// activity, outgoing-webhook style.
func (h *IntegrationHandler) TeamsMessages(c *gin.Context) {
	var activity teamsActivity
	if err := c.ShouldBindJSON(&activity); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid activity")
		return
	}
	if activity.Type != "" && activity.Type != "message" {
		c.JSON(200, gin.H{})
		return
	}
	query := strings.TrimSpace(activity.Text)
	if query == "" {
		c.JSON(200, gin.H{})
		return
	}
	ctx := c.Request.Context()
	h.svc.TouchActive(ctx, "teams")
	result, err := h.query.Process(ctx, service.QueryRequest{
		Query:   query,
		Channel: channel.Teams,
		UserID:  activity.From.ID,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(200, gin.H{"type": "message", "text": result.ChannelFormatted})
}
