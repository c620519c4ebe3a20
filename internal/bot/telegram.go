// Package bot hosts the long-polling Telegram adapter that feeds chat
// messages into the query pipeline.
package bot

import (
	"context"
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/knowd-io/knowd/internal/channel"
	"github.com/knowd-io/knowd/internal/logutil"
	"github.com/knowd-io/knowd/internal/service"
)

const welcomeText = "Hi! Ask me anything about the company knowledge base and I'll look it up for you."

const errorText = "Sorry, something went wrong while answering. Please try again."

type queryRunner interface {
	Process(ctx context.Context, req service.QueryRequest) (*service.QueryResult, error)
}

type TelegramBot struct {
	api          *tgbotapi.BotAPI
	query        queryRunner
	integrations *service.IntegrationService
}

func NewTelegram(token string, query queryRunner, integrations *service.IntegrationService) (*TelegramBot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("connect telegram: %w", err)
	}
	return &TelegramBot{api: api, query: query, integrations: integrations}, nil
}

// Run polls for updates until the context is cancelled.
func (b *TelegramBot) Run(ctx context.Context) {
	logger := logutil.GetLogger(ctx)
	logger.Info("telegram bot started", zap.String("username", b.api.Self.UserName))

	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 30
	updates := b.api.GetUpdatesChan(cfg)
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			logger.Info("telegram bot stopped")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message == nil || update.Message.Text == "" {
				continue
			}
			b.handleMessage(ctx, update.Message)
		}
	}
}

func (b *TelegramBot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	logger := logutil.GetLogger(ctx)
	chatID := msg.Chat.ID
	if msg.IsCommand() {
		if msg.Command() == "start" {
			b.reply(ctx, chatID, welcomeText)
		}
		return
	}
	if b.integrations != nil {
		b.integrations.TouchActive(ctx, "telegram")
	}
	userID := ""
	if msg.From != nil {
		userID = strconv.FormatInt(msg.From.ID, 10)
	}
	result, err := b.query.Process(ctx, service.QueryRequest{
		Query:   msg.Text,
		Channel: channel.Telegram,
		UserID:  userID,
	})
	if err != nil {
		logger.Error("telegram query failed", zap.Int64("chat_id", chatID), zap.Error(err))
		b.reply(ctx, chatID, errorText)
		return
	}
	b.reply(ctx, chatID, result.ChannelFormatted)
}

func (b *TelegramBot) reply(ctx context.Context, chatID int64, text string) {
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		logutil.GetLogger(ctx).Warn("telegram send failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

// VerifyToken checks a bot token against the Telegram API.
func VerifyToken(token string) error {
	if _, err := tgbotapi.NewBotAPI(token); err != nil {
		return fmt.Errorf("telegram token rejected: %w", err)
	}
	return nil
}
