package gateway

import (
	"context"
	"fmt"
	"html"
	"log"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const telegramMessageLimit = 4096

type TelegramGateway struct {
	Bot     *tgbotapi.BotAPI
	Service *Service

	ctx    context.Context
	cancel context.CancelFunc
}

func NewTelegramGateway(token string, svc *Service) (*TelegramGateway, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	log.Printf("Authorized on account %s", bot.Self.UserName)

	ctx, cancel := context.WithCancel(context.Background())
	return &TelegramGateway{
		Bot:     bot,
		Service: svc,
		ctx:     ctx,
		cancel:  cancel,
	}, nil
}

func (tg *TelegramGateway) Start() error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := tg.Bot.GetUpdatesChan(u)

	for update := range updates {
		if update.Message == nil {
			continue
		}

		log.Printf("[telegram:%s] %d chars", update.Message.From.UserName, len(update.Message.Text))

		// Runs take minutes; answer each request on its own goroutine.
		go tg.handle(update.Message.Chat.ID, update.Message.Text)
	}
	return nil
}

func (tg *TelegramGateway) handle(chatID int64, text string) {
	id := strconv.FormatInt(chatID, 10)

	cmd, _ := splitCommand(text)
	if cmd == "plan" {
		if err := tg.Send(id, "Planning your project, this can take a few minutes..."); err != nil {
			log.Printf("Error sending to telegram: %v", err)
		}
	}

	reply, ok := tg.Service.Respond(tg.ctx, "telegram", text)
	if !ok {
		return
	}
	if err := tg.sendReply(chatID, reply); err != nil {
		log.Printf("Error sending to telegram: %v", err)
	}
}

func (tg *TelegramGateway) sendReply(chatID int64, reply Reply) error {
	if !reply.Mono {
		return tg.Send(strconv.FormatInt(chatID, 10), reply.Text)
	}
	// Leave room for the <pre> wrapper and entity expansion.
	for _, chunk := range splitMessage(reply.Text, telegramMessageLimit/2) {
		msg := tgbotapi.NewMessage(chatID, "<pre>"+html.EscapeString(chunk)+"</pre>")
		msg.ParseMode = tgbotapi.ModeHTML
		if _, err := tg.Bot.Send(msg); err != nil {
			return err
		}
	}
	return nil
}

func (tg *TelegramGateway) Send(chatID string, text string) error {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil || id == 0 {
		return fmt.Errorf("invalid chat ID: %s", chatID)
	}

	for _, chunk := range splitMessage(text, telegramMessageLimit) {
		if _, err := tg.Bot.Send(tgbotapi.NewMessage(id, chunk)); err != nil {
			return err
		}
	}
	return nil
}

func (tg *TelegramGateway) Stop() error {
	tg.cancel()
	tg.Bot.StopReceivingUpdates()
	return nil
}
