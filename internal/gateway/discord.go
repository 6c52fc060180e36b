package gateway

import (
	"context"
	"log"

	"github.com/bwmarrin/discordgo"
)

const discordMessageLimit = 2000

type DiscordGateway struct {
	Session *discordgo.Session
	Service *Service

	ctx    context.Context
	cancel context.CancelFunc
}

func NewDiscordGateway(token string, svc *Service) (*DiscordGateway, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}
	session.Identify.Intents = discordgo.IntentGuildMessages |
		discordgo.IntentDirectMessages |
		discordgo.IntentMessageContent

	ctx, cancel := context.WithCancel(context.Background())
	dg := &DiscordGateway{
		Session: session,
		Service: svc,
		ctx:     ctx,
		cancel:  cancel,
	}
	session.AddHandler(dg.onMessage)
	return dg, nil
}

// Start opens the websocket and blocks until Stop.
func (dg *DiscordGateway) Start() error {
	if err := dg.Session.Open(); err != nil {
		return err
	}
	log.Printf("Discord gateway connected as %s", dg.Session.State.User.Username)
	<-dg.ctx.Done()
	return nil
}

func (dg *DiscordGateway) onMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}
	cmd, _ := splitCommand(m.Content)
	if cmd == "" {
		return
	}

	log.Printf("[discord:%s] %d chars", m.Author.Username, len(m.Content))

	go func() {
		if cmd == "plan" {
			if err := dg.Send(m.ChannelID, "Planning your project, this can take a few minutes..."); err != nil {
				log.Printf("Error sending to discord: %v", err)
			}
		}
		reply, ok := dg.Service.Respond(dg.ctx, "discord", m.Content)
		if !ok {
			return
		}
		if err := dg.sendReply(m.ChannelID, reply); err != nil {
			log.Printf("Error sending to discord: %v", err)
		}
	}()
}

func (dg *DiscordGateway) sendReply(channelID string, reply Reply) error {
	if !reply.Mono {
		return dg.Send(channelID, reply.Text)
	}
	for _, chunk := range splitMessage(reply.Text, discordMessageLimit-8) {
		if _, err := dg.Session.ChannelMessageSend(channelID, "```\n"+chunk+"```"); err != nil {
			return err
		}
	}
	return nil
}

func (dg *DiscordGateway) Send(channelID string, text string) error {
	for _, chunk := range splitMessage(text, discordMessageLimit) {
		if _, err := dg.Session.ChannelMessageSend(channelID, chunk); err != nil {
			return err
		}
	}
	return nil
}

func (dg *DiscordGateway) Stop() error {
	dg.cancel()
	return dg.Session.Close()
}
