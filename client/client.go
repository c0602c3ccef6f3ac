// A small console client for the relay. Joins with the configured
// identity, prints what the channels receive, and sends each stdin
// line as a message.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/gorilla/websocket"

	"chat-relay/domain"
	"chat-relay/internal"
	"chat-relay/projection"
	"chat-relay/protocol"
)

// Exit codes for the client application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

// Config defines the client-side environment variables.
type Config struct {
	ServerURL string `env:"RELAY_WS_URL,default=ws://localhost:8080/ws"`
	Identity  string `env:"RELAY_IDENTITY,required=true"`
	Channel   string `env:"RELAY_CHANNEL,default=general"`
	// RELAY_TOKEN carries an operator JWT for an elevated session
	Token    string `env:"RELAY_TOKEN"`
	LogLevel string `env:"LOG_LEVEL,default=INFO"`
}

func main() {
	// The main function manages the OS exit code based on run()'s return.
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
	}
	os.Exit(code)
}

// run handles the websocket client lifecycle, configuration loading,
// and the send/receive loops.
func run() (int, error) {
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	log := internal.NewLogger(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ws, _, err := websocket.DefaultDialer.DialContext(ctx, config.ServerURL, nil)
	if err != nil {
		return exitRuntime, fmt.Errorf("could not connect to relay at %s: %w", config.ServerURL, err)
	}
	defer func() {
		log.Info("Closing connection...")
		_ = ws.Close()
	}()

	join, err := json.Marshal(map[string]string{
		"type":     string(protocol.EventJoin),
		"identity": config.Identity,
		"token":    config.Token,
	})
	if err != nil {
		return exitRuntime, err
	}
	if err := ws.WriteMessage(websocket.TextMessage, join); err != nil {
		return exitRuntime, fmt.Errorf("join failed: %w", err)
	}

	// stdin lines become messages for the configured channel.
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			text := scanner.Text()
			if text == "" {
				continue
			}
			frame, err := json.Marshal(map[string]string{
				"type":    string(protocol.EventMessage),
				"channel": config.Channel,
				"text":    text,
			})
			if err != nil {
				continue
			}
			if err := ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		}
	}()

	go func() {
		<-ctx.Done()
		_ = ws.Close()
	}()

	timeline := projection.NewTimeline()

	// Reception loop, runs until the user quits or the relay kicks us.
	for {
		_, payload, err := ws.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				log.Info("Stopping client...")
				return exitOK, nil
			}
			return exitRuntime, fmt.Errorf("connection lost: %w", err)
		}

		var effect struct {
			Type     string             `json:"type"`
			Message  string             `json:"message"`
			Reason   string             `json:"reason"`
			Kick     bool               `json:"kick"`
			Identity string             `json:"identity"`
			Channel  string             `json:"channel"`
			Event    domain.ChatEvent   `json:"event"`
			Events   []domain.ChatEvent `json:"events"`
		}
		if err := json.Unmarshal(payload, &effect); err != nil {
			log.Warn("Undecodable frame", "err", err)
			continue
		}

		switch effect.Type {
		case protocol.TypeJoined:
			log.Info(fmt.Sprintf(">>> Joined as %s (Ctrl+C to quit)", effect.Identity))
		case protocol.TypeMessage:
			if timeline.Consume(effect.Event) {
				fmt.Printf("[%s] %s: %s\n",
					effect.Event.CreatedAt.Format(time.TimeOnly),
					effect.Event.Author,
					effect.Event.Text,
				)
			}
		case protocol.TypeHistory:
			timeline.ReplaceHistory(effect.Channel, effect.Events)
			for _, evt := range timeline.Channel(effect.Channel) {
				fmt.Printf("[%s] %s: %s\n",
					evt.CreatedAt.Format(time.TimeOnly), evt.Author, evt.Text)
			}
		case protocol.TypeMuted:
			log.Warn(effect.Reason)
		case protocol.TypeError:
			log.Error(effect.Message)
			if effect.Kick {
				return exitRuntime, fmt.Errorf("disconnected by the relay: %s", effect.Message)
			}
		}
	}
}
