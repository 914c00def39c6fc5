package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ray319129/czj/bot"
	"github.com/ray319129/czj/catalog"
	"github.com/ray319129/czj/counter"
	"github.com/ray319129/czj/internal/fsstore"
	"github.com/ray319129/czj/internal/lineutil"
	"github.com/ray319129/czj/internal/logutil"
	"github.com/ray319129/czj/internal/statepaths"
	"github.com/ray319129/czj/session"
	"github.com/ray319129/czj/trivia"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the LINE webhook server",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := logutil.LoggerFromViper()
			if err != nil {
				return err
			}
			slog.SetDefault(logger)

			channelSecret := strings.TrimSpace(viper.GetString("line.channel_secret"))
			channelToken := strings.TrimSpace(viper.GetString("line.channel_access_token"))
			if channelSecret == "" || channelToken == "" {
				return fmt.Errorf("missing line.channel_secret or line.channel_access_token (set via %s_LINE_CHANNEL_SECRET / %s_LINE_CHANNEL_ACCESS_TOKEN)", envPrefix, envPrefix)
			}

			api, err := messaging_api.NewMessagingApiAPI(channelToken)
			if err != nil {
				return fmt.Errorf("messaging api client: %w", err)
			}

			if err := fsstore.EnsureDir(statepaths.StateDir()); err != nil {
				return err
			}

			catalogPath := statepaths.CatalogFilePath()
			index, err := catalog.LoadFile(catalogPath)
			if err != nil {
				// A broken catalog degrades to "no results", it does not
				// take the bot down.
				logger.Warn("catalog unreadable, serving empty index", "path", catalogPath, "error", err)
				index = catalog.NewIndex(nil)
			}
			logger.Info("catalog_loaded", "path", catalogPath, "entries", index.Len())

			counterStore, err := counter.NewStore(statepaths.CounterFilePath(), logger)
			if err != nil {
				return fmt.Errorf("open counter: %w", err)
			}

			var triviaSource bot.TriviaSource
			if pageURL := strings.TrimSpace(viper.GetString("trivia.page_url")); pageURL != "" {
				triviaSource = trivia.NewCachedSource(trivia.CachedSourceOptions{
					Source: trivia.NewScraper(pageURL),
					TTL:    viper.GetDuration("trivia.ttl"),
					Logger: logger,
				})
			} else {
				logger.Warn("trivia disabled: trivia.page_url not configured")
			}

			replies := bot.DefaultReplies()
			if path := strings.TrimSpace(viper.GetString("bot.replies_file")); path != "" {
				replies, err = bot.LoadReplies(path)
				if err != nil {
					return err
				}
			}

			dispatcher, err := bot.New(bot.Options{
				Config:   botConfigFromViper(),
				Replies:  replies,
				Catalog:  index,
				Trivia:   triviaSource,
				Sessions: session.NewStore(),
				Counter:  counterStore,
				Profiles: &lineProfiles{api: api},
				Logger:   logger,
			})
			if err != nil {
				return err
			}

			renderer := &lineutil.Renderer{
				BaseURL: strings.TrimSpace(viper.GetString("server.external_url")),
			}

			mux := http.NewServeMux()
			mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write([]byte("ok"))
			})
			mux.Handle("/images/", http.StripPrefix("/images/", http.FileServer(http.Dir(statepaths.PhotoDir()))))
			mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
					return
				}
				cb, err := webhook.ParseRequest(channelSecret, r)
				if err != nil {
					if errors.Is(err, webhook.ErrInvalidSignature) {
						http.Error(w, "invalid signature", http.StatusBadRequest)
						return
					}
					http.Error(w, "bad request", http.StatusBadRequest)
					return
				}
				for _, event := range cb.Events {
					handleEvent(r.Context(), logger, dispatcher, renderer, api, event)
				}
				w.WriteHeader(http.StatusOK)
			})

			bind := strings.TrimSpace(flagOrViperString(cmd, "server-bind", "server.bind"))
			port := flagOrViperInt(cmd, "server-port", "server.port")
			addr := bind + ":" + strconv.Itoa(port)
			srv := &http.Server{
				Addr:              addr,
				Handler:           mux,
				ReadHeaderTimeout: 5 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.ListenAndServe()
			}()
			logger.Info("server_start", "addr", addr, "entries", index.Len())

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			logger.Info("server_stopping")
			return srv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().String("server-bind", "0.0.0.0", "Bind address.")
	cmd.Flags().Int("server-port", 8000, "HTTP port to listen on.")

	return cmd
}

func handleEvent(ctx context.Context, logger *slog.Logger, dispatcher *bot.Dispatcher, renderer *lineutil.Renderer, api *messaging_api.MessagingApiAPI, event webhook.EventInterface) {
	me, ok := event.(webhook.MessageEvent)
	if !ok {
		return
	}
	text, ok := me.Message.(webhook.TextMessageContent)
	if !ok {
		return
	}
	userID, isGroup := eventSource(me.Source)
	if userID == "" {
		return
	}

	eventID := uuid.NewString()
	actions := dispatcher.Dispatch(ctx, userID, text.Text, isGroup, time.Now())
	if len(actions) == 0 {
		return
	}

	msgs := renderer.Render(actions, isGroup)
	if len(msgs) == 0 {
		return
	}
	if _, err := api.ReplyMessage(&messaging_api.ReplyMessageRequest{
		ReplyToken: me.ReplyToken,
		Messages:   msgs,
	}); err != nil {
		logger.Error("reply failed", "event_id", eventID, "user_id", userID, "error", err)
		return
	}
	logger.Info("replied", "event_id", eventID, "user_id", userID, "group", isGroup, "messages", len(msgs))
}

// eventSource extracts the acting user and whether the event came from a
// multi-person chat.
func eventSource(src webhook.SourceInterface) (userID string, isGroup bool) {
	switch s := src.(type) {
	case webhook.UserSource:
		return s.UserId, false
	case webhook.GroupSource:
		return s.UserId, true
	case webhook.RoomSource:
		return s.UserId, true
	}
	return "", false
}

func botConfigFromViper() bot.Config {
	return bot.Config{
		CommandWindow:       viper.GetDuration("bot.command_window"),
		CommandMax:          viper.GetInt("bot.command_max"),
		CommandWarnCooldown: viper.GetDuration("bot.command_warn_cooldown"),
		RitualWindow:        viper.GetDuration("bot.ritual_window"),
		RitualMax:           viper.GetInt("bot.ritual_max"),
		RankingSize:         viper.GetInt("bot.ranking_size"),
	}
}

// lineProfiles resolves ranking display names through the messaging API.
type lineProfiles struct {
	api *messaging_api.MessagingApiAPI
}

func (p *lineProfiles) DisplayName(ctx context.Context, userID string) (string, error) {
	profile, err := p.api.GetProfile(userID)
	if err != nil {
		return "", err
	}
	return profile.DisplayName, nil
}
