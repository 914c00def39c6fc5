package main

import (
	"time"

	"github.com/spf13/viper"
)

func initViperDefaults() {
	// Global
	viper.SetDefault("file_state_dir", "~/.czj")
	viper.SetDefault("assets_dir", "assets")
	viper.SetDefault("photo_dir", "photo")

	// LINE channel credentials come from the environment
	// (CZJ_LINE_CHANNEL_SECRET / CZJ_LINE_CHANNEL_ACCESS_TOKEN).
	viper.SetDefault("line.channel_secret", "")
	viper.SetDefault("line.channel_access_token", "")

	// HTTP server
	viper.SetDefault("server.bind", "0.0.0.0")
	viper.SetDefault("server.port", 8000)
	// Public origin LINE clients fetch images from; on Render this is
	// RENDER_EXTERNAL_URL.
	viper.SetDefault("server.external_url", "http://localhost:8000")

	// Catalog
	viper.SetDefault("catalog.file", "")

	// Trivia ("梗" schedule). Disabled until a page url is configured.
	viper.SetDefault("trivia.page_url", "")
	viper.SetDefault("trivia.ttl", 10*time.Minute)

	// Bot behavior
	viper.SetDefault("bot.replies_file", "")
	viper.SetDefault("bot.command_window", 10*time.Second)
	viper.SetDefault("bot.command_max", 7)
	viper.SetDefault("bot.command_warn_cooldown", 10*time.Second)
	viper.SetDefault("bot.ritual_window", 5*time.Minute)
	viper.SetDefault("bot.ritual_max", 5)
	viper.SetDefault("bot.ranking_size", 10)
}
