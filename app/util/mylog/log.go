// Package mylog configures the process-wide slog logger: readable console
// output always, plus an optional Telegram sink for errors and explicitly
// flagged records.
package mylog

import (
	"context"
	"log/slog"
	"os"
	"pitchlab/app/config"

	"github.com/phsym/console-slog"
	slogmulti "github.com/samber/slog-multi"
	slogtelegram "github.com/samber/slog-telegram/v2"
)

// Preinit installs a console-only logger so config loading failures are
// still readable. Init replaces it once the config is available.
func Preinit() {
	slog.SetDefault(slog.New(newConsoleHandler()))
}

func Init(cfg *config.Config) error {
	router := slogmulti.Router()

	router = router.Add(newConsoleHandler())

	if cfg.Log.Telegram.Token != "" {
		router = router.Add(
			slogtelegram.Option{
				Level:     slog.LevelDebug,
				Token:     cfg.Log.Telegram.Token,
				Username:  cfg.Log.Telegram.ChatID,
				AddSource: true,
			}.NewTelegramHandler(),
			wantsTelegram,
		)
	}

	slog.SetDefault(slog.New(router.Handler()))

	return nil
}

func newConsoleHandler() slog.Handler {
	return console.NewHandler(os.Stderr, &console.HandlerOptions{
		AddSource: true,
		Level:     slog.LevelDebug,
	})
}

// wantsTelegram routes every error to the Telegram sink, and any record
// carrying a "telegram" attr regardless of level.
func wantsTelegram(_ context.Context, r slog.Record) bool {
	if r.Level == slog.LevelError {
		return true
	}

	flagged := false
	r.Attrs(func(attr slog.Attr) bool {
		if attr.Key == "telegram" {
			flagged = true
			return false
		}
		return true
	})

	return flagged
}
