package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"pitchlab/app/api"
	"pitchlab/app/client/openairt"
	"pitchlab/app/config"
	"pitchlab/app/service/avatar"
	"pitchlab/app/service/competition"
	"pitchlab/app/service/evaluation"
	"pitchlab/app/service/practice"
	"pitchlab/app/service/profile"
	"pitchlab/app/service/voice"
	"pitchlab/app/store"
	"pitchlab/app/util/mylog"

	"github.com/gofiber/fiber/v2/log"
	"github.com/samber/do"
)

func main() {
	di := do.New()
	defer di.Shutdown()
	defer log.Info("Waiting for services to finish...")

	mylog.Preinit()

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	do.ProvideValue(di, appCtx)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	do.ProvideValue(di, cfg)

	if err = mylog.Init(cfg); err != nil {
		log.Fatalf("logging init failed: %v", err)
	}

	do.Provide(di, openairt.NewClient)
	do.Provide(di, store.NewSQLite)
	do.Provide(di, profile.New)
	do.Provide(di, avatar.New)
	do.Provide(di, evaluation.New)
	do.Provide(di, voice.New)
	do.Provide(di, practice.New)
	do.Provide(di, competition.New)
	do.Provide(di, api.New)

	slog.Info("Service started")

	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt)
		<-sigint

		log.Info("Shutting down...")

		cancel()
	}()

	do.MustInvoke[*api.Server](di).Run(appCtx)
}
