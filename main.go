package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/vkozyrev/chanrelay/internal/bot"
	"github.com/vkozyrev/chanrelay/internal/config"
	"github.com/vkozyrev/chanrelay/internal/db/sqlite"
	"github.com/vkozyrev/chanrelay/internal/handlers"
	"github.com/vkozyrev/chanrelay/internal/infra"
	"github.com/vkozyrev/chanrelay/internal/infrastructure/telegram"
	"github.com/vkozyrev/chanrelay/internal/lifecycle"
	"github.com/vkozyrev/chanrelay/internal/moderation"
	"github.com/vkozyrev/chanrelay/internal/observability"
	"github.com/vkozyrev/chanrelay/internal/publish"
)

func main() {
	cfg := config.Get()
	log.SetFormatter(&config.CrFormatter{})
	log.SetOutput(os.Stdout)
	log.SetLevel(log.Level(cfg.LogLevel))

	recoverable(func() {
		ctx, cancelFunc := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancelFunc()

		if err := observability.Init(ctx, cfg.MetricsAddr); err != nil {
			log.WithError(err).Warnln("cant initialize observability")
		}

		botAPI, err := api.NewBotAPI(cfg.TelegramAPIToken)
		if err != nil {
			log.WithError(err).Errorln("cant initialize bot api")
			time.Sleep(1 * time.Second)
			log.Fatalln("exiting")
		}
		if log.Level(cfg.LogLevel) == log.TraceLevel {
			botAPI.Debug = true
		}
		defer botAPI.StopReceivingUpdates()

		dbClient, err := sqlite.NewSQLiteClient(ctx, infra.GetWorkDir(), "relay.db")
		if err != nil {
			log.WithError(err).Fatalln("cant open db")
		}
		defer dbClient.Close()

		ops := telegram.NewOperations(botAPI, cfg.ChannelID, infra.GetStagingDir())
		matcher := moderation.NewBanwordMatcher(filepath.Join(infra.GetWorkDir(), cfg.BanwordsPath))
		gate := moderation.NewGate(dbClient, matcher)
		queue := publish.NewQueue(cfg.QueueSize)
		worker := publish.NewWorker(queue, ops, cfg.SendTimeout)

		rt := lifecycle.NewRuntime(worker)
		if err := rt.Start(ctx); err != nil {
			log.WithError(err).Fatalln("cant start runtime")
		}
		defer func() {
			stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer stopCancel()
			if err := rt.Stop(stopCtx); err != nil {
				log.WithError(err).Errorln("cant stop runtime")
			}
		}()

		bot.RegisterUpdateHandler("admin", handlers.NewAdmin(cfg, dbClient, ops))
		bot.RegisterUpdateHandler("submission", handlers.NewSubmission(cfg, gate, queue, ops))

		updateConfig := api.NewUpdate(0)
		updateConfig.Timeout = 60
		updateProcessor := bot.NewUpdateProcessor()

		updateChan, errorChan := bot.GetUpdatesChans(ctx, botAPI, updateConfig)

		g, gCtx := errgroup.WithContext(ctx)
		g.Go(func() error {
			for {
				select {
				case err := <-errorChan:
					return err
				case update := <-updateChan:
					if err := updateProcessor.Process(gCtx, &update); err != nil {
						log.WithError(err).Errorln("cant process update")
					}
				case <-gCtx.Done():
					return gCtx.Err()
				}
			}
		})
		if err := g.Wait(); err != nil {
			log.WithError(err).Errorln("no more updates")
		}
	})
	os.Exit(0)
}

// recoverable keeps the relay alive across panics in the main body,
// restarting it after a short pause.
func recoverable(f func()) {
	defer func() {
		if r := recover(); r != nil {
			log.WithField("origin", infra.IdentifyPanic()).Errorf("recovered from panic: %v", r)
			time.Sleep(5 * time.Second)
			go recoverable(f)
		}
	}()
	f()
}
