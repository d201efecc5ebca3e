// Package app wires configuration, storage, the API client, the tracker
// tasks and the Discord delivery queue into one runnable daemon.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"clanwatch/internal/cocapi"
	"clanwatch/internal/config"
	"clanwatch/internal/discord"
	"clanwatch/internal/logging"
	"clanwatch/internal/scheduler"
	"clanwatch/internal/storage"
	"clanwatch/internal/tracker"
)

const origin = "app"

type App struct {
	manager *config.Manager
	log     zerolog.Logger
	dlog    *discord.Logger
	store   *storage.Store
	client  *cocapi.Client
	sched   *scheduler.Service

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New loads the configuration and builds every component. Construction fails
// fast on missing credentials; no network traffic happens here.
func New(cfgPath string) (*App, error) {
	manager := config.NewManager(cfgPath, logging.New("info"))
	cfg, err := manager.Load()
	if err != nil {
		return nil, err
	}

	// The console logger handed to the delivery core must stay hook-free;
	// the escalation hook goes on the application logger only.
	console := logging.New(cfg.Log.Level)

	dlog, err := discord.New(discord.Config{
		Token:         cfg.Discord.Token,
		ChannelID:     cfg.Discord.ChannelID,
		MentionUserID: cfg.Discord.MentionUserID,
	}, console)
	if err != nil {
		return nil, err
	}
	log := console.Hook(discord.EscalationHook{Logger: dlog})
	// Reload failures should reach the channel like any other error.
	manager.SetLogger(log)

	store, err := storage.Open(storage.Config{
		Path:        cfg.Storage.Path,
		BusyTimeout: cfg.StorageBusyTimeout(),
	}, log)
	if err != nil {
		return nil, err
	}

	client := cocapi.New(cocapi.Config{
		Key:        cfg.API.Key,
		BaseURL:    cfg.API.BaseURL,
		RatePerSec: cfg.APIRatePerSec(),
	}, log)

	a := &App{
		manager: manager,
		log:     log,
		dlog:    dlog,
		store:   store,
		client:  client,
		sched:   scheduler.New(log),
	}
	if err := a.registerTasks(cfg); err != nil {
		_ = store.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) registerTasks(cfg *config.Config) error {
	report := reporter{a.dlog}
	for _, clan := range cfg.Clans {
		tasks := []struct {
			task  scheduler.Task
			every time.Duration
		}{
			{&tracker.ClanInfoTask{Client: a.client, Store: a.store, Report: report, Tag: clan.Tag, Season: clan.Season}, cfg.ClanInfoEvery()},
			{&tracker.MembersTask{Client: a.client, Store: a.store, Report: report, Tag: clan.Tag}, cfg.MembersEvery()},
			{&tracker.WarLogTask{Client: a.client, Store: a.store, Report: report, Tag: clan.Tag}, cfg.WarLogEvery()},
			{&tracker.CWLTask{Client: a.client, Store: a.store, Report: report, Tag: clan.Tag}, cfg.CWLEvery()},
		}
		for _, t := range tasks {
			if err := a.sched.Register(t.task, t.every); err != nil {
				return fmt.Errorf("register %s: %w", t.task.Name(), err)
			}
		}
	}
	return nil
}

// Start launches the scheduler and the config watcher and announces startup
// in the Discord channel.
func (a *App) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	a.sched.Start(runCtx)

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.manager.Watch(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			a.log.Warn().Err(err).Msg("config watcher stopped")
		}
	}()

	updates := a.manager.Subscribe(1)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer a.manager.Unsubscribe(updates)
		for {
			select {
			case <-runCtx.Done():
				return
			case cfg, ok := <-updates:
				if !ok {
					return
				}
				a.applyReload(cfg)
			}
		}
	}()

	a.dlog.Info(fmt.Sprintf("clanwatch started, %d tasks scheduled", len(a.sched.Names())), origin)
	return nil
}

// applyReload adjusts what can change at runtime. Schedule intervals and the
// log level apply immediately; clan list and credential changes need a
// restart.
func (a *App) applyReload(cfg *config.Config) {
	// The global level can only quiet loggers below their constructed level;
	// raising verbosity past the startup level needs a restart.
	zerolog.SetGlobalLevel(logging.ParseLevel(cfg.Log.Level, zerolog.InfoLevel))

	for _, clan := range cfg.Clans {
		for _, change := range []struct {
			name  string
			every time.Duration
		}{
			{"clan_info:" + clan.Tag, cfg.ClanInfoEvery()},
			{"members:" + clan.Tag, cfg.MembersEvery()},
			{"war_log:" + clan.Tag, cfg.WarLogEvery()},
			{"cwl:" + clan.Tag, cfg.CWLEvery()},
		} {
			err := a.sched.Reschedule(change.name, change.every)
			if errors.Is(err, scheduler.ErrUnknownTask) {
				a.log.Warn().Str("task", change.name).Msg("new clan in config, restart required to track it")
			} else if err != nil {
				a.log.Warn().Err(err).Str("task", change.name).Msg("reschedule failed")
			}
		}
	}
	a.log.Info().Msg("config reload applied")
}

// RunNow triggers the named task out of schedule and resets its timer.
func (a *App) RunNow(name string) error {
	return a.sched.RunNow(name)
}

// Stop drains everything: scheduler first so no new messages are produced,
// then the Discord queue, then storage.
func (a *App) Stop(ctx context.Context) error {
	if a.cancel != nil {
		a.cancel()
	}
	a.wg.Wait()

	var errs []error
	if err := a.sched.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("scheduler stop: %w", err))
	}

	a.dlog.Info("clanwatch shutting down", origin)
	if err := a.dlog.Flush(ctx); err != nil {
		errs = append(errs, fmt.Errorf("discord flush: %w", err))
	}

	if err := a.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("storage close: %w", err))
	}
	return errors.Join(errs...)
}

// ForcedFlush gives queued Discord messages a bounded chance to leave. Meant
// for the unconditional exit path.
func (a *App) ForcedFlush(ceiling time.Duration) bool {
	return a.dlog.ForcedFlush(ceiling)
}

// reporter adapts the delivery queue to the tracker's fire-and-forget view.
type reporter struct {
	dlog *discord.Logger
}

func (r reporter) Info(text, origin string)    { r.dlog.Info(text, origin) }
func (r reporter) Success(text, origin string) { r.dlog.Success(text, origin) }
func (r reporter) Warning(text, origin string) { r.dlog.Warning(text, origin) }
func (r reporter) Error(text, origin string)   { r.dlog.Error(text, origin) }
