package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"pzwatch/internal/config"
	"pzwatch/internal/console"
	"pzwatch/internal/journal"
	"pzwatch/internal/modlist"
	"pzwatch/internal/registry"
	"pzwatch/internal/steam"
	"pzwatch/internal/telemetry"
	"pzwatch/internal/watchdog"
)

// app wires one run's collaborators together. Modes: check (the default,
// optionally as a dry run), refresh, and a manual broadcast.
type app struct {
	cfg   config.Config
	log   *slog.Logger
	tel   *telemetry.Logger
	jnl   *journal.Journal
	runID string
	start time.Time
}

func (a *app) record(mode, outcome string, changed []string, runErr error) {
	err := a.jnl.Record(journal.Run{
		RunID:       a.runID,
		Mode:        mode,
		Outcome:     outcome,
		ChangedMods: changed,
		Err:         runErr,
		StartedAt:   a.start,
	})
	if err != nil {
		a.log.Warn("journal write failed", "err", err)
	}
}

func (a *app) console() (*console.Client, error) {
	return console.Dial(console.Config{
		Host:         a.cfg.RCON.Host,
		Port:         a.cfg.RCON.Port,
		Password:     a.cfg.RCON.Password,
		DialAttempts: a.cfg.RCON.DialAttempts,
		DialTimeout:  a.cfg.RCON.DialTimeout,
	}, a.log, a.tel, a.runID)
}

func (a *app) fetcher() *steam.Fetcher {
	var backend steam.Backend
	if a.cfg.Steam.UsePFS && a.cfg.Steam.APIKey != "" {
		a.log.Info("using IPublishedFileService/GetDetails with api key")
		backend = steam.NewPublishedFileServiceBackend(a.cfg.Steam.APIKey)
	} else {
		a.log.Info("using ISteamRemoteStorage/GetPublishedFileDetails without api key")
		backend = steam.NewRemoteStorageBackend()
	}
	return steam.NewFetcher(backend, steam.FetcherConfig{
		BatchSize:   a.cfg.Steam.BatchSize,
		MaxAttempts: a.cfg.Steam.MaxAttempts,
		BatchPause:  a.cfg.Steam.BatchPause,
	}, a.log, a.tel, a.runID)
}

func (a *app) sftpConfig() modlist.SFTPConfig {
	return modlist.SFTPConfig{
		Host:       a.cfg.SFTP.Host,
		Port:       a.cfg.SFTP.Port,
		User:       a.cfg.SFTP.User,
		Password:   a.cfg.SFTP.Password,
		RemoteFile: a.cfg.SFTP.RemoteFile,
	}
}

// workshopIDs loads the mod list from the local server ini, downloading it
// first when it is not on disk yet.
func (a *app) workshopIDs() ([]string, error) {
	if _, err := os.Stat(a.cfg.Paths.ServerINI); err == nil {
		return modlist.FileSource{Path: a.cfg.Paths.ServerINI}.WorkshopIDs()
	}
	if !a.cfg.SFTP.Configured() {
		return nil, fmt.Errorf("server ini %s missing and sftp is not configured", a.cfg.Paths.ServerINI)
	}
	a.log.Info("server ini not found locally, downloading")
	return modlist.SFTPSource{
		SFTP:      a.sftpConfig(),
		LocalPath: a.cfg.Paths.ServerINI,
		Log:       a.log,
	}.WorkshopIDs()
}

func (a *app) sendMessage(msg string) error {
	con, err := a.console()
	if err != nil {
		a.record("message", "aborted", nil, err)
		return err
	}
	defer con.Close()

	if err := con.Say(msg); err != nil {
		a.record("message", "aborted", nil, err)
		return err
	}
	a.record("message", "sent", nil, nil)
	return nil
}

// refresh rebuilds the registry snapshot and the discord mod list from the
// current server ini, restart gating not involved.
func (a *app) refresh(ctx context.Context) error {
	var ids []string
	var err error
	if a.cfg.SFTP.Configured() {
		ids, err = modlist.SFTPSource{SFTP: a.sftpConfig(), LocalPath: a.cfg.Paths.ServerINI, Log: a.log}.WorkshopIDs()
	} else {
		ids, err = modlist.FileSource{Path: a.cfg.Paths.ServerINI}.WorkshopIDs()
	}
	if err != nil {
		a.record("refresh", "aborted", nil, err)
		return err
	}

	fetched, err := a.fetcher().Fetch(ctx, ids)
	if err != nil {
		a.record("refresh", "aborted", nil, err)
		return err
	}

	if err := modlist.WriteDiscordList(a.cfg.Paths.DiscordList, ids, fetched); err != nil {
		a.record("refresh", "aborted", nil, err)
		return err
	}
	a.log.Info("discord mod list written", "path", a.cfg.Paths.DiscordList)

	store := registry.NewStore(a.cfg.Paths.Registry)
	if err := store.Save(registry.FromFetch(ids, fetched)); err != nil {
		a.record("refresh", "aborted", nil, err)
		return err
	}
	a.log.Info("registry snapshot refreshed", "path", store.Path(), "mods", len(ids))
	a.record("refresh", "refreshed", nil, nil)
	return nil
}

// check is the regular watchdog run: fetch, diff, and when mods changed,
// drive the restart sequence and commit the new timestamps afterwards.
func (a *app) check(ctx context.Context, testMode bool) error {
	mode := "check"
	if testMode {
		mode = "test"
	}

	ids, err := a.workshopIDs()
	if err != nil {
		a.record(mode, "aborted", nil, err)
		return err
	}
	if len(ids) == 0 {
		a.log.Info("no workshop mods enabled, nothing to watch")
		a.record(mode, "no_change", nil, nil)
		return nil
	}

	fetched, err := a.fetcher().Fetch(ctx, ids)
	if err != nil {
		a.record(mode, "aborted", nil, err)
		return err
	}

	store := registry.NewStore(a.cfg.Paths.Registry)
	snap, err := store.Load()
	if errors.Is(err, fs.ErrNotExist) {
		// First run on this machine: persist what we see now and start
		// detecting changes from the next invocation on.
		a.log.Info("no registry snapshot yet, bootstrapping", "path", store.Path())
		if err := store.Save(registry.FromFetch(ids, fetched)); err != nil {
			a.record(mode, "aborted", nil, err)
			return err
		}
		a.record(mode, "bootstrap", nil, nil)
		return nil
	}
	if err != nil {
		a.record(mode, "aborted", nil, err)
		return err
	}

	changes := registry.Diff(ids, snap, fetched, a.log)
	if len(changes) == 0 {
		a.log.Info("all mods up to date", "mods", len(ids))
		a.record(mode, "no_change", nil, nil)
		return nil
	}
	a.log.Warn("outdated mods detected, starting restart sequence", "changed", changes.IDs())

	con, err := a.console()
	if err != nil {
		a.record(mode, "aborted", changes.IDs(), err)
		return err
	}
	defer con.Close()

	orch := watchdog.New(con, watchdog.Config{
		CountdownMinutes: a.cfg.Watch.CountdownMinutes,
		RestartTimeout:   a.cfg.Watch.RestartTimeout,
		WarningMessage:   a.cfg.Messages.Warning,
		RestartMessage:   a.cfg.Messages.Restart,
		TestMode:         testMode,
	}, a.log, a.tel, a.runID)

	if _, err := orch.Run(ctx, changes); err != nil {
		a.record(mode, "aborted", changes.IDs(), err)
		return err
	}

	if testMode {
		a.log.Info("dry run complete, registry untouched", "changed", changes.IDs())
		a.record(mode, "dry_run", changes.IDs(), nil)
		return nil
	}

	if err := store.Save(registry.Apply(snap, changes)); err != nil {
		a.record(mode, "aborted", changes.IDs(), err)
		return err
	}
	a.log.Info("registry updated after restart", "changed", len(changes))
	a.record(mode, "restarted", changes.IDs(), nil)
	return nil
}
