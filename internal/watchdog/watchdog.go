package watchdog

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"pzwatch/internal/console"
	"pzwatch/internal/registry"
	"pzwatch/internal/telemetry"
)

// State names one step of the restart sequence.
type State string

const (
	StateIdle            State = "idle"
	StateAnnouncing      State = "announcing"
	StateCounting        State = "counting"
	StateWaitingForEmpty State = "waiting_for_empty"
	StateKicking         State = "kicking"
	StateSaving          State = "saving"
	StateRestarting      State = "restarting"
	StateDone            State = "done"
	StateAborted         State = "aborted"
)

const stepInterval = time.Minute

type Config struct {
	// CountdownMinutes is the player-facing warning period, in whole minutes.
	CountdownMinutes int
	// RestartTimeout is the pause after `save` before `quit`, giving the
	// server time to flush the world to disk. The pre-kick grace window is
	// twice this value.
	RestartTimeout time.Duration
	// WarningMessage is broadcast each countdown minute. {minutes} expands to
	// the minutes remaining.
	WarningMessage string
	// RestartMessage is broadcast when the countdown ran out. {seconds}
	// expands to the grace window in seconds.
	RestartMessage string
	// TestMode runs announce and countdown but replaces save/quit with a log
	// line, leaving the server and the registry untouched.
	TestMode bool
}

// Session is the ephemeral state of one orchestration run, kept around for
// diagnostics only.
type Session struct {
	Start          time.Time
	ElapsedMinutes int
	PlayerCount    int
}

type Orchestrator struct {
	console console.Console
	cfg     Config
	log     *slog.Logger
	tel     *telemetry.Logger
	runID   string

	// sleep is injected so tests can drive the countdown without waiting.
	sleep func(ctx context.Context, d time.Duration) error

	state   State
	session Session
}

func New(con console.Console, cfg Config, log *slog.Logger, tel *telemetry.Logger, runID string) *Orchestrator {
	return &Orchestrator{
		console: con,
		cfg:     cfg,
		log:     log,
		tel:     tel,
		runID:   runID,
		sleep:   sleepCtx,
		state:   StateIdle,
	}
}

// State returns the machine's current (or terminal) state.
func (o *Orchestrator) State() State { return o.state }

// Session returns the run's diagnostic snapshot.
func (o *Orchestrator) Session() Session { return o.session }

// Run executes the restart sequence for a non-empty change set. It returns
// StateDone on success (or the test-mode equivalent) and StateAborted with a
// non-nil error when the console fails; in the latter case the caller must
// leave the registry untouched so the change is retried next run.
func (o *Orchestrator) Run(ctx context.Context, changes registry.Changes) (State, error) {
	if len(changes) == 0 {
		return o.state, fmt.Errorf("watchdog: empty change set")
	}
	o.session = Session{Start: time.Now()}

	players, err := o.console.Players()
	if err != nil {
		return o.abort(err)
	}
	o.session.PlayerCount = len(players)

	// Empty server: nothing to warn, restart right away. Test mode still
	// walks the full countdown so a dry run exercises the same transitions.
	if len(players) == 0 && !o.cfg.TestMode {
		o.log.Info("no players online, restarting immediately")
		return o.saveAndQuit(ctx)
	}

	o.transition(StateAnnouncing)
	names := strings.Join(changes.Names(), ", ")
	announce := fmt.Sprintf("Server restart in %d minutes due to mod updates: %s", o.cfg.CountdownMinutes, names)
	if err := o.say(announce); err != nil {
		return o.abort(err)
	}

	o.transition(StateCounting)
	empty, err := o.countdown(ctx)
	if err != nil {
		return o.abort(err)
	}
	if empty {
		o.log.Info("no players left, restarting early", "elapsed_minutes", o.session.ElapsedMinutes)
		return o.saveAndQuit(ctx)
	}

	o.transition(StateWaitingForEmpty)
	grace := 2 * o.cfg.RestartTimeout
	if err := o.say(expand(o.cfg.RestartMessage, "seconds", int(grace.Seconds()))); err != nil {
		return o.abort(err)
	}
	if o.cfg.TestMode {
		o.log.Info("test mode: skipping kick, save and quit")
		o.transition(StateDone)
		return o.state, nil
	}
	if err := o.sleep(ctx, grace); err != nil {
		return o.abort(err)
	}

	players, err = o.console.Players()
	if err != nil {
		return o.abort(err)
	}
	if len(players) > 0 {
		o.transition(StateKicking)
		for _, p := range players {
			if err := o.console.Kick(p); err != nil {
				return o.abort(err)
			}
		}
		if err := o.sleep(ctx, 2*time.Second); err != nil {
			return o.abort(err)
		}
	}
	return o.saveAndQuit(ctx)
}

// countdown warns once per minute and polls the player count after each step.
// It reports true as soon as the server empties out.
func (o *Orchestrator) countdown(ctx context.Context) (empty bool, err error) {
	for minutesLeft := o.cfg.CountdownMinutes; minutesLeft > 0; minutesLeft-- {
		if err := o.say(expand(o.cfg.WarningMessage, "minutes", minutesLeft)); err != nil {
			return false, err
		}
		if err := o.sleep(ctx, stepInterval); err != nil {
			return false, err
		}
		o.session.ElapsedMinutes++

		players, err := o.console.Players()
		if err != nil {
			return false, err
		}
		o.session.PlayerCount = len(players)
		if len(players) == 0 {
			return true, nil
		}
	}
	return false, nil
}

func (o *Orchestrator) saveAndQuit(ctx context.Context) (State, error) {
	if o.cfg.TestMode {
		o.log.Info("test mode: skipping save and quit")
		o.transition(StateDone)
		return o.state, nil
	}

	o.transition(StateSaving)
	o.log.Info("saving world")
	if err := o.console.Save(); err != nil {
		return o.abort(err)
	}
	if err := o.sleep(ctx, o.cfg.RestartTimeout); err != nil {
		return o.abort(err)
	}

	o.transition(StateRestarting)
	o.log.Info("sending quit, supervisor takes over from here")
	if err := o.console.Quit(); err != nil {
		return o.abort(err)
	}

	o.transition(StateDone)
	return o.state, nil
}

func (o *Orchestrator) say(message string) error {
	if o.cfg.TestMode {
		message += " (TEST)"
	}
	return o.console.Say(message)
}

func (o *Orchestrator) transition(next State) {
	o.log.Info("state transition", "from", string(o.state), "to", string(next))
	o.tel.Log(telemetry.Record{RunID: o.runID, Type: "state", State: string(next)})
	o.state = next
}

func (o *Orchestrator) abort(err error) (State, error) {
	failed := o.state
	o.transition(StateAborted)
	return StateAborted, fmt.Errorf("watchdog: aborted in state %s: %w", failed, err)
}

func expand(msg, key string, val int) string {
	return strings.ReplaceAll(msg, "{"+key+"}", strconv.Itoa(val))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
