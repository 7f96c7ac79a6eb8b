// Package console is the remote console channel to the game server. It speaks
// Source RCON (what Project Zomboid exposes) and narrows the protocol down to
// the handful of commands the watchdog needs.
package console

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gorcon/rcon"

	"pzwatch/internal/telemetry"
)

// ErrConnect is returned once the bounded dial retries are used up. The caller
// must treat it as a hard failure: a restart that cannot reach the server must
// abort loudly, never silently skip.
var ErrConnect = errors.New("console: connect failed")

// Console is the capability set the orchestrator drives.
type Console interface {
	Say(message string) error
	Players() ([]string, error)
	Save() error
	Quit() error
	Kick(player string) error
	Close() error
}

type Config struct {
	Host         string
	Port         int
	Password     string
	DialAttempts int
	DialTimeout  time.Duration
}

type Client struct {
	conn  *rcon.Conn
	log   *slog.Logger
	tel   *telemetry.Logger
	runID string
}

// Dial opens the RCON connection, retrying transient failures a bounded
// number of times before giving up with ErrConnect.
func Dial(cfg Config, log *slog.Logger, tel *telemetry.Logger, runID string) (*Client, error) {
	if cfg.DialAttempts <= 0 {
		cfg.DialAttempts = 3
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 10 * time.Second
	}
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	var lastErr error
	for attempt := 1; attempt <= cfg.DialAttempts; attempt++ {
		conn, err := rcon.Dial(addr, cfg.Password, rcon.SetDialTimeout(cfg.DialTimeout))
		if err == nil {
			return &Client{conn: conn, log: log, tel: tel, runID: runID}, nil
		}
		lastErr = err
		log.Warn("rcon dial failed", "addr", addr, "attempt", attempt, "err", err)
		if attempt < cfg.DialAttempts {
			time.Sleep(time.Duration(attempt) * time.Second)
		}
	}
	return nil, fmt.Errorf("%w: %s after %d attempts: %v", ErrConnect, addr, cfg.DialAttempts, lastErr)
}

func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) exec(command string) (string, error) {
	resp, err := c.conn.Execute(command)
	c.tel.Log(telemetry.Record{RunID: c.runID, Type: "rcon", Command: firstWord(command), Message: truncate(resp, 120)})
	if err != nil {
		return "", fmt.Errorf("console: %s: %w", firstWord(command), err)
	}
	return resp, nil
}

// Say broadcasts a message to every connected player.
func (c *Client) Say(message string) error {
	c.log.Info("sending server message", "message", message)
	_, err := c.exec(fmt.Sprintf("servermsg %q", message))
	return err
}

// Players returns the names of currently connected players.
func (c *Client) Players() ([]string, error) {
	resp, err := c.exec("players")
	if err != nil {
		return nil, err
	}
	return parsePlayers(resp), nil
}

func (c *Client) Save() error {
	_, err := c.exec("save")
	return err
}

func (c *Client) Quit() error {
	_, err := c.exec("quit")
	return err
}

func (c *Client) Kick(player string) error {
	c.log.Info("kicking player", "player", player)
	_, err := c.exec(fmt.Sprintf("kickuser %q", player))
	return err
}

// parsePlayers reads the PZ `players` response:
//
//	Players connected (2):
//	-alice
//	-bob
func parsePlayers(resp string) []string {
	var players []string
	for _, line := range strings.Split(resp, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "Players connected") {
			continue
		}
		name := strings.TrimSpace(strings.TrimPrefix(line, "-"))
		if name != "" {
			players = append(players, name)
		}
	}
	return players
}

func firstWord(s string) string {
	if i := strings.IndexByte(s, ' '); i >= 0 {
		return s[:i]
	}
	return s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
