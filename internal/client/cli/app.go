package cli

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/clientkeeper/internal/client/client"
	"github.com/dmitrijs2005/clientkeeper/internal/client/config"
	"github.com/dmitrijs2005/clientkeeper/internal/client/models"
	"github.com/dmitrijs2005/clientkeeper/internal/client/services"
	"github.com/dmitrijs2005/clientkeeper/internal/client/state"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

const onlineCheckInterval = 30 * time.Second

type App struct {
	config  *config.Config
	db      *sql.DB
	auth    services.AuthService
	records *services.RecordService
	state   *state.AppState
	reader  *bufio.Reader
	out     io.Writer

	mu   sync.Mutex
	Mode Mode
}

func NewApp(c *config.Config) (*App, error) {

	ctx := context.Background()

	db, err := client.InitDatabase(ctx, c.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("error initializing database: %w", err)
	}

	st := state.New()
	apiClient := client.NewHTTPClient(c.ServerURL, c.RequestTimeout)
	app := &App{
		config:  c,
		db:      db,
		auth:    services.NewAuthService(apiClient, db, st),
		records: services.NewRecordService(apiClient, st),
		state:   st,
		reader:  bufio.NewReader(os.Stdin),
		out:     os.Stdout,
	}
	apiClient.OnTokensRefreshed(app.saveTokens)
	return app, nil
}

// saveTokens persists a pair rotated by the client. A failure is printed,
// since the next start would otherwise resume with a revoked token.
func (a *App) saveTokens(p models.TokenPair) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := a.auth.SaveTokens(ctx, p); err != nil {
		fmt.Fprintf(a.out, "warning: could not save the session, sign in again on next start: %v\n", err)
	}
}

func (a *App) setMode(mode Mode) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.Mode != mode {
		a.Mode = mode
		fmt.Fprintf(a.out, "Switched to %s mode\n", mode)
	}
}

// Run resumes the stored session when possible and then serves the REPL
// until the user exits or ctx is cancelled.
func (a *App) Run(ctx context.Context) {
	defer a.db.Close()

	fmt.Fprintln(a.out, "Welcome to clientkeeper CLI (type 'help' for commands)")
	a.resume(ctx)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go a.StartOnlineStatusWatcher(ctx, onlineCheckInterval)

	runREPL(ctx, a, a.getStatus, a.reader, a.out)
}

func (a *App) resume(ctx context.Context) {
	u, err := a.auth.Resume(ctx)
	switch {
	case err == nil:
		a.setMode(ModeOnline)
		fmt.Fprintf(a.out, "Signed in as %s\n", u.DisplayName)
	case errors.Is(err, client.ErrNoSession):
		a.setMode(ModeOnline)
		fmt.Fprintln(a.out, "Not signed in, use 'login' or 'register'")
	case errors.Is(err, client.ErrUnavailable):
		a.setMode(ModeOffline)
	default:
		fmt.Fprintln(a.out, "error:", describeErr(err))
	}
}

func (a *App) isLoggedIn() bool {
	return a.state.SignedIn()
}

func (a *App) getStatus() string {
	s := ""
	if u, ok := a.state.User(); ok {
		s = u.DisplayName + " "
	}
	a.mu.Lock()
	mode := a.Mode
	a.mu.Unlock()
	if mode != "" {
		s = s + string(mode)
	}
	if s != "" {
		s = fmt.Sprintf("(%s)", s)
	}
	return s
}

func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
			err := a.auth.Ping(ctx)
			cancel()

			if err != nil {
				a.setMode(ModeOffline)
			} else {
				a.setMode(ModeOnline)
			}

		case <-ctx.Done():
			return
		}
	}
}
