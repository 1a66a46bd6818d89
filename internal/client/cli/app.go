package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"packtrack/internal/client/config"
	"packtrack/internal/client/gateway"
	"packtrack/internal/client/services"
	"packtrack/internal/client/session"
	"packtrack/internal/logging"
)

// App wires the scanning console: session, gateway client, scan service and
// the interactive loop.
type App struct {
	config *config.Config
	log    logging.Logger
	client gateway.Client
	sess   *session.Session
	svc    services.ScanService
	reader *bufio.Reader

	// explicitLogout suppresses the session-expired notice when the operator
	// logged out on purpose.
	explicitLogout bool
}

func NewApp(cfg *config.Config) *App {
	a := &App{
		config: cfg,
		log:    logging.NewDefault(),
		reader: bufio.NewReader(os.Stdin),
	}

	a.sess = session.New(func() {
		if !a.explicitLogout {
			fmt.Println("Session expired, please login again")
		}
	})
	a.client = gateway.NewHTTPClient(cfg.GatewayBaseURL, a.sess.Invalidate)

	cue := NewTerminalCue(os.Stdout, cfg.SoundAlerts)
	a.svc = services.NewScanService(a.client, a.sess, a.log, cue, cfg.DebounceWindow)
	a.svc.SetNotifier(func(msg string) {
		fmt.Println("! " + msg)
	})
	return a
}

func (a *App) Run(ctx context.Context) {
	defer a.svc.Close()
	defer a.svc.Wait()
	a.Root(ctx)
}

func (a *App) isLoggedIn() bool {
	return a.sess.IsAuthenticated()
}

// readCtx derives the cancellable, time-limited context used for fetches.
// Scan writes deliberately do not go through it.
func (a *App) readCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, a.config.RequestTimeout)
}

// Login resumes a session from PACKTRACK_TOKEN if set, otherwise prompts for
// credentials and authenticates against the gateway.
func (a *App) Login(ctx context.Context) {
	if tok := os.Getenv("PACKTRACK_TOKEN"); tok != "" {
		if err := a.sess.Resume(tok); err == nil {
			a.client.SetToken(tok)
			fmt.Printf("Resumed session for %s\n", a.sess.User().Username)
			return
		}
		fmt.Println("Ignoring stale PACKTRACK_TOKEN")
	}

	username, err := GetSimpleText(a.reader, "Enter username", os.Stdout)
	if err != nil {
		a.log.Error(ctx, "reading username", "error", err)
		return
	}
	password, err := GetPassword(os.Stdout)
	if err != nil {
		a.log.Error(ctx, "reading password", "error", err)
		return
	}

	rctx, cancel := a.readCtx(ctx)
	defer cancel()

	token, user, err := a.client.Login(rctx, username, string(password))
	if err != nil {
		fmt.Printf("Login failed: %s\n", err.Error())
		return
	}

	a.sess.Start(token, user)
	a.client.SetToken(token)
	fmt.Printf("Logged in as %s (%s)\n", user.Name, user.Role)
}

func (a *App) Logout(ctx context.Context) {
	a.explicitLogout = true
	a.sess.Invalidate()
	a.explicitLogout = false
	a.client.SetToken("")
	fmt.Println("Logged out")
}
