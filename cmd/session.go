package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/bnema/online-session-kit/internal/adapters/platform/sandbox"
	"github.com/bnema/online-session-kit/internal/adapters/render/roster"
	"github.com/bnema/online-session-kit/internal/application"
	"github.com/bnema/online-session-kit/internal/domain"
	"github.com/bnema/online-session-kit/internal/event"
	"github.com/bnema/online-session-kit/internal/logging"
	"github.com/bnema/online-session-kit/internal/ports"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var errNotSignedIn = errors.New("not signed in (run `osk login`)")

// session is one command's view of the sandbox: the world is loaded on open
// and written back on close, whatever the command's outcome.
type session struct {
	app      *app
	cmd      *cobra.Command
	logger   zerolog.Logger
	platform *sandbox.Platform
	system   *application.System
}

func (a *app) openSession(cmd *cobra.Command) (*session, error) {
	ctx := cmd.Context()

	logger, err := logging.New(a.cfg.Log.Level, a.cfg.Log.Format, cmd.ErrOrStderr())
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	world, err := a.worlds.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load sandbox world: %w", err)
	}

	platform := sandbox.NewFromWorld(sandbox.Config{
		SandboxID:     a.cfg.Platform.SandboxID,
		DeploymentID:  a.cfg.Platform.DeploymentID,
		PortalAccount: domain.AccountID(a.cfg.Sandbox.PortalAccount),
		Logger:        logging.Component(logger, "sandbox"),
	}, world)

	bus := event.NewBus(logger)
	bus.SubscribeAll(func(ev event.Event) {
		logger.Debug().Str("event", ev.EventType()).Msg("event published")
	})

	system := application.NewSystem(application.Options{
		Config: application.Config{
			Lobby: application.LobbyConfig{
				Bucket:           a.cfg.Lobby.Bucket,
				MaxMembers:       a.cfg.Lobby.MaxMembers,
				SearchMaxResults: a.cfg.Lobby.SearchMaxResults,
			},
			MappingInterval: a.cfg.Friends.MappingInterval,
			Scopes:          domain.DefaultAuthScopes,
		},
		Platform:    platform,
		SecretStore: a.secrets,
		Clock:       ports.SystemClock{},
		Logger:      logger,
		Bus:         bus,
	})
	if err := system.Initialize(ctx); err != nil {
		return nil, err
	}

	return &session{app: a, cmd: cmd, logger: logger, platform: platform, system: system}, nil
}

// withSession runs fn against a fresh session and always persists the world.
func (a *app) withSession(cmd *cobra.Command, fn func(s *session) error) error {
	s, err := a.openSession(cmd)
	if err != nil {
		return err
	}

	runErr := fn(s)
	return errors.Join(runErr, s.close())
}

func (s *session) ctx() context.Context {
	if ctx := s.cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func (s *session) pump(label string, settled func() bool) error {
	return runTickLoop(s.ctx(), s.cmd.ErrOrStderr(), label, tickLoop{
		tick:     s.system.Tick,
		settled:  settled,
		interval: s.app.cfg.Tick.Interval,
		timeout:  s.app.cfg.Wait.Timeout,
	})
}

// wait pumps the system until done has finished and the platform has no
// queued work left, then returns done's outcome.
func (s *session) wait(label string, done *application.Completion) error {
	if err := s.pump(label, func() bool { return done.Done() && s.platform.Idle() }); err != nil {
		return err
	}
	return done.Err()
}

// run starts an operation and waits for it. A synchronous rejection is
// returned as is.
func (s *session) run(label string, start func(*application.Completion) error) error {
	done := &application.Completion{}
	if err := start(done); err != nil {
		return err
	}
	return s.wait(label, done)
}

// signIn restores the signed-in session from the stored token or the device's
// persistent session, then reattaches to the lobby the session is a member of.
func (s *session) signIn() error {
	err := s.run("Signing in...", func(done *application.Completion) error {
		return s.system.Login(s.ctx(), done)
	})
	if err != nil {
		return fmt.Errorf("%w: %w", errNotSignedIn, err)
	}

	sessionID := s.system.Identity().SessionID
	if lobbyID, ok := s.platform.MemberLobby(sessionID); ok {
		err := s.run("Rejoining lobby...", func(done *application.Completion) error {
			return s.system.JoinLobby(lobbyID, done)
		})
		if err != nil {
			s.logger.Warn().Err(err).Str("lobby_id", string(lobbyID)).Msg("rejoin lobby")
		}
	}
	return nil
}

func (s *session) close() error {
	settleErr := s.pump("Syncing...", s.platform.Idle)

	saveErr := s.app.worlds.Save(s.ctx(), s.platform.Snapshot())
	if saveErr != nil {
		saveErr = fmt.Errorf("save sandbox world: %w", saveErr)
	}
	s.system.Shutdown()
	return errors.Join(settleErr, saveErr)
}

func (s *session) render(view roster.View) error {
	rendered, err := s.app.renderer(view)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	_, err = fmt.Fprintln(s.cmd.OutOrStdout(), rendered)
	return err
}
