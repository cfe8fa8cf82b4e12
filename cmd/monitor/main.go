package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"lookaway/internal/config"
	"lookaway/internal/database"
	"lookaway/internal/gaze"
	"lookaway/internal/logging"
	"lookaway/internal/models"
	"lookaway/internal/monitor"
	"lookaway/internal/repository"
	"lookaway/internal/service"
)

type options struct {
	server   string
	username string
	password string
	local    bool

	replay string
	camera gaze.CameraConfig

	threshold float64
	cooldown  time.Duration
	quiet     bool
	logLevel  string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := options{camera: gaze.DefaultCameraConfig()}

	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Track head orientation and report look-aways",
		Long: `monitor reads head orientation from a webcam (or a replay file), turns
left/right head turns into look-away events and records them against a new
study session. Press Ctrl-C to end the session.

By default events are sent to a lookaway server. With --local the database
configured through DB_TYPE, DB_PATH and DATABASE_URL is written directly.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.password == "" {
				opts.password = os.Getenv("LOOKAWAY_PASSWORD")
			}
			logging.Init(opts.logLevel)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.server, "server", "http://localhost:8080", "lookaway server URL")
	f.StringVarP(&opts.username, "username", "u", "", "account to record the session for")
	f.StringVar(&opts.password, "password", "", "account password (default $LOOKAWAY_PASSWORD)")
	f.BoolVar(&opts.local, "local", false, "write to the configured database instead of a server")
	f.StringVar(&opts.replay, "replay", "", "read yaw values from a file instead of the camera")
	f.IntVar(&opts.camera.Device, "camera", opts.camera.Device, "camera device index")
	f.StringVar(&opts.camera.ModelPath, "model", opts.camera.ModelPath, "YuNet face detection model")
	f.Float64Var(&opts.threshold, "threshold", gaze.DefaultThreshold, "yaw beyond which the head counts as turned")
	f.DurationVar(&opts.cooldown, "cooldown", gaze.DefaultCooldown, "minimum time between look-away events")
	f.BoolVarP(&opts.quiet, "quiet", "q", false, "do not draw the status line")
	f.StringVar(&opts.logLevel, "log-level", "warn", "log level: debug, info, warn, error")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

// session is a started monitoring session and how to end it.
type session struct {
	sink monitor.Sink
	end  func(context.Context) (*models.Progress, error)
}

func run(ctx context.Context, cmd *cobra.Command, opts options) error {
	source, err := openSource(opts)
	if err != nil {
		return err
	}
	defer source.Close()

	var s *session
	if opts.local {
		var closeDB func()
		s, closeDB, err = startLocal(ctx, opts)
		if closeDB != nil {
			defer closeDB()
		}
	} else {
		s, err = startRemote(ctx, opts)
	}
	if err != nil {
		return err
	}

	var hooks []monitor.Option
	status := monitor.NewStatusLine(cmd.OutOrStdout())
	if !opts.quiet {
		hooks = append(hooks, monitor.WithFrameHook(status.Update))
	}

	cfg := gaze.Config{Threshold: opts.threshold, Cooldown: opts.cooldown}
	state, runErr := monitor.New(cfg, source, s.sink, hooks...).Run(ctx)
	status.Done()

	// The session is ended even after a delivery failure so the elapsed
	// time is not lost.
	endCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	p, endErr := s.end(endCtx)
	if err := errors.Join(runErr, endErr); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(),
		"session %d ended: %.0fs, %d look-aways (left %d, right %d), %.0f points\n",
		p.ID, p.SessionTime, p.LookAwayCount, state.LeftCount, state.RightCount,
		service.Points(p.SessionTime, p.LookAwayCount))
	return nil
}

func openSource(opts options) (gaze.Source, error) {
	if opts.replay == "" {
		camera, err := gaze.NewCameraSource(opts.camera)
		if err != nil {
			return nil, err
		}
		return camera, nil
	}
	f, err := os.Open(opts.replay)
	if err != nil {
		return nil, fmt.Errorf("failed to open replay: %w", err)
	}
	return gaze.NewReplaySource(f, time.Now()), nil
}

func startRemote(ctx context.Context, opts options) (*session, error) {
	client, err := monitor.NewClient(opts.server)
	if err != nil {
		return nil, err
	}
	if err := client.Login(ctx, opts.username, opts.password); err != nil {
		return nil, fmt.Errorf("failed to log in: %w", err)
	}

	started, err := client.StartSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to start session: %w", err)
	}
	logging.L().Info("Session started", slog.Int64("progressID", started.ProgressID))

	return &session{
		sink: client.Sink(started.Token),
		end: func(ctx context.Context) (*models.Progress, error) {
			p, err := client.EndSession(ctx, started.Token)
			if err != nil {
				return nil, fmt.Errorf("failed to end session: %w", err)
			}
			if err := client.Logout(ctx); err != nil {
				logging.L().Warn("Logout failed", slog.String("error", err.Error()))
			}
			return p, nil
		},
	}, nil
}

func startLocal(ctx context.Context, opts options) (*session, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		return nil, nil, err
	}
	closeDB := func() { db.Close() }
	if err := db.RunMigrations(ctx); err != nil {
		return nil, closeDB, err
	}

	user, err := repository.NewUserRepository(db).GetUserByUsername(ctx, opts.username)
	if err != nil {
		return nil, closeDB, err
	}
	if user == nil {
		return nil, closeDB, fmt.Errorf("unknown user %q", opts.username)
	}

	sessions := service.NewSessionService(repository.NewProgressRepository(db), service.RoutingStrict)
	handle, err := sessions.StartSession(ctx, user)
	if err != nil {
		return nil, closeDB, err
	}

	return &session{
		sink: monitor.NewServiceSink(sessions, handle),
		end: func(ctx context.Context) (*models.Progress, error) {
			return sessions.EndSession(ctx, &handle)
		},
	}, closeDB, nil
}
