package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hackgods/barbershop-scheduling/internal/booking"
	"github.com/hackgods/barbershop-scheduling/internal/config"
	"github.com/hackgods/barbershop-scheduling/internal/db"
	redisclient "github.com/hackgods/barbershop-scheduling/internal/redis"
)

var version = "dev"

// app is the booking service plus the resources it holds open.
type app struct {
	svc     *booking.Service
	closers []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

type globalFlags struct {
	noLock  bool
	verbose bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var flags globalFlags

	root := &cobra.Command{
		Use:           "barberctl",
		Short:         "Operate the barbershop booking core from the shell",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVar(&flags.noLock, "no-lock", false, "skip Redis booking locks")
	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "log debug output to stderr")

	root.AddCommand(newBarbersCmd(&flags))
	root.AddCommand(newServicesCmd(&flags))
	root.AddCommand(newBookCmd(&flags))
	root.AddCommand(newViewCmd(&flags))
	root.AddCommand(newCancelCmd(&flags))
	root.AddCommand(newNextSlotCmd(&flags))
	root.AddCommand(newSuggestCmd(&flags))

	return root
}

func openApp(ctx context.Context, flags *globalFlags) (*app, error) {
	level := slog.LevelWarn
	if flags.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	policy, err := cfg.Scheduling.Policy()
	if err != nil {
		return nil, err
	}

	a := &app{}

	pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN, db.PoolOptions{MaxConns: 4})
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, pool.Close)

	if err := db.Migrate(ctx, pool, logger); err != nil {
		a.Close()
		return nil, err
	}

	locker := redisclient.NewNopLocker()
	if !flags.noLock {
		rdb, err := redisclient.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("%w (use --no-lock to book without Redis)", err)
		}
		a.closers = append(a.closers, func() { _ = rdb.Close() })
		locker = redisclient.NewRedisLocker(rdb, cfg.LockTTL)
	}

	a.svc = booking.NewService(booking.NewPgRepository(pool), locker, policy, logger)
	return a, nil
}

// withApp opens the service for the duration of one command.
func withApp(flags *globalFlags, fn func(cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), flags)
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(cmd, a, args)
	}
}
