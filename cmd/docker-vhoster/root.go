package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/auto-dns/docker-vhoster/internal/app"
	"github.com/auto-dns/docker-vhoster/internal/config"
	"github.com/auto-dns/docker-vhoster/internal/logger"
)

// signalExitError ends the process with the conventional 128+signo code.
type signalExitError struct {
	sig syscall.Signal
}

func (e *signalExitError) Error() string {
	return fmt.Sprintf("terminated by %v", e.sig)
}

func (e *signalExitError) ExitCode() int {
	return 128 + int(e.sig)
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	var configFile string

	cmd := &cobra.Command{
		Use:   "docker-vhoster",
		Short: "Keep /etc/hosts in sync with running Docker containers",
		Long: "Watches Docker container start/stop events and maps the hostnames declared in\n" +
			"VIRTUAL_HOST/ETC_HOST to a fixed IP inside a managed block of the hosts file.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return config.InitConfig(v, configFile)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			logInstance := logger.SetupLogger(&cfg.Logging)

			if err := app.Preflight(&cfg.App); err != nil {
				return err
			}

			application, err := app.New(cfg, logInstance)
			if err != nil {
				return fmt.Errorf("failed to create app: %w", err)
			}
			defer application.Close()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(sigCh)

			return run(cmd.Context(), application, sigCh, logInstance)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "config file (default is config.yaml)")
	flags.StringP("host-file-location", "f", "/etc/hosts", "hosts file to manage")
	flags.StringP("env-var-name", "e", "VIRTUAL_HOST,ETC_HOST", "comma-separated container environment variables holding hostnames")
	flags.StringP("vhost-ip-addr", "i", "127.0.0.1", "IP address every virtual hostname maps to")
	flags.String("docker-socket", "/var/run/docker.sock", "Docker socket checked at startup")
	flags.Int("connect-retry-interval", 60, "seconds between connection attempts to Docker")
	flags.Bool("atomic-write", false, "replace the hosts file through rename instead of rewriting it in place")
	flags.Bool("watch-host-file", true, "repair the managed block when the hosts file is edited")
	flags.String("log-level", "INFO", "set log level (e.g. INFO, DEBUG, WARN)")

	for key, flag := range map[string]string{
		"app.host_file_location":     "host-file-location",
		"app.env_var_name":           "env-var-name",
		"app.vhost_ip_addr":          "vhost-ip-addr",
		"app.docker_socket":          "docker-socket",
		"app.connect_retry_interval": "connect-retry-interval",
		"app.atomic_write":           "atomic-write",
		"app.watch_host_file":        "watch-host-file",
		"log.log_level":              "log-level",
	} {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			panic(err)
		}
	}

	return cmd
}

// run executes a until it returns or a signal arrives. A signal cancels the
// context and is reported as a signalExitError.
func run(ctx context.Context, a application, sigCh <-chan os.Signal, log zerolog.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	received := make(chan syscall.Signal, 1)
	go func() {
		select {
		case sig := <-sigCh:
			log.Info().Msgf("Received signal: %v", sig)
			if s, ok := sig.(syscall.Signal); ok {
				received <- s
			}
			cancel()
		case <-ctx.Done():
		}
	}()

	err := a.Run(ctx)
	select {
	case sig := <-received:
		return &signalExitError{sig: sig}
	default:
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

// Execute runs the root command.
func Execute() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		var sigErr *signalExitError
		if errors.As(err, &sigErr) {
			os.Exit(sigErr.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "Execution error: %v\n", err)
		os.Exit(1)
	}
}
