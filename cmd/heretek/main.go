package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/zboralski/heretek/internal/applog"
	"github.com/zboralski/heretek/internal/config"
	"github.com/zboralski/heretek/internal/engine"
	"github.com/zboralski/heretek/internal/snapshot"
	"github.com/zboralski/heretek/internal/transport"
	"github.com/zboralski/heretek/internal/ui/tui"
)

var (
	remote       string
	thirtyTwoBit bool
	logFile      string
	configPath   string
	debug        bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "heretek",
		Short: "Interactive terminal frontend for a GDB/MI debugger session",
		Long: `heretek drives gdb's machine interface (MI) and renders the target's
registers, disassembly, and stack as a live terminal dashboard.

By default it spawns a local "gdb --interpreter=mi2 --quiet -nx". Pass
--remote to attach to a gdbserver-style MI endpoint already speaking the
protocol over TCP instead.`,
		RunE: run,
	}

	rootCmd.Flags().StringVar(&remote, "remote", "", "connect to host:port instead of spawning a local gdb")
	rootCmd.Flags().BoolVar(&thirtyTwoBit, "32", false, "use 32-bit pointer width")
	rootCmd.Flags().StringVar(&logFile, "log-file", "", "write structured logs to this file")
	rootCmd.Flags().StringVar(&configPath, "config", "", "path to config.yaml (default ~/.config/heretek/config.yaml)")
	rootCmd.Flags().BoolVar(&debug, "debug", false, "verbose logging")
	rootCmd.MarkFlagsMutuallyExclusive("remote", "32")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyFlags(cfg)

	log, err := newLogger(cfg)
	if err != nil {
		return err
	}

	conn, err := connect(cfg, log)
	if err != nil {
		return err
	}
	defer conn.Close()

	snap := snapshot.New()
	eng := engine.New(snap, conn, cfg.PointerWidthBits(), log)
	prog := tui.NewProgram(eng, conn)

	var g errgroup.Group
	g.Go(func() error {
		err := transport.Pump(conn, eng)
		prog.Quit()
		if err != nil {
			log.Warn("transport pump stopped", zap.Error(err))
		}
		return err
	})
	g.Go(func() error {
		err := prog.Run()
		conn.Close()
		return err
	})

	return g.Wait()
}

func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		defaultPath, err := config.DefaultPath()
		if err != nil {
			return &config.Config{}, nil
		}
		path = defaultPath
	}
	return config.Load(path)
}

func applyFlags(cfg *config.Config) {
	if remote != "" {
		cfg.Remote = remote
	}
	if thirtyTwoBit {
		cfg.ThirtyTwoBit = true
	}
	if logFile != "" {
		cfg.LogFile = logFile
	}
	if debug {
		cfg.Debug = true
	}
}

// newLogger writes to cfg.LogFile when set, otherwise stays silent — the
// TUI owns stdout/stderr via bubbletea's alt-screen and nothing else may
// write there.
func newLogger(cfg *config.Config) (*applog.Logger, error) {
	if cfg.LogFile == "" {
		return applog.NewNop(), nil
	}
	log, err := applog.NewToFile(cfg.Debug, cfg.LogFile)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return log, nil
}

func connect(cfg *config.Config, log *applog.Logger) (*transport.Conn, error) {
	if cfg.Remote != "" {
		return transport.DialRemote(cfg.Remote, log)
	}
	return transport.SpawnLocal(log)
}
