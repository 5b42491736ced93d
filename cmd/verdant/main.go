package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hrygo/verdant/internal/logging"
	"github.com/hrygo/verdant/internal/profile"
	"github.com/hrygo/verdant/internal/version"
	"github.com/hrygo/verdant/server"
	"github.com/hrygo/verdant/store"
	"github.com/hrygo/verdant/store/db"
)

var rootCmd = &cobra.Command{
	Use:   "verdant",
	Short: "A plant companion that talks back.",
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		// Systemd units provide their environment through EnvironmentFile.
		if !isRunningAsSystemdService() {
			_ = godotenv.Load()
		}
		_, err := logging.Setup(os.Stderr, viper.GetString("mode"), viper.GetString("log-level"))
		return err
	},
	RunE: func(_ *cobra.Command, _ []string) error {
		instanceProfile, err := loadProfile()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		storeInstance, err := openStore(ctx, instanceProfile)
		if err != nil {
			return err
		}

		s, err := server.NewServer(ctx, instanceProfile, storeInstance)
		if err != nil {
			_ = storeInstance.Close()
			return err
		}

		c := make(chan os.Signal, 1)
		signal.Notify(c, terminationSignals...)

		if err := s.Start(ctx); err != nil {
			_ = storeInstance.Close()
			return err
		}
		printGreetings(instanceProfile)

		<-c
		s.Shutdown(ctx)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Println(version.StringFull())
	},
}

func init() {
	viper.SetDefault("mode", "dev")
	viper.SetDefault("driver", "sqlite")
	viper.SetDefault("port", 28090)
	viper.SetDefault("log-level", "info")

	flags := rootCmd.PersistentFlags()
	flags.String("mode", "dev", `mode of server, can be "prod" or "dev" or "demo"`)
	flags.String("addr", "", "address of the metrics server")
	flags.Int("port", 28090, "port of the metrics server")
	flags.String("data", "", "data directory")
	flags.String("driver", "sqlite", "database driver (sqlite, postgres)")
	flags.String("dsn", "", "database source name(aka. DSN)")
	flags.String("memory", "", "long-term memory backend (none, chromem, postgres)")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")

	for _, key := range []string{"mode", "addr", "port", "data", "driver", "dsn", "memory", "log-level"} {
		if err := viper.BindPFlag(key, flags.Lookup(key)); err != nil {
			panic(err)
		}
	}

	viper.SetEnvPrefix("verdant")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	rootCmd.AddCommand(versionCmd, newChatCmd(), newPersonaCmd())
}

// loadProfile builds the profile from flags, then environment, then validates it.
func loadProfile() (*profile.Profile, error) {
	p := &profile.Profile{
		Mode:    viper.GetString("mode"),
		Addr:    viper.GetString("addr"),
		Port:    viper.GetInt("port"),
		Data:    viper.GetString("data"),
		Driver:  viper.GetString("driver"),
		DSN:     viper.GetString("dsn"),
		Version: version.GetCurrentVersion(viper.GetString("mode")),
	}
	p.FromEnv()
	if backend := viper.GetString("memory"); backend != "" {
		p.MemoryBackend = backend
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func openStore(ctx context.Context, p *profile.Profile) (*store.Store, error) {
	dbDriver, err := db.NewDBDriver(p)
	if err != nil {
		printDatabaseError(err, p)
		return nil, err
	}
	storeInstance := store.New(dbDriver, p)
	if err := storeInstance.Migrate(ctx); err != nil {
		_ = storeInstance.Close()
		slog.Error("failed to migrate", "error", err)
		return nil, err
	}
	return storeInstance, nil
}

func printGreetings(p *profile.Profile) {
	fmt.Printf("Verdant %s started successfully!\n", p.Version)
	if p.IsDev() {
		fmt.Fprintf(os.Stderr, "Development mode is enabled\n")
		fmt.Fprintf(os.Stderr, "Database: %s\n", p.DSN)
	}
	fmt.Printf("Data directory: %s\n", p.Data)
	fmt.Printf("Database driver: %s\n", p.Driver)
	fmt.Printf("LLM provider: %s (%s)\n", p.LLMProvider, p.LLMModel)
	fmt.Printf("Long-term memory: %s\n", p.MemoryBackend)
	if p.Addr == "" {
		fmt.Printf("Metrics at: http://localhost:%d/metrics\n", p.Port)
	} else {
		fmt.Printf("Metrics at: http://%s:%d/metrics\n", p.Addr, p.Port)
	}
}

// isRunningAsSystemdService detects if the process is running under systemd.
func isRunningAsSystemdService() bool {
	return os.Getenv("INVOCATION_ID") != "" || os.Getenv("WATCHDOG_USEC") != ""
}

func printDatabaseError(err error, p *profile.Profile) {
	fmt.Fprintln(os.Stderr, "\nDatabase connection failed")

	errMsg := err.Error()
	switch {
	case strings.Contains(errMsg, "connection refused") || strings.Contains(errMsg, "no such host"):
		fmt.Fprintln(os.Stderr, "  PostgreSQL is not reachable.")
		fmt.Fprintln(os.Stderr, "  Or use SQLite: --driver=sqlite --data=./data")
	case strings.Contains(errMsg, "sslmode"):
		fmt.Fprintln(os.Stderr, "  Add ?sslmode=disable to your DSN.")
	case strings.Contains(errMsg, "password authentication failed"):
		fmt.Fprintln(os.Stderr, "  Check the credentials in VERDANT_DSN.")
	default:
		fmt.Fprintln(os.Stderr, "  Error:", errMsg)
	}
	fmt.Fprintf(os.Stderr, "  Driver: %s\n", p.Driver)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
