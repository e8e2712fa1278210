package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"courier-go/internal/app"
	"courier-go/internal/config"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates an App. The caller must defer a.Close().
// operation identifies the CLI command being run (e.g. "send", "receive").
// When transform is true and pgp is configured without a stored passphrase,
// the passphrase is prompted for before the app is built.
func newApp(operation string, transform bool) (*app.App, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if cfg.LogDir == "" {
		cfg.LogDir = defaults["log_dir"]
	}

	if transform && cfg.Encryption.Type == "pgp" && cfg.Encryption.Passphrase == "" {
		pass, err := promptPassphrase()
		if err != nil {
			return nil, err
		}
		cfg.Encryption.Passphrase = pass
	}

	a, err := app.NewApp(cfg, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

// promptPassphrase reads the PGP key passphrase without echoing it.
func promptPassphrase() (string, error) {
	fmt.Fprint(os.Stderr, "PGP key passphrase: ")
	pass, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return string(pass), nil
}

// signalContext returns a context cancelled on SIGINT/SIGTERM, so an
// interrupted transfer stops between files rather than mid-batch.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

var rootCmd = &cobra.Command{
	Use:   "courier",
	Short: "Folder-queue file transfer over SFTP or S3, with optional PGP",
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		queueRoot, _ := cmd.Flags().GetString("queue-root")
		if queueRoot == "" {
			queueRoot = filepath.Join(defaults["base_dir"], "queue")
		}

		cfg := config.NewConfig(queueRoot, defaults["base_dir"])
		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Queue Root: %s\n", queueRoot)
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Queue Root: %s\n", cfg.QueueRoot)
		fmt.Printf("Log Dir:    %s\n", cfg.LogDir)
		fmt.Printf("Remote:     %s\n", cfg.Remote.Type)
		fmt.Printf("Encryption: %s\n", cfg.Encryption.Type)
		if cfg.Alert != nil {
			fmt.Printf("Alerts:     %s (%d recipients)\n", cfg.Alert.Host, len(cfg.Alert.Recipients))
		}
		return nil
	},
}

// setup command
var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Create the queue, data, and log directories",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("setup", false)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Setup(); err != nil {
			return fmt.Errorf("setup failed: %w", err)
		}
		fmt.Println("Queue directories ready.")
		return nil
	},
}

// send command
var sendCmd = &cobra.Command{
	Use:   "send REMOTE_DIR",
	Short: "Upload the Outbox to a remote directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		encrypt, _ := cmd.Flags().GetBool("encrypt")

		a, err := newApp("send", encrypt)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := signalContext()
		defer stop()

		report, err := a.Send(ctx, args[0], encrypt)
		if report != nil {
			fmt.Printf("Sent %d file(s), %d failed\n", len(report.Sent), len(report.Failed))
			for _, f := range report.Failed {
				fmt.Printf("  failed: %s (%s)\n", f.File, f.Op)
			}
		}
		if err != nil {
			return fmt.Errorf("send incomplete: %w", err)
		}
		return nil
	},
}

// receive command
var receiveCmd = &cobra.Command{
	Use:   "receive REMOTE_DIR",
	Short: "Download a remote directory into the Inbox",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		decrypt, _ := cmd.Flags().GetBool("decrypt")

		a, err := newApp("receive", decrypt)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := signalContext()
		defer stop()

		delivered, err := a.Receive(ctx, args[0], decrypt)
		fmt.Printf("Received %d file(s)\n", len(delivered))
		for _, p := range delivered {
			fmt.Printf("  %s\n", filepath.Base(p))
		}
		if err != nil {
			return fmt.Errorf("receive incomplete: %w", err)
		}
		return nil
	},
}

// test command
var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Test the remote connection (and SMTP login, if configured)",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("test", false)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := signalContext()
		defer stop()

		res := a.TestConnection(ctx)
		if !res.OK {
			return fmt.Errorf("connection test failed: %w", res.Err)
		}
		fmt.Println("Connection OK.")
		return nil
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View transfer history",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp("history", false)
		if err != nil {
			return err
		}
		defer a.Close()

		recs, err := a.History(limit)
		if err != nil {
			return err
		}
		if len(recs) == 0 {
			fmt.Println("No transfers recorded.")
			return nil
		}

		for _, r := range recs {
			detail := r.RemotePath
			if r.Error != "" {
				detail = r.Error
			}
			fmt.Printf("%s  %-7s  %-8s  %-30s  %s\n",
				r.CreatedAt.Format("2006-01-02 15:04:05"),
				r.Direction,
				r.Status,
				r.FileName,
				detail,
			)
		}
		return nil
	},
}

// keys command
var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage PGP keyrings",
}

var keysImportCmd = &cobra.Command{
	Use:   "import FILE...",
	Short: "Import armored keys into the keyrings",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("keys-import", false)
		if err != nil {
			return err
		}
		defer a.Close()

		fps, err := a.ImportKeys(args)
		if err != nil {
			return fmt.Errorf("importing keys: %w", err)
		}
		for _, fp := range fps {
			fmt.Printf("Imported %s\n", fp)
		}
		return nil
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)
	configInitCmd.Flags().String("queue-root", "", "Queue root directory (default: <base_dir>/queue)")

	keysCmd.AddCommand(keysImportCmd)

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(setupCmd)
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().BoolP("encrypt", "e", false, "Encrypt files before upload")
	rootCmd.AddCommand(receiveCmd)
	receiveCmd.Flags().BoolP("decrypt", "d", false, "Decrypt files after download")
	rootCmd.AddCommand(testCmd)
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of transfers to show")
	rootCmd.AddCommand(keysCmd)
}
