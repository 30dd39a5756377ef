package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/sharecast/internal/logging"
	"go.klb.dev/sharecast/internal/resolve"
)

const defaultPort = 8753

// envReplacer maps --log-level to SHARECAST_LOG_LEVEL.
var envReplacer = strings.NewReplacer("-", "_")

// bindViper wires a command's flags into a viper instance with the standard
// config file search order and SHARECAST_* env var prefix.
//
// Precedence (lowest → highest): defaults → config file → SHARECAST_* env vars → flags
func bindViper(cmd *cobra.Command, v *viper.Viper) error {
	configFlag, _ := cmd.Flags().GetString("config")
	if configFlag != "" {
		v.SetConfigFile(configFlag)
	} else {
		v.SetConfigName("sharecast")
		v.SetConfigType("toml")
		v.AddConfigPath("/etc/sharecast/")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "sharecast"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("config: %w", err)
		}
	}

	v.SetEnvPrefix("SHARECAST")
	v.SetEnvKeyReplacer(envReplacer)
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("binding flags: %w", err)
	}
	return nil
}

// addLoggingFlags adds the standard logging flags to a command.
func addLoggingFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("no-background", false, "run interactively: tinter logs + debug level")
	cmd.Flags().String("log-format", "auto", "log format: auto|text|json")
	cmd.Flags().String("log-level", "", "log level: debug|info|warn|error (default: info for service, debug for interactive)")
}

// addConfigFlag adds the --config flag to a command.
func addConfigFlag(cmd *cobra.Command) {
	cmd.Flags().String("config", "", "path to config file (overrides auto-discovery)")
}

// addClientFlags adds the connection flags shared by every CLI tool.
func addClientFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("server", "", "daemon address host[:port] (default: IPC socket, then local hosts)")
	f.String("token", "", "shared secret")
	f.Bool("insecure", false, "connect over plain TCP instead of TLS")
	f.String("source", defaultSource(), "name reported to the daemon")
	addConfigFlag(cmd)
}

// setupLogging reads logging flags from viper and configures slog.
func setupLogging(v *viper.Viper) {
	interactive := v.GetBool("no-background") || logging.IsTTY(os.Stderr)
	resolveLogging(interactive, v.GetString("log-format"), v.GetString("log-level"))
}

// watchConfig re-applies the settings that can change without a restart
// (content roots, log level) whenever the config file is rewritten.
func watchConfig(v *viper.Viper, r *resolve.FileResolver) {
	if v.ConfigFileUsed() == "" {
		return
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		slog.Info("config changed", "file", e.Name, "op", e.Op.String())
		roots, err := resolve.ParseRoots(v.GetStringSlice("content-root"))
		if err != nil {
			slog.Warn("content roots not reloaded", "err", err)
		} else {
			r.SetRoots(roots)
		}
		if lvl := v.GetString("log-level"); lvl != "" {
			logging.SetLevel(logging.ParseLevel(lvl))
		}
	})
	v.WatchConfig()
	slog.Debug("watching config file", "path", v.ConfigFileUsed())
}
