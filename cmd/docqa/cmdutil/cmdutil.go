// Package cmdutil holds the flag and logger plumbing shared by docqa
// commands.
package cmdutil

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papercomputeco/docqa/pkg/config"
	"github.com/papercomputeco/docqa/pkg/logger"
)

// Persistent flag names registered on the root command.
const (
	FlagDebug     = "debug"
	FlagPretty    = "pretty"
	FlagJSON      = "json"
	FlagConfigDir = "config-dir"
)

// Viper initializes the layered configuration for cmd and binds the given
// registry flags on top of it.
func Viper(cmd *cobra.Command, flags []string) (*viper.Viper, error) {
	configDir, _ := cmd.Flags().GetString(FlagConfigDir)

	v, err := config.InitViper(configDir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	config.BindRegisteredFlags(v, cmd, config.Flags, flags)
	return v, nil
}

// Logger builds the command logger from the persistent flags. Services log
// to stdout; interactive commands pass os.Stderr to keep stdout for answers.
func Logger(cmd *cobra.Command, w io.Writer) *slog.Logger {
	debug, _ := cmd.Flags().GetBool(FlagDebug)
	pretty, _ := cmd.Flags().GetBool(FlagPretty)
	json, _ := cmd.Flags().GetBool(FlagJSON)

	if w == nil {
		w = os.Stdout
	}

	return logger.New(
		logger.WithDebug(debug),
		logger.WithPretty(pretty),
		logger.WithJSON(json),
		logger.WithWriter(w),
	)
}

// TeeLogger is Logger plus, when path is set, a JSON copy of every record
// appended to path. The returned func closes the file.
func TeeLogger(cmd *cobra.Command, w io.Writer, path string) (*slog.Logger, func() error, error) {
	console := Logger(cmd, w)
	if path == "" {
		return console, func() error { return nil }, nil
	}

	debug, _ := cmd.Flags().GetBool(FlagDebug)
	file, closeFn, err := logger.File(path, logger.WithDebug(debug))
	if err != nil {
		return nil, nil, err
	}
	return logger.Multi(console, file), closeFn, nil
}
