// Package configcmder provides the config command for managing persistent
// docqa configuration stored in the .docqa/ directory.
package configcmder

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/docqa/cmd/docqa/cmdutil"
	"github.com/papercomputeco/docqa/pkg/cliui"
	"github.com/papercomputeco/docqa/pkg/config"
)

const configLongDesc string = `Manage persistent docqa configuration.

Configuration is stored as config.toml in the .docqa/ directory and provides
default values for command flags. Environment variables (DOCQA_<SECTION>_<KEY>,
plus GROQ_API_KEY, QDRANT_URL and friends) override the file, and CLI flags
override both.

Keys use dotted notation matching the TOML section structure, for example:
  vector_store.provider, vector_store.target, vector_store.collection,
  embedding.provider, embedding.model, embedding.dimensions,
  chunking.size, chunking.overlap, retrieval.k,
  llm.order, llm.groq.api_key, llm.ollama.base_url,
  events.provider, events.brokers

Use subcommands to get, set, or list configuration values:
  docqa config set <key> <value>    Set a configuration value
  docqa config get <key>            Get a configuration value
  docqa config list                 List all configuration values

Examples:
  docqa config set vector_store.provider sqlite
  docqa config set llm.order groq,ollama
  docqa config get retrieval.k
  docqa config list`

const configShortDesc string = "Manage persistent docqa configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}

func configDir(cmd *cobra.Command) string {
	dir, _ := cmd.Flags().GetString(cmdutil.FlagConfigDir)
	return dir
}

func validKey(key string) error {
	if !config.IsValidConfigKey(key) {
		return fmt.Errorf("unknown config key: %q\n\nValid keys: %s",
			key, strings.Join(config.ValidConfigKeys(), ", "))
	}
	return nil
}

func completeKeys(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return config.ValidConfigKeys(), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

func printTarget(w io.Writer, target string) {
	if target != "" {
		fmt.Fprintf(w, "\n  %s %s\n\n",
			cliui.KeyStyle.Render("Config file:"),
			cliui.DimStyle.Render(target),
		)
		return
	}
	fmt.Fprintf(w, "\n  %s\n\n", cliui.DimStyle.Render("No config file found. Using defaults."))
}

// Mask hides all but the last four characters of a secret value.
func Mask(value string) string {
	if value == "" {
		return ""
	}
	r := []rune(value)
	if len(r) <= 4 {
		return strings.Repeat("*", len(r))
	}
	return strings.Repeat("*", len(r)-4) + string(r[len(r)-4:])
}

func display(key, value string) string {
	if config.IsSecretKey(key) {
		return Mask(value)
	}
	return value
}
