package configcmder

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/docqa/pkg/cliui"
	"github.com/papercomputeco/docqa/pkg/config"
)

const getLongDesc string = `Get a configuration value.

Reads the value for the given key from the config.toml file stored in the
.docqa/ directory. Credentials are masked unless --show-secrets is set.

Examples:
  docqa config get vector_store.collection
  docqa config get llm.groq.api_key --show-secrets`

const getShortDesc string = "Get a configuration value"

func newGetCmd() *cobra.Command {
	var showSecrets bool

	cmd := &cobra.Command{
		Use:   "get <key>",
		Short: getShortDesc,
		Long:  getLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(cmd.OutOrStdout(), args[0], configDir(cmd), showSecrets)
		},
		ValidArgsFunction: completeKeys,
	}

	cmd.Flags().BoolVar(&showSecrets, "show-secrets", false, "Print credentials unmasked")

	return cmd
}

func runGet(w io.Writer, key, dir string, showSecrets bool) error {
	if err := validKey(key); err != nil {
		return err
	}

	cfger, err := config.NewConfiger(dir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	printTarget(w, cfger.GetTarget())

	value, err := cfger.GetConfigValue(key)
	if err != nil {
		return err
	}
	if !showSecrets {
		value = display(key, value)
	}

	if value == "" {
		fmt.Fprintf(w, "  %s  %s\n\n", cliui.KeyStyle.Render(key), cliui.DimStyle.Render("<not set>"))
	} else {
		fmt.Fprintf(w, "  %s  %s\n\n", cliui.KeyStyle.Render(key), cliui.ValueStyle.Render(value))
	}

	return nil
}
