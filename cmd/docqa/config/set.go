package configcmder

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/docqa/pkg/cliui"
	"github.com/papercomputeco/docqa/pkg/config"
)

const setLongDesc string = `Set a configuration value.

Sets the given key to the provided value in the config.toml file stored in
the .docqa/ directory. Numeric and duration keys are validated.

Examples:
  docqa config set vector_store.provider postgres
  docqa config set vector_store.target postgres://localhost:5432/docqa
  docqa config set embedding.dimensions 768
  docqa config set llm.timeout 60s`

const setShortDesc string = "Set a configuration value"

func newSetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: setShortDesc,
		Long:  setLongDesc,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSet(cmd.OutOrStdout(), args[0], args[1], configDir(cmd))
		},
		ValidArgsFunction: completeKeys,
	}

	return cmd
}

func runSet(w io.Writer, key, value, dir string) error {
	if err := validKey(key); err != nil {
		return err
	}

	cfger, err := config.NewConfiger(dir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	printTarget(w, cfger.GetTarget())

	if err := cfger.SetConfigValue(key, value); err != nil {
		return err
	}

	fmt.Fprintf(w, "  %s Set %s = %s\n\n",
		cliui.SuccessMark,
		cliui.KeyStyle.Render(key),
		cliui.ValueStyle.Render(display(key, value)),
	)
	return nil
}
