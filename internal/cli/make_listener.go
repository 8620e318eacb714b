package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/drblury/ingressflow/internal/runtime/scaffold"
)

var makeListenerOpts scaffold.Options

var makeListenerCmd = &cobra.Command{
	Use:   "make-listener <event>",
	Short: "Generate a listener stub for an event type",
	Long: `Generates a listener for the given event type. The event may be
qualified with its import path, for example
github.com/acme/shop/events.OrderPlaced.`,
	Args: cobra.ExactArgs(1),
	RunE: runMakeListener,
}

func init() {
	makeListenerCmd.Flags().StringVar(&makeListenerOpts.Name, "name", "", "listener type name (default <Event>Listener)")
	makeListenerCmd.Flags().StringVar(&makeListenerOpts.Package, "package", "listeners", "package of the generated file")
	makeListenerCmd.Flags().StringVar(&makeListenerOpts.Dir, "dir", "", "output directory (default: the package name)")
	makeListenerCmd.Flags().BoolVar(&makeListenerOpts.Force, "force", false, "overwrite an existing listener")
	rootCmd.AddCommand(makeListenerCmd)
}

func runMakeListener(cmd *cobra.Command, args []string) error {
	opts := makeListenerOpts
	opts.Event = args[0]

	l, err := scaffold.Generate(opts)
	if errors.Is(err, scaffold.ErrListenerExists) {
		return fmt.Errorf("%w (use --force to overwrite)", err)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Listener %s created at %s\n", l.Name, l.Path)
	return nil
}
