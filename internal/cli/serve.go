package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/drblury/ingressflow/internal/runtime"
	"github.com/drblury/ingressflow/internal/runtime/config"
	"github.com/drblury/ingressflow/internal/runtime/dispatch"
	"github.com/drblury/ingressflow/internal/runtime/hydrate"
	"github.com/drblury/ingressflow/internal/runtime/logging"
)

var serveAddress string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the ingress HTTP server",
	Long: `Starts the ingress server and subscribes every event listed under
topics in the configuration. Payloads are dispatched as raw mappings and
logged; embed the library to attach typed listeners.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddress, "address", "", "listen address (overrides http.address)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	conf := *cfg
	if serveAddress != "" {
		conf.HTTP.Address = serveAddress
	}

	logger := logging.NewSlogServiceLogger(logging.New(logging.ParseLevel(conf.Logging.Level), conf.Logging.Format))
	svc, err := newPassthroughService(&conf, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return svc.Start(ctx)
}

// newPassthroughService registers one raw-mapping event per configured
// topic and a listener that logs each dispatched payload.
func newPassthroughService(conf *config.Config, logger logging.ServiceLogger) (*runtime.Service, error) {
	svc, err := runtime.NewService(conf, logger, runtime.ServiceDependencies{})
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(conf.Topics))
	for name := range conf.Topics {
		names = append(names, name)
	}
	sort.Strings(names)
	if len(names) == 0 {
		logger.Warn("No topics configured, every ingress request will answer 404", nil)
	}

	for _, name := range names {
		t := hydrate.Custom(name, func(payload map[string]any) (any, error) {
			return payload, nil
		})
		if _, err := svc.RegisterEvent(t, conf.Topics[name]); err != nil {
			_ = svc.Close()
			return nil, fmt.Errorf("subscribe %s: %w", name, err)
		}
	}

	err = svc.Listeners().ListenAll("log", func(ctx context.Context, event any) error {
		md := dispatch.MetadataFromContext(ctx)
		logger.Info("Received event", logging.LogFields{
			"event_type":     md[dispatch.MetadataKeyEventType],
			"topic":          md[dispatch.MetadataKeyTopic],
			"message_id":     md[dispatch.MetadataKeyMessageID],
			"correlation_id": dispatch.CorrelationID(ctx),
			"payload":        event,
		})
		return nil
	})
	if err != nil {
		_ = svc.Close()
		return nil, err
	}
	return svc, nil
}
