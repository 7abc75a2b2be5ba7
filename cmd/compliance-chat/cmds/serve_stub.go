package cmds

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/go-go-golems/compliance-chat/pkg/answer/stub"
)

func NewServeStubCommand() *cobra.Command {
	var addr string
	var latency time.Duration
	var mode string
	var status int

	cmd := &cobra.Command{
		Use:   "serve-stub",
		Short: "Serve a canned answering service on POST /query",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			srv := stub.NewCompliance(stub.WithLatency(latency), stub.WithLogger(log.Logger))
			switch m := stub.Mode(mode); m {
			case stub.ModeNormal, stub.ModeEmptyAnswer, stub.ModeMalformed, stub.ModeStatus:
				srv.SetMode(m, status)
			default:
				return errors.Errorf("unknown stub mode %q", mode)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			server := &http.Server{
				Addr:              addr,
				Handler:           srv.Router(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			eg, ctx := errgroup.WithContext(ctx)
			eg.Go(func() error {
				<-ctx.Done()
				log.Info().Msg("shutting down stub server")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return server.Shutdown(shutdownCtx)
			})
			eg.Go(func() error {
				log.Info().Str("addr", addr).Str("mode", mode).Msg("starting stub answering service")
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return errors.Wrap(err, "stub server failed")
				}
				return nil
			})
			return eg.Wait()
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8000", "Listen address")
	cmd.Flags().DurationVar(&latency, "latency", 0, "Artificial delay before each answer")
	cmd.Flags().StringVar(&mode, "mode", string(stub.ModeNormal), "normal, empty, malformed or status")
	cmd.Flags().IntVar(&status, "status", http.StatusInternalServerError, "Status code returned in status mode")
	return cmd
}
