package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/mattsolo1/grove-datatree/pkg/metrics"
	"github.com/mattsolo1/grove-datatree/pkg/service"
	"github.com/mattsolo1/grove-datatree/pkg/tree"
	"github.com/mattsolo1/grove-datatree/pkg/treemodel"
	"github.com/mattsolo1/grove-datatree/pkg/watch"
)

func NewWatchCmd(svc **service.Service) *cobra.Command {
	var (
		metricsAddr string
		reindex     bool
	)

	cmd := &cobra.Command{
		Use:   "watch [path...]",
		Short: "Watch folders and files and keep the tree in sync",
		Long: `Watch the given folders and files and refresh the tree as they change.
Model events are logged at info level.

Examples:
  dtree watch config/ --log-level info
  dtree watch . --metrics-addr :9090 --reindex`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := *svc
			if err := openArgs(s, args); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			w, err := watch.New(s.Logger)
			if err != nil {
				return fmt.Errorf("failed to create watcher: %w", err)
			}
			defer w.Close()
			if err := w.WatchModel(s.Model); err != nil {
				s.Logger.WithError(err).Warn("some paths are not watched")
			}

			defer metrics.Instrument(s.Model)()
			defer logModelEvents(s.Model, s.Logger)()
			if reindex {
				if _, err := s.Reindex(); err != nil {
					return err
				}
			}

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return w.Run(gctx)
			})
			g.Go(func() error {
				err := watch.Loop(gctx, s.Model, w.Paths(), watch.LoopOptions{
					Debounce: s.Config.Debounce,
					Logger:   s.Logger,
					OnEvent: func(path string, n *tree.Node) {
						metrics.RecordWatchEvent(n != nil)
						metrics.SetDirtyNodes(s.Model.Env().Dirty.Len())
					},
					OnRefresh: func(processed int, took time.Duration) {
						metrics.RecordRefresh(processed, took)
						metrics.SetDirtyNodes(s.Model.Env().Dirty.Len())
						if reindex && processed > 0 {
							if _, err := s.Reindex(); err != nil {
								s.Logger.WithError(err).Warn("reindex failed")
							}
						}
					},
				})
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			})
			if metricsAddr != "" {
				srv := &http.Server{Addr: metricsAddr, Handler: metricsMux()}
				g.Go(func() error {
					s.Logger.WithField("addr", metricsAddr).Info("serving metrics")
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						return fmt.Errorf("metrics server: %w", err)
					}
					return nil
				})
				g.Go(func() error {
					<-gctx.Done()
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					return srv.Shutdown(shutdownCtx)
				})
			}

			fmt.Fprintf(cmd.ErrOrStderr(), "Watching %d roots, press Ctrl+C to stop\n", len(s.Model.RootNodes()))
			return g.Wait()
		},
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	cmd.Flags().BoolVar(&reindex, "reindex", false, "Keep the search index up to date while watching")

	return cmd
}

func metricsMux() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	return mux
}

// logModelEvents logs every model event. The returned function removes the listeners.
func logModelEvents(m *treemodel.Model, logger *logrus.Logger) func() {
	items := func(event string) func(tree.ItemsChange) {
		return func(c tree.ItemsChange) {
			logger.WithFields(logrus.Fields{
				"event":  event,
				"parent": c.Path.String(),
				"count":  len(c.Indices),
			}).Info("model changed")
		}
	}
	subs := []treemodel.Subscription{
		m.OnNodesRemoved(items("removed")),
		m.OnNodesInserted(items("inserted")),
		m.OnStructureChanged(func(c tree.StructureChange) {
			logger.WithField("event", "structure").WithField("parent", c.Path.String()).Info("model changed")
		}),
		m.OnNodesChanged(items("changed")),
	}
	return func() {
		for _, sub := range subs {
			m.Unsubscribe(sub)
		}
	}
}
