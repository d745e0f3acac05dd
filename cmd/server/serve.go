package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jengzang/pulse-backend-go/internal/api"
	"github.com/jengzang/pulse-backend-go/internal/ingest"
	"github.com/jengzang/pulse-backend-go/internal/models"
	"github.com/jengzang/pulse-backend-go/internal/service"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, the sensor consumer and the periodic recompute",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		// Tasks still pending or running belong to a process that is gone.
		if _, err := a.tasks.RecoverOrphans(); err != nil {
			return err
		}
		return serve(ctx, a)
	},
}

func serve(ctx context.Context, a *app) error {
	router := api.SetupRouter(a.cfg, api.Services{
		DB:       a.db,
		Scoring:  a.scoring,
		Readings: a.readings,
		Tasks:    a.tasks,
	})
	srv := &http.Server{
		Addr:              a.cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.WithField("addr", a.cfg.Port).Info("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server failed")
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info("Server shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	if len(a.cfg.KafkaBrokers) > 0 {
		consumer, err := ingest.NewConsumer(ingest.ConsumerConfig{
			Brokers: a.cfg.KafkaBrokers,
			Topic:   a.cfg.KafkaTopic,
			GroupID: a.cfg.KafkaGroup,
		}, a.readings)
		if err != nil {
			return err
		}
		g.Go(func() error {
			defer consumer.Close()
			return consumer.Run(gctx)
		})
	} else {
		log.Info("KAFKA_BROKERS not set, sensor consumer disabled")
	}

	if a.cfg.RecomputeInterval > 0 {
		g.Go(func() error {
			recomputeLoop(gctx, a.tasks, a.cfg.RecomputeInterval)
			return nil
		})
	}

	return g.Wait()
}

// recomputeLoop refreshes stale learned models on every tick.
func recomputeLoop(ctx context.Context, tasks *service.AnalysisTaskService, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			task, err := tasks.RunTask(ctx, service.TaskRequest{
				SkillName: models.SkillLearnedRanges,
				TaskType:  models.TaskTypeIncremental,
				CreatedBy: "scheduler",
			})
			switch {
			case errors.Is(err, service.ErrTaskActive):
				log.Debug("Recompute already running, skipping tick")
			case err != nil:
				log.WithError(err).Warn("Scheduled recompute failed")
			default:
				log.WithFields(log.Fields{
					"task_id": task.ID,
					"summary": task.ResultSummary,
				}).Info("Scheduled recompute finished")
			}
		}
	}
}
