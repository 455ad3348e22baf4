package backend

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// StartHealthChecks runs CheckHealth on schedule until ctx ends. An empty
// schedule disables the checks.
func (e *Engine) StartHealthChecks(ctx context.Context, schedule string) error {
	if schedule == "" {
		return nil
	}

	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		ok, _ := e.CheckHealth(ctx)
		e.log.Info("scheduled health check", zap.Bool("healthy", ok))
	})
	if err != nil {
		return fmt.Errorf("health schedule %q: %w", schedule, err)
	}

	c.Start()
	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
	}()
	return nil
}
