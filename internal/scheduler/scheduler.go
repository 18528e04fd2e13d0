// Package scheduler drives auto-renewal sweeps: every due customer with
// auto_renew enabled gets a renewal attempt, each in its own
// transaction, so one customer's failure never blocks the rest.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/smallbiznis/netbill/internal/clock"
	customerdomain "github.com/smallbiznis/netbill/internal/customer/domain"
	ledgerdomain "github.com/smallbiznis/netbill/internal/ledger/domain"
	"github.com/smallbiznis/netbill/internal/observability/metrics"
	renewaldomain "github.com/smallbiznis/netbill/internal/renewal/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

var ErrInvalidConfig = errors.New("scheduler: missing dependency")

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	Clock        clock.Clock
	CustomerRepo customerdomain.Repository
	RenewalSvc   renewaldomain.Service
	Config       Config `optional:"true"`
}

type Scheduler struct {
	db           *gorm.DB
	log          *zap.Logger
	cfg          Config
	clock        clock.Clock
	customerRepo customerdomain.Repository
	renewalSvc   renewaldomain.Service
}

// BatchResult counts one sweep's outcomes. Partial progress is the
// normal case, not an error.
type BatchResult struct {
	Renewed int `json:"renewed"`
	Failed  int `json:"failed"`
}

func New(p Params) (*Scheduler, error) {
	if p.DB == nil || p.Log == nil || p.Clock == nil || p.CustomerRepo == nil || p.RenewalSvc == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		db:           p.DB,
		log:          p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:          p.Config.withDefaults(),
		clock:        p.Clock,
		customerRepo: p.CustomerRepo,
		renewalSvc:   p.RenewalSvc,
	}, nil
}

// RunOnce sweeps all currently due customers. Customers that fail stay
// due and are retried on the next sweep; customers that renew advance
// past "due", which makes re-running after a partial failure safe.
func (s *Scheduler) RunOnce(ctx context.Context) (BatchResult, error) {
	start := time.Now()
	runID := uuid.NewString()
	log := s.log.With(zap.String("run_id", runID))
	now := s.clock.Now()

	var renewed, failed atomic.Int64
	attempted := make(map[snowflake.ID]struct{})

	for {
		due, err := s.customerRepo.FindDue(ctx, s.db, now, s.cfg.BatchSize)
		if err != nil {
			return BatchResult{Renewed: int(renewed.Load()), Failed: int(failed.Load())}, err
		}

		var page []customerdomain.Customer
		for _, cust := range due {
			if _, seen := attempted[cust.ID]; seen {
				continue
			}
			attempted[cust.ID] = struct{}{}
			page = append(page, cust)
		}
		if len(page) == 0 {
			break
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.cfg.Concurrency)
		for _, cust := range page {
			cust := cust
			g.Go(func() error {
				if err := s.renewOne(gctx, log, cust); err != nil {
					failed.Add(1)
					metrics.IncRenewal("failure")
					log.Warn("auto-renewal failed",
						zap.String("customer_id", cust.ID.String()),
						zap.String("customer_code", cust.CustomerCode),
						zap.Error(err),
					)
					return nil
				}
				renewed.Add(1)
				metrics.IncRenewal("success")
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return BatchResult{Renewed: int(renewed.Load()), Failed: int(failed.Load())}, err
		}
	}

	result := BatchResult{Renewed: int(renewed.Load()), Failed: int(failed.Load())}
	metrics.ObserveBatchRun(time.Since(start))
	log.Info("auto-renewal sweep finished",
		zap.Int("renewed", result.Renewed),
		zap.Int("failed", result.Failed),
		zap.Duration("elapsed", time.Since(start)),
	)
	return result, nil
}

// renewOne runs a single customer's renewal, retrying once on transient
// contention. A panic in the renewal path is contained to this customer.
func (s *Scheduler) renewOne(ctx context.Context, log *zap.Logger, cust customerdomain.Customer) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("renewal panic: %v", r)
		}
	}()

	_, err = s.renewalSvc.Renew(ctx, renewaldomain.RenewRequest{CustomerID: cust.ID})
	if err != nil && isTransient(err) {
		log.Debug("retrying renewal after transient error",
			zap.String("customer_id", cust.ID.String()),
			zap.Error(err),
		)
		_, err = s.renewalSvc.Renew(ctx, renewaldomain.RenewRequest{CustomerID: cust.ID})
	}
	return err
}

func isTransient(err error) bool {
	return errors.Is(err, ledgerdomain.ErrConcurrentModification) ||
		errors.Is(err, ledgerdomain.ErrNumberExhausted)
}

// RunForever sweeps on a fixed interval until the context is canceled.
func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if _, err := s.RunOnce(ctx); err != nil {
			s.log.Warn("auto-renewal sweep failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
