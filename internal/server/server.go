package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/netbill/internal/config"
	customerdomain "github.com/smallbiznis/netbill/internal/customer/domain"
	ledgerdomain "github.com/smallbiznis/netbill/internal/ledger/domain"
	paymentdomain "github.com/smallbiznis/netbill/internal/payment/domain"
	plandomain "github.com/smallbiznis/netbill/internal/plan/domain"
	renewaldomain "github.com/smallbiznis/netbill/internal/renewal/domain"
	"github.com/smallbiznis/netbill/internal/scheduler"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(log))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	log = log.Named("http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
}

type Server struct {
	engine       *gin.Engine
	cfg          config.Config
	db           *gorm.DB
	genID        *snowflake.Node
	paymentSvc   paymentdomain.Service
	renewalSvc   renewaldomain.Service
	ledgerSvc    ledgerdomain.Service
	ledgerRepo   ledgerdomain.Repository
	customerRepo customerdomain.Repository
	planRepo     plandomain.Repository
	scheduler    *scheduler.Scheduler
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Cfg          config.Config
	DB           *gorm.DB
	GenID        *snowflake.Node
	PaymentSvc   paymentdomain.Service
	RenewalSvc   renewaldomain.Service
	LedgerSvc    ledgerdomain.Service
	LedgerRepo   ledgerdomain.Repository
	CustomerRepo customerdomain.Repository
	PlanRepo     plandomain.Repository
	Scheduler    *scheduler.Scheduler `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:       p.Gin,
		cfg:          p.Cfg,
		db:           p.DB,
		genID:        p.GenID,
		paymentSvc:   p.PaymentSvc,
		renewalSvc:   p.RenewalSvc,
		ledgerSvc:    p.LedgerSvc,
		ledgerRepo:   p.LedgerRepo,
		customerRepo: p.CustomerRepo,
		planRepo:     p.PlanRepo,
		scheduler:    p.Scheduler,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	v1 := s.engine.Group("/v1")

	v1.POST("/plans", s.CreatePlan)
	v1.GET("/plans", s.ListPlans)

	v1.POST("/customers", s.CreateCustomer)
	v1.GET("/customers/expiring", s.ListExpiringCustomers)
	v1.GET("/customers/:id", s.GetCustomer)
	v1.PATCH("/customers/:id", s.UpdateCustomer)
	v1.GET("/customers/:id/invoices", s.ListCustomerInvoices)
	v1.GET("/customers/:id/transactions", s.ListCustomerTransactions)
	v1.POST("/customers/:id/renew", s.RenewCustomer)
	v1.POST("/customers/:id/revert-renewal", s.RevertRenewal)
	v1.POST("/customers/:id/balance-adjustments", s.AdjustCustomerBalance)
	v1.POST("/customers/:id/addon-bills", s.CreateAddonBill)

	v1.POST("/payments", s.CreatePayment)

	if s.scheduler != nil {
		v1.POST("/renewals/run", s.RunRenewalSweep)
	}
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}
