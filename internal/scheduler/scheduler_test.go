package scheduler

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/netbill/internal/clock"
	"github.com/smallbiznis/netbill/internal/config"
	customerdomain "github.com/smallbiznis/netbill/internal/customer/domain"
	customerrepo "github.com/smallbiznis/netbill/internal/customer/repository"
	ledgerdomain "github.com/smallbiznis/netbill/internal/ledger/domain"
	ledgerrepo "github.com/smallbiznis/netbill/internal/ledger/repository"
	ledgerservice "github.com/smallbiznis/netbill/internal/ledger/service"
	"github.com/smallbiznis/netbill/internal/notification"
	"github.com/smallbiznis/netbill/internal/period"
	plandomain "github.com/smallbiznis/netbill/internal/plan/domain"
	planrepo "github.com/smallbiznis/netbill/internal/plan/repository"
	renewalservice "github.com/smallbiznis/netbill/internal/renewal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	db       *gorm.DB
	genID    *snowflake.Node
	clock    *clock.FakeClock
	custRepo customerdomain.Repository
	planRepo plandomain.Repository
	sched    *Scheduler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	require.NoError(t, db.AutoMigrate(
		&plandomain.Plan{},
		&customerdomain.Customer{},
		&ledgerdomain.Invoice{},
		&ledgerdomain.AddonBill{},
		&ledgerdomain.ManualInvoice{},
		&ledgerdomain.Payment{},
		&ledgerdomain.Transaction{},
	))

	genID, err := snowflake.NewNode(4)
	require.NoError(t, err)

	fake := clock.NewFakeClock(time.Date(2024, 4, 1, 3, 0, 0, 0, time.UTC))
	repo := ledgerrepo.Provide()
	custRepo := customerrepo.Provide()
	planRepo := planrepo.Provide()

	ledgerSvc := ledgerservice.NewService(ledgerservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: genID,
		Clock: fake,
		Config: config.Config{
			InvoicePrefix:      "ADB",
			InvoiceDigits:      8,
			InvoiceMaxAttempts: 100,
		},
		Repo:         repo,
		CustomerRepo: custRepo,
	})

	renewalSvc := renewalservice.NewService(renewalservice.Params{
		DB:           db,
		Log:          zap.NewNop(),
		GenID:        genID,
		Clock:        fake,
		LedgerRepo:   repo,
		LedgerSvc:    ledgerSvc,
		CustomerRepo: custRepo,
		PlanRepo:     planRepo,
		Notifier:     notification.NewLogNotifier(zap.NewNop()),
	})

	sched, err := New(Params{
		DB:           db,
		Log:          zap.NewNop(),
		Clock:        fake,
		CustomerRepo: custRepo,
		RenewalSvc:   renewalSvc,
		Config:       Config{Concurrency: 1, BatchSize: 2},
	})
	require.NoError(t, err)

	return &fixture{db: db, genID: genID, clock: fake, custRepo: custRepo, planRepo: planRepo, sched: sched}
}

func (f *fixture) createPlan(t *testing.T) *plandomain.Plan {
	t.Helper()
	plan := &plandomain.Plan{
		ID:    f.genID.Generate(),
		Name:  "Fiber 50Mbps",
		Price: 600,
	}
	require.NoError(t, f.planRepo.Insert(context.Background(), f.db, plan))
	return plan
}

func (f *fixture) createDueCustomer(t *testing.T, planID snowflake.ID, code string) *customerdomain.Customer {
	t.Helper()
	end := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)
	cust := &customerdomain.Customer{
		ID:           f.genID.Generate(),
		CustomerCode: code,
		FullName:     "Batch Customer " + code,
		BillingType:  period.Prepaid,
		PlanID:       planID,
		PeriodMonths: 1,
		EndDate:      &end,
		AutoRenew:    true,
		Status:       customerdomain.StatusActive,
	}
	require.NoError(t, f.custRepo.Insert(context.Background(), f.db, cust))
	return cust
}

func TestRunOnceRenewsAllDueCustomers(t *testing.T) {
	f := newFixture(t)
	plan := f.createPlan(t)
	for i := 0; i < 3; i++ {
		f.createDueCustomer(t, plan.ID, fmt.Sprintf("CUST%03d", i))
	}

	result, err := f.sched.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, BatchResult{Renewed: 3, Failed: 0}, result)

	var count int64
	require.NoError(t, f.db.Model(&ledgerdomain.Invoice{}).Count(&count).Error)
	assert.Equal(t, int64(3), count)
}

func TestRunOnceIsolatesFailures(t *testing.T) {
	f := newFixture(t)
	plan := f.createPlan(t)
	f.createDueCustomer(t, plan.ID, "CUST001")
	broken := f.createDueCustomer(t, plan.ID, "CUST002")
	f.createDueCustomer(t, plan.ID, "CUST003")

	// Point the middle customer at a missing plan so its renewal fails.
	require.NoError(t, f.db.Model(broken).Update("plan_id", f.genID.Generate()).Error)

	result, err := f.sched.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, BatchResult{Renewed: 2, Failed: 1}, result)

	var count int64
	require.NoError(t, f.db.Model(&ledgerdomain.Invoice{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)

	// The failed customer is untouched and still due.
	reloaded, err := f.custRepo.FindByID(context.Background(), f.db, broken.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded.EndDate)
	assert.WithinDuration(t, time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC), reloaded.EndDate.UTC(), time.Second)
}

func TestRunOnceIsIdempotentAcrossReruns(t *testing.T) {
	f := newFixture(t)
	plan := f.createPlan(t)
	f.createDueCustomer(t, plan.ID, "CUST001")
	f.createDueCustomer(t, plan.ID, "CUST002")

	first, err := f.sched.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, BatchResult{Renewed: 2, Failed: 0}, first)

	// Renewed customers have advanced past due; a second sweep in the
	// same tick finds nothing to do.
	second, err := f.sched.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, BatchResult{}, second)

	var count int64
	require.NoError(t, f.db.Model(&ledgerdomain.Invoice{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestRunOnceSkipsNonAutoRenew(t *testing.T) {
	f := newFixture(t)
	plan := f.createPlan(t)
	manual := f.createDueCustomer(t, plan.ID, "CUST001")
	require.NoError(t, f.db.Model(manual).Update("auto_renew", false).Error)

	result, err := f.sched.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, BatchResult{}, result)
}

func TestRunOnceWithFutureClockPicksUpNewlyDue(t *testing.T) {
	f := newFixture(t)
	plan := f.createPlan(t)
	cust := f.createDueCustomer(t, plan.ID, "CUST001")
	end := time.Date(2024, 4, 10, 0, 0, 0, 0, time.UTC)
	require.NoError(t, f.custRepo.SetEndDate(context.Background(), f.db, cust.ID, &end))

	result, err := f.sched.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, BatchResult{}, result)

	f.clock.Advance(10 * 24 * time.Hour)

	result, err = f.sched.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, BatchResult{Renewed: 1, Failed: 0}, result)
}
