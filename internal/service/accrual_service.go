package service

import (
	"context"
	"errors"
	"time"

	"github.com/nftlevel-next/internal/constants"
	"github.com/nftlevel-next/internal/logger"
	"github.com/nftlevel-next/internal/metrics"
	"github.com/nftlevel-next/internal/models"
	"github.com/nftlevel-next/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	accrualErrSponsorMissing = "sponsor_not_found"
	accrualErrConflict       = "record_changed_concurrently"
)

// AccrualTickSummary 一次日结的汇总
type AccrualTickSummary struct {
	RunID             string       `json:"run_id"`
	Scanned           int          `json:"scanned"`
	Processed         int          `json:"processed"`
	Skipped           int          `json:"skipped"`
	SkippedInactive   int          `json:"skipped_inactive"`
	SkippedIneligible int          `json:"skipped_ineligible"`
	Errored           int          `json:"errored"`
	Completed         int          `json:"completed"`
	TotalDisbursed    models.Money `json:"total_disbursed"`
	Errors            []JobError   `json:"errors"`
	Interrupted       bool         `json:"interrupted"` // 上下文取消导致批次未扫描完
	StartedAt         time.Time    `json:"started_at"`
	FinishedAt        time.Time    `json:"finished_at"`
}

// AccrualService 分期佣金日结服务
type AccrualService struct {
	memberRepo  repository.MemberRepository
	accrualRepo repository.AccrualRepository
	walletSvc   *WalletService
	settings    EngineSettings
	clock       Clock
}

// NewAccrualService 创建分期佣金日结服务
func NewAccrualService(
	memberRepo repository.MemberRepository,
	accrualRepo repository.AccrualRepository,
	walletSvc *WalletService,
	settings EngineSettings,
	clock Clock,
) *AccrualService {
	return &AccrualService{
		memberRepo:  memberRepo,
		accrualRepo: accrualRepo,
		walletSvc:   walletSvc,
		settings:    settings,
		clock:       resolveClock(clock),
	}
}

// tickState 单次运行内的推荐人缓存
type tickState struct {
	sponsors map[uint]*models.Member
	directs  map[uint]int64
	paid     []uint // 本次获得发放的推荐人，按 sponsor_id 顺序去重
}

// RunTick 执行一次日结：按 (sponsor_id, id) 顺序处理全部到期记录，单条失败不影响其余记录
func (s *AccrualService) RunTick(ctx context.Context) (*AccrualTickSummary, error) {
	lock, runID, err := acquireJob(ctx, constants.JobAccrualTick, s.settings.JobLockTTL)
	if err != nil {
		metrics.JobRunsTotal.WithLabelValues(constants.JobAccrualTick, "locked").Inc()
		return nil, err
	}
	defer func() {
		if releaseErr := lock.Release(context.Background()); releaseErr != nil {
			logger.Warnw("accrual_tick_lock_release_failed", "run_id", runID, "error", releaseErr)
		}
	}()

	log := logger.Job(constants.JobAccrualTick, runID)
	now := s.clock.Now()
	summary := &AccrualTickSummary{
		RunID:          runID,
		TotalDisbursed: models.ZeroMoney(),
		Errors:         []JobError{},
		StartedAt:      now,
	}
	state := &tickState{
		sponsors: make(map[uint]*models.Member),
		directs:  make(map[uint]int64),
	}
	disbursed := decimal.Zero

	cursor := repository.AccrualCursor{}
	for {
		if err := ctx.Err(); err != nil {
			log.Warnw("accrual_tick_cancelled", "scanned", summary.Scanned, "error", err)
			summary.Interrupted = true
			break
		}
		records, err := s.accrualRepo.ListDue(now, cursor, s.settings.TickBatchSize)
		if err != nil {
			metrics.JobRunsTotal.WithLabelValues(constants.JobAccrualTick, "failed").Inc()
			return nil, err
		}
		if len(records) == 0 {
			break
		}
		for i := range records {
			record := &records[i]
			cursor = repository.AccrualCursor{SponsorID: record.SponsorID, ID: record.ID}
			summary.Scanned++

			outcome, amount, err := s.processRecord(record, state, now)
			switch {
			case err != nil:
				summary.Errored++
				summary.Errors = append(summary.Errors, JobError{
					RecordID:  record.ID,
					SponsorID: record.SponsorID,
					MemberID:  record.MemberID,
					Reason:    accrualErrorReason(err),
				})
				log.Warnw("accrual_record_failed", "record_id", record.ID, "sponsor_id", record.SponsorID, "error", err)
				metrics.AccrualRecordsTotal.WithLabelValues("errored").Inc()
			case outcome == constants.AccrualSkipSponsorInactive:
				summary.Skipped++
				summary.SkippedInactive++
				metrics.AccrualRecordsTotal.WithLabelValues("skipped_inactive").Inc()
			case outcome == constants.AccrualSkipGateNotMet:
				summary.Skipped++
				summary.SkippedIneligible++
				metrics.AccrualRecordsTotal.WithLabelValues("skipped_ineligible").Inc()
			default:
				summary.Processed++
				disbursed = disbursed.Add(amount)
				if n := len(state.paid); n == 0 || state.paid[n-1] != record.SponsorID {
					state.paid = append(state.paid, record.SponsorID)
				}
				if outcome == constants.AccrualStatusCompleted {
					summary.Completed++
				}
				metrics.AccrualRecordsTotal.WithLabelValues("paid").Inc()
			}
		}
		if len(records) < s.settings.TickBatchSize {
			break
		}
	}

	invalidateReportCache(context.WithoutCancel(ctx), state.paid...)
	summary.TotalDisbursed = models.NewMoneyFromDecimal(disbursed)
	summary.FinishedAt = s.clock.Now()
	metrics.AccrualDisbursed.Add(disbursed.InexactFloat64())
	metrics.JobDuration.WithLabelValues(constants.JobAccrualTick).Observe(summary.FinishedAt.Sub(summary.StartedAt).Seconds())
	metrics.JobRunsTotal.WithLabelValues(constants.JobAccrualTick, jobOutcome(summary.Interrupted)).Inc()
	log.Infow("accrual_tick_finished",
		"interrupted", summary.Interrupted,
		"scanned", summary.Scanned,
		"processed", summary.Processed,
		"skipped", summary.Skipped,
		"errored", summary.Errored,
		"completed", summary.Completed,
		"total_disbursed", summary.TotalDisbursed.String(),
	)
	return summary, nil
}

// processRecord 处理单条到期记录，返回结果标记与本次发放金额
func (s *AccrualService) processRecord(record *models.AccrualRecord, state *tickState, now time.Time) (string, decimal.Decimal, error) {
	sponsor, err := s.loadSponsor(record.SponsorID, state)
	if err != nil {
		return "", decimal.Zero, err
	}
	if sponsor == nil {
		return "", decimal.Zero, ErrSponsorNotFound
	}
	next := now.Add(s.settings.AccrualInterval)

	if !sponsor.IsActivated {
		if err := s.accrualRepo.Reschedule(record.ID, next, constants.AccrualSkipSponsorInactive, now); err != nil {
			return "", decimal.Zero, err
		}
		return constants.AccrualSkipSponsorInactive, decimal.Zero, nil
	}

	if gate := s.settings.GateFor(record.Level); gate > 0 {
		directs, err := s.activatedDirects(sponsor.ID, state)
		if err != nil {
			return "", decimal.Zero, err
		}
		if directs < int64(gate) {
			if err := s.accrualRepo.Reschedule(record.ID, next, constants.AccrualSkipGateNotMet, now); err != nil {
				return "", decimal.Zero, err
			}
			return constants.AccrualSkipGateNotMet, decimal.Zero, nil
		}
	}

	amount := record.DailyAmount.Decimal
	completed := record.DaysRemaining <= 1
	if completed || amount.GreaterThan(record.RemainingAmount.Decimal) {
		amount = record.RemainingAmount.Decimal
	}
	if !amount.IsPositive() {
		return "", decimal.Zero, ErrInvalidInput
	}
	day := record.DaysPaid + 1
	recordID := record.ID
	purchaseID := record.NFTPurchaseID

	err = s.memberRepo.Transaction(func(tx *gorm.DB) error {
		if err := s.accrualRepo.WithTx(tx).ApplyPayment(repository.AccrualPayment{
			RecordID:              record.ID,
			ExpectedDaysRemaining: record.DaysRemaining,
			Amount:                amount,
			PaidAt:                now,
			NextPaymentDate:       next,
			Completed:             completed,
		}); err != nil {
			return err
		}
		_, err := s.walletSvc.Apply(tx, WalletCreditInput{
			MemberID:        sponsor.ID,
			Amount:          amount,
			TxnType:         constants.WalletTxnTypeAccrualIncome,
			Reference:       accrualReference(record.ID, day),
			Remark:          constants.WalletTxnTypeAccrualIncome,
			Level:           record.Level,
			NFTPurchaseID:   &purchaseID,
			AccrualRecordID: &recordID,
			LevelIncome:     true,
			At:              now,
		})
		return err
	})
	if err != nil {
		return "", decimal.Zero, err
	}
	if completed {
		return constants.AccrualStatusCompleted, amount, nil
	}
	return constants.AccrualStatusActive, amount, nil
}

func (s *AccrualService) loadSponsor(id uint, state *tickState) (*models.Member, error) {
	if sponsor, ok := state.sponsors[id]; ok {
		return sponsor, nil
	}
	sponsor, err := s.memberRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	state.sponsors[id] = sponsor
	return sponsor, nil
}

func (s *AccrualService) activatedDirects(sponsorID uint, state *tickState) (int64, error) {
	if count, ok := state.directs[sponsorID]; ok {
		return count, nil
	}
	activated := true
	count, err := s.memberRepo.CountBySponsor(sponsorID, &activated)
	if err != nil {
		return 0, err
	}
	state.directs[sponsorID] = count
	return count, nil
}

// List 分页查询分期记录
func (s *AccrualService) List(filter repository.AccrualListFilter) ([]models.AccrualRecord, int64, error) {
	return s.accrualRepo.List(filter)
}

func accrualErrorReason(err error) string {
	switch {
	case errors.Is(err, ErrSponsorNotFound):
		return accrualErrSponsorMissing
	case errors.Is(err, repository.ErrAccrualConflict):
		return accrualErrConflict
	default:
		return err.Error()
	}
}
