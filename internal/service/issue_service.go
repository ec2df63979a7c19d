package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/tooltrack-backend/internal/config"
	"github.com/stemsi/tooltrack-backend/internal/model"
	"github.com/stemsi/tooltrack-backend/internal/repository"
	"github.com/stemsi/tooltrack-backend/internal/response"
)

const (
	issueSequenceTTL = 48 * time.Hour
	issueNoAttempts  = 3
)

// raiseSequence lifts a day counter to ARGV[1] unless it is already higher.
var raiseSequence = redis.NewScript(`
local cur = tonumber(redis.call('GET', KEYS[1]) or '0')
local floor = tonumber(ARGV[1])
if cur < floor then
	redis.call('SET', KEYS[1], ARGV[1], 'EX', ARGV[2])
	return floor
end
return cur
`)

// IssueService handles outward issues and inward returns.
type IssueService struct {
	repo     repository.IssueRepository
	rdb      *redis.Client
	bus      *EventBus
	settings *SettingService
	log      zerolog.Logger
	now      func() time.Time
}

// NewIssueService creates a new IssueService.
func NewIssueService(repo repository.IssueRepository, rdb *redis.Client, bus *EventBus, settings *SettingService, log zerolog.Logger) *IssueService {
	return &IssueService{
		repo:     repo,
		rdb:      rdb,
		bus:      bus,
		settings: settings,
		log:      log.With().Str("component", "issue_service").Logger(),
		now:      time.Now,
	}
}

// NextIssueNo allocates the next ISS-YYYYMMDD-<seq> number for today. A
// counter that starts over, e.g. after Redis lost its data, is first lifted
// past the numbers already stored.
func (s *IssueService) NextIssueNo(ctx context.Context) (string, error) {
	day := s.now().Format("20060102")
	key := config.CacheKey.IssueSequenceKey(day)

	pipe := s.rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, issueSequenceTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("allocate issue number: %w", err)
	}

	seq := incr.Val()
	if seq == 1 {
		last, err := s.syncSequence(ctx, day)
		if err != nil {
			return "", err
		}
		if last > 0 {
			if seq, err = s.rdb.Incr(ctx, key).Result(); err != nil {
				return "", fmt.Errorf("allocate issue number: %w", err)
			}
		}
	}
	return fmt.Sprintf("ISS-%s-%04d", day, seq), nil
}

// syncSequence raises the day counter to the highest stored sequence and
// returns that sequence.
func (s *IssueService) syncSequence(ctx context.Context, day string) (int, error) {
	last, err := s.repo.LastIssueSeq(ctx, "ISS-"+day+"-")
	if err != nil {
		return 0, fmt.Errorf("read last issue number: %w", err)
	}
	key := config.CacheKey.IssueSequenceKey(day)
	if err := raiseSequence.Run(ctx, s.rdb, []string{key}, last, int(issueSequenceTTL.Seconds())).Err(); err != nil {
		return 0, fmt.Errorf("sync issue sequence: %w", err)
	}
	return last, nil
}

// Create issues tools to a division and reserves their stock. A number
// already taken in storage resyncs the counter and is retried.
func (s *IssueService) Create(ctx context.Context, req *model.CreateIssueRequest, userID int) (*model.Issue, error) {
	is := &model.Issue{
		ItemID:           req.ItemID,
		DivisionID:       req.DivisionID,
		ContractorID:     req.ContractorID,
		MachineID:        req.MachineID,
		LocationID:       req.LocationID,
		Quantity:         req.Quantity,
		IssuedBy:         userID,
		ExpectedReturnAt: req.ExpectedReturnAt,
		Remarks:          req.Remarks,
	}
	if is.ExpectedReturnAt == nil {
		is.ExpectedReturnAt = s.defaultReturnDate(ctx)
	}

	var err error
	for attempt := 1; ; attempt++ {
		if is.IssueNo, err = s.NextIssueNo(ctx); err != nil {
			return nil, err
		}
		err = s.repo.Create(ctx, is)
		if !errors.Is(err, repository.ErrDuplicateIssueNo) || attempt == issueNoAttempts {
			break
		}
		s.log.Warn().Str("issue_no", is.IssueNo).Msg("issue number taken, resyncing sequence")
		if _, err := s.syncSequence(ctx, s.now().Format("20060102")); err != nil {
			return nil, err
		}
	}
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("issue_no", is.IssueNo).Int("item_id", is.ItemID).Int("qty", is.Quantity).Msg("tools issued")
	s.bus.Publish(ctx, model.MovementEvent{
		Kind:     model.MovementOutward,
		IssueID:  is.ID,
		IssueNo:  is.IssueNo,
		ItemID:   is.ItemID,
		Quantity: is.Quantity,
		UserID:   userID,
	})
	return is, nil
}

// Return records tools coming back and returns the updated issue.
func (s *IssueService) Return(ctx context.Context, req *model.CreateReturnRequest, userID int) (*model.ReturnRecord, *model.Issue, error) {
	ret := &model.ReturnRecord{
		IssueID:    req.IssueID,
		Quantity:   req.Quantity,
		StatusID:   req.StatusID,
		ReceivedBy: userID,
		Remarks:    req.Remarks,
	}
	issue, err := s.repo.CreateReturn(ctx, ret)
	if err != nil {
		return nil, nil, err
	}

	s.log.Info().Str("issue_no", issue.IssueNo).Int("qty", ret.Quantity).Str("state", string(issue.State)).Msg("tools returned")
	s.bus.Publish(ctx, model.MovementEvent{
		Kind:     model.MovementInward,
		IssueID:  issue.ID,
		IssueNo:  issue.IssueNo,
		ItemID:   issue.ItemID,
		Quantity: ret.Quantity,
		UserID:   userID,
	})
	return ret, issue, nil
}

// defaultReturnDate applies the default_return_days setting. Zero or an
// unset value leaves the issue open-ended.
func (s *IssueService) defaultReturnDate(ctx context.Context) *time.Time {
	if s.settings == nil {
		return nil
	}
	raw, err := s.settings.GetSettingByKey(ctx, SettingDefaultReturnDays)
	if err != nil {
		s.log.Warn().Err(err).Msg("read default_return_days")
		return nil
	}
	days, err := strconv.Atoi(raw)
	if err != nil || days <= 0 {
		return nil
	}
	due := s.now().AddDate(0, 0, days)
	return &due
}

// GetByID retrieves an issue by ID.
func (s *IssueService) GetByID(ctx context.Context, id int) (*model.Issue, error) {
	return s.repo.GetByID(ctx, id)
}

// List retrieves issues matching f with pagination.
func (s *IssueService) List(ctx context.Context, f model.IssueFilter, page, perPage int) ([]model.Issue, *response.Pagination, error) {
	page, perPage, f.Limit, f.Offset = clampPage(page, perPage)

	issues, total, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, nil, err
	}
	if issues == nil {
		issues = []model.Issue{}
	}
	return issues, newPagination(page, perPage, total), nil
}

// ListReturns retrieves returns whose issue matches f with pagination.
func (s *IssueService) ListReturns(ctx context.Context, f model.IssueFilter, page, perPage int) ([]model.ReturnRecord, *response.Pagination, error) {
	page, perPage, f.Limit, f.Offset = clampPage(page, perPage)

	returns, total, err := s.repo.ListReturns(ctx, f)
	if err != nil {
		return nil, nil, err
	}
	if returns == nil {
		returns = []model.ReturnRecord{}
	}
	return returns, newPagination(page, perPage, total), nil
}

// Report returns every issue matching f, unpaginated.
func (s *IssueService) Report(ctx context.Context, f model.IssueFilter) ([]model.Issue, error) {
	f.Limit, f.Offset = 0, 0
	issues, _, err := s.repo.List(ctx, f)
	if issues == nil {
		issues = []model.Issue{}
	}
	return issues, err
}
