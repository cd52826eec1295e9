package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"hotel-price-watch/internal/alerting"
	"hotel-price-watch/internal/browser"
	"hotel-price-watch/internal/config"
	"hotel-price-watch/internal/pricing"
	"hotel-price-watch/internal/scheduler"
	"hotel-price-watch/internal/storage"
)

// PageFetcher supplies the raw observation for one target: rendered text,
// markup, and rate-control candidates.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (browser.Capture, error)
}

// CheckResult summarises one target's check for callers that print or batch
// the outcome.
type CheckResult struct {
	Name    string
	URL     string
	Key     string
	Price   *decimal.Decimal
	Source  pricing.Source
	Amounts []decimal.Decimal
	Reasons []pricing.AlertReason
	// Alerts are rendered lines, one per reason, each with the target URL
	// appended for the notification message.
	Alerts []string
}

// Service orchestrates fetching, price resolution, persistence, and alerting.
type Service struct {
	scheduler  *scheduler.Scheduler
	fetcher    PageFetcher
	states     storage.StateStore
	history    storage.HistorySink
	alertStore storage.AlertStore
	notifier   alerting.Notifier
	logger     zerolog.Logger

	targets        []config.TargetConfig
	defaultDropPct float64
	subject        string
	alertsOn       bool
	locker         storage.AdvisoryLocker
	lockKey        int64

	now func() time.Time
}

// New constructs the monitoring service. Any of fetcher, states, history,
// alertStore, and notifier may be nil; the corresponding step is skipped.
func New(cfg *config.Config, sched *scheduler.Scheduler, fetcher PageFetcher, states storage.StateStore, history storage.HistorySink, alertStore storage.AlertStore, notifier alerting.Notifier, logger zerolog.Logger) *Service {
	var locker storage.AdvisoryLocker
	if l, ok := states.(storage.AdvisoryLocker); ok {
		locker = l
	}

	return &Service{
		scheduler:      sched,
		fetcher:        fetcher,
		states:         states,
		history:        history,
		alertStore:     alertStore,
		notifier:       notifier,
		logger:         logger.With().Str("component", "service").Logger(),
		targets:        cfg.Monitor.Targets,
		defaultDropPct: cfg.Monitor.DefaultDropPct,
		subject:        cfg.Alerting.Subject,
		alertsOn:       cfg.Alerting.Enabled,
		locker:         locker,
		lockKey:        cfg.Scheduler.AdvisoryLockKey,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// Run begins the aligned sweep loop.
func (s *Service) Run(ctx context.Context) error {
	if s.scheduler == nil {
		return fmt.Errorf("scheduler not configured")
	}
	return s.scheduler.Run(ctx, s.RunSweep)
}

// RunSweep 执行单轮全目标检查并分发批量告警。
func (s *Service) RunSweep(ctx context.Context, sweep time.Time) error {
	unlock, proceed, err := s.acquireLock(ctx)
	if err != nil {
		return err
	}
	if !proceed {
		s.logger.Debug().Time("sweep", sweep).Msg("skip sweep because advisory lock held elsewhere")
		return nil
	}
	if unlock != nil {
		defer unlock()
	}

	_, err = s.Sweep(ctx)
	return err
}

// Sweep checks every configured target in order and dispatches one batched
// notification when any alert fired. Per-target failures never abort the
// sweep; each target's worst case is an Undetected record.
func (s *Service) Sweep(ctx context.Context) ([]CheckResult, error) {
	results := make([]CheckResult, 0, len(s.targets))
	var entries []string

	for _, target := range s.targets {
		select {
		case <-ctx.Done():
			return results, ctx.Err()
		default:
		}

		result := s.CheckTarget(ctx, target)
		results = append(results, result)
		entries = append(entries, result.Alerts...)
	}

	if len(entries) > 0 && s.alertsOn && s.notifier != nil {
		note := alerting.Notification{Subject: s.subject, Entries: entries}
		if err := s.notifier.Notify(ctx, note); err != nil {
			s.logger.Error().Err(err).Int("entries", len(entries)).Msg("failed to dispatch alerts")
		}
	}

	return results, nil
}

// CheckTarget runs the full pipeline for one target: load page, resolve a
// rate-control price, fall back to scan-and-choose, detect changes, persist
// state and history. It never fails: extraction problems surface as an
// Undetected alert with the prior state preserved.
func (s *Service) CheckTarget(ctx context.Context, target config.TargetConfig) CheckResult {
	key := storage.TargetKey(target.Name)
	result := CheckResult{Name: target.Name, URL: target.URL, Key: key}

	var prior *storage.MonitorState
	if s.states != nil {
		loaded, err := s.states.LoadState(ctx, key)
		if err != nil {
			s.logger.Error().Err(err).Str("target", key).Msg("failed to load state")
		} else {
			prior = loaded
		}
	}

	var capture browser.Capture
	if s.fetcher != nil {
		var fetchErr error
		capture, fetchErr = s.fetcher.Fetch(ctx, target.URL)
		if fetchErr != nil {
			// A partial capture is still scanned; the worst case below is
			// an empty amount set and an Undetected alert.
			s.logger.Warn().Err(fetchErr).Str("target", key).Msg("page fetch incomplete")
		}
	}

	price, source, resolved := pricing.ResolveRate(capture.Candidates)
	result.Amounts = pricing.MergeAmounts(
		pricing.ScanAmounts(capture.BodyText),
		pricing.ScanAmounts(capture.HTML),
	)

	var chosen *decimal.Decimal
	if resolved {
		chosen = &price
	} else {
		var last, expected *decimal.Decimal
		if prior != nil {
			last = &prior.LastPrice
		}
		if target.Expected != nil {
			e := decimal.NewFromFloat(*target.Expected)
			expected = &e
		}
		if fallback, ok := pricing.ChoosePrice(result.Amounts, last, expected); ok {
			chosen = &fallback
			source = pricing.SourceFallback
		} else {
			source = pricing.SourceNone
		}
	}
	result.Price = chosen
	result.Source = source

	var priorPrice, targetPrice *decimal.Decimal
	if prior != nil {
		priorPrice = &prior.LastPrice
	}
	if target.Target != nil {
		t := decimal.NewFromFloat(*target.Target)
		targetPrice = &t
	}
	threshold := decimal.NewFromFloat(s.dropPctFor(target))

	detection := pricing.Detect(chosen, priorPrice, targetPrice, threshold)
	result.Reasons = detection.Reasons

	now := s.now()

	if s.history != nil {
		record := storage.HistoryRecord{
			Timestamp: now,
			Price:     chosen,
			Source:    string(source),
			Amounts:   result.Amounts,
			URL:       target.URL,
		}
		if err := s.history.AppendHistory(ctx, key, record); err != nil {
			s.logger.Error().Err(err).Str("target", key).Msg("failed to append history")
		}
	}

	if detection.Persist && s.states != nil {
		state := storage.MonitorState{
			TargetKey:   key,
			LastPrice:   detection.NewPrice,
			LastChecked: now,
		}
		if err := s.states.SaveState(ctx, state); err != nil {
			s.logger.Error().Err(err).Str("target", key).Msg("failed to save state")
		}
	}

	for _, reason := range detection.Reasons {
		line := reason.Describe(target.Name)
		result.Alerts = append(result.Alerts, line+"\n"+target.URL)

		if s.alertStore != nil {
			record := storage.AlertRecord{
				TargetKey: key,
				CheckTS:   now,
				Kind:      string(reason.Kind),
				Message:   line,
			}
			if _, err := s.alertStore.InsertAlert(ctx, record); err != nil {
				s.logger.Error().Err(err).Str("target", key).Msg("failed to persist alert record")
			}
		}
	}

	event := s.logger.Info().Str("target", key).Str("source", string(source)).Int("found", len(result.Amounts))
	if chosen != nil {
		event = event.Str("chosen", chosen.StringFixed(2))
	}
	event.Msg("check recorded")

	return result
}

func (s *Service) dropPctFor(target config.TargetConfig) float64 {
	if target.DropPct != nil {
		return *target.DropPct
	}
	return s.defaultDropPct
}

func (s *Service) acquireLock(ctx context.Context) (func(), bool, error) {
	if s.lockKey == 0 || s.locker == nil {
		return nil, true, nil
	}
	unlock, acquired, err := s.locker.TryAdvisoryLock(ctx, s.lockKey)
	if err != nil {
		return nil, false, fmt.Errorf("acquire advisory lock: %w", err)
	}
	if !acquired {
		return nil, false, nil
	}
	return unlock, true, nil
}
