package analytics

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/jwalitptl/bp-admin-api/internal/model"
	"github.com/jwalitptl/bp-admin-api/internal/repository"
)

const DefaultPeriod = "30d"

var periods = map[string]time.Duration{
	"7d":  7 * 24 * time.Hour,
	"30d": 30 * 24 * time.Hour,
	"90d": 90 * 24 * time.Hour,
	"1y":  365 * 24 * time.Hour,
}

// ParsePeriod maps a period token onto its window. Unknown tokens fall back
// to 30 days.
func ParsePeriod(token string) (string, time.Duration) {
	if window, ok := periods[token]; ok {
		return token, window
	}
	return DefaultPeriod, periods[DefaultPeriod]
}

type AnalyticsService interface {
	CommunicationAnalytics(ctx context.Context, period string) (*model.CommunicationAnalytics, error)
	Dashboard(ctx context.Context) (*model.DashboardStats, error)
}

type Service struct {
	commRepo  repository.CommunicationRepository
	statsRepo repository.StatsRepository
	now       func() time.Time
}

func NewService(commRepo repository.CommunicationRepository, statsRepo repository.StatsRepository) *Service {
	return &Service{
		commRepo:  commRepo,
		statsRepo: statsRepo,
		now:       time.Now,
	}
}

func (s *Service) CommunicationAnalytics(ctx context.Context, period string) (*model.CommunicationAnalytics, error) {
	token, window := ParsePeriod(period)
	since := s.now().Add(-window)

	stats, err := s.commRepo.ListSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("failed to load communication analytics: %w", err)
	}
	return Aggregate(token, since, stats), nil
}

// Dashboard counts today's readings within the server's local day.
func (s *Service) Dashboard(ctx context.Context) (*model.DashboardStats, error) {
	now := s.now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	stats, err := s.statsRepo.DashboardStats(ctx, dayStart, dayStart.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("failed to load dashboard stats: %w", err)
	}
	return stats, nil
}

// Aggregate folds communication logs into the analytics report. A call
// counts as answered unless its outcome is no_answer.
func Aggregate(period string, since time.Time, stats []model.CommunicationStat) *model.CommunicationAnalytics {
	out := &model.CommunicationAnalytics{
		Period:              period,
		Since:               since,
		TotalCommunications: len(stats),
		ByType:              map[string]int{},
		ByOutcome:           map[string]int{},
		ByDay:               map[string]int{},
		TopStaff:            map[string]int{},
		DailyTrend:          []model.DailyCount{},
	}

	var calls, answered int
	for _, st := range stats {
		out.ByType[string(st.Type)]++
		if st.Outcome != nil {
			out.ByOutcome[string(*st.Outcome)]++
		}
		out.ByDay[st.CreatedAt.UTC().Format(time.DateOnly)]++
		out.TopStaff[st.UserName]++

		if st.Type == model.CommunicationCall {
			calls++
			if st.Outcome == nil || *st.Outcome != model.OutcomeNoAnswer {
				answered++
			}
		}
	}
	if calls > 0 {
		out.ResponseRate = int(math.Round(float64(answered) / float64(calls) * 100))
	}

	for day, count := range out.ByDay {
		out.DailyTrend = append(out.DailyTrend, model.DailyCount{Date: day, Count: count})
	}
	sort.Slice(out.DailyTrend, func(i, j int) bool {
		return out.DailyTrend[i].Date < out.DailyTrend[j].Date
	})
	return out
}
