package services

import (
	"assistant-api/internal/config"
	"assistant-api/internal/models"
	apperrors "assistant-api/internal/pkg/errors"
	"assistant-api/internal/repository"
	"context"
	"fmt"
	"time"
)

const (
	RangeToday      = "1d"
	RangeWeek       = "7d"
	RangeMonth      = "30d"
	RangeMonthToDay = "mtd"
	RangeAll        = "all"
)

type ReportQuery struct {
	Range   string
	Model   string
	Page    int
	PerPage int
}

type ModelSummary struct {
	Calls        int     `json:"calls"`
	PromptTokens int     `json:"promptTokens"`
	OutputTokens int     `json:"outputTokens"`
	TotalTokens  int     `json:"totalTokens"`
	Cost         float64 `json:"cost"`
}

type UsageReport struct {
	Range        string                   `json:"range"`
	Model        string                   `json:"model,omitempty"`
	From         *time.Time               `json:"from,omitempty"`
	TotalCalls   int                      `json:"totalCalls"`
	PromptTokens int                      `json:"promptTokens"`
	OutputTokens int                      `json:"outputTokens"`
	TotalTokens  int                      `json:"totalTokens"`
	TotalCost    float64                  `json:"totalCost"`
	ByModel      map[string]*ModelSummary `json:"byModel"`
	ByDate       map[string]*ModelSummary `json:"byDate"`
	Records      []models.UsageRecord     `json:"records"`
	Page         int                      `json:"page"`
	TotalPages   int                      `json:"totalPages"`
}

type UsageReportService interface {
	Report(ctx context.Context, q ReportQuery) (*UsageReport, error)
}

type usageReportService struct {
	records repository.UsageRecordRepository
	costs   map[string]config.ModelCost
	loc     *time.Location
	now     func() time.Time
}

func NewUsageReportService(records repository.UsageRecordRepository, costs map[string]config.ModelCost) UsageReportService {
	return &usageReportService{
		records: records,
		costs:   costs,
		loc:     time.UTC,
		now:     time.Now,
	}
}

// rangeStart returns the inclusive lower bound of rng, or the zero time for all records.
func rangeStart(now time.Time, rng string, loc *time.Location) (time.Time, error) {
	now = now.In(loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	switch rng {
	case RangeToday:
		return today, nil
	case RangeWeek:
		return today.AddDate(0, 0, -6), nil
	case RangeMonth:
		return today.AddDate(0, 0, -29), nil
	case RangeMonthToDay:
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc), nil
	case RangeAll, "":
		return time.Time{}, nil
	default:
		return time.Time{}, apperrors.New(apperrors.ErrInvalidInput, apperrors.CodeInvalidInput,
			fmt.Sprintf("unknown range %q", rng))
	}
}

// Cost prices a record in USD from per-million-token rates. Unknown models cost nothing.
func Cost(costs map[string]config.ModelCost, r models.UsageRecord) float64 {
	c, ok := costs[r.Model]
	if !ok {
		return 0
	}
	return float64(r.PromptTokens)/1_000_000*c.Input + float64(r.OutputTokens)/1_000_000*c.Output
}

func (s *usageReportService) Report(ctx context.Context, q ReportQuery) (*UsageReport, error) {
	if q.Range == "" {
		q.Range = RangeAll
	}
	from, err := rangeStart(s.now(), q.Range, s.loc)
	if err != nil {
		return nil, err
	}

	records, err := s.records.List(ctx, models.UsageRecordFilter{From: from, Model: q.Model})
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []models.UsageRecord{}
	}

	report := &UsageReport{
		Range:   q.Range,
		Model:   q.Model,
		ByModel: map[string]*ModelSummary{},
		ByDate:  map[string]*ModelSummary{},
	}
	if !from.IsZero() {
		report.From = &from
	}

	for _, r := range records {
		cost := Cost(s.costs, r)
		report.TotalCalls++
		report.PromptTokens += r.PromptTokens
		report.OutputTokens += r.OutputTokens
		report.TotalTokens += r.TotalTokens
		report.TotalCost += cost

		day := r.Timestamp.In(s.loc).Format("2006-01-02")
		for _, agg := range []*ModelSummary{bucket(report.ByModel, r.Model), bucket(report.ByDate, day)} {
			agg.Calls++
			agg.PromptTokens += r.PromptTokens
			agg.OutputTokens += r.OutputTokens
			agg.TotalTokens += r.TotalTokens
			agg.Cost += cost
		}
	}

	report.Records, report.Page, report.TotalPages = paginate(records, q.Page, q.PerPage)
	return report, nil
}

func bucket(m map[string]*ModelSummary, key string) *ModelSummary {
	agg, ok := m[key]
	if !ok {
		agg = &ModelSummary{}
		m[key] = agg
	}
	return agg
}

func paginate(records []models.UsageRecord, page, perPage int) ([]models.UsageRecord, int, int) {
	if perPage <= 0 {
		perPage = 50
	}
	totalPages := (len(records) + perPage - 1) / perPage
	if totalPages == 0 {
		totalPages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}
	start := (page - 1) * perPage
	end := start + perPage
	if end > len(records) {
		end = len(records)
	}
	return records[start:end], page, totalPages
}
