// Package analytics computes the dashboard report over the leads a caller
// is allowed to see.
package analytics

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/kamalsharma29/crm-dashboard/internal/authz"
	"github.com/kamalsharma29/crm-dashboard/internal/database/models"
	"gorm.io/gorm"
)

const (
	maxTrendMonths   = 12
	maxTopPerformers = 5
)

type Report struct {
	Summary       Summary        `json:"summary"`
	LeadsByStatus []StatusBucket `json:"leadsByStatus"`
	LeadsBySource []SourceBucket `json:"leadsBySource"`
	MonthlyTrend  []MonthBucket  `json:"monthlyTrend"`
	TopPerformers []Performer    `json:"topPerformers"`
}

type Summary struct {
	TotalLeads      int64   `json:"totalLeads"`
	ClosedWonLeads  int64   `json:"closedWonLeads"`
	ClosedLostLeads int64   `json:"closedLostLeads"`
	ConversionRate  float64 `json:"conversionRate"`
	LossRate        float64 `json:"lossRate"`
	PipelineValue   float64 `json:"pipelineValue"`
}

type StatusBucket struct {
	Status models.LeadStatus `json:"status"`
	Count  int64             `json:"count"`
	Value  float64           `json:"value"`
}

type SourceBucket struct {
	Source models.LeadSource `json:"source"`
	Count  int64             `json:"count"`
}

type MonthBucket struct {
	Month string  `json:"month"`
	Count int64   `json:"count"`
	Value float64 `json:"value"`
}

type Performer struct {
	UserID         uuid.UUID `json:"userId"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	TotalLeads     int64     `json:"totalLeads"`
	ClosedWon      int64     `json:"closedWon"`
	TotalValue     float64   `json:"totalValue"`
	ConversionRate float64   `json:"conversionRate"`
}

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Compute builds a fresh report. Leads without a value count as zero.
func (s *Service) Compute(ctx context.Context, p authz.Principal) (*Report, error) {
	if !p.Authenticated() {
		return nil, authz.ErrUnauthenticated
	}

	byStatus, err := s.statusBuckets(ctx, p)
	if err != nil {
		return nil, err
	}
	bySource, err := s.sourceBuckets(ctx, p)
	if err != nil {
		return nil, err
	}
	trend, err := s.monthlyTrend(ctx, p)
	if err != nil {
		return nil, err
	}

	top := []Performer{}
	if p.Can(authz.ViewTopPerformers) {
		if top, err = s.topPerformers(ctx); err != nil {
			return nil, err
		}
	}

	return &Report{
		Summary:       summarize(byStatus),
		LeadsByStatus: byStatus,
		LeadsBySource: bySource,
		MonthlyTrend:  trend,
		TopPerformers: top,
	}, nil
}

func (s *Service) scoped(ctx context.Context, p authz.Principal) *gorm.DB {
	return s.db.WithContext(ctx).Model(&models.Lead{}).Scopes(p.LeadReadScope())
}

// statusBuckets returns one bucket per status present, in pipeline order.
func (s *Service) statusBuckets(ctx context.Context, p authz.Principal) ([]StatusBucket, error) {
	rows := []StatusBucket{}
	err := s.scoped(ctx, p).
		Select("leads.status AS status, COUNT(*) AS count, COALESCE(SUM(leads.value), 0) AS value").
		Group("leads.status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("grouping by status: %w", err)
	}

	order := make(map[models.LeadStatus]int, len(models.LeadStatuses))
	for i, st := range models.LeadStatuses {
		order[st] = i
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return order[rows[i].Status] < order[rows[j].Status]
	})
	return rows, nil
}

func (s *Service) sourceBuckets(ctx context.Context, p authz.Principal) ([]SourceBucket, error) {
	rows := []SourceBucket{}
	err := s.scoped(ctx, p).
		Select("leads.source AS source, COUNT(*) AS count").
		Group("leads.source").
		Order("count DESC, source ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("grouping by source: %w", err)
	}
	return rows, nil
}

// monthlyTrend buckets by UTC creation month in Go so the same code runs on
// postgres and sqlite. Buckets are ascending and cut to the first
// maxTrendMonths.
func (s *Service) monthlyTrend(ctx context.Context, p authz.Principal) ([]MonthBucket, error) {
	var rows []struct {
		CreatedAt time.Time
		Value     *float64
	}
	err := s.scoped(ctx, p).
		Select("leads.created_at AS created_at, leads.value AS value").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("loading trend rows: %w", err)
	}

	buckets := make(map[string]*MonthBucket)
	for _, r := range rows {
		key := r.CreatedAt.UTC().Format("2006-01")
		b, ok := buckets[key]
		if !ok {
			b = &MonthBucket{Month: key}
			buckets[key] = b
		}
		b.Count++
		if r.Value != nil {
			b.Value += *r.Value
		}
	}

	trend := make([]MonthBucket, 0, len(buckets))
	for _, b := range buckets {
		trend = append(trend, *b)
	}
	sort.Slice(trend, func(i, j int) bool { return trend[i].Month < trend[j].Month })
	if len(trend) > maxTrendMonths {
		trend = trend[:maxTrendMonths]
	}
	return trend, nil
}

func (s *Service) topPerformers(ctx context.Context) ([]Performer, error) {
	rows := []Performer{}
	err := s.db.WithContext(ctx).
		Model(&models.Lead{}).
		Select(`leads.assigned_to_id AS user_id, users.name AS name, users.email AS email,
			COUNT(*) AS total_leads,
			SUM(CASE WHEN leads.status = ? THEN 1 ELSE 0 END) AS closed_won,
			COALESCE(SUM(leads.value), 0) AS total_value`, models.LeadStatusClosedWon).
		Joins("JOIN users ON users.id = leads.assigned_to_id").
		Group("leads.assigned_to_id, users.name, users.email").
		Order("total_value DESC, users.name ASC").
		Limit(maxTopPerformers).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("ranking performers: %w", err)
	}

	for i := range rows {
		rows[i].ConversionRate = percent(rows[i].ClosedWon, rows[i].TotalLeads)
	}
	return rows, nil
}

func summarize(buckets []StatusBucket) Summary {
	var sum Summary
	for _, b := range buckets {
		sum.TotalLeads += b.Count
		switch b.Status {
		case models.LeadStatusClosedWon:
			sum.ClosedWonLeads = b.Count
		case models.LeadStatusClosedLost:
			sum.ClosedLostLeads = b.Count
		}
		if !b.Status.Closed() {
			sum.PipelineValue += b.Value
		}
	}
	sum.ConversionRate = percent(sum.ClosedWonLeads, sum.TotalLeads)
	sum.LossRate = percent(sum.ClosedLostLeads, sum.TotalLeads)
	return sum
}

// percent returns part/total*100 rounded to two decimals, or 0 for an
// empty total.
func percent(part, total int64) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(part)/float64(total)*100*100) / 100
}
