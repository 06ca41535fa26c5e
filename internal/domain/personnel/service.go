package personnel

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/construlink/obra-tracker/pkg/money"
)

// Summary is one worker's payment standing.
type Summary struct {
	Person       Person          `json:"person"`
	DailyRate    *string         `json:"daily_rate,omitempty"`
	RateCurrency string          `json:"rate_currency,omitempty"`
	TotalPaid    decimal.Decimal `json:"total_paid"`
	TotalDisplay string          `json:"total_display"`
}

// Store is the repository surface the service reads through.
type Store interface {
	ListPersonnel(ctx context.Context, orgID uuid.UUID) ([]Person, error)
	CurrentRate(ctx context.Context, personnelID uuid.UUID) (*Rate, error)
	PaymentsTotal(ctx context.Context, personnelID uuid.UUID) (decimal.Decimal, error)
}

// Service computes payment summaries.
type Service struct {
	store  Store
	logger *slog.Logger
}

// NewService creates a personnel service.
func NewService(store Store, logger *slog.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// PaymentSummaries returns one summary per worker. Rate and payment lookups
// fan out concurrently, one worker per goroutine; a failed lookup degrades
// that worker's summary to zero values instead of failing the whole report.
func (s *Service) PaymentSummaries(ctx context.Context, orgID uuid.UUID) ([]Summary, error) {
	people, err := s.store.ListPersonnel(ctx, orgID)
	if err != nil {
		return nil, err
	}

	summaries := make([]Summary, len(people))
	var wg sync.WaitGroup
	for i, p := range people {
		wg.Add(1)
		go func(i int, p Person) {
			defer wg.Done()
			summaries[i] = s.summarize(ctx, p)
		}(i, p)
	}
	wg.Wait()

	return summaries, nil
}

func (s *Service) summarize(ctx context.Context, p Person) Summary {
	summary := Summary{
		Person:    p,
		TotalPaid: decimal.Zero,
	}

	currency := "ARS"
	rate, err := s.store.CurrentRate(ctx, p.ID)
	switch {
	case err != nil:
		s.logger.Warn("rate lookup failed", "personnelID", p.ID, "error", err)
	case rate != nil:
		display := money.Format(rate.DailyRate, rate.Currency)
		summary.DailyRate = &display
		summary.RateCurrency = rate.Currency
		currency = rate.Currency
	}

	total, err := s.store.PaymentsTotal(ctx, p.ID)
	if err != nil {
		s.logger.Warn("payment total lookup failed", "personnelID", p.ID, "error", err)
	} else {
		summary.TotalPaid = total
	}
	summary.TotalDisplay = money.Format(summary.TotalPaid, currency)

	return summary
}
