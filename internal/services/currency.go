package services

import (
	"sync"
	"time"

	"portfolio_tracker/internal/models"
	"portfolio_tracker/internal/repository"
)

// Rate names.
const (
	RateMEP = "MEP"
	RateCCL = "CCL"
)

// CurrencyService converts peso amounts to dollars using the FX rates
// stored with each client's latest export.
type CurrencyService struct {
	details  *repository.DetailRepository
	fallback float64
	cache    map[string]cachedRates
	mu       sync.RWMutex
	maxAge   time.Duration
}

type cachedRates struct {
	rates     models.FXRates
	fetchedAt time.Time
}

// NewCurrencyService creates a new CurrencyService. fallback is used for
// clients with no stored rates.
func NewCurrencyService(details *repository.DetailRepository, fallback float64) *CurrencyService {
	return &CurrencyService{
		details:  details,
		fallback: fallback,
		cache:    make(map[string]cachedRates),
		maxAge:   5 * time.Minute,
	}
}

// Rates returns the latest stored rates of a client, falling back to the
// configured default for any missing rate.
func (s *CurrencyService) Rates(clientID string) (models.FXRates, error) {
	s.mu.RLock()
	if c, ok := s.cache[clientID]; ok && time.Since(c.fetchedAt) < s.maxAge {
		s.mu.RUnlock()
		return c.rates, nil
	}
	s.mu.RUnlock()

	rates := models.FXRates{MEP: s.fallback, CCL: s.fallback}
	stored, err := s.details.LatestFX(clientID)
	if err != nil {
		return rates, err
	}
	if stored != nil {
		if stored.MEP > 0 {
			rates.MEP = stored.MEP
		}
		if stored.CCL > 0 {
			rates.CCL = stored.CCL
		}
	}

	s.mu.Lock()
	s.cache[clientID] = cachedRates{rates: rates, fetchedAt: time.Now()}
	s.mu.Unlock()
	return rates, nil
}

// ToUSD converts a peso amount using the named rate (MEP unless CCL is asked for).
func (s *CurrencyService) ToUSD(amount float64, clientID, rate string) (float64, error) {
	rates, err := s.Rates(clientID)
	if err != nil {
		return 0, err
	}
	divisor := rates.MEP
	if rate == RateCCL {
		divisor = rates.CCL
	}
	if divisor <= 0 {
		return 0, nil
	}
	return amount / divisor, nil
}

// AllRates returns every client's latest stored rates.
func (s *CurrencyService) AllRates() (map[string]models.FXRates, error) {
	return s.details.AllLatestFX()
}

// ClearCache clears the in-memory rate cache.
func (s *CurrencyService) ClearCache() {
	s.mu.Lock()
	s.cache = make(map[string]cachedRates)
	s.mu.Unlock()
}
