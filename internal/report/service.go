package report

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"resavox/internal/models"
)

// Store is the read side the exporter needs.
type Store interface {
	GetRestaurant(ctx context.Context, id int64) (*models.Restaurant, error)
	ListByRestaurant(ctx context.Context, restaurantID int64) ([]models.Reservation, error)
}

// Service writes a workbook per restaurant on a fixed interval and,
// when configured, mirrors active reservations to Google Sheets.
type Service struct {
	store         Store
	sheets        *SheetsSync // nil disables the mirror
	restaurantIDs []int64
	outputDir     string
	interval      time.Duration
	logger        zerolog.Logger

	stopCh  chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

func NewService(store Store, sheets *SheetsSync, restaurantIDs []int64, outputDir string, interval time.Duration, logger zerolog.Logger) *Service {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &Service{
		store:         store,
		sheets:        sheets,
		restaurantIDs: restaurantIDs,
		outputDir:     outputDir,
		interval:      interval,
		logger:        logger,
		stopCh:        make(chan struct{}),
	}
}

func (s *Service) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	s.wg.Add(1)
	go s.loop()
	s.logger.Info().Dur("interval", s.interval).Msg("report service started")
}

func (s *Service) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	close(s.stopCh)
	s.wg.Wait()
	s.logger.Info().Msg("report service stopped")
}

func (s *Service) loop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.RunExport()
		}
	}
}

// RunExport exports every configured restaurant once.
func (s *Service) RunExport() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	for _, id := range s.restaurantIDs {
		if err := s.exportRestaurant(ctx, id); err != nil {
			s.logger.Error().Err(err).Int64("restaurant_id", id).Msg("report export failed")
		}
	}
}

func (s *Service) exportRestaurant(ctx context.Context, restaurantID int64) error {
	restaurant, err := s.store.GetRestaurant(ctx, restaurantID)
	if err != nil {
		return fmt.Errorf("load restaurant: %w", err)
	}
	reservations, err := s.store.ListByRestaurant(ctx, restaurantID)
	if err != nil {
		return fmt.Errorf("load reservations: %w", err)
	}

	f, err := BuildWorkbook(reservations)
	if err != nil {
		return fmt.Errorf("build workbook: %w", err)
	}
	defer f.Close()

	path := filepath.Join(s.outputDir, Filename(restaurant.Name, time.Now()))
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	s.logger.Info().Str("path", path).Int("reservations", len(reservations)).Msg("report written")

	if s.sheets != nil {
		if err := s.sheets.AppendActive(ctx, reservations); err != nil {
			// the local file is the primary artefact; a sheets miss
			// is logged and retried on the next tick
			s.logger.Warn().Err(err).Int64("restaurant_id", restaurantID).Msg("sheets sync failed")
		}
	}
	return nil
}

// monthNames for report filenames.
var monthNames = map[time.Month]string{
	time.January:   "janvier",
	time.February:  "février",
	time.March:     "mars",
	time.April:     "avril",
	time.May:       "mai",
	time.June:      "juin",
	time.July:      "juillet",
	time.August:    "août",
	time.September: "septembre",
	time.October:   "octobre",
	time.November:  "novembre",
	time.December:  "décembre",
}

// Filename builds names like "Chez_Margot_janvier_2026.xlsx".
func Filename(restaurantName string, t time.Time) string {
	safe := make([]rune, 0, len(restaurantName))
	for _, r := range restaurantName {
		if r == ' ' || r == '/' {
			r = '_'
		}
		safe = append(safe, r)
	}
	return fmt.Sprintf("%s_%s_%d.xlsx", string(safe), monthNames[t.Month()], t.Year())
}
