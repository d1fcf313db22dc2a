package scraper

import (
	"context"
	"fmt"
	"log"

	"permitwatch/browser"
	"permitwatch/config"
	"permitwatch/models"
)

// FormFlowStrategy drives reactive single-page portals: log in, pick the
// state and jurisdiction, widen the status filter to everything, search,
// and page through the grid. The page re-renders asynchronously after every
// input, so each step settles before the next.
type FormFlowStrategy struct {
	cfg    *config.CityConfig
	driver browser.Driver
}

func NewFormFlowStrategy(cfg *config.CityConfig, driver browser.Driver) *FormFlowStrategy {
	return &FormFlowStrategy{cfg: cfg, driver: driver}
}

func (s *FormFlowStrategy) Extract(ctx context.Context, req Request) ([]models.PermitRecord, error) {
	sel := s.cfg.Selectors

	if err := s.driver.Navigate(s.cfg.URL, navTimeout); err != nil {
		return nil, fmt.Errorf("navigate to portal: %w", err)
	}
	s.settle()

	if err := s.login(); err != nil {
		return nil, err
	}
	if err := s.selectJurisdiction(); err != nil {
		return nil, err
	}

	// Default filters hide most statuses; select them all so the grid shows
	// the full permit population.
	if sel["status_select_all"] != "" {
		if err := s.driver.Check(sel["status_select_all"]); err != nil {
			return nil, fmt.Errorf("select all statuses: %w", err)
		}
		s.settle()
	}
	if sel["column_toggle"] != "" {
		if err := s.driver.Check(sel["column_toggle"]); err != nil {
			log.Printf("Warning: [%s] column toggle: %v", s.cfg.City, err)
		}
		s.settle()
	}

	if _, err := s.driver.Click(sel["search_button"]); err != nil {
		return nil, fmt.Errorf("submit search: %w", err)
	}
	s.settle()

	var records []models.PermitRecord
	for page := 1; page <= maxResultPages; page++ {
		select {
		case <-ctx.Done():
			return records, ctx.Err()
		default:
		}

		if err := s.driver.WaitForSelector(sel["results_table"], selectorWait); err != nil {
			if page == 1 {
				log.Printf("[%s] no results rendered", s.cfg.City)
				return records, nil
			}
			return records, fmt.Errorf("results grid missing on page %d: %w", page, err)
		}

		html, err := s.driver.Content()
		if err != nil {
			return records, fmt.Errorf("read page %d: %w", page, err)
		}
		rows, err := parseResultsTable(html, sel["results_table"], s.cfg.City)
		if err != nil {
			return records, fmt.Errorf("parse page %d: %w", page, err)
		}
		log.Printf("[%s] page %d: %d rows (total %d)", s.cfg.City, page, len(rows), len(records)+len(rows))

		for _, row := range rows {
			records = append(records, row.record)
			if req.Limit > 0 && len(records) >= req.Limit {
				return records, nil
			}
		}

		if len(rows) == 0 || !s.driver.IsVisible(sel["next_page"]) {
			break
		}
		if _, err := s.driver.Click(sel["next_page"]); err != nil {
			log.Printf("Warning: [%s] next-page click failed: %v", s.cfg.City, err)
			break
		}
		s.settle()
	}

	return records, nil
}

func (s *FormFlowStrategy) login() error {
	sel := s.cfg.Selectors
	if sel["login_user"] == "" || s.cfg.Username == "" {
		return nil
	}
	if !s.driver.IsVisible(sel["login_user"]) {
		// Session persisted from a previous run.
		return nil
	}

	if err := s.driver.Fill(sel["login_user"], s.cfg.Username); err != nil {
		return fmt.Errorf("fill username: %w", err)
	}
	if err := s.driver.Fill(sel["login_pass"], s.cfg.Password); err != nil {
		return fmt.Errorf("fill password: %w", err)
	}
	if _, err := s.driver.Click(sel["login_button"]); err != nil {
		return fmt.Errorf("submit login: %w", err)
	}
	s.settle()
	return nil
}

func (s *FormFlowStrategy) selectJurisdiction() error {
	sel := s.cfg.Selectors
	if sel["state_dropdown"] != "" {
		if err := s.driver.SelectOption(sel["state_dropdown"], s.cfg.State); err != nil {
			return fmt.Errorf("select state: %w", err)
		}
		s.settle()
	}
	if sel["jurisdiction_dropdown"] != "" && s.cfg.Jurisdiction != "" {
		if err := s.driver.SelectOption(sel["jurisdiction_dropdown"], s.cfg.Jurisdiction); err != nil {
			return fmt.Errorf("select jurisdiction: %w", err)
		}
		s.settle()
	}
	return nil
}

func (s *FormFlowStrategy) settle() {
	ms := s.cfg.SettleMS
	if ms <= 0 {
		ms = 2000
	}
	s.driver.Settle(ms, ms*2)
}
