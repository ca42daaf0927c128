package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"
)

// BreakRule describes a break window inside a school day. Two legacy
// shapes are supported: (start_after_period, minutes) marks the single
// period right after start_after_period, while (start_period, length)
// marks length periods beginning at start_period.
type BreakRule struct {
	StartAfterPeriod *int `json:"start_after_period,omitempty"`
	Minutes          int  `json:"minutes,omitempty"`
	StartPeriod      *int `json:"start_period,omitempty"`
	Length           int  `json:"length,omitempty"`
}

// DayConfig describes the period layout for one working day.
type DayConfig struct {
	Day           int        `json:"day" validate:"required,min=1,max=7"`
	Start         string     `json:"start" validate:"required"`
	End           string     `json:"end" validate:"required"`
	PeriodMinutes int        `json:"period_minutes" validate:"required,min=1"`
	Periods       int        `json:"periods" validate:"required,min=1"`
	TeaBreak      *BreakRule `json:"tea_break,omitempty"`
	LunchBreak    *BreakRule `json:"lunch_break,omitempty"`
}

// Settings is the single global scheduling configuration row.
type Settings struct {
	ID          string         `db:"id" json:"id"`
	WorkingDays pq.Int64Array  `db:"working_days" json:"working_days"`
	DayConfig   types.JSONText `db:"day_config" json:"day_config"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`
}

// DayConfigs decodes the day_config column.
func (s *Settings) DayConfigs() ([]DayConfig, error) {
	if len(s.DayConfig) == 0 || string(s.DayConfig) == "null" {
		return nil, nil
	}
	var configs []DayConfig
	if err := s.DayConfig.Unmarshal(&configs); err != nil {
		return nil, err
	}
	return configs, nil
}
