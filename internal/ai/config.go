package ai

import (
	"encoding/json"
	"strings"
	"time"

	"whatsapp-dashboard/internal/models"
)

// Profile is the assistant's persona and generation settings.
type Profile struct {
	AgentName           string  `json:"agentName"`
	AgentRole           string  `json:"agentRole"`
	BusinessDescription string  `json:"businessDescription"`
	SystemPrompt        string  `json:"systemPrompt"`
	Model               string  `json:"model"`
	Temperature         float64 `json:"temperature"`
	MaxTokens           int     `json:"maxTokens"`
	Timezone            string  `json:"timezone"`
}

// Capabilities gates what the assistant is allowed to do unattended.
type Capabilities struct {
	AutoRespond        bool `json:"autoRespond"`
	LeadCapture        bool `json:"leadCapture"`
	AppointmentBooking bool `json:"appointmentBooking"`
}

// DaySchedule is one weekday's operating window, times as "15:04".
type DaySchedule struct {
	Open   string `json:"open"`
	Close  string `json:"close"`
	Closed bool   `json:"closed"`
}

// BusinessHours restricts auto-response to an operating window in the
// tenant's timezone. A nil or disabled value means always open.
type BusinessHours struct {
	Enabled  bool                   `json:"enabled"`
	Timezone string                 `json:"timezone"`
	Schedule map[string]DaySchedule `json:"schedule"` // keyed by lowercase weekday
}

// AssistantConfig is the merged view of an assistant row and its
// free-form config blob.
type AssistantConfig struct {
	Profile       Profile        `json:"profile"`
	Capabilities  Capabilities   `json:"capabilities"`
	BusinessHours *BusinessHours `json:"businessHours,omitempty"`
	Tone          string         `json:"tone,omitempty"`
	Language      string         `json:"language,omitempty"`
}

// configBlob mirrors the JSON stored in ai_assistants.config. Pointer
// fields distinguish "absent" from zero values.
type configBlob struct {
	Capabilities  *Capabilities  `json:"capabilities"`
	BusinessHours *BusinessHours `json:"businessHours"`
	Tone          string         `json:"tone"`
	Language      string         `json:"language"`
	Timezone      string         `json:"timezone"`
}

// ConfigFromAssistant builds the effective config for an assistant row.
// Default assistants auto-respond unless the config blob turns the
// capability off.
func ConfigFromAssistant(a *models.AIAssistant) *AssistantConfig {
	if a == nil {
		return nil
	}

	cfg := &AssistantConfig{
		Profile: Profile{
			AgentName:    a.Name,
			SystemPrompt: a.SystemPrompt,
			Model:        a.Model,
			Temperature:  a.Temperature,
			MaxTokens:    a.MaxTokens,
		},
		Capabilities: Capabilities{AutoRespond: a.IsDefault},
	}

	if a.Config != "" {
		var blob configBlob
		if err := json.Unmarshal([]byte(a.Config), &blob); err == nil {
			if blob.Capabilities != nil {
				cfg.Capabilities = *blob.Capabilities
			}
			cfg.BusinessHours = blob.BusinessHours
			cfg.Tone = blob.Tone
			cfg.Language = blob.Language
			if blob.Timezone != "" {
				cfg.Profile.Timezone = blob.Timezone
			}
		}
	}

	return cfg
}

// ShouldAutoRespond reports whether the config enables unattended
// replies. False for a missing config.
func ShouldAutoRespond(cfg *AssistantConfig) bool {
	return cfg != nil && cfg.Capabilities.AutoRespond
}

// WithinBusinessHours projects now into the configured timezone and
// checks it against the weekday schedule. Unconfigured or disabled
// hours mean always open; an unknown timezone falls back to UTC.
func WithinBusinessHours(now time.Time, timezone string, hours *BusinessHours) bool {
	if hours == nil || !hours.Enabled {
		return true
	}

	tz := hours.Timezone
	if tz == "" {
		tz = timezone
	}
	loc := time.UTC
	if tz != "" {
		if l, err := time.LoadLocation(tz); err == nil {
			loc = l
		}
	}

	local := now.In(loc)
	day := strings.ToLower(local.Weekday().String())
	sched, ok := hours.Schedule[day]
	if !ok {
		return true
	}
	if sched.Closed {
		return false
	}

	opens, err := parseClock(sched.Open)
	if err != nil {
		return true
	}
	closes, err := parseClock(sched.Close)
	if err != nil {
		return true
	}

	minute := local.Hour()*60 + local.Minute()
	return minute >= opens && minute < closes
}

func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}
