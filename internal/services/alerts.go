package services

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/adpsports/nhl-projections/internal/nhl"
)

// SMSService sends a text message to one recipient.
type SMSService interface {
	SendMessage(phoneNumber, message string) error
}

// MockSMSService logs instead of sending. Used in development and whenever
// no Twilio credentials are configured.
type MockSMSService struct {
	logger *logrus.Logger
}

func NewMockSMSService(logger *logrus.Logger) *MockSMSService {
	return &MockSMSService{logger: logger}
}

func (s *MockSMSService) SendMessage(phoneNumber, message string) error {
	s.logger.WithField("to", phoneNumber).Infof("MOCK SMS: %s", message)
	return nil
}

// AlertService notifies recipients when the slate carries players with no
// stored baseline, meaning their whole projection rests on fallback rates.
type AlertService struct {
	sms        SMSService
	limiter    *AlertRateLimiter
	recipients []string
	logger     *logrus.Logger
}

// NewAlertService creates an alert service. A nil sms disables sending.
func NewAlertService(sms SMSService, limiter *AlertRateLimiter, recipients []string, logger *logrus.Logger) *AlertService {
	return &AlertService{
		sms:        sms,
		limiter:    limiter,
		recipients: recipients,
		logger:     logger,
	}
}

// NotifyMissingBaseline sends one summary message listing the flagged
// players, grouped by team. No-op when there is nothing to report or no one
// to tell.
func (a *AlertService) NotifyMissingBaseline(slateDate string, missing []nhl.Entity) {
	if a == nil || a.sms == nil || len(missing) == 0 || len(a.recipients) == 0 {
		return
	}

	message := formatMissingBaselineAlert(slateDate, missing)
	for _, recipient := range a.recipients {
		if a.limiter != nil {
			if err := a.limiter.Allow(recipient); err != nil {
				a.logger.WithField("to", recipient).Warnf("Alert suppressed: %v", err)
				continue
			}
		}
		if err := a.sms.SendMessage(recipient, message); err != nil {
			a.logger.WithField("to", recipient).Errorf("Failed to send alert: %v", err)
		}
	}
}

func formatMissingBaselineAlert(slateDate string, missing []nhl.Entity) string {
	byTeam := make(map[string][]string)
	for _, e := range missing {
		byTeam[e.Team] = append(byTeam[e.Team], e.Name)
	}
	teams := make([]string, 0, len(byTeam))
	for t := range byTeam {
		teams = append(teams, t)
	}
	sort.Strings(teams)

	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d players with no baseline (projections on fallbacks):", slateDate, len(missing))
	for _, t := range teams {
		sort.Strings(byTeam[t])
		fmt.Fprintf(&b, "\n%s: %s", t, strings.Join(byTeam[t], ", "))
	}
	return b.String()
}
