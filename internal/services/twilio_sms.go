package services

import (
	"fmt"
	"regexp"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// TwilioSMSService implements SMSService using the Twilio API. Calls run
// behind a circuit breaker so a Twilio outage cannot stall a pipeline run.
type TwilioSMSService struct {
	client     *twilio.RestClient
	fromNumber string
	breaker    *gobreaker.CircuitBreaker
	logger     *logrus.Logger
}

// NewTwilioSMSService creates a Twilio-backed SMS sender.
func NewTwilioSMSService(accountSID, authToken, fromNumber string, logger *logrus.Logger) *TwilioSMSService {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})

	settings := gobreaker.Settings{
		Name:    "twilio",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"component": "circuit_breaker",
				"service":   name,
				"from":      from.String(),
				"to":        to.String(),
			}).Info("Circuit breaker state changed")
		},
	}

	return &TwilioSMSService{
		client:     client,
		fromNumber: fromNumber,
		breaker:    gobreaker.NewCircuitBreaker(settings),
		logger:     logger,
	}
}

// SendMessage sends an SMS message via Twilio.
func (s *TwilioSMSService) SendMessage(phoneNumber, message string) error {
	normalized, err := normalizePhoneNumber(phoneNumber)
	if err != nil {
		return fmt.Errorf("invalid phone number format: %w", err)
	}

	_, err = s.breaker.Execute(func() (interface{}, error) {
		params := &twilioApi.CreateMessageParams{}
		params.SetTo(normalized)
		params.SetFrom(s.fromNumber)
		params.SetBody(message)
		return s.client.Api.CreateMessage(params)
	})
	if err != nil {
		s.logger.WithField("to", normalized).Errorf("Twilio send failed: %v", err)
		return fmt.Errorf("send sms: %w", err)
	}

	s.logger.WithField("to", normalized).Debug("SMS sent")
	return nil
}

var (
	nonDialable = regexp.MustCompile(`[^\d+]`)
	usTenDigit  = regexp.MustCompile(`^\d{10}$`)
	e164        = regexp.MustCompile(`^\+[1-9]\d{1,14}$`)
)

// normalizePhoneNumber coerces a number into E.164, assuming US for bare
// ten-digit numbers.
func normalizePhoneNumber(phone string) (string, error) {
	cleaned := nonDialable.ReplaceAllString(phone, "")
	if len(cleaned) > 0 && cleaned[0] != '+' {
		if !usTenDigit.MatchString(cleaned) {
			return "", fmt.Errorf("number %q has no country code", phone)
		}
		cleaned = "+1" + cleaned
	}
	if !e164.MatchString(cleaned) {
		return "", fmt.Errorf("number %q is not E.164", phone)
	}
	return cleaned, nil
}
