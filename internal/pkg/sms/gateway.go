package sms

import (
	"context"
	"errors"
	"fmt"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

var (
	ErrNotConfigured = errors.New("sms gateway not configured")
	ErrNotVerified   = errors.New("number is not verified for this trial account")
)

// Gateway 短信服务商
type Gateway interface {
	ListVerifiedNumbers(ctx context.Context) (map[string]struct{}, error)
	Send(ctx context.Context, body, from, to string) (string, error)
}

// TwilioGateway 调用 Twilio REST API
type TwilioGateway struct {
	client *twilio.RestClient
}

func NewTwilioGateway(accountSID, authToken string) *TwilioGateway {
	return &TwilioGateway{
		client: twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: accountSID,
			Password: authToken,
		}),
	}
}

// ListVerifiedNumbers 试用账号可以发送的已验证号码
func (g *TwilioGateway) ListVerifiedNumbers(_ context.Context) (map[string]struct{}, error) {
	params := &twilioApi.ListOutgoingCallerIdParams{}
	params.SetPageSize(100)

	callerIDs, err := g.client.Api.ListOutgoingCallerId(params)
	if err != nil {
		return nil, fmt.Errorf("failed to list verified numbers: %w", err)
	}

	numbers := make(map[string]struct{}, len(callerIDs))
	for _, c := range callerIDs {
		if c.PhoneNumber != nil {
			numbers[*c.PhoneNumber] = struct{}{}
		}
	}
	return numbers, nil
}

func (g *TwilioGateway) Send(_ context.Context, body, from, to string) (string, error) {
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(from)
	params.SetBody(body)

	resp, err := g.client.Api.CreateMessage(params)
	if err != nil {
		return "", fmt.Errorf("failed to send sms: %w", err)
	}
	if resp.Sid == nil {
		return "", nil
	}
	return *resp.Sid, nil
}
