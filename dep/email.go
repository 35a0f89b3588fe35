package dep

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/cenkalti/backoff/v4"
	brevo "github.com/getbrevo/brevo-go/lib"

	"outreach/config"
)

var (
	sendEmailUrl = "https://api.brevo.com/v3/smtp/email"
)

const (
	maxSendRetries = 3
)

type brevoResp struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

type Sender struct {
	Email string
	Name  string
}

type Receiver struct {
	Email string
	Name  string
}

// SendSmtpEmail tags the outgoing mail with campaign and step so the
// provider's webhooks can be traced back to the step that produced them.
type SendSmtpEmail struct {
	CampaignID  uint64
	StepIndex   uint32
	From        *Sender
	To          *Receiver
	Subject     string
	HtmlContent string
}

type EmailService interface {
	SendEmail(ctx context.Context, sendSmtpEmail *SendSmtpEmail) error
	Close(ctx context.Context) error
}

type emailService struct {
	apiKey      string
	senderEmail string
	senderName  string
}

func NewEmailService(_ context.Context, cfg config.Brevo) (EmailService, error) {
	return &emailService{
		apiKey:      cfg.APIKey,
		senderEmail: cfg.SenderEmail,
		senderName:  cfg.SenderName,
	}, nil
}

// SendEmail retries transient failures with exponential backoff, bounded by
// the caller's context. The scheduler treats any returned error as
// "not sent": the step stays due and is retried on the next pass.
func (s *emailService) SendEmail(ctx context.Context, sendSmtpEmail *SendSmtpEmail) error {
	from := sendSmtpEmail.From
	if from == nil {
		from = &Sender{
			Email: s.senderEmail,
			Name:  s.senderName,
		}
	}

	body := brevo.SendSmtpEmail{
		Sender: &brevo.SendSmtpEmailSender{
			Email: from.Email,
			Name:  from.Name,
		},
		ReplyTo: &brevo.SendSmtpEmailReplyTo{
			Email: from.Email,
		},
		To: []brevo.SendSmtpEmailTo{{
			Email: sendSmtpEmail.To.Email,
			Name:  sendSmtpEmail.To.Name,
		}},
		Subject:     sendSmtpEmail.Subject,
		HtmlContent: sendSmtpEmail.HtmlContent,
		Tags: []string{
			fmt.Sprintf("campaign:%d", sendSmtpEmail.CampaignID),
			fmt.Sprintf("step:%d", sendSmtpEmail.StepIndex),
		},
	}

	return backoff.Retry(func() error {
		return s.postHttpRequest(ctx, sendEmailUrl, body)
	}, backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxSendRetries), ctx,
	))
}

func (s *emailService) Close(_ context.Context) error {
	return nil
}

func (s *emailService) postHttpRequest(ctx context.Context, url string, body interface{}) error {
	js, err := json.Marshal(body)
	if err != nil {
		return backoff.Permanent(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(js))
	if err != nil {
		return backoff.Permanent(err)
	}

	req.Header.Add("accept", "application/json")
	req.Header.Add("content-type", "application/json")
	req.Header.Add("api-key", s.apiKey)

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}

	defer func() {
		_ = res.Body.Close()
	}()

	b, err := io.ReadAll(res.Body)
	if err != nil {
		return err
	}

	if len(b) > 0 {
		brevoResp := new(brevoResp)
		if err := json.Unmarshal(b, brevoResp); err != nil {
			return err
		}
		if brevoResp.Message != "" {
			err := fmt.Errorf("encounter brevo error: %s, code: %s", brevoResp.Message, brevoResp.Code)
			if res.StatusCode >= 400 && res.StatusCode < 500 {
				return backoff.Permanent(err)
			}
			return err
		}
	}

	return nil
}
