package pkg

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"clixen"

	brevo "github.com/getbrevo/brevo-go/lib"
	gomail "github.com/wneessen/go-mail"
)

var providerRegistry = make(map[EmailProvider]IEmailProvider)
var defaultPriority []EmailProvider

const maxRetries = 2

func InitializeEmailProviders() {
	resend := &ResendProvider{}
	resend.init()

	brevoProvider := &BrevoProvider{}
	brevoProvider.init()

	smtp := &SMTPProvider{}
	smtp.init()

	providerRegistry[EMAIL_PROVIDER_RESEND] = resend
	providerRegistry[EMAIL_PROVIDER_BREVO] = brevoProvider
	providerRegistry[EMAIL_PROVIDER_SMTP] = smtp

	defaultPriority = append(defaultPriority, resend.name(), brevoProvider.name(), smtp.name())
}

type EmailMessage struct {
	From    string
	To      []string
	Subject string
	HTML    string
}

type IEmailProvider interface {
	init()
	isInitialized() bool
	send(msg EmailMessage) iCustomEmailError
	name() EmailProvider // Useful for logging/metrics
}

type iCustomEmailError interface {
	error
	Temporary() bool
}

type CustomEmailError struct {
	Msg  string
	Temp bool
}

func (e *CustomEmailError) Error() string   { return e.Msg }
func (e *CustomEmailError) Temporary() bool { return e.Temp }

// SendEmail walks the provider priority list, retrying temporary failures
// per provider before falling through to the next one.
func SendEmail(msg EmailMessage, requestedProviders ...EmailProvider) error {
	if msg.From == "" {
		msg.From = clixen.GetConfig().EmailConfig.From
	}
	if len(requestedProviders) == 0 {
		requestedProviders = defaultPriority
	}

	var errs []string

	for _, providerID := range requestedProviders {
		impl, exists := providerRegistry[providerID]
		if !exists || !impl.isInitialized() {
			errs = append(errs, fmt.Sprintf("provider %v: skipped (not ready)", providerID))
			continue
		}

		var lastErr iCustomEmailError
		for i := 0; i < maxRetries; i++ {
			lastErr = impl.send(msg)

			if lastErr == nil {
				return nil // Success!
			}

			if !lastErr.Temporary() {
				return fmt.Errorf("permanent error from %v: %w", providerID, lastErr)
			}

			if i < maxRetries-1 {
				time.Sleep(time.Duration(i+1) * 100 * time.Millisecond)
			}
		}

		errs = append(errs, fmt.Sprintf("%v after %d attempts: %v", providerID, maxRetries, lastErr))
	}

	return fmt.Errorf("all email providers failed: %s", strings.Join(errs, " | "))
}

type EmailProvider int

const (
	EMAIL_PROVIDER_RESEND EmailProvider = iota
	EMAIL_PROVIDER_BREVO
	EMAIL_PROVIDER_SMTP
	EMAIL_PROVIDER_DEFAULT = EMAIL_PROVIDER_RESEND
)

// ResendProvider posts to the transactional email API the healer also wires
// workflows against: POST /emails with a bearer token and {from,to,subject,html}.
type ResendProvider struct {
	endpoint    string
	apiKey      string
	initialized bool
}

func (r *ResendProvider) init() {
	cfg := clixen.GetConfig().EmailConfig
	r.endpoint = cfg.APIURL
	r.apiKey = cfg.APIKey
	r.initialized = r.endpoint != "" && r.apiKey != ""
}
func (r *ResendProvider) isInitialized() bool { return r.initialized }

func (r *ResendProvider) send(msg EmailMessage) iCustomEmailError {
	payload, err := json.Marshal(map[string]any{
		"from":    msg.From,
		"to":      msg.To,
		"subject": msg.Subject,
		"html":    msg.HTML,
	})
	if err != nil {
		return &CustomEmailError{Msg: err.Error(), Temp: false}
	}

	req, err := http.NewRequest(http.MethodPost, r.endpoint, bytes.NewBuffer(payload))
	if err != nil {
		return &CustomEmailError{Msg: err.Error(), Temp: false}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+r.apiKey)

	client := &http.Client{Timeout: 15 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return &CustomEmailError{Msg: err.Error(), Temp: true}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(resp.Body)
	return &CustomEmailError{
		Msg:  fmt.Sprintf("email API returned HTTP %d: %s", resp.StatusCode, string(body)),
		Temp: resp.StatusCode >= 500,
	}
}
func (r *ResendProvider) name() EmailProvider { return EMAIL_PROVIDER_RESEND }

type BrevoProvider struct {
	client      *brevo.APIClient
	initialized bool
}

func (b *BrevoProvider) init() {
	apiKey := clixen.GetEnv("BREVO_API_KEY", "")
	if apiKey == "" {
		return
	}
	cfg := brevo.NewConfiguration()
	cfg.AddDefaultHeader("api-key", apiKey)
	b.client = brevo.NewAPIClient(cfg)
	b.initialized = true
}
func (b *BrevoProvider) isInitialized() bool { return b.initialized }

func (b *BrevoProvider) send(msg EmailMessage) iCustomEmailError {
	to := make([]brevo.SendSmtpEmailTo, 0, len(msg.To))
	for _, addr := range msg.To {
		to = append(to, brevo.SendSmtpEmailTo{Email: addr})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	_, resp, err := b.client.TransactionalEmailsApi.SendTransacEmail(ctx, brevo.SendSmtpEmail{
		Sender:      &brevo.SendSmtpEmailSender{Email: msg.From},
		To:          to,
		Subject:     msg.Subject,
		HtmlContent: msg.HTML,
	})
	if err != nil {
		temp := resp != nil && resp.StatusCode >= 500
		return &CustomEmailError{Msg: err.Error(), Temp: temp}
	}
	return nil
}
func (b *BrevoProvider) name() EmailProvider { return EMAIL_PROVIDER_BREVO }

type SMTPProvider struct {
	initialized bool
}

func (s *SMTPProvider) init() {
	cfg := clixen.GetConfig().EmailConfig
	s.initialized = cfg.SMTPHost != "" && cfg.SMTPUser != ""
}
func (s *SMTPProvider) isInitialized() bool { return s.initialized }

func (s *SMTPProvider) send(msg EmailMessage) iCustomEmailError {
	cfg := clixen.GetConfig().EmailConfig

	m := gomail.NewMsg()
	if err := m.From(msg.From); err != nil {
		return &CustomEmailError{Msg: fmt.Sprintf("failed to set from: %v", err), Temp: false}
	}
	if err := m.To(msg.To...); err != nil {
		return &CustomEmailError{Msg: fmt.Sprintf("failed to set to: %v", err), Temp: false}
	}
	m.Subject(msg.Subject)
	m.SetBodyString(gomail.TypeTextHTML, msg.HTML)

	tlsPolicy := gomail.TLSOpportunistic
	if cfg.UseTLS {
		tlsPolicy = gomail.TLSMandatory
	}

	opts := []gomail.Option{
		gomail.WithPort(cfg.SMTPPort),
		gomail.WithTLSPolicy(tlsPolicy),
	}
	if cfg.SMTPPass != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.SMTPUser),
			gomail.WithPassword(cfg.SMTPPass),
		)
	}

	client, err := gomail.NewClient(cfg.SMTPHost, opts...)
	if err != nil {
		return &CustomEmailError{Msg: fmt.Sprintf("smtp client: %v", err), Temp: false}
	}
	if err := client.DialAndSend(m); err != nil {
		return &CustomEmailError{Msg: fmt.Sprintf("smtp send: %v", err), Temp: true}
	}
	return nil
}
func (s *SMTPProvider) name() EmailProvider { return EMAIL_PROVIDER_SMTP }
