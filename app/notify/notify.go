// Package notify sends flip notifications to webhooks, slack channels and email.
// Delivery is best effort, each destination is tried in parallel.
package notify

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/go-pkgz/notify"
	"github.com/go-pkgz/syncs"
)

// Params defines destinations and senders setup
type Params struct {
	Webhooks      []string
	SlackToken    string
	SlackChannels []string
	EmailTo       []string
	EmailFrom     string
	SMTP          SMTPParams
	Timeout       time.Duration
	Concurrency   int
}

// SMTPParams defines smtp connection for email notifications
type SMTPParams struct {
	Host     string
	Port     int
	TLS      bool
	Username string
	Password string
}

// Service delivers text messages to all configured destinations
type Service struct {
	destinations []destination
	timeout      time.Duration
	concurrency  int
}

type destination struct {
	notifier notify.Notifier
	address  string
}

// NewService makes notification service, returns nil if no destinations defined
func NewService(p Params) *Service {
	res := &Service{timeout: p.Timeout, concurrency: p.Concurrency}
	if res.timeout <= 0 {
		res.timeout = 10 * time.Second
	}
	if res.concurrency <= 0 {
		res.concurrency = 4
	}

	if len(p.Webhooks) > 0 {
		wh := notify.NewWebhook(notify.WebhookParams{Timeout: res.timeout, Headers: []string{"Content-Type:text/plain"}})
		for _, addr := range p.Webhooks {
			res.destinations = append(res.destinations, destination{notifier: wh, address: addr})
		}
	}

	if p.SlackToken != "" && len(p.SlackChannels) > 0 {
		sl := notify.NewSlack(p.SlackToken)
		for _, ch := range p.SlackChannels {
			res.destinations = append(res.destinations, destination{notifier: sl, address: "slack:" + strings.TrimPrefix(ch, "#")})
		}
	}

	if len(p.EmailTo) > 0 && p.SMTP.Host != "" {
		em := notify.NewEmail(notify.SMTPParams{
			Host:     p.SMTP.Host,
			Port:     p.SMTP.Port,
			TLS:      p.SMTP.TLS,
			Username: p.SMTP.Username,
			Password: p.SMTP.Password,
			TimeOut:  res.timeout,
		})
		res.destinations = append(res.destinations, destination{notifier: em, address: mailto(p.EmailTo, p.EmailFrom, "flipper")})
	}

	if len(res.destinations) == 0 {
		return nil
	}
	log.Printf("[INFO] notifications enabled, %d destinations", len(res.destinations))
	return res
}

// Send text to all destinations. Returns combined error of failed deliveries.
func (s *Service) Send(ctx context.Context, text string) error {
	if s == nil || len(s.destinations) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	errs := make([]error, len(s.destinations))
	wg := syncs.NewErrSizedGroup(s.concurrency)
	for i, d := range s.destinations {
		wg.Go(func() error {
			if err := d.notifier.Send(ctx, d.address, text); err != nil {
				errs[i] = fmt.Errorf("can't send to %s: %w", d.notifier.Schema(), err)
				return errs[i]
			}
			return nil
		})
	}
	_ = wg.Wait() // errors collected per destination
	return errors.Join(errs...)
}

// String lists destination schemas
func (s *Service) String() string {
	if s == nil {
		return "none"
	}
	res := make([]string, 0, len(s.destinations))
	for _, d := range s.destinations {
		res = append(res, d.notifier.Schema())
	}
	return strings.Join(res, ",")
}

// FlipMessage makes notification text for a flip
func FlipMessage(task, lastPerson, current string) string {
	return fmt.Sprintf("%s: %s done, %s is up next", task, lastPerson, current)
}

func mailto(to []string, from, subj string) string {
	q := url.Values{}
	if from != "" {
		q.Set("from", from)
	}
	q.Set("subject", subj)
	return "mailto:" + strings.Join(to, ",") + "?" + q.Encode()
}
