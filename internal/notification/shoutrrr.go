package notification

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/nicholas-fedor/shoutrrr"
	"github.com/nicholas-fedor/shoutrrr/pkg/types"

	"github.com/sensordash/alertd/internal/errors"
)

const defaultPushTimeout = 10 * time.Second

// sender is the part of a shoutrrr router the provider uses.
type sender interface {
	Send(message string, params *types.Params) []error
}

type target struct {
	scheme string
	sender sender
}

// ShoutrrrProvider delivers notifications as OS/push messages through
// shoutrrr service URLs (ntfy, gotify, pushover, ...). Each URL gets its own
// router so service specific parameters only go where they are understood.
type ShoutrrrProvider struct {
	name    string
	enabled bool
	urls    []string
	timeout time.Duration
	targets []target
}

// NewShoutrrrProvider creates a provider. Call ValidateConfig before Send.
func NewShoutrrrProvider(name string, enabled bool, urls []string, timeout time.Duration) *ShoutrrrProvider {
	if timeout <= 0 {
		timeout = defaultPushTimeout
	}
	return &ShoutrrrProvider{
		name:    name,
		enabled: enabled,
		urls:    urls,
		timeout: timeout,
	}
}

// Name returns the provider name used in logs and metrics.
func (p *ShoutrrrProvider) Name() string { return p.name }

// ValidateConfig parses every URL and prepares its router.
func (p *ShoutrrrProvider) ValidateConfig() error {
	if !p.enabled {
		return nil
	}
	if len(p.urls) == 0 {
		return errors.Newf("push provider %s has no service URLs", p.name).
			Component("notification").
			Category(errors.CategoryConfiguration).
			Build()
	}

	targets := make([]target, 0, len(p.urls))
	for _, raw := range p.urls {
		parsed, err := url.Parse(raw)
		if err != nil || parsed.Scheme == "" {
			return errors.Newf("invalid push URL for provider %s", p.name).
				Component("notification").
				Category(errors.CategoryConfiguration).
				Context("scheme", schemeOf(raw)).
				Build()
		}
		router, err := shoutrrr.CreateSender(raw)
		if err != nil {
			return errors.Newf("failed to create %s sender: %w", parsed.Scheme, err).
				Component("notification").
				Category(errors.CategoryConfiguration).
				Context("provider", p.name).
				Build()
		}
		targets = append(targets, target{scheme: strings.ToLower(parsed.Scheme), sender: router})
	}
	p.targets = targets
	return nil
}

// Permitted reports whether the provider may deliver at all.
func (p *ShoutrrrProvider) Permitted() bool {
	return p.enabled && len(p.targets) > 0
}

// Send delivers n to every configured URL. The notification id travels as a
// tag so a receiver can replace an earlier message about the same alert, and
// critical notifications are sent with high priority where the service
// supports it.
func (p *ShoutrrrProvider) Send(ctx context.Context, n *Notification) error {
	if !p.Permitted() {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	var errs []error
	for _, t := range p.targets {
		params := paramsFor(t.scheme, n)
		done := make(chan []error, 1)
		go func() { done <- t.sender.Send(n.Message, params) }()

		select {
		case <-ctx.Done():
			errs = append(errs, fmt.Errorf("%s: %w", t.scheme, ctx.Err()))
		case sendErrs := <-done:
			for _, err := range sendErrs {
				if err != nil {
					errs = append(errs, fmt.Errorf("%s: %w", t.scheme, err))
				}
			}
		}
	}

	if len(errs) > 0 {
		return errors.New(errors.Join(errs...)).
			Component("notification").
			Category(errors.CategoryNotification).
			Context("provider", p.name).
			Context("notification_id", n.ID).
			Build()
	}
	return nil
}

func paramsFor(scheme string, n *Notification) *types.Params {
	params := types.Params{}
	if n.Title != "" {
		params.SetTitle(n.Title)
	}
	if scheme == "ntfy" {
		params["tags"] = n.ID
		if n.Severity == SeverityCritical {
			params["priority"] = "high"
		}
	}
	return &params
}

// schemeOf extracts the scheme without exposing credentials in errors.
func schemeOf(raw string) string {
	if i := strings.Index(raw, "://"); i > 0 {
		return raw[:i]
	}
	return "unknown"
}
