package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// NtfySink posts the message as the plain-text body to an ntfy topic URL.
type NtfySink struct {
	client *resty.Client
}

func NewNtfySink(timeout time.Duration) *NtfySink {
	client := resty.New()
	client.SetHeader("content-type", "text/plain; charset=utf-8")
	client.SetTimeout(timeout)
	return &NtfySink{client: client}
}

func (s *NtfySink) Send(ctx context.Context, topicURL, message string) error {
	res, err := s.client.R().
		SetContext(ctx).
		SetBody([]byte(message)).
		Post(topicURL)
	if err != nil {
		return fmt.Errorf("ntfy: post: %w", err)
	}
	if res.IsError() {
		return fmt.Errorf("ntfy: post: unexpected status %s", res.Status())
	}
	return nil
}
