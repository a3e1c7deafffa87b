package domain

import "context"

// SMSSender delivers a short text message to a phone number (infrastructure port).
type SMSSender interface {
	Send(ctx context.Context, phone, message string) error
}
