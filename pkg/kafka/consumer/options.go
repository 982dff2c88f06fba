package consumer

import "time"

type Option func(*Consumer)

func ConnAttempts(attempts int) Option {
	return func(c *Consumer) {
		c.connAttempts = attempts
	}
}

func ConnTimeout(timeout time.Duration) Option {
	return func(c *Consumer) {
		c.connTimeout = timeout
	}
}

// OnRetry is called after every failed broker ping.
func OnRetry(f func(attemptsLeft int, err error)) Option {
	return func(c *Consumer) {
		c.onRetry = f
	}
}
