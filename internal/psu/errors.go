package psu

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrPortNotSelected  = errors.New("port not selected")
	ErrConnectionFailed = errors.New("connection error")
	ErrNotConnected     = errors.New("device not connected")
	ErrIo               = errors.New("device i/o error")
	ErrSessionClosed    = errors.New("session closed")
)

func ioError(err error) error {
	if err == nil || errors.Is(err, ErrIo) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrIo, err)
}

func timeoutError(ctx context.Context) error {
	return fmt.Errorf("%w: %w", ErrIo, ctx.Err())
}
