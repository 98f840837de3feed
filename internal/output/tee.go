package output

import (
	"context"
	"errors"
)

// Tee fans each message out to every emitter in order.
type Tee []Emitter

func (t Tee) Emit(ctx context.Context, msg Message) error {
	for _, e := range t {
		if err := e.Emit(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}

func (t Tee) Close() error {
	var errs []error
	for _, e := range t {
		if err := e.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
