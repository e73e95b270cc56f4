package dataloader

import "errors"

// ErrBatchPanic is returned to every caller of a window whose batch function panicked.
var ErrBatchPanic = errors.New("dataloader: batch function panicked")
