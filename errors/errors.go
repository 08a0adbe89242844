package errors

import "fmt"

var (
	ErrWorkerPanic       = fmt.Errorf("worker panic")
	ErrTransport         = fmt.Errorf("transport error")
	ErrDisconnected      = fmt.Errorf("connection disconnected")
	ErrAlreadyRegistered = fmt.Errorf("connection already registered")
	ErrInvalidTarget     = fmt.Errorf("invalid notification target")
	ErrQueueFull         = fmt.Errorf("notification queue full")
	ErrEncode            = fmt.Errorf("message encoding failed")
)
