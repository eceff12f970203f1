package transport

import (
	"time"
)

// Window transport defaults, as used by the FSUIPC SDK.
const (
	// DefaultSendTimeout bounds one SendMessageTimeout call.
	DefaultSendTimeout = 2000 * time.Millisecond

	// DefaultSendRetries is the number of attempts before giving up.
	DefaultSendRetries = 10

	// DefaultRetryDelay is the pause between attempts.
	DefaultRetryDelay = 100 * time.Millisecond

	// IPCMessageName is the registered window message FSUIPC listens for.
	IPCMessageName = "FsasmLib:IPC"

	// ipcSuccess is the reply FSUIPC gives to a processed area.
	ipcSuccess = 1
)

// DefaultWindowClasses are the window classes searched for the server, in
// order: FSUIPC 4 and later, then FS98/FS2000 era servers and WideClient.
var DefaultWindowClasses = []string{"UIPCMAIN", "FS98MAIN"}

// WindowOptions configures the window message transport.
type WindowOptions struct {
	// Classes are the window classes to look for. Default DefaultWindowClasses.
	Classes []string

	// SendTimeout bounds each message delivery. Default DefaultSendTimeout.
	SendTimeout time.Duration

	// Retries is the number of delivery attempts. Default DefaultSendRetries.
	Retries int

	// RetryDelay is the pause between attempts. Default DefaultRetryDelay.
	RetryDelay time.Duration
}

func (o WindowOptions) withDefaults() WindowOptions {
	if len(o.Classes) == 0 {
		o.Classes = DefaultWindowClasses
	}
	if o.SendTimeout <= 0 {
		o.SendTimeout = DefaultSendTimeout
	}
	if o.Retries <= 0 {
		o.Retries = DefaultSendRetries
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = DefaultRetryDelay
	}
	return o
}
