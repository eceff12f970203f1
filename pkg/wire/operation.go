package wire

// Operation is a bridge request operation.
type Operation uint8

const (
	// OpOpen asks the bridge to link to its upstream FSUIPC server.
	// The response carries the server's pointer size.
	OpOpen Operation = 1

	// OpProcess carries a request area to be processed upstream.
	OpProcess Operation = 2

	// OpClose ends the session. The bridge keeps its upstream link.
	OpClose Operation = 3

	// OpPing checks liveness. No area is exchanged.
	OpPing Operation = 4
)

// String returns the operation name.
func (o Operation) String() string {
	switch o {
	case OpOpen:
		return "Open"
	case OpProcess:
		return "Process"
	case OpClose:
		return "Close"
	case OpPing:
		return "Ping"
	default:
		return "Unknown"
	}
}

// IsValid returns true if the operation is a valid bridge operation.
func (o Operation) IsValid() bool {
	return o >= OpOpen && o <= OpPing
}
