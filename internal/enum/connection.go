package enum

type ConnectionState string

const (
	ConnectionDisconnected ConnectionState = "disconnected"
	ConnectionConnecting   ConnectionState = "connecting"
	ConnectionReady        ConnectionState = "ready"
	ConnectionIdling       ConnectionState = "idling"
	ConnectionSyncing      ConnectionState = "syncing"
	ConnectionFailed       ConnectionState = "failed"
)

func (s ConnectionState) String() string {
	return string(s)
}

// IsConnected reports whether the session is authenticated and usable.
func (s ConnectionState) IsConnected() bool {
	switch s {
	case ConnectionReady, ConnectionIdling, ConnectionSyncing:
		return true
	default:
		return false
	}
}
