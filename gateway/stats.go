package gateway

import "sync/atomic"

// Stats is the gateway's counter pack.
type Stats struct {
	ConnectionsAccepted atomic.Uint64
	ConnectionsActive   atomic.Int64
	MessagesReceived    atomic.Uint64
	MessagesPublished   atomic.Uint64
	BytesReceived       atomic.Uint64
	ProtocolErrors      atomic.Uint64
	ValidationErrors    atomic.Uint64
}

// StatsSnapshot is a point-in-time copy of the gateway counters.
type StatsSnapshot struct {
	ConnectionsAccepted uint64 `json:"connections_accepted"`
	ConnectionsActive   int64  `json:"connections_active"`
	MessagesReceived    uint64 `json:"messages_received"`
	MessagesPublished   uint64 `json:"messages_published"`
	BytesReceived       uint64 `json:"bytes_received"`
	ProtocolErrors      uint64 `json:"protocol_errors"`
	ValidationErrors    uint64 `json:"validation_errors"`
}

func (s *Stats) snapshot() StatsSnapshot {
	return StatsSnapshot{
		ConnectionsAccepted: s.ConnectionsAccepted.Load(),
		ConnectionsActive:   s.ConnectionsActive.Load(),
		MessagesReceived:    s.MessagesReceived.Load(),
		MessagesPublished:   s.MessagesPublished.Load(),
		BytesReceived:       s.BytesReceived.Load(),
		ProtocolErrors:      s.ProtocolErrors.Load(),
		ValidationErrors:    s.ValidationErrors.Load(),
	}
}
