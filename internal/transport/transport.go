package transport

import (
	"context"

	"mine-safety-bridge/internal/types"
)

// Transport is one channel capable of attempting delivery of an emergency
// record. Send either confirms the message left the device via that
// channel or returns an error; there are no partial results. The
// orchestrator walks an ordered list of transports, so adding a channel
// is a data change, not a control-flow change.
type Transport interface {
	// Name returns the unique name of this transport
	Name() string

	// Method is the delivery method reported when this transport succeeds
	Method() types.DeliveryMethod

	// Send attempts delivery of the record via this channel
	Send(ctx context.Context, record *types.EmergencyRecord) error
}
