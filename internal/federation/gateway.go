package federation

import (
	"context"
	"fmt"

	"github.com/example/exam-scheduler/internal/persistence"
)

// Gateway adapts Client to the booking flow. The booking service hands over
// the full reservation record; the gateway extracts the federation fields.
type Gateway struct {
	client *Client
}

// NewGateway wraps a federation client for use by the booking service.
func NewGateway(client *Client) *Gateway {
	return &Gateway{client: client}
}

// Cancel asks the owning host to release the reservation. Reservations
// without federation fields have no remote copy and cancel trivially.
func (g *Gateway) Cancel(ctx context.Context, reservation persistence.Reservation) error {
	if reservation.ExternalHost == nil || reservation.ExternalID == nil {
		return nil
	}
	if g.client == nil {
		return fmt.Errorf("federation: no client configured for reservation %s", reservation.ID)
	}
	return g.client.Cancel(ctx, *reservation.ExternalHost, *reservation.ExternalID)
}
