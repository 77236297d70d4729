package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/ricirt/pulse/internal/broadcast"
	"github.com/ricirt/pulse/internal/provider"
)

// ForwardWorker is a hub subscriber like any connected client: it receives
// every published result and hands it to an external forwarder.
// Delivery is best-effort; failures are logged and the result is dropped.
type ForwardWorker struct {
	hub    *broadcast.Hub
	fwd    provider.Forwarder
	logger *zap.Logger
}

func NewForwardWorker(hub *broadcast.Hub, fwd provider.Forwarder, logger *zap.Logger) *ForwardWorker {
	return &ForwardWorker{hub: hub, fwd: fwd, logger: logger}
}

// Run forwards results until ctx is cancelled or the hub shuts down.
func (fw *ForwardWorker) Run(ctx context.Context) {
	sub := fw.hub.Subscribe()
	defer sub.Close()

	fw.logger.Info("result forwarder started", zap.String("subscriber_id", sub.ID))

	for {
		select {
		case <-ctx.Done():
			fw.logger.Info("result forwarder stopping")
			return
		case res, ok := <-sub.C():
			if !ok {
				fw.logger.Info("result forwarder stopping: hub closed")
				return
			}
			if err := fw.fwd.Send(ctx, res); err != nil {
				fw.logger.Warn("could not forward result",
					zap.String("request_id", res.RequestID), zap.Error(err))
			}
		}
	}
}
