package events

import (
	platformevents "prospector_backend/platform/events"
	"prospector_backend/platform/logger"
)

// InMemoryBus is the process-local bus shared by the API server and the worker.
type InMemoryBus = platformevents.InMemoryBus

// Publisher and Subscriber let modules depend on only the half of the bus they use.
type (
	Publisher  = platformevents.Publisher
	Subscriber = platformevents.Subscriber
)

func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return platformevents.NewInMemoryBus(log)
}
