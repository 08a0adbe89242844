//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"approval-notify/domain"
	"approval-notify/domain/event"
	"context"
	"reflect"
	"time"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// Connection is one live bidirectional text channel handed over by the transport.
// Implementations must be usable as map keys (pointer receivers).
type Connection interface {
	ID() string
	Accept(ctx context.Context) error
	SendText(ctx context.Context, data []byte) error
	ReceiveText(ctx context.Context) (string, error)
	Close() error
}

type IRegistry interface {
	Connect(ctx context.Context, conn Connection, identity domain.Identity, role domain.Role) bool
	Disconnect(conn Connection) bool
	ConnectionsOf(identity domain.Identity) []Connection
	ConnectionsWithRole(role domain.Role) []Connection
	Connections() []Connection
	Settle(delivered int, failed []Connection)
	Touch(conns []Connection, at time.Time)
	Metadata(conn Connection) (domain.ConnectionMetadata, bool)
	Stats() domain.Stats
}

type IPublisher interface {
	SendToConnection(ctx context.Context, msg event.Message, conn Connection) error
	SendToIdentity(ctx context.Context, msg event.Message, identity domain.Identity) error
	SendToRole(ctx context.Context, msg event.Message, role domain.Role) error
	Broadcast(ctx context.Context, msg event.Message) error
	Publish(ctx context.Context, notification event.Notification) error
}

// INotifier accepts notifications for asynchronous delivery.
type INotifier interface {
	Dispatch(notification event.Notification) error
}
