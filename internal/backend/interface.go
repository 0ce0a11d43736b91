package backend

import (
	"context"
	"time"

	"cobros/internal/amqp"
	"cobros/internal/source"
)

// Backend is the unified data source the services run against.
type Backend interface {
	source.PaymentPager
	source.PaymentLister
	source.SaleLister
	source.PaymentWriter
	Ping(ctx context.Context) error
}

// Publisher announces recorded collections.
type Publisher interface {
	PublishPaymentRecorded(ctx context.Context, msg *amqp.PaymentRecordedMessage) error
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the backend instance, the optional publisher and
// a cleanup function.
type BackendResult struct {
	Backend   Backend
	Publisher Publisher
	Cleanup   CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// Memory backend, also used to seed sqlite
	DataDirectory string

	// SQLite specific
	SQLiteDBPath string

	// REST specific
	APIBaseURL  string
	APIToken    string
	APITimeout  time.Duration
	APIPageSize int

	// AMQP publisher, optional for every backend
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	Location *time.Location
	Now      func() time.Time
}

// BackendType represents the type of backend
type BackendType string

const (
	MemoryBackend BackendType = "memory"
	SQLiteBackend BackendType = "sqlite"
	RESTBackend   BackendType = "rest"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, RESTBackend:
		return true
	default:
		return false
	}
}
