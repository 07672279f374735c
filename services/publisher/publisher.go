package publisher

// Publisher announces finished snapshots to downstream consumers
type Publisher interface {
	// Publish appends a message under key to one of the snapshot streams
	Publish(key string, message []byte) error

	// TrimStreams trims all streams to the configured maximum length
	TrimStreams() error

	// Close closes the publisher connection
	Close() error
}
