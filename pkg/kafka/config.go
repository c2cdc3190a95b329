package kafka

import "time"

// ProducerConfig collects everything the writer needs. Zero values defer
// to kafka-go's own defaults.
type ProducerConfig struct {
	Brokers      []string
	RequiredAcks int
	Compression  string
	MaxAttempts  int
	WriteTimeout time.Duration
	ReadTimeout  time.Duration
	BatchSize    int
	BatchBytes   int
	BatchTimeout time.Duration
	Async        bool
	HashByKey    bool
}

// ProducerOption mutates the config before the writer is built.
type ProducerOption func(*ProducerConfig)

// WithBrokers sets the bootstrap broker list.
func WithBrokers(brokers []string) ProducerOption {
	return func(c *ProducerConfig) { c.Brokers = brokers }
}

// WithRequiredAcks sets the ack level (-1 waits for all replicas).
func WithRequiredAcks(acks int) ProducerOption {
	return func(c *ProducerConfig) { c.RequiredAcks = acks }
}

// WithCompression selects the batch compression codec by name.
func WithCompression(codec string) ProducerOption {
	return func(c *ProducerConfig) { c.Compression = codec }
}

// WithMaxAttempts bounds per-message write retries.
func WithMaxAttempts(n int) ProducerOption {
	return func(c *ProducerConfig) { c.MaxAttempts = n }
}

// WithBatchSize caps messages per batch.
func WithBatchSize(size int) ProducerOption {
	return func(c *ProducerConfig) { c.BatchSize = size }
}

// WithBatchBytes caps the aggregate byte size of a batch.
func WithBatchBytes(n int) ProducerOption {
	return func(c *ProducerConfig) { c.BatchBytes = n }
}

// WithBatchTimeout sets how long an incomplete batch may linger.
func WithBatchTimeout(d time.Duration) ProducerOption {
	return func(c *ProducerConfig) { c.BatchTimeout = d }
}

// WithTimeouts sets the writer's write and read deadlines; zero keeps the
// library default.
func WithTimeouts(write, read time.Duration) ProducerOption {
	return func(c *ProducerConfig) {
		c.WriteTimeout = write
		c.ReadTimeout = read
	}
}

// WithAsync switches to fire-and-forget writes.
func WithAsync(async bool) ProducerOption {
	return func(c *ProducerConfig) { c.Async = async }
}

// WithHashByKey routes messages with the same key (symbol) to the same
// partition, preserving per-symbol ordering.
func WithHashByKey(hash bool) ProducerOption {
	return func(c *ProducerConfig) { c.HashByKey = hash }
}
