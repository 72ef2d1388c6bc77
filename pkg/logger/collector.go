package logger

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// Publisher delivers a batch of aggregated entries to a topic.
type Publisher interface {
	PublishMessage(ctx context.Context, topic string, payload interface{}) error
}

type CollectionConfig struct {
	TimeInterval   time.Duration // flush interval
	CountThreshold int           // unique entries held before an early flush
	Topic          string
	Publisher      Publisher
}

type AggregatedLogEntry struct {
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields"`
	Caller    string                 `json:"caller"`
	Count     int                    `json:"count"`
	FirstSeen time.Time              `json:"first_seen"`
	LastSeen  time.Time              `json:"last_seen"`
}

// LogCollector folds identical log lines into one entry with a counter and
// publishes the batch periodically.
type LogCollector struct {
	config  *CollectionConfig
	entries map[string]*AggregatedLogEntry
	mu      sync.Mutex
	flushCh chan []AggregatedLogEntry
	stopCh  chan struct{}
	closed  bool
	wg      sync.WaitGroup
}

func NewLogCollector(config *CollectionConfig) *LogCollector {
	if config.TimeInterval <= 0 {
		config.TimeInterval = 30 * time.Second
	}
	if config.CountThreshold <= 0 {
		config.CountThreshold = 100
	}

	c := &LogCollector{
		config:  config,
		entries: make(map[string]*AggregatedLogEntry),
		flushCh: make(chan []AggregatedLogEntry, 8),
		stopCh:  make(chan struct{}),
	}

	c.wg.Add(2)
	go c.periodicFlush()
	go c.publishLoop()

	return c
}

func (c *LogCollector) AddLog(level, message string, fields map[string]interface{}, caller string) {
	now := time.Now()
	key := entryKey(level, message, fields, caller)

	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.entries[key]; ok {
		entry.Count++
		entry.LastSeen = now
	} else {
		c.entries[key] = &AggregatedLogEntry{
			Level:     level,
			Message:   message,
			Fields:    fields,
			Caller:    caller,
			Count:     1,
			FirstSeen: now,
			LastSeen:  now,
		}
	}

	if len(c.entries) >= c.config.CountThreshold {
		c.drainLocked()
	}
}

func entryKey(level, message string, fields map[string]interface{}, caller string) string {
	data, _ := json.Marshal(struct {
		Level   string                 `json:"level"`
		Message string                 `json:"message"`
		Fields  map[string]interface{} `json:"fields"`
		Caller  string                 `json:"caller"`
	}{level, message, fields, caller})
	return fmt.Sprintf("%x", sha256.Sum256(data))
}

// drainLocked hands the current batch to the publisher goroutine. Caller holds mu.
func (c *LogCollector) drainLocked() {
	if c.closed || len(c.entries) == 0 {
		return
	}
	batch := make([]AggregatedLogEntry, 0, len(c.entries))
	for _, e := range c.entries {
		batch = append(batch, *e)
	}
	c.entries = make(map[string]*AggregatedLogEntry)

	select {
	case c.flushCh <- batch:
	default:
		fmt.Fprintf(os.Stderr, "log collector: dropped batch of %d entries\n", len(batch))
	}
}

func (c *LogCollector) periodicFlush() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.TimeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.mu.Lock()
			c.drainLocked()
			c.mu.Unlock()
		case <-c.stopCh:
			c.mu.Lock()
			c.drainLocked()
			c.closed = true
			c.mu.Unlock()
			close(c.flushCh)
			return
		}
	}
}

func (c *LogCollector) publishLoop() {
	defer c.wg.Done()
	for batch := range c.flushCh {
		if c.config.Publisher == nil {
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := c.config.Publisher.PublishMessage(ctx, c.config.Topic, batch); err != nil {
			fmt.Fprintf(os.Stderr, "log collector: publish failed: %v\n", err)
		}
		cancel()
	}
}

// Close flushes what is pending and waits for the publisher to finish.
func (c *LogCollector) Close() {
	close(c.stopCh)
	c.wg.Wait()
}
