package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/01moynul/modelshop/internal/logging"
	"github.com/segmentio/kafka-go"
)

// ErrProducerClosed is returned by Publish after Close.
var ErrProducerClosed = errors.New("events: producer closed")

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer queues envelopes and writes them from one goroutine, so a slow
// broker never blocks a request beyond the queue capacity.
type Producer struct {
	w        messageWriter
	producer string
	log      *logging.Logger
	inbox    chan kafka.Message
	closeCh  chan struct{}
	closed   chan struct{}
	stop     sync.Once
}

// NewProducer writes to the topic chosen per message. Partitioning hashes
// the key so all events of one order stay ordered.
func NewProducer(brokers []string, producer string, buf int, log *logging.Logger) *Producer {
	return newProducer(&kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}, producer, buf, log)
}

func newProducer(w messageWriter, producer string, buf int, log *logging.Logger) *Producer {
	if buf <= 0 {
		buf = 256
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Producer{
		w:        w,
		producer: producer,
		log:      log,
		inbox:    make(chan kafka.Message, buf),
		closeCh:  make(chan struct{}),
		closed:   make(chan struct{}),
	}
}

// Run drains the queue until ctx is done or Close is called, then flushes
// what is left and closes the writer.
func (p *Producer) Run(ctx context.Context) error {
	defer close(p.closed)
	for {
		select {
		case <-ctx.Done():
			p.flush()
			return p.w.Close()
		case <-p.closeCh:
			p.flush()
			return p.w.Close()
		case m := <-p.inbox:
			p.write(m)
		}
	}
}

func (p *Producer) flush() {
	for {
		select {
		case m := <-p.inbox:
			p.write(m)
		default:
			return
		}
	}
}

func (p *Producer) write(m kafka.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := p.w.WriteMessages(ctx, m); err != nil {
		p.log.Error(logging.Fields{OrderID: string(m.Key), Step: "publish", Message: m.Topic}, err)
	}
}

// Publish wraps payload in an envelope and queues it.
func (p *Producer) Publish(ctx context.Context, eventType, key string, payload any) error {
	env, err := NewEnvelope(p.producer, eventType, key, payload)
	if err != nil {
		return err
	}
	value, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	msg := kafka.Message{
		Topic: TopicFor(eventType),
		Key:   []byte(key),
		Value: value,
		Time:  env.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(eventType)},
		},
	}
	select {
	case <-p.closeCh:
		return ErrProducerClosed
	default:
	}
	select {
	case p.inbox <- msg:
		return nil
	case <-p.closeCh:
		return ErrProducerClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops Run and waits for the flush. It is safe to call more than once
// and from several goroutines.
func (p *Producer) Close() {
	p.stop.Do(func() { close(p.closeCh) })
	<-p.closed
}
