// Package stream fans dashboard change events out to connected browsers
// over Server-Sent Events.
package stream

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-logr/logr"
)

const (
	keepAliveInterval = 30 * time.Second
	subscriberBuffer  = 16
)

// Broker holds the live subscriber set. Publish never blocks: a subscriber
// whose buffer is full misses the message rather than stalling the sender.
type Broker struct {
	mu   sync.Mutex
	subs map[chan []byte]struct{}
	log  logr.Logger
}

// NewBroker creates an empty broker.
func NewBroker(log logr.Logger) *Broker {
	return &Broker{
		subs: make(map[chan []byte]struct{}),
		log:  log.WithName("sse-broker"),
	}
}

// Publish sends a typed event to every subscriber.
func (b *Broker) Publish(eventType string, data map[string]interface{}) {
	msg := map[string]interface{}{"type": eventType}
	for k, v := range data {
		msg[k] = v
	}
	encoded, err := json.Marshal(msg)
	if err != nil {
		b.log.Error(err, "failed to encode stream event", "type", eventType)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- encoded:
		default:
		}
	}
}

// SubscriberCount reports how many clients are connected.
func (b *Broker) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

func (b *Broker) subscribe() chan []byte {
	ch := make(chan []byte, subscriberBuffer)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *Broker) unsubscribe(ch chan []byte) {
	b.mu.Lock()
	delete(b.subs, ch)
	b.mu.Unlock()
}

// ServeHTTP implements the SSE endpoint: a hello event on connect, data
// frames per published event, and comment pings to keep proxies from
// closing the stream.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	fmt.Fprint(w, "data: {\"type\":\"connected\"}\n\n")
	flusher.Flush()

	ch := b.subscribe()
	defer b.unsubscribe(ch)
	b.log.V(1).Info("stream subscriber connected", "subscribers", b.SubscriberCount())

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			b.log.V(1).Info("stream subscriber disconnected")
			return
		case msg := <-ch:
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		case <-ticker.C:
			fmt.Fprint(w, ": keep-alive\n\n")
			flusher.Flush()
		}
	}
}
