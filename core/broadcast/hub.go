// Package broadcast fans audio chunks and info events out to connected listeners.
package broadcast

import (
	"errors"
	"fmt"
	"sync"

	"Playa/logger"
)

// ErrTransport marks a listener that could not keep up or went away.
var ErrTransport = errors.New("listener transport error")

type registry int

const (
	streamRegistry registry = iota
	infoRegistry
)

func (r registry) String() string {
	if r == streamRegistry {
		return "stream"
	}
	return "info"
}

// Hub keeps the stream and info listener registries. Each listener has its
// own queue, so a slow listener never holds up the others.
type Hub struct {
	mu     sync.RWMutex
	stream map[string]*Listener
	info   map[string]*Listener
}

// NewHub returns a hub with no listeners.
func NewHub() *Hub {
	return &Hub{
		stream: make(map[string]*Listener),
		info:   make(map[string]*Listener),
	}
}

// RegisterStream adds an audio listener and queues history ahead of any
// live chunk.
func (h *Hub) RegisterStream(l *Listener, history [][]byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.stream[l.id] = l
	for _, chunk := range history {
		if !l.offer(chunk) {
			h.drop(streamRegistry, l)
			return
		}
	}

	logger.Info("stream listener registered",
		logger.String("listener", l.id),
		logger.Int("history", len(history)),
		logger.Int("listeners", len(h.stream)))
}

// RegisterInfo adds an event listener.
func (h *Hub) RegisterInfo(l *Listener) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.info[l.id] = l

	logger.Info("info listener registered",
		logger.String("listener", l.id),
		logger.Int("listeners", len(h.info)))
}

// Unregister removes l from whichever registry holds it. Calling it again is
// harmless.
func (h *Hub) Unregister(l *Listener) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.stream[l.id]; ok {
		delete(h.stream, l.id)
		close(l.send)
		logger.Info("stream listener unregistered", logger.String("listener", l.id))
		return
	}
	if _, ok := h.info[l.id]; ok {
		delete(h.info, l.id)
		close(l.send)
		logger.Info("info listener unregistered", logger.String("listener", l.id))
	}
}

// drop removes a stalled listener. Callers hold the write lock.
func (h *Hub) drop(r registry, l *Listener) {
	listeners := h.stream
	if r == infoRegistry {
		listeners = h.info
	}
	if _, ok := listeners[l.id]; !ok {
		return
	}
	delete(listeners, l.id)
	close(l.send)

	logger.Warn("listener dropped",
		logger.String("registry", r.String()),
		logger.String("listener", l.id),
		logger.ErrorField(fmt.Errorf("%w: send queue full", ErrTransport)))
}

// Push delivers an audio chunk to every stream listener.
func (h *Hub) Push(chunk []byte) {
	h.fanOut(streamRegistry, chunk)
}

// Announce delivers an event to every info listener.
func (h *Hub) Announce(ev Event) {
	msg, err := ev.Encode()
	if err != nil {
		logger.Error("failed to encode event", logger.String("event", string(ev.Kind)), logger.ErrorField(err))
		return
	}
	h.fanOut(infoRegistry, msg)
}

func (h *Hub) fanOut(r registry, msg []byte) {
	var stalled []*Listener

	h.mu.RLock()
	listeners := h.stream
	if r == infoRegistry {
		listeners = h.info
	}
	for _, l := range listeners {
		if !l.offer(msg) {
			stalled = append(stalled, l)
		}
	}
	h.mu.RUnlock()

	if len(stalled) == 0 {
		return
	}

	h.mu.Lock()
	for _, l := range stalled {
		h.drop(r, l)
	}
	h.mu.Unlock()
}

// Send delivers ev to a single info listener.
func (h *Hub) Send(l *Listener, ev Event) error {
	msg, err := ev.Encode()
	if err != nil {
		return fmt.Errorf("encode %s: %w", ev.Kind, err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.info[l.id]; !ok {
		return fmt.Errorf("%w: listener %s not registered", ErrTransport, l.id)
	}
	if !l.offer(msg) {
		h.drop(infoRegistry, l)
		return fmt.Errorf("%w: send queue full", ErrTransport)
	}
	return nil
}

func (h *Hub) StreamCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.stream)
}

func (h *Hub) InfoCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.info)
}

// Close drops every listener.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, l := range h.stream {
		close(l.send)
		delete(h.stream, id)
	}
	for id, l := range h.info {
		close(l.send)
		delete(h.info, id)
	}
}
