// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

// Package streaming pushes job progress to clients over Server-Sent
// Events and a companion WebSocket feed (spec §6 Streaming row).
package streaming

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ProgressEvent describes one step of a running job.
type ProgressEvent struct {
	JobID            string    `json:"job_id"`
	Status           string    `json:"status"`
	RecordsGenerated int64     `json:"records_generated"`
	TotalRecords     int64     `json:"total_records"`
	PercentComplete  float64   `json:"percent_complete"`
	Message          string    `json:"message,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
}

// Broker fans out progress events to subscribers of a job, keyed by job ID.
type Broker struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan ProgressEvent]struct{}
	bufferSize  int
}

// NewBroker creates a broker that buffers up to bufferSize events per
// subscriber before a slow client starts dropping events.
func NewBroker(bufferSize int) *Broker {
	if bufferSize <= 0 {
		bufferSize = 16
	}
	return &Broker{
		subscribers: make(map[string]map[chan ProgressEvent]struct{}),
		bufferSize:  bufferSize,
	}
}

// Subscribe registers a new listener for jobID. Call the returned function
// to unsubscribe and release the channel.
func (b *Broker) Subscribe(jobID string) (<-chan ProgressEvent, func()) {
	ch := make(chan ProgressEvent, b.bufferSize)

	b.mu.Lock()
	if b.subscribers[jobID] == nil {
		b.subscribers[jobID] = make(map[chan ProgressEvent]struct{})
	}
	b.subscribers[jobID][ch] = struct{}{}
	b.mu.Unlock()

	unsubscribe := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if subs, ok := b.subscribers[jobID]; ok {
			delete(subs, ch)
			if len(subs) == 0 {
				delete(b.subscribers, jobID)
			}
		}
		close(ch)
	}

	return ch, unsubscribe
}

// Publish delivers event to every current subscriber of its job. A
// subscriber whose buffer is full is skipped rather than blocking the
// publisher; progress events are superseded by later ones anyway.
func (b *Broker) Publish(event ProgressEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subscribers[event.JobID] {
		select {
		case ch <- event:
		default:
		}
	}
}

// CloseJob closes every subscriber channel for jobID, signalling completion.
func (b *Broker) CloseJob(jobID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subscribers[jobID] {
		close(ch)
	}
	delete(b.subscribers, jobID)
}

// SSEHandler serves a job's progress as Server-Sent Events.
type SSEHandler struct {
	broker *Broker
	jobID  func(*http.Request) string
}

// NewSSEHandler creates an SSE handler. jobID extracts the job identifier
// from the incoming request (typically a mux route variable).
func NewSSEHandler(broker *Broker, jobID func(*http.Request) string) *SSEHandler {
	return &SSEHandler{broker: broker, jobID: jobID}
}

func (h *SSEHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	jobID := h.jobID(r)
	events, unsubscribe := h.broker.Subscribe(jobID)
	defer unsubscribe()

	writeEvent(w, sseFrame{Event: "connected", Data: map[string]string{"job_id": jobID}})
	flusher.Flush()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case event, open := <-events:
			if !open {
				writeEvent(w, sseFrame{Event: "closed", Data: map[string]string{"job_id": jobID}})
				flusher.Flush()
				return
			}
			writeEvent(w, sseFrame{ID: fmt.Sprintf("%s-%d", jobID, event.Timestamp.UnixNano()), Event: "progress", Data: event})
			flusher.Flush()
		}
	}
}

type sseFrame struct {
	ID    string
	Event string
	Data  interface{}
}

func writeEvent(w http.ResponseWriter, frame sseFrame) {
	if frame.ID != "" {
		fmt.Fprintf(w, "id: %s\n", frame.ID)
	}
	if frame.Event != "" {
		fmt.Fprintf(w, "event: %s\n", frame.Event)
	}
	data, err := json.Marshal(frame.Data)
	if err != nil {
		fmt.Fprintf(w, "data: {\"error\":\"encode failed\"}\n\n")
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
}

// upgrader accepts connections from every origin (CheckOrigin always
// returns true); production deployments should replace CheckOrigin.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// WebSocketHandler serves the same progress feed as SSEHandler over a
// WebSocket connection, for dashboards that prefer a bidirectional socket.
type WebSocketHandler struct {
	broker *Broker
	jobID  func(*http.Request) string
}

// NewWebSocketHandler creates a WebSocket progress handler.
func NewWebSocketHandler(broker *Broker, jobID func(*http.Request) string) *WebSocketHandler {
	return &WebSocketHandler{broker: broker, jobID: jobID}
}

func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	jobID := h.jobID(r)
	events, unsubscribe := h.broker.Subscribe(jobID)
	defer unsubscribe()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	go dropIncomingMessages(conn, cancel)

	for {
		select {
		case <-ctx.Done():
			return
		case event, open := <-events:
			if !open {
				conn.WriteJSON(map[string]string{"event": "closed", "job_id": jobID})
				return
			}
			if err := conn.WriteJSON(event); err != nil {
				return
			}
		}
	}
}

// dropIncomingMessages discards client-sent frames so the read side stays
// drained and ping/pong control frames keep working; cancel runs once the
// peer closes the connection.
func dropIncomingMessages(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
