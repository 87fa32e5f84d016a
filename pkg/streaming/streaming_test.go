package streaming

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBrokerPublishDeliversToSubscriber(t *testing.T) {
	b := NewBroker(4)
	events, unsubscribe := b.Subscribe("job-1")
	defer unsubscribe()

	b.Publish(ProgressEvent{JobID: "job-1", Status: "running", PercentComplete: 50})

	select {
	case e := <-events:
		require.Equal(t, "job-1", e.JobID)
		require.Equal(t, 50.0, e.PercentComplete)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestBrokerPublishIgnoresOtherJobs(t *testing.T) {
	b := NewBroker(4)
	events, unsubscribe := b.Subscribe("job-1")
	defer unsubscribe()

	b.Publish(ProgressEvent{JobID: "job-2", Status: "running"})

	select {
	case <-events:
		t.Fatal("should not have received event for a different job")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBrokerCloseJobClosesAllSubscriberChannels(t *testing.T) {
	b := NewBroker(4)
	events, _ := b.Subscribe("job-1")
	b.CloseJob("job-1")

	_, open := <-events
	require.False(t, open)
}

func TestBrokerPublishDropsWhenSubscriberBufferFull(t *testing.T) {
	b := NewBroker(1)
	_, unsubscribe := b.Subscribe("job-1")
	defer unsubscribe()

	b.Publish(ProgressEvent{JobID: "job-1", PercentComplete: 1})
	b.Publish(ProgressEvent{JobID: "job-1", PercentComplete: 2})
}

func TestSSEHandlerStreamsConnectedAndProgressEvents(t *testing.T) {
	b := NewBroker(4)
	handler := NewSSEHandler(b, func(r *http.Request) string { return "job-1" })

	req := httptest.NewRequest(http.MethodGet, "/jobs/job-1/events", nil)
	ctx, cancel := context.WithCancel(req.Context())
	req = req.WithContext(ctx)

	rec := httptest.NewRecorder()
	done := make(chan struct{})
	go func() {
		handler.ServeHTTP(rec, req)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	b.Publish(ProgressEvent{JobID: "job-1", Status: "running", PercentComplete: 10})
	time.Sleep(20 * time.Millisecond)
	cancel()
	<-done

	body := rec.Body.String()
	require.True(t, strings.Contains(body, "event: connected"))
	require.True(t, strings.Contains(body, "event: progress"))

	scanner := bufio.NewScanner(strings.NewReader(body))
	found := false
	for scanner.Scan() {
		if strings.HasPrefix(scanner.Text(), "data:") && strings.Contains(scanner.Text(), "running") {
			found = true
		}
	}
	require.True(t, found)
}
