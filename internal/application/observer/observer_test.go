package observer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEventTypeFilter_ShouldNotify(t *testing.T) {
	tests := []struct {
		name         string
		allowedTypes []EventType
		event        Event
		shouldNotify bool
	}{
		{
			name:         "nil filter allows all events",
			allowedTypes: nil,
			event:        Event{Type: EventTypeJobQueued},
			shouldNotify: true,
		},
		{
			name:         "empty filter allows all events",
			allowedTypes: []EventType{},
			event:        Event{Type: EventTypeJobCompleted},
			shouldNotify: true,
		},
		{
			name:         "filter allows job.queued",
			allowedTypes: []EventType{EventTypeJobQueued},
			event:        Event{Type: EventTypeJobQueued},
			shouldNotify: true,
		},
		{
			name:         "filter blocks job.queued",
			allowedTypes: []EventType{EventTypeJobCompleted},
			event:        Event{Type: EventTypeJobQueued},
			shouldNotify: false,
		},
		{
			name: "filter allows multiple event types",
			allowedTypes: []EventType{
				EventTypeJobQueued,
				EventTypeJobCompleted,
				EventTypeJobFailed,
			},
			event:        Event{Type: EventTypeJobCompleted},
			shouldNotify: true,
		},
		{
			name: "filter blocks unlisted event type",
			allowedTypes: []EventType{
				EventTypeJobQueued,
				EventTypeJobCompleted,
			},
			event:        Event{Type: EventTypeJobFailed},
			shouldNotify: false,
		},
		{
			name: "filter allows sheet events only",
			allowedTypes: []EventType{
				EventTypeSheetDispatched,
				EventTypeSheetCompleted,
				EventTypeSheetFailed,
			},
			event:        Event{Type: EventTypeSheetCompleted},
			shouldNotify: true,
		},
		{
			name: "filter blocks job events when only sheet events allowed",
			allowedTypes: []EventType{
				EventTypeSheetDispatched,
				EventTypeSheetCompleted,
			},
			event:        Event{Type: EventTypeJobProcessing},
			shouldNotify: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var filter EventFilter
			if tt.allowedTypes != nil {
				filter = NewEventTypeFilter(tt.allowedTypes...)
			}

			result := filter == nil || filter.ShouldNotify(tt.event)
			assert.Equal(t, tt.shouldNotify, result, "Filter decision mismatch")
		})
	}
}

func TestNewEventTypeFilter_NoTypes(t *testing.T) {
	filter := NewEventTypeFilter()
	assert.Nil(t, filter, "Expected nil filter when no types provided")
}

func TestNewEventTypeFilter_SingleType(t *testing.T) {
	filter := NewEventTypeFilter(EventTypeJobQueued)
	assert.NotNil(t, filter, "Expected non-nil filter")

	typeFilter, ok := filter.(*EventTypeFilter)
	assert.True(t, ok, "Expected EventTypeFilter type")
	assert.Len(t, typeFilter.allowedTypes, 1, "Expected 1 allowed type")
	assert.True(t, typeFilter.allowedTypes[EventTypeJobQueued], "Expected job.queued to be allowed")
}

func TestNewEventTypeFilter_MultipleTypes(t *testing.T) {
	types := []EventType{
		EventTypeJobQueued,
		EventTypeJobCompleted,
		EventTypeSheetDispatched,
		EventTypeSheetCompleted,
	}

	filter := NewEventTypeFilter(types...)
	assert.NotNil(t, filter, "Expected non-nil filter")

	typeFilter, ok := filter.(*EventTypeFilter)
	assert.True(t, ok, "Expected EventTypeFilter type")
	assert.Len(t, typeFilter.allowedTypes, 4, "Expected 4 allowed types")

	for _, eventType := range types {
		assert.True(t, typeFilter.allowedTypes[eventType], "Expected %s to be allowed", eventType)
	}
}

func TestEvent_AllFields(t *testing.T) {
	sheetID := "sheet-123"
	taskCount := 40
	doneCount := 12
	testErr := assert.AnError

	event := Event{
		Type:      EventTypeSheetCompleted,
		JobID:     "job-uuid-123",
		JobKind:   "marking_job",
		Timestamp: time.Now(),
		SheetID:   &sheetID,
		TaskCount: &taskCount,
		DoneCount: &doneCount,
		Status:    "completed",
		Error:     testErr,
		Metadata: map[string]interface{}{
			"custom": "value",
		},
	}

	assert.Equal(t, EventTypeSheetCompleted, event.Type)
	assert.Equal(t, "job-uuid-123", event.JobID)
	assert.Equal(t, "marking_job", event.JobKind)
	assert.NotNil(t, event.Timestamp)
	assert.Equal(t, "sheet-123", *event.SheetID)
	assert.Equal(t, 40, *event.TaskCount)
	assert.Equal(t, 12, *event.DoneCount)
	assert.Equal(t, "completed", event.Status)
	assert.Equal(t, testErr, event.Error)
	assert.NotNil(t, event.Metadata)
}

func TestEventType_Constants(t *testing.T) {
	assert.Equal(t, EventType("job.queued"), EventTypeJobQueued)
	assert.Equal(t, EventType("job.processing"), EventTypeJobProcessing)
	assert.Equal(t, EventType("job.completed"), EventTypeJobCompleted)
	assert.Equal(t, EventType("job.failed"), EventTypeJobFailed)
	assert.Equal(t, EventType("job.cancelled"), EventTypeJobCancelled)
	assert.Equal(t, EventType("sheet.dispatched"), EventTypeSheetDispatched)
	assert.Equal(t, EventType("sheet.completed"), EventTypeSheetCompleted)
	assert.Equal(t, EventType("sheet.failed"), EventTypeSheetFailed)
}

func TestEventTypeFilter_NilSafety(t *testing.T) {
	var filter *EventTypeFilter
	event := Event{Type: EventTypeJobQueued}

	result := filter.ShouldNotify(event)
	assert.True(t, result, "Nil filter should allow all events")
}

func TestEventTypeFilter_ThreadSafety(t *testing.T) {
	filter := NewEventTypeFilter(
		EventTypeJobQueued,
		EventTypeJobCompleted,
		EventTypeSheetCompleted,
	)

	done := make(chan bool, 10)

	for i := 0; i < 10; i++ {
		go func(id int) {
			defer func() { done <- true }()

			for j := 0; j < 100; j++ {
				event := Event{Type: EventTypeJobQueued}
				filter.ShouldNotify(event)
			}
		}(i)
	}

	for i := 0; i < 10; i++ {
		<-done
	}
}
