package mq

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEvent(t *testing.T) {
	at := time.Date(2024, 7, 22, 10, 0, 0, 0, time.UTC)
	body, err := json.Marshal(Event{Event: EventJobSubmitted, ComplaintID: "c1", JobID: "j1", Status: "Attended", OccurredAt: at})
	require.NoError(t, err)
	assert.NotContains(t, string(body), "successorId")

	ev, err := DecodeEvent(body)
	require.NoError(t, err)
	assert.Equal(t, EventJobSubmitted, ev.Event)
	assert.Equal(t, "j1", ev.JobID)
	assert.True(t, at.Equal(ev.OccurredAt))
}

func TestDecodeEvent_Rejects(t *testing.T) {
	_, err := DecodeEvent([]byte("{"))
	assert.Error(t, err)
	_, err = DecodeEvent([]byte(`{"complaintId":"c1"}`))
	assert.Error(t, err)
}
