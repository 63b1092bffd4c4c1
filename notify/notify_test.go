package notify

import (
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPushAndDrain(t *testing.T) {
	n := New()
	n.Push("a", Notification{Color: Red, Title: "Error", Message: "x"})
	n.Push("b", Notification{Color: Yellow, Title: "Invalid", Message: "y"})

	got := n.Drain("a")
	require.Len(t, got, 1)
	assert.Equal(t, Red, got[0].Color)
	assert.Empty(t, n.Drain("a"))
	assert.Len(t, n.Drain("b"), 1)
}

func TestQueueIsBounded(t *testing.T) {
	n := New()
	for i := 0; i < maxQueued+5; i++ {
		n.Push("a", Notification{Title: fmt.Sprint(i)})
	}
	got := n.Drain("a")
	require.Len(t, got, maxQueued)
	assert.Equal(t, "5", got[0].Title)
}

func TestFlushWritesTrigger(t *testing.T) {
	n := New()
	rec := httptest.NewRecorder()
	require.NoError(t, n.Flush(rec, "a"))
	assert.Empty(t, rec.Header().Get("HX-Trigger"))

	n.Push("a", Notification{Color: Red, Title: "Error", Message: "Something went wrong while capturing the image"})
	require.NoError(t, n.Flush(rec, "a"))

	var decoded map[string][]Notification
	require.NoError(t, json.Unmarshal([]byte(rec.Header().Get("HX-Trigger")), &decoded))
	require.Len(t, decoded[TriggerEvent], 1)
	assert.Equal(t, "Something went wrong while capturing the image", decoded[TriggerEvent][0].Message)
	assert.Empty(t, n.Drain("a"))
}
