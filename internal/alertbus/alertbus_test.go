package alertbus

import (
	"context"
	"testing"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishMarkFansOutToSubscribers(t *testing.T) {
	b := New("syncprof-test")

	var gotA, gotB cloudevents.Event
	b.Subscribe(func(_ context.Context, ev cloudevents.Event) { gotA = ev })
	b.Subscribe(func(_ context.Context, ev cloudevents.Event) { gotB = ev })

	b.PublishMark("Event(s) aborted", "WARNING", "global", 42, 1)

	require.Equal(t, "io.syncprof.mark", gotA.Type())
	assert.Equal(t, "syncprof-test", gotA.Source())
	assert.Equal(t, gotA.ID(), gotB.ID())

	var data map[string]any
	require.NoError(t, gotA.DataAs(&data))
	assert.Equal(t, "Event(s) aborted", data["name"])
	assert.Equal(t, "WARNING", data["category"])
	assert.Equal(t, float64(42), data["clock"])
	assert.Equal(t, float64(1), data["thread"])
}

func TestPublishMarkWithNoSubscribersDoesNotPanic(t *testing.T) {
	b := New("syncprof-test")
	assert.NotPanics(t, func() {
		b.PublishMark("Event(s) aborted", "WARNING", "global", 0, 1)
	})
}
