package view

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SoftwareStartups/sync-prof/internal/event"
)

func decodeTrace(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var doc map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	return doc
}

func TestChromeEnvelopeHasSingleTopLevelKey(t *testing.T) {
	var buf bytes.Buffer
	cv := NewChrome(&buf)
	require.NoError(t, cv.Close())

	doc := decodeTrace(t, &buf)
	assert.Len(t, doc, 1)
	assert.Contains(t, doc, "traceEvents")
}

func TestChromeTimestampEmitsDurationPairForFinishedEvent(t *testing.T) {
	var buf bytes.Buffer
	cv := NewChrome(&buf)

	ev := event.New("pthread_mutex_lock", event.KindFunction, 1, "m", "", "", "f.c", 1, "", false, false)
	ev.Status = event.StatusFinished
	ev.StartTime = 5
	ev.StopTime = 9

	require.NoError(t, cv.Timestamp([]ThreadSnapshot{{Thread: 1, Events: []*event.Event{ev}}}))
	require.NoError(t, cv.Close())

	doc := decodeTrace(t, &buf)
	events := doc["traceEvents"].([]any)
	require.Len(t, events, 2)
	b := events[0].(map[string]any)
	e := events[1].(map[string]any)
	assert.Equal(t, "B", b["ph"])
	assert.Equal(t, "pthread_mutex_lock", b["name"])
	assert.Equal(t, float64(5), b["ts"])
	assert.Equal(t, "E", e["ph"])
	assert.Equal(t, float64(9), e["ts"])
	// A duration's B and E records must share one id so a reader can pair them.
	assert.Equal(t, b["id"], e["id"])
}

func TestChromeTimestampSkipsWaitingTop(t *testing.T) {
	var buf bytes.Buffer
	cv := NewChrome(&buf)

	ev := event.New("pthread_mutex_lock", event.KindFunction, 1, "m", "", "", "f.c", 1, "", false, false)
	ev.Status = event.StatusWaiting

	require.NoError(t, cv.Timestamp([]ThreadSnapshot{{Thread: 1, Events: []*event.Event{ev}}}))
	require.NoError(t, cv.Close())

	doc := decodeTrace(t, &buf)
	events := doc["traceEvents"].([]any)
	require.Empty(t, events)
}

func TestChromeLinkSharesIDBetweenSourceAndDestination(t *testing.T) {
	var buf bytes.Buffer
	cv := NewChrome(&buf)

	require.NoError(t, cv.Link(CategorySyncFlow, "semaphore increment", 1, 1, 5, 2, nil))
	require.NoError(t, cv.Close())

	doc := decodeTrace(t, &buf)
	events := doc["traceEvents"].([]any)
	require.Len(t, events, 2)
	s := events[0].(map[string]any)
	f := events[1].(map[string]any)
	assert.Equal(t, "s", s["ph"])
	assert.Equal(t, "f", f["ph"])
	assert.Equal(t, s["id"], f["id"])
}

func TestChromeSuccessiveLinksGetDistinctIDs(t *testing.T) {
	var buf bytes.Buffer
	cv := NewChrome(&buf)

	require.NoError(t, cv.Link(CategorySyncFlow, "semaphore increment", 1, 1, 5, 2, nil))
	require.NoError(t, cv.Link(CategorySyncFlow, "semaphore increment", 2, 1, 6, 2, nil))
	require.NoError(t, cv.Close())

	doc := decodeTrace(t, &buf)
	events := doc["traceEvents"].([]any)
	require.Len(t, events, 4)
	firstPairID := events[0].(map[string]any)["id"]
	secondPairID := events[2].(map[string]any)["id"]
	assert.NotEqual(t, firstPairID, secondPairID)
}

func TestChromeLinkRejectsBackwardsTime(t *testing.T) {
	var buf bytes.Buffer
	cv := NewChrome(&buf)
	err := cv.Link(CategorySyncFlow, "semaphore increment", 10, 1, 5, 2, nil)
	assert.Error(t, err)
}

func TestChromeDurationPairRejectsCrossThread(t *testing.T) {
	var buf bytes.Buffer
	cv := NewChrome(&buf)
	err := cv.Group(CategorySyncFlow, "locked by m", 1, 1, 2, 2, nil)
	assert.Error(t, err)
}

func TestChromeMarkUsesInstantPhase(t *testing.T) {
	var buf bytes.Buffer
	cv := NewChrome(&buf)
	require.NoError(t, cv.Mark("Event(s) aborted", CategoryWarning, ScopeGlobal, 3, 1))
	require.NoError(t, cv.Close())

	doc := decodeTrace(t, &buf)
	events := doc["traceEvents"].([]any)
	require.Len(t, events, 1)
	mark := events[0].(map[string]any)
	assert.Equal(t, "I", mark["ph"])
	assert.Equal(t, "g", mark["s"])
}

func TestChromeCloseIsIdempotent(t *testing.T) {
	var buf bytes.Buffer
	cv := NewChrome(&buf)
	require.NoError(t, cv.Close())
	require.NoError(t, cv.Close())
}
