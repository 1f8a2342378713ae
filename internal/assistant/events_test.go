package assistant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcaster_DropsOldest(t *testing.T) {
	b := NewBroadcaster()
	ch, cancel := b.Subscribe(2)
	defer cancel()

	for i := uint64(1); i <= 5; i++ {
		b.Publish(Event{Seq: i})
	}

	first := <-ch
	second := <-ch
	assert.Equal(t, uint64(4), first.Seq)
	assert.Equal(t, uint64(5), second.Seq)
}

func TestBroadcaster_Cancel(t *testing.T) {
	b := NewBroadcaster()
	ch, cancel := b.Subscribe(0)
	require.Equal(t, 1, b.Len())

	cancel()
	cancel()
	assert.Equal(t, 0, b.Len())
	_, open := <-ch
	assert.False(t, open)

	b.Publish(Event{Seq: 1})
}

func TestSinkFunc(t *testing.T) {
	var got []EventKind
	var s Sink = SinkFunc(func(ev Event) { got = append(got, ev.Kind) })
	s.Publish(Event{Kind: EventDemoStarted})
	assert.Equal(t, []EventKind{EventDemoStarted}, got)
}
