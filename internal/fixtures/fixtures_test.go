package fixtures

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/radiology-assistant/internal/assistant/assistanttest"
)

func TestWorklistIsCopy(t *testing.T) {
	a := Worklist()
	require.NotEmpty(t, a)
	a[0].Status = "changed"
	assert.NotEqual(t, "changed", Worklist()[0].Status)
}

func TestVoiceStub_Transcribe(t *testing.T) {
	clock := assistanttest.NewFakeClock(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
	v := NewVoiceStub(clock, DefaultVoiceDelay, "")

	text, err := v.Transcribe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, DefaultTranscription, text)
	assert.Equal(t, DefaultVoiceDelay, clock.Slept())
}

func TestVoiceStub_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewVoiceStub(nil, time.Second, "hi").Transcribe(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
