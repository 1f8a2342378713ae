package alerts

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGate_NoOpUntilGranted(t *testing.T) {
	rec := &recordingNotifier{}
	gate := NewGate(rec, Grant(true))

	require.NoError(t, gate.Show(context.Background(), "t", "b"))
	assert.Equal(t, 0, rec.count())
	assert.Equal(t, PermissionDefault, gate.Permission())

	p, err := gate.Request(context.Background())
	require.NoError(t, err)
	assert.Equal(t, PermissionGranted, p)

	require.NoError(t, gate.Show(context.Background(), "t", "b"))
	assert.Equal(t, 1, rec.count())
}

func TestGate_DeniedIsFinal(t *testing.T) {
	calls := 0
	ask := func(context.Context) (Permission, error) {
		calls++
		return PermissionDenied, nil
	}
	rec := &recordingNotifier{}
	gate := NewGate(rec, ask)

	_, _ = gate.Request(context.Background())
	p, _ := gate.Request(context.Background())
	assert.Equal(t, PermissionDenied, p)
	assert.Equal(t, 1, calls)

	require.NoError(t, gate.Show(context.Background(), "t", "b"))
	assert.Equal(t, 0, rec.count())
}

func TestGate_RequestErrorKeepsDefault(t *testing.T) {
	gate := NewGate(&recordingNotifier{}, func(context.Context) (Permission, error) {
		return "", errors.New("prompt failed")
	})
	p, err := gate.Request(context.Background())
	assert.Error(t, err)
	assert.Equal(t, PermissionDefault, p)
}

func TestGate_NilAsk(t *testing.T) {
	gate := NewGate(&recordingNotifier{}, nil)
	p, err := gate.Request(context.Background())
	require.NoError(t, err)
	assert.Equal(t, PermissionDefault, p)
}

func TestMultiNotifier(t *testing.T) {
	a := &recordingNotifier{err: errors.New("a failed")}
	b := &recordingNotifier{}
	err := MultiNotifier{a, nil, b}.Show(context.Background(), "t", "b")
	assert.EqualError(t, err, "a failed")
	assert.Equal(t, 1, a.count())
	assert.Equal(t, 1, b.count())
}
