package lifecycle_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foodle-app/foodle/pkg/lifecycle"
)

func TestNext_HappyPath(t *testing.T) {
	s := lifecycle.Initial
	for _, step := range []struct {
		action lifecycle.Action
		want   lifecycle.Status
	}{
		{lifecycle.Accept, lifecycle.Preparing},
		{lifecycle.MarkReady, lifecycle.Ready},
		{lifecycle.Complete, lifecycle.Completed},
	} {
		next, err := lifecycle.Next(s, step.action)
		require.NoError(t, err)
		assert.Equal(t, step.want, next)
		s = next
	}
	assert.True(t, s.Terminal())
}

func TestNext_RejectsSkips(t *testing.T) {
	cases := []struct {
		from   lifecycle.Status
		action lifecycle.Action
	}{
		{lifecycle.Received, lifecycle.MarkReady},
		{lifecycle.Received, lifecycle.Complete},
		{lifecycle.Preparing, lifecycle.Accept},
		{lifecycle.Preparing, lifecycle.Complete},
		{lifecycle.Ready, lifecycle.Accept},
		{lifecycle.Ready, lifecycle.MarkReady},
	}
	for _, tc := range cases {
		t.Run(string(tc.from)+"/"+string(tc.action), func(t *testing.T) {
			_, err := lifecycle.Next(tc.from, tc.action)
			assert.ErrorIs(t, err, lifecycle.ErrInvalidTransition)
		})
	}
}

func TestCancellationGuard(t *testing.T) {
	for _, from := range []lifecycle.Status{lifecycle.Received, lifecycle.Preparing} {
		next, err := lifecycle.Next(from, lifecycle.Cancel)
		require.NoError(t, err, from)
		assert.Equal(t, lifecycle.Cancelled, next)
	}

	_, err := lifecycle.Next(lifecycle.Ready, lifecycle.Cancel)
	assert.ErrorIs(t, err, lifecycle.ErrInvalidTransition)

	_, err = lifecycle.Next(lifecycle.Completed, lifecycle.Cancel)
	assert.ErrorIs(t, err, lifecycle.ErrTerminal)

	for _, a := range []lifecycle.Action{lifecycle.Accept, lifecycle.MarkReady, lifecycle.Complete, lifecycle.Cancel} {
		_, err := lifecycle.Next(lifecycle.Cancelled, a)
		assert.ErrorIs(t, err, lifecycle.ErrTerminal, a)
	}
}

func TestCanTransition(t *testing.T) {
	all := []lifecycle.Status{
		lifecycle.Received, lifecycle.Preparing, lifecycle.Ready, lifecycle.Completed, lifecycle.Cancelled,
	}
	allowed := map[[2]lifecycle.Status]bool{
		{lifecycle.Received, lifecycle.Preparing}:  true,
		{lifecycle.Preparing, lifecycle.Ready}:     true,
		{lifecycle.Ready, lifecycle.Completed}:     true,
		{lifecycle.Received, lifecycle.Cancelled}:  true,
		{lifecycle.Preparing, lifecycle.Cancelled}: true,
	}
	for _, from := range all {
		for _, to := range all {
			assert.Equal(t, allowed[[2]lifecycle.Status{from, to}], lifecycle.CanTransition(from, to), "%s→%s", from, to)
		}
	}
}

func TestValidHistory(t *testing.T) {
	ok := [][]lifecycle.Status{
		{lifecycle.Received, lifecycle.Preparing, lifecycle.Ready, lifecycle.Completed},
		{lifecycle.Received, lifecycle.Ready},
		{lifecycle.Received, lifecycle.Received, lifecycle.Completed},
		{lifecycle.Received, lifecycle.Cancelled},
		{lifecycle.Preparing, lifecycle.Cancelled, lifecycle.Cancelled},
	}
	for _, h := range ok {
		assert.True(t, lifecycle.ValidHistory(h), "%v", h)
	}

	bad := [][]lifecycle.Status{
		{lifecycle.Preparing, lifecycle.Received},
		{lifecycle.Ready, lifecycle.Cancelled},
		{lifecycle.Received, lifecycle.Cancelled, lifecycle.Preparing},
		{lifecycle.Completed, lifecycle.Ready},
	}
	for _, h := range bad {
		assert.False(t, lifecycle.ValidHistory(h), "%v", h)
	}
}

func TestParse(t *testing.T) {
	s, err := lifecycle.ParseStatus("ready")
	require.NoError(t, err)
	assert.Equal(t, lifecycle.Ready, s)

	_, err = lifecycle.ParseStatus("cooking")
	assert.ErrorIs(t, err, lifecycle.ErrUnknownStatus)

	a, err := lifecycle.ParseAction("ready")
	require.NoError(t, err)
	assert.Equal(t, lifecycle.MarkReady, a)

	_, err = lifecycle.ParseAction("refund")
	assert.ErrorIs(t, err, lifecycle.ErrUnknownAction)
}
