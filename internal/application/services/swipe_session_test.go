package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/zatekoja/provider-browser/internal/domain/entities"
	"github.com/zatekoja/provider-browser/internal/mocks"
)

const testBudget = 15 * time.Millisecond

func settledAt(s *SwipeSession, cursor int) func() bool {
	return func() bool {
		st := s.State()
		return st.Phase == entities.SwipeIdle && st.Cursor == cursor
	}
}

func TestSwipeSession_RightAdvancesAndWraps(t *testing.T) {
	s := NewSwipeSession(testBudget, nil, mocks.StaticDirection(entities.TextDirectionLTR))
	s.Reset(threeProviders().Items)

	for _, want := range []int{1, 2, 0} {
		assert.True(t, s.Intent(context.Background(), entities.SwipeRight))
		assert.Eventually(t, settledAt(s, want), time.Second, time.Millisecond)
	}
}

func TestSwipeSession_IntentsIgnoredWhileAnimating(t *testing.T) {
	s := NewSwipeSession(50*time.Millisecond, nil, nil)
	s.Reset(threeProviders().Items)

	assert.True(t, s.Intent(context.Background(), entities.SwipeLeft))
	state := s.State()
	assert.Equal(t, entities.SwipeAnimating, state.Phase)
	assert.Equal(t, entities.SwipeLeft, state.Direction)

	assert.False(t, s.Intent(context.Background(), entities.SwipeRight))
	assert.False(t, s.Intent(context.Background(), entities.SwipeUp))

	assert.Eventually(t, settledAt(s, 1), time.Second, time.Millisecond)
	assert.Equal(t, entities.SwipeNone, s.State().Direction)
}

func TestSwipeSession_UpOpensDetailWithoutAdvancing(t *testing.T) {
	presented := make(chan string, 1)
	detail := &mocks.MockDetailPresenter{}
	detail.On("Present", mock.Anything, "p-1").
		Run(func(args mock.Arguments) { presented <- args.String(1) }).
		Once()
	s := NewSwipeSession(testBudget, detail, nil)
	s.Reset(threeProviders().Items)

	events := make(chan SwipeEvent, 4)
	s.Subscribe(func(_ entities.SwipeState, e *SwipeEvent) {
		if e != nil {
			events <- *e
		}
	})

	assert.True(t, s.Intent(context.Background(), entities.SwipeUp))

	select {
	case id := <-presented:
		assert.Equal(t, "p-1", id)
	case <-time.After(time.Second):
		t.Fatal("detail view was not opened")
	}
	select {
	case e := <-events:
		assert.Equal(t, SwipeEvent{Direction: entities.SwipeUp, ProviderID: "p-1", From: 0, To: 0}, e)
	case <-time.After(time.Second):
		t.Fatal("swipe did not settle")
	}
	assert.Eventually(t, settledAt(s, 0), time.Second, time.Millisecond)
	detail.AssertExpectations(t)
}

func TestSwipeSession_EmptySessionIgnoresIntents(t *testing.T) {
	s := NewSwipeSession(testBudget, nil, nil)
	s.Reset(nil)

	assert.True(t, s.State().Empty())
	assert.False(t, s.Intent(context.Background(), entities.SwipeRight))
	_, ok := s.CurrentID()
	assert.False(t, ok)
}

func TestSwipeSession_KeyboardMirrorsUnderRTL(t *testing.T) {
	ltr := NewSwipeSession(testBudget, nil, mocks.StaticDirection(entities.TextDirectionLTR))
	rtl := NewSwipeSession(testBudget, nil, mocks.StaticDirection(entities.TextDirectionRTL))
	ltr.Reset(threeProviders().Items)
	rtl.Reset(threeProviders().Items)

	assert.True(t, ltr.Key(context.Background(), entities.KeyRight))
	assert.True(t, rtl.Key(context.Background(), entities.KeyLeft))

	assert.Equal(t, ltr.State().Direction, rtl.State().Direction)
	assert.Equal(t, entities.SwipeRight, rtl.State().Direction)

	assert.Eventually(t, settledAt(ltr, 1), time.Second, time.Millisecond)
	assert.Eventually(t, settledAt(rtl, 1), time.Second, time.Millisecond)

	assert.True(t, rtl.Key(context.Background(), entities.KeyRight))
	assert.Equal(t, entities.SwipeLeft, rtl.State().Direction)
}

func TestSwipeSession_ResetAbandonsRunningAnimation(t *testing.T) {
	s := NewSwipeSession(testBudget, nil, nil)
	s.Reset(threeProviders().Items)
	assert.True(t, s.Intent(context.Background(), entities.SwipeRight))

	s.Reset(threeProviders().Items)
	time.Sleep(3 * testBudget)

	state := s.State()
	assert.Equal(t, 0, state.Cursor)
	assert.Equal(t, entities.SwipeIdle, state.Phase)
}

func TestSwipeSession_SyncWrapsCursorIntoNewLength(t *testing.T) {
	s := NewSwipeSession(testBudget, nil, nil)
	s.Reset(threeProviders().Items)
	s.Intent(context.Background(), entities.SwipeRight)
	assert.Eventually(t, settledAt(s, 1), time.Second, time.Millisecond)
	s.Intent(context.Background(), entities.SwipeRight)
	assert.Eventually(t, settledAt(s, 2), time.Second, time.Millisecond)

	s.Sync(threeProviders().Items[:2])
	assert.Equal(t, 0, s.State().Cursor)

	s.Sync(nil)
	assert.True(t, s.State().Empty())
}
