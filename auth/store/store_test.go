package store

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/superapp/apiclient/auth/store/mocks"
)

func TestStore_LoadEmpty(t *testing.T) {
	s := New(nil)
	tok := s.Load(context.Background())
	require.NotNil(t, tok)
	assert.Empty(t, tok.AccessToken)
	assert.Empty(t, tok.RefreshToken)
	assert.False(t, Authenticated(tok))
}

func TestStore_SaveThenLoad_OverwritesCache(t *testing.T) {
	ctx := context.Background()
	s := New(NewMemorySlots())

	require.NoError(t, s.Save(ctx, &oauth2.Token{AccessToken: "old", RefreshToken: "R0"}))
	assert.Equal(t, "old", s.Load(ctx).AccessToken)

	require.NoError(t, s.Save(ctx, &oauth2.Token{AccessToken: "A", RefreshToken: "R"}))
	tok := s.Load(ctx)
	assert.Equal(t, "A", tok.AccessToken)
	assert.Equal(t, "R", tok.RefreshToken)
	assert.True(t, Authenticated(tok))
}

func TestStore_SaveMerges(t *testing.T) {
	ctx := context.Background()
	slots := NewMemorySlots()
	s := New(slots)

	require.NoError(t, s.Save(ctx, &oauth2.Token{AccessToken: "A1", RefreshToken: "R1"}))
	require.NoError(t, s.Save(ctx, &oauth2.Token{AccessToken: "A2"}))

	tok := s.Load(ctx)
	assert.Equal(t, "A2", tok.AccessToken)
	assert.Equal(t, "R1", tok.RefreshToken)

	value, ok, err := slots.Get(ctx, RefreshSlot)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "R1", value)

	// a nil or empty save is a no-op
	require.NoError(t, s.Save(ctx, nil))
	require.NoError(t, s.Save(ctx, &oauth2.Token{}))
	assert.Equal(t, "A2", s.Load(ctx).AccessToken)
}

func TestStore_PartialPairIsNotAuthenticated(t *testing.T) {
	ctx := context.Background()
	s := New(nil)
	require.NoError(t, s.Save(ctx, &oauth2.Token{AccessToken: "A"}))
	assert.False(t, Authenticated(s.Load(ctx)))
}

func TestStore_Clear(t *testing.T) {
	ctx := context.Background()
	slots := NewMemorySlots()
	s := New(slots)
	require.NoError(t, s.Save(ctx, &oauth2.Token{AccessToken: "A", RefreshToken: "R"}))

	require.NoError(t, s.Clear(ctx))
	tok := s.Load(ctx)
	assert.Empty(t, tok.AccessToken)
	assert.Empty(t, tok.RefreshToken)

	_, ok, err := slots.Get(ctx, AccessSlot)
	require.NoError(t, err)
	assert.False(t, ok)

	// clearing twice is fine
	require.NoError(t, s.Clear(ctx))
}

func TestStore_LoadReadsThroughOnce(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	slots := mocks.NewMockSlots(ctrl)
	slots.EXPECT().Get(gomock.Any(), "u1:access").Return("A", true, nil).Times(1)
	slots.EXPECT().Get(gomock.Any(), "u1:refresh").Return("R", true, nil).Times(1)

	s := New(slots, WithNamespace("u1:"))
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		tok := s.Load(ctx)
		assert.Equal(t, "A", tok.AccessToken)
		assert.Equal(t, "R", tok.RefreshToken)
	}
}

func TestStore_LoadFailsOpen(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	slots := mocks.NewMockSlots(ctrl)
	slots.EXPECT().Get(gomock.Any(), AccessSlot).Return("", false, errors.New("keychain locked"))
	slots.EXPECT().Get(gomock.Any(), RefreshSlot).Return("", false, errors.New("keychain locked"))

	tok := New(slots).Load(context.Background())
	require.NotNil(t, tok)
	assert.Empty(t, tok.AccessToken)
	assert.Empty(t, tok.RefreshToken)
}

func TestStore_SaveFailureSurfacesAndDropsCache(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	ctx := context.Background()

	slots := mocks.NewMockSlots(ctrl)
	gomock.InOrder(
		slots.EXPECT().Set(gomock.Any(), AccessSlot, "A1").Return(nil),
		slots.EXPECT().Set(gomock.Any(), RefreshSlot, "R1").Return(nil),
		slots.EXPECT().Set(gomock.Any(), AccessSlot, "A2").Return(errors.New("disk full")),
	)
	s := New(slots)
	require.NoError(t, s.Save(ctx, &oauth2.Token{AccessToken: "A1", RefreshToken: "R1"}))

	err := s.Save(ctx, &oauth2.Token{AccessToken: "A2", RefreshToken: "R2"})
	require.ErrorIs(t, err, ErrStorage)

	// cache dropped: the next load goes back to storage
	slots.EXPECT().Get(gomock.Any(), AccessSlot).Return("A1", true, nil)
	slots.EXPECT().Get(gomock.Any(), RefreshSlot).Return("R1", true, nil)
	tok := s.Load(ctx)
	assert.Equal(t, "A1", tok.AccessToken)
	assert.Equal(t, "R1", tok.RefreshToken)
}

func TestStore_ClearFailureSurfaces(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	slots := mocks.NewMockSlots(ctrl)
	slots.EXPECT().Delete(gomock.Any(), AccessSlot).Return(errors.New("io"))
	slots.EXPECT().Delete(gomock.Any(), RefreshSlot).Return(nil)

	err := New(slots).Clear(context.Background())
	require.ErrorIs(t, err, ErrStorage)
}

func TestStore_ClearPartialFailureReloadsSurvivingSlot(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	ctx := context.Background()

	slots := mocks.NewMockSlots(ctrl)
	slots.EXPECT().Set(gomock.Any(), AccessSlot, "A1").Return(nil)
	slots.EXPECT().Set(gomock.Any(), RefreshSlot, "R1").Return(nil)
	s := New(slots)
	require.NoError(t, s.Save(ctx, &oauth2.Token{AccessToken: "A1", RefreshToken: "R1"}))

	slots.EXPECT().Delete(gomock.Any(), AccessSlot).Return(nil)
	slots.EXPECT().Delete(gomock.Any(), RefreshSlot).Return(errors.New("io"))
	require.ErrorIs(t, s.Clear(ctx), ErrStorage)

	slots.EXPECT().Get(gomock.Any(), AccessSlot).Return("", false, nil)
	slots.EXPECT().Get(gomock.Any(), RefreshSlot).Return("R1", true, nil)
	tok := s.Load(ctx)
	assert.Empty(t, tok.AccessToken)
	assert.Equal(t, "R1", tok.RefreshToken)
	assert.False(t, Authenticated(tok))
}

func TestStore_OnChange(t *testing.T) {
	ctx := context.Background()
	s := New(nil)

	var mu sync.Mutex
	var seen []string
	s.OnChange(func(token *oauth2.Token) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, token.AccessToken+"/"+token.RefreshToken)
	})

	require.NoError(t, s.Save(ctx, &oauth2.Token{AccessToken: "A", RefreshToken: "R"}))
	require.NoError(t, s.Save(ctx, &oauth2.Token{AccessToken: "B"}))
	require.NoError(t, s.Clear(ctx))

	assert.Equal(t, []string{"A/R", "B/R", "/"}, seen)
}

func TestStore_ReadAfterWriteUnderConcurrency(t *testing.T) {
	ctx := context.Background()
	s := New(nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Load(ctx)
		}()
	}
	require.NoError(t, s.Save(ctx, &oauth2.Token{AccessToken: "A", RefreshToken: "R"}))
	tok := s.Load(ctx)
	wg.Wait()
	assert.Equal(t, "A", tok.AccessToken)
	assert.Equal(t, "R", tok.RefreshToken)
}
