package sessions

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndValidateSession(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()
	r, err := svc.CreateSession(ctx, "alex", time.Hour)
	require.NoError(t, err)
	require.Len(t, r, 64)

	sess, err := svc.ValidateRefresh(ctx, r)
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, "alex", sess.UserID)
	assert.NotEmpty(t, sess.ID)

	require.NoError(t, svc.DeleteRefresh(ctx, r))
	sess, err = svc.ValidateRefresh(ctx, r)
	require.NoError(t, err)
	assert.Nil(t, sess)
}

func TestCreateSession_Validation(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	_, err := svc.CreateSession(context.Background(), "", time.Hour)
	require.Error(t, err)

	r, err := svc.CreateSession(context.Background(), "alex", 0)
	require.NoError(t, err)
	sess, err := svc.ValidateRefresh(context.Background(), r)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(DefaultTTL), sess.ExpiresAt, time.Minute)
}

func TestValidateRefresh_ExpiredAndUnknown(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()
	r, err := svc.CreateSession(ctx, "blake", time.Hour)
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	for _, tok := range []string{r, "unknown", ""} {
		sess, err := svc.ValidateRefresh(ctx, tok)
		require.NoError(t, err)
		assert.Nil(t, sess, tok)
	}
}

func TestRotate(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()
	old, err := svc.CreateSession(ctx, "alex", time.Hour)
	require.NoError(t, err)

	sess, next, err := svc.Rotate(ctx, old, time.Hour)
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, "alex", sess.UserID)
	assert.NotEqual(t, old, next)

	gone, err := svc.ValidateRefresh(ctx, old)
	require.NoError(t, err)
	assert.Nil(t, gone)
	live, err := svc.ValidateRefresh(ctx, next)
	require.NoError(t, err)
	require.NotNil(t, live)
	assert.Equal(t, "alex", live.UserID)

	// replaying the old token yields nothing
	sess, next, err = svc.Rotate(ctx, old, time.Hour)
	require.NoError(t, err)
	assert.Nil(t, sess)
	assert.Empty(t, next)
}

// lockstepRepo holds every GetByRefresh until n readers have arrived, so
// concurrent rotations all observe the live session before any delete.
type lockstepRepo struct {
	*MemoryRepository
	arrived sync.WaitGroup
}

func (r *lockstepRepo) GetByRefresh(ctx context.Context, refresh string) (*Session, error) {
	s, err := r.MemoryRepository.GetByRefresh(ctx, refresh)
	r.arrived.Done()
	r.arrived.Wait()
	return s, err
}

func TestRotate_ConcurrentSingleSuccessor(t *testing.T) {
	const racers = 2
	mem := NewMemoryRepository()
	repo := &lockstepRepo{MemoryRepository: mem}
	svc := NewService(repo)
	ctx := context.Background()

	old, err := NewService(mem).CreateSession(ctx, "alex", time.Hour)
	require.NoError(t, err)

	repo.arrived.Add(racers)
	issued := make([]string, racers)
	errs := make([]error, racers)
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, issued[i], errs[i] = svc.Rotate(ctx, old, time.Hour)
		}(i)
	}
	wg.Wait()

	winners := 0
	for i := range issued {
		require.NoError(t, errs[i])
		if issued[i] == "" {
			continue
		}
		winners++
		live, err := mem.GetByRefresh(ctx, issued[i])
		require.NoError(t, err)
		assert.NotNil(t, live)
	}
	assert.Equal(t, 1, winners)
	assert.Len(t, mem.store, 1)
}
