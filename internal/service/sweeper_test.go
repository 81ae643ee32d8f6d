package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mentorloop/relationship-engine/internal/model"
	"github.com/mentorloop/relationship-engine/internal/service"
	"github.com/mentorloop/relationship-engine/internal/store"
	"github.com/mentorloop/relationship-engine/internal/store/storetest"
	"github.com/mentorloop/relationship-engine/pkg/logger"
)

func TestSweeperExpiresOnTick(t *testing.T) {
	if testing.Short() {
		t.Skip("waits for a real tick")
	}
	ctx := context.Background()
	db := storetest.DB(t)
	log := logger.NewNop()
	sessionRepo := store.NewSessionRepo(db)
	mentorshipRepo := store.NewMentorshipRepo(db)
	mentorships := service.NewMentorshipService(mentorshipRepo, nil, log)
	sessions := service.NewSessionService(db, mentorships, nil, log)

	// Insert a session whose window has already elapsed; the service layer
	// refuses past times, which is exactly what the sweeper exists to catch
	// after the fact.
	past := time.Now().UTC().Add(-time.Hour)
	sess := &model.Session{
		ID:              uuid.Must(uuid.NewV7()),
		EngagementID:    uuid.Must(uuid.NewV7()),
		ScheduledAt:     past,
		DurationMinutes: 30,
		ExpiresAt:       past.Add(30 * time.Minute),
		Status:          model.SessionScheduled,
		CreatedAt:       past,
		UpdatedAt:       past,
	}
	require.NoError(t, sessionRepo.Create(ctx, sess))

	sweeper := service.NewSweeper(sessions, time.Second, 5*time.Second, log)
	sweeper.Start()
	defer sweeper.Stop()

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		got, err := sessionRepo.GetByID(ctx, sess.ID)
		require.NoError(t, err)
		if got.Status == model.SessionExpired {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatal("sweeper never expired the session")
}

func TestSweeperStopIsIdempotentlySafe(t *testing.T) {
	db := storetest.DB(t)
	log := logger.NewNop()
	mentorshipRepo := store.NewMentorshipRepo(db)
	mentorships := service.NewMentorshipService(mentorshipRepo, nil, log)
	sessions := service.NewSessionService(db, mentorships, nil, log)

	sweeper := service.NewSweeper(sessions, time.Minute, time.Second, log)
	sweeper.Stop() // stop before start is a no-op
	sweeper.Start()
	sweeper.Start() // double start is a no-op
	sweeper.Stop()

	assert.NotPanics(t, func() { sweeper.Stop() })
}

func TestSweeperConcurrentStartStop(t *testing.T) {
	db := storetest.DB(t)
	log := logger.NewNop()
	mentorshipRepo := store.NewMentorshipRepo(db)
	mentorships := service.NewMentorshipService(mentorshipRepo, nil, log)
	sessions := service.NewSessionService(db, mentorships, nil, log)

	sweeper := service.NewSweeper(sessions, time.Minute, time.Second, log)
	sweeper.Start()

	// Racing Start and Stop calls must be safe under the race detector.
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			sweeper.Start()
		}()
		go func() {
			defer wg.Done()
			sweeper.Stop()
		}()
	}
	wg.Wait()
	sweeper.Stop()
}
