package expiry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/diewo77/go-eventdesk/internal/db"
	"github.com/diewo77/go-eventdesk/internal/models"
)

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func seedPoll(t *testing.T, conn *gorm.DB, expireAt time.Time, submissions int) models.Poll {
	t.Helper()
	p := models.Poll{
		UserID:    1,
		Title:     "Lunch",
		Questions: []models.Question{{ID: "q1", Text: "Where?", Type: models.QuestionText}},
		ExpireAt:  expireAt,
	}
	require.NoError(t, conn.Create(&p).Error)
	for i := 0; i < submissions; i++ {
		s := models.Submission{
			PollID:      p.ID,
			Answers:     []models.Answer{{QuestionID: "q1", Answer: "here"}},
			SubmittedAt: base,
			ExpireAt:    expireAt,
		}
		require.NoError(t, conn.Create(&s).Error)
	}
	return p
}

func newReaper(t *testing.T) (*Reaper, *gorm.DB) {
	t.Helper()
	conn, err := db.OpenMemory(t.Name())
	require.NoError(t, err)
	r := New(conn, time.Second, nil)
	r.Now = func() time.Time { return base }
	return r, conn
}

func TestSweepRemovesExpiredRows(t *testing.T) {
	r, conn := newReaper(t)
	expired := seedPoll(t, conn, base.Add(-time.Minute), 2)
	atDeadline := seedPoll(t, conn, base, 1)
	live := seedPoll(t, conn, base.Add(time.Hour), 3)

	res, err := r.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Polls)
	assert.Equal(t, int64(3), res.Submissions)

	var n int64
	require.NoError(t, conn.Model(&models.Poll{}).Where("id IN ?", []uint{expired.ID, atDeadline.ID}).Count(&n).Error)
	assert.Zero(t, n)
	require.NoError(t, conn.Model(&models.Submission{}).Where("poll_id = ?", live.ID).Count(&n).Error)
	assert.Equal(t, int64(3), n)

	// idempotent
	res, err = r.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{}, res)
}

func TestSweepLeavesNoOrphans(t *testing.T) {
	r, conn := newReaper(t)
	seedPoll(t, conn, base.Add(-time.Second), 4)

	_, err := r.Sweep(context.Background())
	require.NoError(t, err)

	var orphans int64
	require.NoError(t, conn.Model(&models.Submission{}).
		Where("poll_id NOT IN (?)", conn.Model(&models.Poll{}).Select("id")).
		Count(&orphans).Error)
	assert.Zero(t, orphans)
}

func TestTickSkippedWhileRunning(t *testing.T) {
	r, _ := newReaper(t)
	r.running.Store(true)
	assert.False(t, r.tick(context.Background()))

	r.running.Store(false)
	assert.True(t, r.tick(context.Background()))
	r.wg.Wait()
	assert.False(t, r.running.Load())
}

func TestNewClampsInterval(t *testing.T) {
	assert.Equal(t, MaxInterval, New(nil, 0, nil).interval)
	assert.Equal(t, MaxInterval, New(nil, time.Hour, nil).interval)
	assert.Equal(t, 5*time.Second, New(nil, 5*time.Second, nil).interval)
}

func TestRunStopsOnCancel(t *testing.T) {
	r, conn := newReaper(t)
	seedPoll(t, conn, base.Add(-time.Minute), 1)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		var n int64
		conn.Model(&models.Poll{}).Count(&n)
		return n == 0
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
