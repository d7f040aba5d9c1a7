package device

import (
	"context"
	"sync"
	"time"

	"github.com/nerrad567/blink-sync-core/internal/cloud"
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

type fakeController struct {
	mu         sync.Mutex
	armCalls   []bool
	armErr     error
	motion     *cloud.Media
	motionErr  error
	lookups    int
	fetched    []string
	fetchBlobs map[string][]byte
}

func (f *fakeController) SetArmedState(_ context.Context, _ int64, armed bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.armCalls = append(f.armCalls, armed)
	return f.armErr
}

func (f *fakeController) CameraLastMotion(context.Context, int64, int64) (*cloud.Media, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups++
	return f.motion, f.motionErr
}

func (f *fakeController) FetchMedia(_ context.Context, path string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetched = append(f.fetched, path)
	if blob, ok := f.fetchBlobs[path]; ok {
		return blob, nil
	}
	return []byte("img:" + path), nil
}

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func ts(t time.Time) string {
	return t.Format(time.RFC3339)
}

// newTestRegistry returns a registry holding network 1 (armed per the
// argument) and camera 10 in it.
func newTestRegistry(armed bool) (*Registry, *testClock, *fakeController) {
	clock := &testClock{t: baseTime}
	reg := NewRegistry(Settings{
		ArmedDelay:         60 * time.Second,
		MotionTriggerDecay: 90 * time.Second,
		ThumbnailTTL:       time.Hour,
		Now:                clock.Now,
	})
	ctrl := &fakeController{}
	reg.SetController(ctrl)

	reg.Merge(
		[]NetworkRecord{{Network: cloud.Network{ID: 1, Name: "Home", Armed: armed, UpdatedAt: ts(baseTime)}}},
		[]CameraRecord{{Camera: cloud.Camera{
			ID:        10,
			NetworkID: 1,
			Name:      "Porch",
			Enabled:   true,
			Battery:   "ok",
			Thumbnail: "/media/e006/camera/10/clip_2026_03_01__11_30AM",
			UpdatedAt: ts(baseTime),
		}}},
	)
	return reg, clock, ctrl
}
