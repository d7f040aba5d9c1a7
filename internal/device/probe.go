package device

import (
	"bytes"
	"context"
	"fmt"
	"time"
)

// CameraProbe is the set of camera properties that may call the cloud.
type CameraProbe interface {
	MotionDetected(ctx context.Context) (bool, error)
	Thumbnail(ctx context.Context) ([]byte, error)
}

// MotionDetected reports whether a motion event falls inside the armed
// window. It is false without any lookup when the camera is disarmed or its
// last update is older than the decay window. Otherwise the latest motion
// record is fetched and the current time must lie within
//
//	[(armedAt, or network updatedAt) - ArmedDelay, motion time + MotionTriggerDecay]
//
// so residual events from before arming are ignored and a trigger expires
// on its own without a push channel.
func (c *Camera) MotionDetected(ctx context.Context) (bool, error) {
	if !c.Armed() {
		return false, nil
	}

	settings := c.reg.settings
	now := c.reg.now()
	if now.After(c.UpdatedAt().Add(settings.MotionTriggerDecay)) {
		return false, nil
	}

	ctrl := c.reg.getController()
	if ctrl == nil {
		return false, ErrNoController
	}
	networkID, cameraID := c.NetworkID(), c.ID()
	media, err := ctrl.CameraLastMotion(ctx, networkID, cameraID)
	if err != nil {
		return false, fmt.Errorf("camera %d last motion: %w", cameraID, err)
	}
	if media == nil {
		return false, nil
	}

	network, ok := c.Network()
	if !ok {
		return false, nil
	}
	anchor := network.ArmedAt()
	if anchor.IsZero() {
		anchor = network.UpdatedAt()
	}

	lower := anchor.Add(-settings.ArmedDelay)
	upper := media.Created().Add(settings.MotionTriggerDecay)
	return inWindow(now, lower, upper), nil
}

func inWindow(now, lower, upper time.Time) bool {
	return !now.Before(lower) && !now.After(upper)
}

// Thumbnail returns image bytes for the camera. A disarmed network or a
// disabled camera yields a fixed placeholder (privacy or disabled,
// depending on PrivacyMode). Otherwise the newer of the latest motion
// thumbnail and the default thumbnail is downloaded once and kept as the
// single cached blob.
func (c *Camera) Thumbnail(ctx context.Context) ([]byte, error) {
	if !c.Armed() || !c.Enabled() {
		if c.PrivacyMode() {
			return PrivacyPlaceholder(), nil
		}
		return DisabledPlaceholder(), nil
	}

	ctrl := c.reg.getController()
	if ctrl == nil {
		return nil, ErrNoController
	}

	path := c.ThumbnailPath()
	media, err := ctrl.CameraLastMotion(ctx, c.NetworkID(), c.ID())
	if err != nil {
		c.reg.logger.Debug("motion lookup failed, using default thumbnail", "camera_id", c.ID(), "error", err)
	} else if media != nil && media.Thumbnail != "" && media.Created().After(c.ThumbnailCreatedAt()) {
		path = media.Thumbnail
	}
	if path == "" {
		return nil, fmt.Errorf("camera %d: no thumbnail available", c.ID())
	}

	c.thumbMu.Lock()
	defer c.thumbMu.Unlock()

	if path == c.thumbPath && c.thumbBlob != nil {
		return bytes.Clone(c.thumbBlob), nil
	}

	// Drop the old blob before fetching so at most one is ever held.
	c.thumbPath, c.thumbBlob = "", nil

	blob, err := ctrl.FetchMedia(ctx, ThumbnailURL(path))
	if err != nil {
		return nil, fmt.Errorf("camera %d thumbnail: %w", c.ID(), err)
	}
	c.thumbPath, c.thumbBlob = path, blob
	return bytes.Clone(blob), nil
}

// CachedThumbnailPath returns the path of the cached blob, or "".
func (c *Camera) CachedThumbnailPath() string {
	c.thumbMu.Lock()
	defer c.thumbMu.Unlock()
	return c.thumbPath
}
