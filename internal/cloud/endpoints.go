package cloud

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

func (c *Client) getJSON(ctx context.Context, path string, maxAge time.Duration, out any) error {
	resp, err := c.Get(ctx, path, maxAge)
	if err != nil {
		return err
	}
	return resp.Decode(out)
}

// postJSON posts body and decodes the reply into out when out is non-nil
// and the reply is JSON.
func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	resp, err := c.Post(ctx, path, body)
	if err != nil {
		return err
	}
	if out == nil || resp.Kind != BodyJSON || len(resp.Body) == 0 {
		return nil
	}
	return resp.Decode(out)
}

func idStr(v int64) string {
	return strconv.FormatInt(v, 10)
}

func networkPath(networkID int64) string {
	return "/network/" + idStr(networkID)
}

func cameraPath(networkID, cameraID int64) string {
	return networkPath(networkID) + "/camera/" + idStr(cameraID)
}

func accountNetworkPath(networkID int64) string {
	return "/api/v1/accounts/{accountID}/networks/" + idStr(networkID)
}

func owlPath(networkID, owlID int64) string {
	return accountNetworkPath(networkID) + "/owls/" + idStr(owlID)
}

// Homescreen fetches the full account snapshot.
func (c *Client) Homescreen(ctx context.Context, maxAge time.Duration) (*Homescreen, error) {
	var out Homescreen
	if err := c.getJSON(ctx, "/api/v3/accounts/{accountID}/homescreen", maxAge, &out); err != nil {
		return nil, fmt.Errorf("homescreen: %w", err)
	}
	return &out, nil
}

// AccountOptions returns the raw account options document.
func (c *Client) AccountOptions(ctx context.Context, maxAge time.Duration) (map[string]any, error) {
	out := map[string]any{}
	if err := c.getJSON(ctx, "/api/v1/account/options", maxAge, &out); err != nil {
		return nil, fmt.Errorf("account options: %w", err)
	}
	return out, nil
}

// NotificationConfig fetches the account's notification switches.
func (c *Client) NotificationConfig(ctx context.Context, maxAge time.Duration) (*NotificationConfig, error) {
	var out NotificationConfig
	if err := c.getJSON(ctx, "/api/v1/accounts/{accountID}/notifications/configuration", maxAge, &out); err != nil {
		return nil, fmt.Errorf("notification config: %w", err)
	}
	return &out, nil
}

// UpdateNotificationConfig replaces the account's notification switches.
func (c *Client) UpdateNotificationConfig(ctx context.Context, cfg NotificationConfig) error {
	if err := c.postJSON(ctx, "/api/v1/accounts/{accountID}/notifications/configuration", cfg, nil); err != nil {
		return fmt.Errorf("update notification config: %w", err)
	}
	return nil
}

// ArmNetwork requests the network be armed. The returned command must be
// polled to completion.
func (c *Client) ArmNetwork(ctx context.Context, networkID int64) (*Command, error) {
	return c.command(ctx, accountNetworkPath(networkID)+"/state/arm", nil)
}

// DisarmNetwork requests the network be disarmed.
func (c *Client) DisarmNetwork(ctx context.Context, networkID int64) (*Command, error) {
	return c.command(ctx, accountNetworkPath(networkID)+"/state/disarm", nil)
}

func (c *Client) command(ctx context.Context, path string, body any) (*Command, error) {
	var out Command
	if err := c.postJSON(ctx, path, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Command fetches the current status of a command. Never cached.
func (c *Client) Command(ctx context.Context, networkID, commandID int64) (*Command, error) {
	var out Command
	if err := c.getJSON(ctx, networkPath(networkID)+"/command/"+idStr(commandID), 0, &out); err != nil {
		return nil, err
	}
	if out.ID == 0 {
		out.ID = commandID
	}
	if out.NetworkID == 0 {
		out.NetworkID = networkID
	}
	return &out, nil
}

// StopCommand asks the service to abandon a command.
func (c *Client) StopCommand(ctx context.Context, networkID, commandID int64) error {
	return c.postJSON(ctx, networkPath(networkID)+"/command/"+idStr(commandID)+"/done/", nil, nil)
}

// CameraConfig fetches the config document of a full camera: battery
// voltage, temperature and, on some firmware, signals.
func (c *Client) CameraConfig(ctx context.Context, networkID, cameraID int64, maxAge time.Duration) (*CameraConfig, error) {
	var out CameraConfig
	if err := c.getJSON(ctx, cameraPath(networkID, cameraID)+"/config", maxAge, &out); err != nil {
		return nil, fmt.Errorf("camera %d config: %w", cameraID, err)
	}
	return &out, nil
}

// CameraStatus fetches the raw status document of a full camera. Its shape
// varies by model, so it is returned undecoded.
func (c *Client) CameraStatus(ctx context.Context, networkID, cameraID int64, maxAge time.Duration) (map[string]any, error) {
	out := map[string]any{}
	if err := c.getJSON(ctx, cameraPath(networkID, cameraID), maxAge, &out); err != nil {
		return nil, fmt.Errorf("camera %d status: %w", cameraID, err)
	}
	return out, nil
}

// CameraSignals fetches the signal readings of a full camera.
func (c *Client) CameraSignals(ctx context.Context, networkID, cameraID int64, maxAge time.Duration) (*Signals, error) {
	var out Signals
	if err := c.getJSON(ctx, cameraPath(networkID, cameraID)+"/signals", maxAge, &out); err != nil {
		return nil, fmt.Errorf("camera %d signals: %w", cameraID, err)
	}
	return &out, nil
}

// MotionRegions fetches a full camera's motion detection zones.
func (c *Client) MotionRegions(ctx context.Context, networkID, cameraID int64, maxAge time.Duration) (*MotionRegions, error) {
	var out MotionRegions
	path := accountNetworkPath(networkID) + "/cameras/" + idStr(cameraID) + "/motion_regions"
	if err := c.getJSON(ctx, path, maxAge, &out); err != nil {
		return nil, fmt.Errorf("camera %d motion regions: %w", cameraID, err)
	}
	return &out, nil
}

// EnableCameraMotion turns on motion detection of a full camera.
func (c *Client) EnableCameraMotion(ctx context.Context, networkID, cameraID int64) (*Command, error) {
	return c.command(ctx, cameraPath(networkID, cameraID)+"/enable", nil)
}

// DisableCameraMotion turns off motion detection of a full camera.
func (c *Client) DisableCameraMotion(ctx context.Context, networkID, cameraID int64) (*Command, error) {
	return c.command(ctx, cameraPath(networkID, cameraID)+"/disable", nil)
}

// RequestThumbnail asks a full camera to capture a new thumbnail.
func (c *Client) RequestThumbnail(ctx context.Context, networkID, cameraID int64) (*Command, error) {
	return c.command(ctx, cameraPath(networkID, cameraID)+"/thumbnail", nil)
}

// RequestClip asks a full camera to record a short clip.
func (c *Client) RequestClip(ctx context.Context, networkID, cameraID int64) (*Command, error) {
	return c.command(ctx, cameraPath(networkID, cameraID)+"/clip", nil)
}

// LiveView starts a live-view session on a full camera.
func (c *Client) LiveView(ctx context.Context, networkID, cameraID int64) (*LiveView, error) {
	var out LiveView
	path := "/api/v5/accounts/{accountID}/networks/" + idStr(networkID) + "/cameras/" + idStr(cameraID) + "/liveview"
	if err := c.postJSON(ctx, path, map[string]string{"intent": "liveview"}, &out); err != nil {
		return nil, fmt.Errorf("camera %d liveview: %w", cameraID, err)
	}
	return &out, nil
}

// OwlConfig fetches the config document of a mini camera.
func (c *Client) OwlConfig(ctx context.Context, networkID, owlID int64, maxAge time.Duration) (*OwlConfig, error) {
	var out OwlConfig
	if err := c.getJSON(ctx, owlPath(networkID, owlID)+"/config", maxAge, &out); err != nil {
		return nil, fmt.Errorf("mini camera %d config: %w", owlID, err)
	}
	return &out, nil
}

// UpdateOwlConfig sets the motion-enabled flag of a mini camera.
func (c *Client) UpdateOwlConfig(ctx context.Context, networkID, owlID int64, enabled bool) (*Command, error) {
	return c.command(ctx, owlPath(networkID, owlID)+"/config", map[string]bool{"enabled": enabled})
}

// RequestOwlThumbnail asks a mini camera to capture a new thumbnail.
func (c *Client) RequestOwlThumbnail(ctx context.Context, networkID, owlID int64) (*Command, error) {
	return c.command(ctx, owlPath(networkID, owlID)+"/thumbnail", nil)
}

// OwlLiveView starts a live-view session on a mini camera.
func (c *Client) OwlLiveView(ctx context.Context, networkID, owlID int64) (*LiveView, error) {
	var out LiveView
	path := "/api/v2/accounts/{accountID}/networks/" + idStr(networkID) + "/owls/" + idStr(owlID) + "/liveview"
	if err := c.postJSON(ctx, path, map[string]string{"intent": "liveview"}, &out); err != nil {
		return nil, fmt.Errorf("mini camera %d liveview: %w", owlID, err)
	}
	return &out, nil
}

// Sirens lists every siren on the account.
func (c *Client) Sirens(ctx context.Context, maxAge time.Duration) ([]Siren, error) {
	var out []Siren
	if err := c.getJSON(ctx, "/sirens", maxAge, &out); err != nil {
		return nil, fmt.Errorf("sirens: %w", err)
	}
	return out, nil
}

// ActivateSirens sounds all sirens of a network.
func (c *Client) ActivateSirens(ctx context.Context, networkID int64) (*Command, error) {
	return c.command(ctx, "/api/v1/networks/"+idStr(networkID)+"/sirens/activate/", nil)
}

// DeactivateSirens silences all sirens of a network.
func (c *Client) DeactivateSirens(ctx context.Context, networkID int64) (*Command, error) {
	return c.command(ctx, "/api/v1/networks/"+idStr(networkID)+"/sirens/deactivate/", nil)
}

func programsPath(networkID int64) string {
	return "/api/v1/networks/" + idStr(networkID) + "/programs"
}

// Programs lists the arming schedules of a network.
func (c *Client) Programs(ctx context.Context, networkID int64, maxAge time.Duration) ([]Program, error) {
	var out []Program
	if err := c.getJSON(ctx, programsPath(networkID), maxAge, &out); err != nil {
		return nil, fmt.Errorf("programs: %w", err)
	}
	return out, nil
}

// EnableProgram turns a schedule on.
func (c *Client) EnableProgram(ctx context.Context, networkID, programID int64) error {
	return c.postJSON(ctx, programsPath(networkID)+"/"+idStr(programID)+"/enable", nil, nil)
}

// DisableProgram turns a schedule off.
func (c *Client) DisableProgram(ctx context.Context, networkID, programID int64) error {
	return c.postJSON(ctx, programsPath(networkID)+"/"+idStr(programID)+"/disable", nil, nil)
}

// DeleteProgram removes a schedule.
func (c *Client) DeleteProgram(ctx context.Context, networkID, programID int64) error {
	return c.postJSON(ctx, programsPath(networkID)+"/"+idStr(programID)+"/delete", nil, nil)
}

// MediaChanged lists media records changed since the given time.
func (c *Client) MediaChanged(ctx context.Context, since time.Time, page int, maxAge time.Duration) (*MediaList, error) {
	if page < 1 {
		page = 1
	}
	q := url.Values{}
	q.Set("since", since.UTC().Format(time.RFC3339))
	q.Set("page", strconv.Itoa(page))

	var out MediaList
	if err := c.getJSON(ctx, "/api/v1/accounts/{accountID}/media/changed?"+q.Encode(), maxAge, &out); err != nil {
		return nil, fmt.Errorf("media changed: %w", err)
	}
	return &out, nil
}

// DeleteMedia deletes media records by id.
func (c *Client) DeleteMedia(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	body := map[string][]int64{"media_list": ids}
	if err := c.postJSON(ctx, "/api/v1/accounts/{accountID}/media/delete", body, nil); err != nil {
		return fmt.Errorf("delete media: %w", err)
	}
	return nil
}

// Download fetches raw bytes (thumbnails, clips). It is never cached.
func (c *Client) Download(ctx context.Context, path string) ([]byte, error) {
	if path == "" {
		return nil, fmt.Errorf("download: empty path")
	}
	if !strings.HasPrefix(path, "/") && !strings.HasPrefix(path, "http") {
		path = "/" + path
	}
	resp, err := c.Do(ctx, Call{Method: http.MethodGet, Path: path})
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", path, err)
	}
	return resp.Body, nil
}
