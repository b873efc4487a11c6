package control

import (
	"context"
	"encoding/json"

	"github.com/matzehuels/panelmap/pkg/errors"
)

// Panel is a pane as listed by the controller.
type Panel struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Name       string `json:"name,omitempty"`
	CGWindowID int64  `json:"cgWindowId,omitempty"`
}

// Target selects what the controller captures.
type Target struct {
	Type            string `json:"type"`
	ITerm2SessionID string `json:"iterm2SessionId,omitempty"`
	CGWindowID      int64  `json:"cgWindowId,omitempty"`
}

// TargetTypeITerm2 captures a single terminal pane.
const TargetTypeITerm2 = "iterm2"

// Ping checks that the controller answers.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.Send(ctx, CmdPing, nil)
	return err
}

// Connect points the controller at a capture host.
func (c *Client) Connect(ctx context.Context, host string, port int) error {
	_, err := c.Send(ctx, CmdConnect, map[string]any{"host": host, "port": port})
	return err
}

// RefreshTargets asks the controller to re-enumerate capture targets.
func (c *Client) RefreshTargets(ctx context.Context) error {
	_, err := c.Send(ctx, CmdRefreshTargets, nil)
	return err
}

// Panels lists the panes the controller knows about.
func (c *Client) Panels(ctx context.Context) ([]Panel, error) {
	data, err := c.Send(ctx, CmdListPanels, nil)
	if err != nil {
		return nil, err
	}
	var body struct {
		Panels []Panel `json:"panels"`
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &body); err != nil {
			return nil, errors.Wrap(errors.ErrCodeController, err, "decode panel list")
		}
	}
	return body.Panels, nil
}

// SetCaptureTarget switches the capture to t.
func (c *Client) SetCaptureTarget(ctx context.Context, t Target) error {
	_, err := c.Send(ctx, CmdSetCaptureTarget, t)
	return err
}

// State returns the controller's raw state document.
func (c *Client) State(ctx context.Context) (json.RawMessage, error) {
	return c.Send(ctx, CmdGetState, nil)
}

// SelectPanel returns the panel titled title, or the first panel when no
// title matches. It returns false only for an empty list.
func SelectPanel(panels []Panel, title string) (Panel, bool) {
	if len(panels) == 0 {
		return Panel{}, false
	}
	for _, p := range panels {
		if p.Title == title {
			return p, true
		}
	}
	return panels[0], true
}

// Select lists panels, picks one by title and makes it the capture target.
func (c *Client) Select(ctx context.Context, title string) (Panel, error) {
	panels, err := c.Panels(ctx)
	if err != nil {
		return Panel{}, err
	}
	p, ok := SelectPanel(panels, title)
	if !ok {
		return Panel{}, errors.New(errors.ErrCodeNotFound, "controller reported no panels")
	}
	if p.CGWindowID == 0 {
		return Panel{}, errors.New(errors.ErrCodeController, "panel %s (%s) has no window id", p.ID, p.Title)
	}
	err = c.SetCaptureTarget(ctx, Target{
		Type:            TargetTypeITerm2,
		ITerm2SessionID: p.ID,
		CGWindowID:      p.CGWindowID,
	})
	if err != nil {
		return Panel{}, err
	}
	c.opts.Logger.Info("capture target set", "title", p.Title, "pane", p.ID, "window", p.CGWindowID)
	return p, nil
}
