// Package activity defines the records produced by the capture layer and
// consumed by the task boundary detector: periodic screenshots of the active
// window plus app-switch events raised by the capture layer itself.
package activity

import (
	"time"

	"github.com/google/uuid"
)

// Screenshot is one observation of the user's desktop. The capture layer
// writes the image to disk and hands the detector this record; ImagePath is
// empty when the image was not retained.
type Screenshot struct {
	ID                uuid.UUID `json:"id"`
	SessionID         uuid.UUID `json:"sessionId"`
	Timestamp         time.Time `json:"timestamp"`
	ActiveApplication string    `json:"activeApplication"`
	WindowTitle       string    `json:"windowTitle"`
	URL               string    `json:"url,omitempty"`
	ImagePath         string    `json:"imagePath,omitempty"`
}

// AppUsage is a completed span of time the capture layer attributes to one
// application.
type AppUsage struct {
	App       string        `json:"app"`
	Title     string        `json:"title"`
	StartTime time.Time     `json:"startTime"`
	EndTime   time.Time     `json:"endTime"`
	Duration  time.Duration `json:"duration"`
}

// ActiveWindow names the application and window the user switched into.
type ActiveWindow struct {
	App   string `json:"app"`
	Title string `json:"title"`
}

// AppSwitchEvent is raised by the capture layer when it has already confirmed
// that the user moved from one application to another and stayed there.
type AppSwitchEvent struct {
	Previous AppUsage     `json:"previous"`
	Current  ActiveWindow `json:"current"`
}
