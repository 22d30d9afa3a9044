// Package api holds the REST and WebSocket wire types shared by the console
// and the mock backend.
package api

import (
	"encoding/json"
	"time"
)

// DeviceStatus is the reported state of a managed phone.
type DeviceStatus string

const (
	DeviceOnline  DeviceStatus = "online"
	DeviceBusy    DeviceStatus = "busy"
	DeviceOffline DeviceStatus = "offline"
	DeviceError   DeviceStatus = "error"
)

// AllDeviceStatuses lists statuses in display order.
var AllDeviceStatuses = []DeviceStatus{DeviceOnline, DeviceBusy, DeviceOffline, DeviceError}

// Device is one managed phone.
type Device struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	Model      string       `json:"model"`
	OSVersion  string       `json:"osVersion"`
	Group      string       `json:"group"`
	Status     DeviceStatus `json:"status"`
	Battery    int          `json:"battery"`
	Accounts   int          `json:"accounts"`
	Task       string       `json:"task,omitempty"`
	LastSeenAt time.Time    `json:"lastSeenAt"`
}

// Platform is a social network.
type Platform string

const (
	PlatformTikTok    Platform = "tiktok"
	PlatformInstagram Platform = "instagram"
	PlatformYouTube   Platform = "youtube"
	PlatformX         Platform = "x"
)

// AllPlatforms lists platforms in display order.
var AllPlatforms = []Platform{PlatformTikTok, PlatformInstagram, PlatformYouTube, PlatformX}

// Account is a social account bound to a device.
type Account struct {
	ID        string    `json:"id"`
	Handle    string    `json:"handle"`
	Platform  Platform  `json:"platform"`
	DeviceID  string    `json:"deviceId"`
	Followers int       `json:"followers"`
	Posts     int       `json:"posts"`
	Banned    bool      `json:"banned"`
	CreatedAt time.Time `json:"createdAt"`
}

// Scenario is a marketing playbook run across accounts.
type Scenario struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Summary   string    `json:"summary"`
	Body      string    `json:"body"`
	CoverURL  string    `json:"coverUrl"`
	Steps     int       `json:"steps"`
	Runs      int       `json:"runs"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Page is one page of a paginated listing.
type Page[T any] struct {
	Items   []T  `json:"items"`
	Page    int  `json:"page"`
	PerPage int  `json:"perPage"`
	Total   int  `json:"total"`
	HasMore bool `json:"hasMore"`
}

// MessageType identifies the kind of WebSocket message.
type MessageType string

const (
	MsgHello       MessageType = "hello"
	MsgDeviceDelta MessageType = "device_delta"
	MsgError       MessageType = "error"
	MsgResync      MessageType = "resync"
	MsgAuth        MessageType = "auth"
)

// Message is the envelope for all WebSocket messages.
type Message struct {
	Type    MessageType     `json:"type"`
	Seq     uint64          `json:"seq"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// HelloPayload is sent once per connection, and again on resync.
type HelloPayload struct {
	Devices   int       `json:"devices"`
	Accounts  int       `json:"accounts"`
	Scenarios int       `json:"scenarios"`
	Counts    StatusMap `json:"counts"`
	ServerAt  time.Time `json:"serverAt"`
}

// StatusMap counts devices per status.
type StatusMap map[DeviceStatus]int

// DeviceDeltaPayload carries devices whose status changed since the last
// flush.
type DeviceDeltaPayload struct {
	Devices []Device  `json:"devices"`
	Counts  StatusMap `json:"counts"`
}

// ErrorPayload describes a server-side failure.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ControlMessage is what clients send.
type ControlMessage struct {
	Type  MessageType `json:"type"`
	Token string      `json:"token,omitempty"`
}
