// Package emitter renders committed occupancy events for the outside world.
//
// It turns an occupancy.Event into a broadcast Payload (status text, device
// label, package identifier, display name) and a Notification, and hands the
// payload to a publish/subscribe Bus. It has no decision authority: nothing
// here changes occupancy or ownership.
package emitter

import "fmt"

// DeviceLabel returns the human label for a camera device id.
func DeviceLabel(id string) string {
	switch id {
	case "0":
		return "Back"
	case "1":
		return "Front"
	default:
		return fmt.Sprintf("Camera ID: %s", id)
	}
}
