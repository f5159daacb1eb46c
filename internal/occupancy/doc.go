// Package occupancy fuses camera signals into a per-device occupancy record.
//
// Four independent sources feed an Engine:
//   - hardware availability (device busy/free)
//   - the camera permission-op notifier (package asserting camera use)
//   - a foreground-application resolver, queried on busy transitions
//   - a low-frequency re-evaluation trigger (screen unlock)
//
// The Engine serialises every signal through one mutex: debounce check,
// attribution, commit and emission happen atomically, so a Sink observes
// events in commit order. A hand-off (second device becoming busy while
// another is still marked active) yields two events, Free for the old device
// followed by Busy for the new one.
//
// Example usage:
//
//	eng, err := occupancy.New(occupancy.Options{
//		SelfPackage: "camwatch",
//		Foreground:  st,
//		Sink:        em,
//		Logger:      log,
//	})
//	if err != nil {
//		return err
//	}
//	eng.HandleOp(occupancy.OpCamera, "zoom")
//	eng.HandleAvailability(ctx, "0", true)
package occupancy
