// Package signals turns host activity into occupancy engine input.
//
// Four sources feed a Handler:
//
//   - DeviceWatcher scans /proc for processes holding camera device nodes
//     and reports per-device busy/free changes, plus the holder names as
//     camera ops.
//   - OpsLog tails the ops log written by camwatch-report and reports
//     each line as a permission op.
//   - FocusSampler records the foreground application in the store so the
//     engine's foreground resolver has something to query.
//   - UnlockListener asks the engine to re-evaluate attribution when the
//     screen is unlocked.
//
// Each source acquires its subscriptions inside Run and releases them when
// Run returns. A source that cannot work on this host returns an error
// wrapping ErrUnavailable; the caller logs it and keeps the others running.
package signals
