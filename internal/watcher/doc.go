// Package watcher runs camwatch monitoring sessions.
//
// A Session owns one occupancy engine and everything around it: the
// emitter and payload bus, the subscribers that record events in the
// store, forward desktop notifications and print to the console, and the
// signal sources (device scan, ops log, focus sampler, unlock listener)
// feeding the engine.
//
// Key features:
//   - One session id (UUID) stamped on every payload and stored event
//   - Sources run under an errgroup; an unavailable source is skipped
//   - Bounded event log (log_size most recent rows)
//   - Daemon mode support with PID file management
//   - Graceful shutdown with SIGTERM/SIGINT handling
//
// Example usage:
//
//	st, err := store.New(cfg.Database)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer st.Close()
//
//	s, err := watcher.New(watcher.Options{Config: cfg, Store: st, Logger: logger})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	if err := s.Start(ctx); err != nil {
//		log.Fatal(err)
//	}
//	defer s.Stop()
package watcher
