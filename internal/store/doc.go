// Package store provides SQLite-backed durable storage for tracker sessions.
//
// The engine itself keeps nothing on disk. What the store keeps is the
// journal of user actions: a session names the logic it was played against,
// and its actions are recorded in order. Replaying a session's actions
// through a fresh tracker rebuilds the session's state.
//
// # Ordering
//
// Every action carries a per-session seq INTEGER (a logical clock assigned
// at record time). Reads order by seq, never by wall time; recorded_at is
// informational only.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
