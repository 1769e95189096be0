// Package logic defines the game entities a tracker publishes into an
// environment.
//
// Every entity has a Bind method that registers the entity's facts:
//
//	Item           id                       literal, toggled by the player
//	Region         id                       bound to the region's requirement
//	Location       id, id.visible           bound to the location's rules
//	MergeLocation  id, id.visible           all of the merged locations
//	Boss           name.access, name.defeat bound to the boss rules
//	Chest          dungeon.chest            bound to the chest's access rule
//	Dungeon        id.enter                 plus its boss and chest facts
//
// Bind is idempotent and may be called again after env.Environment.Clear.
// Each entity remembers the listener handles it registered and drops them
// before registering new ones, so repeated binds never stack listeners.
//
// Entities report derived state changes (a location becoming available, a
// dungeon gaining an accessible chest) as Events to their subscribers.
// Dungeons coalesce those reports through a coalesce.Scheduler so one user
// action produces at most one dungeon event.
package logic
