// Package player replays a recording at a controllable speed.
//
// Player owns one session: a replay.Store, a Clock and a tick loop running on
// a Scheduler. Each tick asks the clock for a target frame (the scrub
// position while scrubbing, elapsed time otherwise), decodes that frame,
// applies frame rate commands to the clock and forwards every other command
// to the SceneSink in order.
//
// Only one tick loop is ever live. Starting playback or a scrub arms a new
// generation on the clock; older loops notice the stale token on their next
// tick and return without touching state. There is no timer cancellation.
package player
