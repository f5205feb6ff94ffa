/*
Package events publishes bot lifecycle notifications over Redis pub/sub.

The spawned bots already hold a Redis connection (it is part of their
configuration payload), so the same bus carries bot.launched and
bot.stopped events from the manager. Publishing is strictly best-effort:
lifecycle operations log a failed publish and carry on.
*/
package events
