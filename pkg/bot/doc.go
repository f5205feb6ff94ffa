/*
Package bot is the lifecycle controller for per-meeting bot workloads.

	┌────────┐    ┌───────────────┐    ┌──────────────────────┐
	│ caller │──▶│   admission    │──▶│   bot.Manager         │
	└────────┘    │ (quota check) │    │  StartBot / StopBot / │
	              └───────┬───────┘    │  ListRunningBots      │
	                      │            └──────────┬───────────┘
	              ┌───────▼───────┐    ┌──────────▼───────────┐
	              │    storage    │    │     orchestrator      │
	              │ users/meetings│    │  (container platform) │
	              │   /sessions   │    └──────────────────────┘
	              └───────────────┘

StartBot runs the admission check, generates a fresh connection id, derives
a unique workload name (also the network alias), assembles the JSON
configuration payload (absent optional fields are omitted, never null),
submits the declarative spec, and records the session row best-effort. The
returned identity is always the full (workload id, connection id) pair or
nothing.

StopBot is idempotent: a workload that is already gone counts as a
successful stop. ListRunningBots favors availability: a platform listing
failure produces an empty list, and per-entry enrichment failures degrade
that entry only.

Two documented consistency gaps are carried deliberately: the admission
check holds no reservation between count and create, and workload creation
is not transactional with session persistence.
*/
package bot
