/*
Package orchestrator is the capability interface over the container
platform, plus its containerd implementation.

The bot manager never holds authoritative workload state; every operation
goes to the platform:

	┌─────────────┐   ListWorkloads(selector)      ┌──────────────┐
	│ bot manager │──▶ CreateWorkload(spec)    ──▶ │  containerd  │
	│             │   GetWorkload(idOrName)        │  (platform)  │
	│             │   RemoveWorkload(workload)     │              │
	│             │   ListExecutionUnits(filter)   │              │
	└─────────────┘                                └──────────────┘

Workloads map onto containers: the spec's name becomes the container id
(unique per namespace), labels carry the bot identity, and the single
execution unit is the container's task. Restart behavior is delegated to
the platform's restart monitor through its status/policy labels.

NewContainerd verifies connectivity with bounded retries (three attempts,
fixed delay); a platform that stays unreachable surfaces as ErrUnavailable.
Per-call timeouts are left to the caller's context.
*/
package orchestrator
