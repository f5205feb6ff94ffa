/*
Package types defines the shared data model for the bot manager.

The model splits into three groups:

  - Persisted records (User, Meeting, Session) owned by the persistence
    layer. Users carry the admission quota; meetings are read-only here and
    belong to the booking subsystem; sessions correlate a meeting with a bot
    connection id.
  - Orchestration records (WorkloadSpec, Workload, ExecutionUnit) describing
    bot instances on the container platform. The platform is authoritative
    for these; the manager never caches them.
  - Presentation records (BotStatus) assembled per request by joining the
    two groups.

A bot's identity is the pair (workload id, connection id). The connection id
is generated fresh for every start and threaded through the workload labels,
the environment payload, and the session row so the three can be correlated
later.

# Label Schema

Every bot workload carries four labels:

	vexa.user_id        owner, used for quota counting and status listing
	vexa.meeting_id     internal meeting id
	vexa.connection_id  per-start correlation token
	vexa.bot_service    fixed "true" marker distinguishing bots from
	                    anything else on the platform
*/
package types
