/*
Package admission enforces the per-user concurrent bot quota.

A check resolves the user (lazily creating the row with the deployment's
default quota), counts the user's labeled workloads directly on the
orchestration platform, and allows the start only while count < quota. A
user row with no quota at all is a configuration error, distinct from a
denial.

The check holds no reservation; see Controller for the documented
check-then-act race.
*/
package admission
