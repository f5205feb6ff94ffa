/*
Package metrics exposes Prometheus collectors for the bot manager:
lifecycle counters (started, denied, stopped, creation failures), the
running-bots gauge, and the admission check latency histogram. Handler
returns the scrape endpoint served by the metrics subcommand.
*/
package metrics
