/*
Package storage persists projects, repetition states and collected result
files behind the narrow Store interface the execution core depends on.

Two backends are provided:

  - BoltStore: single-file BoltDB database, JSON-marshalled buckets. The
    default for embedded controller deployments.
  - SQLStore: SQLite via database/sql. Stores the same JSON documents plus
    flat experiment_states and files tables so a finished run can be
    inspected with plain SQL.

Every call is synchronous and atomic; the schedulers persist each state
transition before execution proceeds, so a crash mid-run leaves accurate,
inspectable last-known state.
*/
package storage
