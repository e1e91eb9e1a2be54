/*
Package consensus implements the deterministic consensus mediator: the
state machine that drives discussion rounds between independently hosted
model backends until a self-reported convergence signal meets the session
threshold or the round limit is reached.

The package is built from four cooperating pieces:

  - MemoryBuffer: a bounded view of each participant's latest response.
  - Composer: a pure function from a frozen buffer snapshot to a prompt.
  - ExtractConvergence / AggregateRound: parsing and scoring of the signal.
  - Controller: the INIT -> RUNNING -> terminal lifecycle, with per-round
    fan-out of provider calls and an explicit join before any state feeding
    the next round is touched.

All round-to-round state is scoped to one Controller instance; nothing here
is global.
*/
package consensus
