/*
Package domain contains the core domain models for the Parley mediator.

It defines the entities of a consensus discussion: the Session and its
Participants, the per-round Turn records, and the RoundAggregate used to
decide termination. This package is kept pure and free of external
dependencies like I/O or persistence, following Hexagonal Architecture
principles.

# Key Entities

  - Session: An immutable discussion definition (participants, threshold, round limit).
  - Participant: One configured model endpoint, identified by a stable ordinal index.
  - Turn: One participant's prompt/response/convergence record for a given round.
  - RoundAggregate: The per-round summary statistic used to decide early termination.
*/
package domain
