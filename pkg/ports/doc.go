/*
Package ports defines the driven ports (interfaces) for the Parley mediator.

These interfaces decouple the consensus core from external implementations,
allowing the controller to work with any model backend and any turn store.

# Key Interfaces

  - Provider: Responsible for generating a completion from a composed prompt.
  - TurnRecorder: Responsible for appending immutable Turn records.
  - TurnReader: Responsible for exposing stored turns to review consumers.
*/
package ports
