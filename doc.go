/*
Package parley is a deterministic consensus mediator for panels of large
language models. It orchestrates repeated discussion rounds between multiple
model backends until the panel converges on a shared position or a round
limit is reached.

# Concept

Each participant holds one slot in a bounded memory buffer containing its
latest response. Every round, each participant receives a prompt composed
from a frozen snapshot of the buffer: its own previous position plus the
latest positions of all peers in a fixed order. Responses carry a
self-reported agreement percentage; the round converges when the minimum
reported score across the panel meets the session threshold.

The core is decoupled from its adapters through ports. Model backends
implement the Provider interface and turn persistence implements the
TurnStore interface, so the mediation loop can be embedded behind a CLI, an
HTTP review surface, or agent tooling without changes.

# Usage

	package main

	import (
		"context"
		"fmt"
		"log"

		"github.com/parley-dev/parley"
		"github.com/parley-dev/parley/pkg/domain"
		"github.com/parley-dev/parley/pkg/ports"
	)

	func main() {
		session := domain.NewSession(
			"Gene therapy vectors",
			[]domain.Participant{
				{Name: "claude", Provider: "anthropic-claude", Model: "claude-sonnet-4-5"},
				{Name: "gpt", Provider: "openai-chatgpt", Model: "gpt-4o"},
			},
			90, // convergence threshold
			5,  // max rounds
			"Which viral vectors are most promising for in-vivo gene therapy?",
		)

		var providers []ports.Provider
		// ... build one Provider per participant ...

		m, err := parley.New(session, parley.WithProviders(providers...))
		if err != nil {
			log.Fatal(err)
		}

		outcome, err := m.Run(context.Background())
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println("final state:", outcome.State, "after", len(outcome.Rounds), "rounds")
	}
*/
package parley
