package consensus

import (
	"fmt"
	"strings"

	"github.com/parley-dev/parley/pkg/domain"
)

// ConvergencePhrase is the sentence every participant is instructed to embed,
// with {percentage} replaced by its self-reported agreement figure. The
// evaluator's extraction pattern is derived from this exact phrasing.
const ConvergencePhrase = "I am in agreement with {percentage}% of the overall opinions given by my peers."

// Composer builds each participant's next prompt from a frozen buffer
// snapshot. It is a pure function of the snapshot contents: identical
// snapshots always yield byte-identical prompts, which is what makes runs
// reproducible given identical model outputs.
type Composer struct {
	session *domain.Session
}

// NewComposer creates a Composer for a session's participant list.
func NewComposer(session *domain.Session) *Composer {
	return &Composer{session: session}
}

// Compose assembles the prompt for one participant: its own latest buffered
// response, every peer's latest response in fixed participant-index order
// (never response-arrival order), and the unconditional convergence
// instruction.
func (c *Composer) Compose(index int, snapshot []string) string {
	var sb strings.Builder

	sb.WriteString("Based on your previous position (shown below) and the latest positions from your peers, ")
	sb.WriteString("update your evidence-based opinion on the research question. ")
	sb.WriteString("Keep your answer factual, grounded in current research, and focused solely on the topic. ")
	fmt.Fprintf(&sb, "Include exactly the following sentence somewhere in your response: '%s'.\n\n", ConvergencePhrase)

	sb.WriteString("Your previous position:\n")
	sb.WriteString(snapshot[index])
	sb.WriteString("\n\n")

	sb.WriteString("Your peers' latest positions:\n")
	for _, p := range c.session.Participants {
		if p.Index == index {
			continue
		}
		fmt.Fprintf(&sb, "%s: %s\n", p.Name, snapshot[p.Index])
	}

	return sb.String()
}
