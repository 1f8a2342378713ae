package assistant

import (
	"fmt"
	"strings"
)

// Phase gates which intents are answered in full. Valid values are 1..3.
type Phase int

const (
	PhaseOne   Phase = 1
	PhaseTwo   Phase = 2
	PhaseThree Phase = 3

	MinPhase = PhaseOne
	MaxPhase = PhaseThree
)

// Valid reports whether p is within 1..3.
func (p Phase) Valid() bool {
	return p >= MinPhase && p <= MaxPhase
}

// Roman renders the phase the way the dashboard labels it ("Phase II").
func (p Phase) Roman() string {
	switch p {
	case PhaseOne:
		return "I"
	case PhaseTwo:
		return "II"
	case PhaseThree:
		return "III"
	default:
		return fmt.Sprintf("%d", int(p))
	}
}

func (p Phase) String() string {
	return "Phase " + p.Roman()
}

// RequiredPhase is the lowest phase at which intent is served in full.
func RequiredPhase(intent Intent) Phase {
	switch intent {
	case IntentStatus, IntentEscalation:
		return PhaseThree
	case IntentCriteria:
		return PhaseTwo
	default:
		return PhaseOne
	}
}

// Servable reports whether intent is answered in full at phase p.
func Servable(intent Intent, p Phase) bool {
	return p >= RequiredPhase(intent)
}

// capabilityNames lists what a phase can do, in the order they are unlocked.
func capabilityNames(p Phase) []string {
	names := []string{"radiologist contacts", "imaging protocols"}
	if p >= PhaseTwo {
		names = append(names, "ACR appropriateness criteria")
	}
	if p >= PhaseThree {
		names = append(names, "exam status lookups", "urgent escalations")
	}
	return names
}

func joinHuman(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	case 2:
		return items[0] + " and " + items[1]
	default:
		return strings.Join(items[:len(items)-1], ", ") + " and " + items[len(items)-1]
	}
}
