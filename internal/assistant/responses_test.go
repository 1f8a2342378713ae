package assistant

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequiredPhase(t *testing.T) {
	assert.Equal(t, PhaseThree, RequiredPhase(IntentStatus))
	assert.Equal(t, PhaseThree, RequiredPhase(IntentEscalation))
	assert.Equal(t, PhaseTwo, RequiredPhase(IntentCriteria))
	assert.Equal(t, PhaseOne, RequiredPhase(IntentContacts))
	assert.Equal(t, PhaseOne, RequiredPhase(IntentProtocol))
	assert.Equal(t, PhaseOne, RequiredPhase(IntentFallback))

	assert.False(t, Servable(IntentCriteria, PhaseOne))
	assert.True(t, Servable(IntentCriteria, PhaseTwo))
	assert.False(t, Servable(IntentStatus, PhaseTwo))
}

func TestPhase_Labels(t *testing.T) {
	assert.Equal(t, "Phase I", PhaseOne.String())
	assert.Equal(t, "Phase III", PhaseThree.String())
	assert.False(t, Phase(0).Valid())
	assert.False(t, Phase(4).Valid())
}

func TestReplyFor_ACRCard(t *testing.T) {
	reply := replyFor(IntentCriteria)
	require.NotNil(t, reply.Card)
	assert.Equal(t, SourceACR, reply.Source)

	keys := make([]string, 0, len(reply.Card.Fields))
	for _, f := range reply.Card.Fields {
		keys = append(keys, f.Key)
	}
	assert.Equal(t, []string{"Indication", "Procedure", "Rating", "Alternative"}, keys)

	rating, ok := reply.Card.Value("Rating")
	assert.True(t, ok)
	assert.Equal(t, "9/9 (Usually Appropriate)", rating)
}

func TestReplyFor_CardsAreCopies(t *testing.T) {
	a := replyFor(IntentStatus)
	a.Card.Fields[0].Value = "changed"
	b := replyFor(IntentStatus)
	assert.NotEqual(t, "changed", b.Card.Fields[0].Value)
}

func TestReplyFor_Fallback(t *testing.T) {
	reply := replyFor(IntentFallback)
	assert.Nil(t, reply.Card)
	assert.False(t, reply.Resolve)
	assert.Equal(t, SourcePACS, reply.Source)
}

func TestEscalationReply(t *testing.T) {
	dissection := escalationReply(EscalationDissection)
	assert.Contains(t, dissection, "Dr. Chen (Cardiothoracic)")
	assert.NotContains(t, dissection, "stroke")

	stroke := escalationReply(EscalationStroke)
	assert.True(t, strings.HasPrefix(stroke, "Code stroke activated."))
	assert.Contains(t, stroke, "Dr. Chen")

	assert.Equal(t, "URGENT: Suspected aortic dissection - immediate consultation needed", NotificationText(EscalationDissection))
}

func TestDeflectionReply(t *testing.T) {
	got := deflectionReply(IntentStatus, PhaseOne)
	assert.Contains(t, got, "Exam status lookups arrive in Phase III")
	assert.Contains(t, got, "running in Phase I")
	assert.Contains(t, got, "radiologist contacts and imaging protocols")

	got = deflectionReply(IntentEscalation, PhaseTwo)
	assert.Contains(t, got, "radiologist contacts, imaging protocols and ACR appropriateness criteria")
}

func TestSourceLabel(t *testing.T) {
	assert.Equal(t, "Querying PACS...", SourcePACS.Label())
	assert.Equal(t, "Searching ACR...", SourceACR.Label())
	assert.Equal(t, "Processing...", Source("other").Label())
}
