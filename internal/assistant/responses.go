package assistant

import "fmt"

// Source tags the thinking indicator with the system being "queried".
type Source string

const (
	SourcePACS     Source = "pacs"
	SourceACR      Source = "acr"
	SourceContacts Source = "contacts"
	SourceEscalate Source = "escalate"
	SourceProtocol Source = "protocol"
)

// Label is the indicator text shown while thinking.
func (s Source) Label() string {
	switch s {
	case SourcePACS:
		return "Querying PACS..."
	case SourceACR:
		return "Searching ACR..."
	case SourceContacts:
		return "Loading contacts..."
	case SourceEscalate:
		return "Escalating..."
	case SourceProtocol:
		return "Loading protocol..."
	default:
		return "Processing..."
	}
}

// Field is one row of a data card. Rows keep their order.
type Field struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// DataCard is the structured payload attached to an agent message.
type DataCard struct {
	Source string  `json:"source"`
	Fields []Field `json:"fields"`
}

// Value returns the value for key, if present.
func (d *DataCard) Value(key string) (string, bool) {
	if d == nil {
		return "", false
	}
	for _, f := range d.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return "", false
}

// Reply is the canned answer for one servable intent.
type Reply struct {
	Source  Source
	Card    *DataCard
	Text    string
	Resolve bool
}

var examStatusCard = DataCard{
	Source: "PACS/RIS Database",
	Fields: []Field{
		{Key: "Exam Type", Value: "Chest CT with Contrast"},
		{Key: "Patient Location", Value: "ICU Bed 4"},
		{Key: "Exam Time", Value: "2:45 PM"},
		{Key: "Status", Value: "In Review"},
		{Key: "Radiologist", Value: "Dr. Martinez"},
		{Key: "Findings", Value: "No acute findings (preliminary)"},
		{Key: "ETA", Value: "30 minutes"},
	},
}

var acrCriteriaCard = DataCard{
	Source: "ACR Appropriateness Criteria",
	Fields: []Field{
		{Key: "Indication", Value: "Suspected Pulmonary Embolism"},
		{Key: "Procedure", Value: "CT Pulmonary Angiography (CTPA)"},
		{Key: "Rating", Value: "9/9 (Usually Appropriate)"},
		{Key: "Alternative", Value: "D-dimer for low probability patients"},
	},
}

var contactDirectoryCard = DataCard{
	Source: "Contact Directory",
	Fields: []Field{
		{Key: "General Radiology", Value: "Ext. 5100"},
		{Key: "Neuroradiology (Dr. Chen)", Value: "Ext. 5105"},
		{Key: "Body Imaging (Dr. Martinez)", Value: "Ext. 5110"},
		{Key: "Musculoskeletal (Dr. Kim)", Value: "Ext. 5115"},
		{Key: "After Hours/Urgent", Value: "Page 2400"},
	},
}

const (
	statusReply = "I found the exam status in our system. The chest CT for patient in ICU bed 4 was completed at 2:45 PM today. " +
		"The preliminary read shows no acute findings. Final report is currently being reviewed by Dr. Martinez and should be " +
		"available within the next 30 minutes. You'll receive an automatic notification once it's signed."

	criteriaReply = "I've retrieved the ACR guidelines for this indication. CT Pulmonary Angiography (CTPA) is usually appropriate " +
		"(rating 9/9) for patients with intermediate to high clinical probability. For low-probability patients, D-dimer testing " +
		"is recommended first. Would you like me to provide the full protocol or connect you with a radiologist for case-specific guidance?"

	contactsReply = "I've retrieved the radiology contact list for you. These extensions connect you directly to the appropriate " +
		"subspecialty. For urgent after-hours cases, use the pager system. Would you like me to connect you with a specific radiologist?"

	protocolReply = "I can help with protocol questions. For MRI brain protocols: Standard brain MRI includes T1, T2, FLAIR, and DWI " +
		"sequences. For contrast studies, add T1 post-contrast. Specific protocols vary by indication. Would you like details for a " +
		"specific clinical scenario, or should I escalate this to a radiologist for personalized guidance?"

	fallbackReply = "This is a prototype demo - not fully implemented yet. Please try running the Interactive Demo to see the full " +
		"capabilities, or ask about:\n\n• Exam status/reports\n• ACR appropriateness criteria\n• Radiologist contacts\n• Urgent consultations\n• Imaging protocols"
)

// Specialist is the radiologist an escalation is routed to.
type Specialist struct {
	Name      string
	Specialty string
}

func (s Specialist) String() string {
	return fmt.Sprintf("%s (%s)", s.Name, s.Specialty)
}

var (
	cardiothoracicOnCall = Specialist{Name: "Dr. Chen", Specialty: "Cardiothoracic"}
	neuroOnCall          = Specialist{Name: "Dr. Chen", Specialty: "Neuroradiology"}
)

const (
	escalationOrigin  = "Dr. Sarah Park - Emergency Department"
	escalationContact = "Ext. 4521"
)

// SpecialistFor returns the on-call radiologist for an escalation kind.
func SpecialistFor(kind EscalationKind) Specialist {
	if kind == EscalationDissection {
		return cardiothoracicOnCall
	}
	return neuroOnCall
}

func escalationReply(kind EscalationKind) string {
	spec := SpecialistFor(kind)
	if kind == EscalationDissection {
		return fmt.Sprintf("This sounds like a critical situation. I'm escalating your query to the on-call radiologist immediately. "+
			"%s is available and will call you within 2 minutes.", spec)
	}
	return fmt.Sprintf("Code stroke activated. %s is being paged. %s will call within 2 minutes. CT scanner 2 is held for you.",
		spec.Specialty, spec.Name)
}

// NotificationText is the dashboard message for an escalation.
func NotificationText(kind EscalationKind) string {
	return fmt.Sprintf("URGENT: %s - immediate consultation needed", kind.Label())
}

// deflectionReply explains that intent needs a later phase.
func deflectionReply(intent Intent, current Phase) string {
	required := RequiredPhase(intent)
	return fmt.Sprintf("%s arrive in %s. This assistant is running in %s, where I can help with %s. "+
		"Please contact the reading room directly for anything else.",
		intentCapability(intent), required, current, joinHuman(capabilityNames(current)))
}

func intentCapability(intent Intent) string {
	switch intent {
	case IntentStatus:
		return "Exam status lookups"
	case IntentEscalation:
		return "Urgent escalations"
	case IntentCriteria:
		return "ACR appropriateness lookups"
	default:
		return "These answers"
	}
}

// replyFor returns the canned reply for a servable, non-escalation intent.
func replyFor(intent Intent) Reply {
	switch intent {
	case IntentStatus:
		card := examStatusCard
		return Reply{Source: SourcePACS, Card: &card, Text: statusReply, Resolve: true}
	case IntentCriteria:
		card := acrCriteriaCard
		return Reply{Source: SourceACR, Card: &card, Text: criteriaReply, Resolve: true}
	case IntentContacts:
		card := contactDirectoryCard
		return Reply{Source: SourceContacts, Card: &card, Text: contactsReply, Resolve: true}
	case IntentProtocol:
		return Reply{Source: SourceProtocol, Text: protocolReply, Resolve: true}
	case IntentEscalation:
		return Reply{Source: SourceEscalate}
	default:
		return Reply{Source: SourcePACS, Text: fallbackReply}
	}
}
