// Package fixtures supplies the static presentation data around the
// assistant: the patient worklist sidebar and the voice-input stub.
package fixtures

import (
	"context"
	"fmt"
	"time"

	"github.com/wolfman30/radiology-assistant/internal/assistant"
)

// Exam is one row of the worklist sidebar.
type Exam struct {
	ID       string `json:"id"`
	Patient  string `json:"patient"`
	Location string `json:"location"`
	Exam     string `json:"exam"`
	Status   string `json:"status"`
	Priority string `json:"priority"`
}

var worklist = []Exam{
	{ID: "EX-1042", Patient: "J. Alvarez", Location: "ICU Bed 4", Exam: "Chest CT with Contrast", Status: "In Review", Priority: "routine"},
	{ID: "EX-1043", Patient: "M. Okonkwo", Location: "ER Bay 2", Exam: "CTA Chest/Abdomen/Pelvis", Status: "Scanning", Priority: "stat"},
	{ID: "EX-1044", Patient: "R. Nguyen", Location: "ER Bay 1", Exam: "CT Head without Contrast", Status: "Ordered", Priority: "stat"},
	{ID: "EX-1045", Patient: "S. Patel", Location: "Ward 3B", Exam: "MRI Brain with and without Contrast", Status: "Scheduled", Priority: "routine"},
	{ID: "EX-1046", Patient: "D. Kim", Location: "Outpatient", Exam: "CT Pulmonary Angiography", Status: "Final", Priority: "urgent"},
}

// Worklist returns a copy of the static exam list.
func Worklist() []Exam {
	out := make([]Exam, len(worklist))
	copy(out, worklist)
	return out
}

// DefaultTranscription is what the voice stub "hears".
const DefaultTranscription = "What's the status of the chest CT for the patient in ICU bed 4?"

// DefaultVoiceDelay mimics recognition latency.
const DefaultVoiceDelay = 1500 * time.Millisecond

// VoiceStub pretends to transcribe dictation: it waits a fixed delay and then
// returns canned text.
type VoiceStub struct {
	clock assistant.Clock
	delay time.Duration
	text  string
}

// NewVoiceStub creates a VoiceStub. A nil clock uses the real one.
func NewVoiceStub(clock assistant.Clock, delay time.Duration, text string) *VoiceStub {
	if clock == nil {
		clock = assistant.RealClock{}
	}
	if delay < 0 {
		delay = 0
	}
	if text == "" {
		text = DefaultTranscription
	}
	return &VoiceStub{clock: clock, delay: delay, text: text}
}

// Transcribe returns the canned transcription after the delay.
func (v *VoiceStub) Transcribe(ctx context.Context) (string, error) {
	if err := v.clock.Sleep(ctx, v.delay); err != nil {
		return "", fmt.Errorf("fixtures: transcribe: %w", err)
	}
	return v.text, nil
}
