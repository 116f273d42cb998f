package classifier

import (
	"context"
	"strings"

	"github.com/previsit-labs/previsit-cli/internal/core/domain"
	"github.com/previsit-labs/previsit-cli/internal/core/ports/driven"
)

// Ensure Emergency implements the interface.
var _ driven.Classifier = (*Emergency)(nil)

// Red-flag category names, in the order they are checked.
const (
	CategoryCardiac       = "cardiac"
	CategoryRespiratory   = "respiratory"
	CategoryNeurological  = "neurological"
	CategoryBleeding      = "bleeding"
	CategoryTrauma        = "trauma"
	CategorySeverePain    = "severe_pain"
	CategoryAlteredMental = "altered_mental"
	CategoryAllergic      = "allergic"
)

// emergencyPatterns maps each red-flag category to its trigger phrases.
// The set is deliberately high-recall: a false positive routes to a safe
// "seek immediate care" message, a false negative is the worst failure
// class this system has.
var emergencyPatterns = []struct {
	category string
	phrases  []string
}{
	{CategoryCardiac, []string{
		"chest pain", "chest pressure", "crushing chest", "heart attack",
		"chest tightness", "pain radiating to arm", "pain in left arm",
		"jaw pain with chest", "severe chest discomfort",
	}},
	{CategoryRespiratory, []string{
		"can't breathe", "cannot breathe", "difficulty breathing",
		"shortness of breath severe", "gasping for air", "choking",
		"turning blue", "blue lips", "severe breathing difficulty",
	}},
	{CategoryNeurological, []string{
		"stroke", "face drooping", "arm weakness", "speech difficulty",
		"sudden confusion", "severe headache worst ever", "thunderclap headache",
		"loss of consciousness", "passed out", "seizure", "convulsion",
		"sudden weakness", "sudden numbness", "can't move arm", "can't move leg",
	}},
	{CategoryBleeding, []string{
		"severe bleeding", "heavy bleeding", "uncontrolled bleeding",
		"bleeding won't stop", "coughing up blood", "vomiting blood",
		"blood in vomit", "blood in stool black",
	}},
	{CategoryTrauma, []string{
		"severe injury", "head injury", "major trauma", "car accident",
		"fell from height", "broken bone protruding", "severe burn",
	}},
	{CategorySeverePain, []string{
		"worst pain of my life", "worst headache ever", "10/10 pain",
		"excruciating pain", "unbearable pain", "severe abdominal pain sudden",
	}},
	{CategoryAlteredMental, []string{
		"very confused", "disoriented", "hallucinating", "can't wake up",
		"unresponsive", "not making sense",
	}},
	{CategoryAllergic, []string{
		"throat swelling", "tongue swelling", "severe allergic reaction",
		"anaphylaxis", "epipen needed", "allergic reaction severe",
		"face swelling rapidly", "hives with breathing difficulty",
	}},
}

// Emergency is the pattern-based red-flag classifier. It runs before any
// other processing in a turn and never calls external services, so the
// emergency exit path stays fast even when the network is down.
type Emergency struct{}

// NewEmergency creates the pattern-based emergency classifier.
func NewEmergency() *Emergency {
	return &Emergency{}
}

// Name identifies the classifier in logs.
func (e *Emergency) Name() string { return "emergency-patterns" }

// Classify scans the text for red-flag phrases. One phrase match per
// category is enough; two or more matched categories grade CRITICAL.
func (e *Emergency) Classify(_ context.Context, text string) (domain.Classification, error) {
	lower := strings.ToLower(text)

	var categories, keywords []string
	for _, group := range emergencyPatterns {
		for _, phrase := range group.phrases {
			if strings.Contains(lower, phrase) {
				categories = append(categories, group.category)
				keywords = append(keywords, phrase)
				break
			}
		}
	}

	c := domain.Classification{
		Matched:    len(categories) > 0,
		Categories: categories,
		Keywords:   keywords,
		Severity:   domain.SeverityNone,
	}
	switch {
	case len(categories) >= 2:
		c.Severity = domain.SeverityCritical
	case len(categories) == 1:
		c.Severity = domain.SeverityHigh
	}
	return c, nil
}

// categoryHeadlines are the per-category lines of the emergency notice.
var categoryHeadlines = map[string]string{
	CategoryCardiac:       "CARDIAC EMERGENCY - possible heart attack",
	CategoryRespiratory:   "RESPIRATORY EMERGENCY - severe breathing difficulty",
	CategoryNeurological:  "NEUROLOGICAL EMERGENCY - possible stroke or brain injury",
	CategoryBleeding:      "SEVERE BLEEDING - immediate medical attention needed",
	CategoryTrauma:        "MAJOR TRAUMA - serious injury",
	CategorySeverePain:    "SEVERE PAIN - immediate evaluation needed",
	CategoryAlteredMental: "ALTERED CONSCIOUSNESS - immediate medical attention",
	CategoryAllergic:      "SEVERE ALLERGIC REACTION - possible anaphylaxis",
}

// EmergencyMessage renders the fixed emergency notice for the matched
// categories. No retrieval or generation is involved.
func EmergencyMessage(c domain.Classification) string {
	var sb strings.Builder
	sb.WriteString("EMERGENCY DETECTED\n\n")
	for _, cat := range c.Categories {
		if line, ok := categoryHeadlines[cat]; ok {
			sb.WriteString(line)
			sb.WriteString("\n")
		}
	}
	sb.WriteString("\nGo to the nearest emergency room or call emergency services now.\n")
	sb.WriteString("Do not wait, and do not drive yourself.\n\n")
	sb.WriteString("This assistant cannot replace emergency medical services. ")
	sb.WriteString("Your symptoms may indicate a life-threatening condition that ")
	sb.WriteString("requires immediate professional care.")
	return sb.String()
}
