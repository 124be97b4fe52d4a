package domain

// Score bounds.
const (
	MaxScore = 100
	MinScore = 0
)

// BadWord is a disallowed keyword with its category and penalty.
type BadWord struct {
	ID            int64
	Name          string
	Category      string
	CategoryID    int64
	Language      string
	NegativeScore int
}

// Location names the text field a keyword was found in.
type Location string

const (
	LocationTitle       Location = "title"
	LocationDescription Location = "description"
	LocationTags        Location = "tags"
	LocationTranscript  Location = "transcript"
)

// Locations lists scanned fields in scan order.
var Locations = []Location{LocationTitle, LocationDescription, LocationTags, LocationTranscript}

const titleMultiplier = 4

// Multiplier returns the penalty multiplier for hits in l.
func (l Location) Multiplier() int {
	if l == LocationTitle {
		return titleMultiplier
	}

	return 1
}

// KeywordHit counts the occurrences of one keyword in one field.
type KeywordHit struct {
	Word     string
	Category string
	Location Location
	Count    int
}

// ScoreResult is the audit outcome for a single item.
type ScoreResult struct {
	ItemID         string
	FoundWords     []string
	Hits           []KeywordHit
	CategoryScores map[string]int
	Overall        int
	LanguageOK     bool
	HasEmoji       bool
	AuditedVideos  int
}

// Disqualified reports whether any keyword matched or the language criterion failed.
func (r ScoreResult) Disqualified() bool {
	return len(r.FoundWords) > 0 || !r.LanguageOK
}

// ScoredItem pairs an item with its audit outcome.
type ScoredItem struct {
	Item   Item
	Result ScoreResult
}
