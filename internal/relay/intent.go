package relay

import "regexp"

// Intent is the classification of a chat message.
type Intent int

const (
	IntentChat Intent = iota
	IntentRecommend
)

func (i Intent) String() string {
	switch i {
	case IntentRecommend:
		return "recommend"
	default:
		return "chat"
	}
}

// recommendPatterns match requests for music recommendations. Any match wins.
var recommendPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\brecommend\w*\b.*\b(music|songs?|tracks?|artists?)\b`),
	regexp.MustCompile(`(?i)\bsuggest\w*\b.*\b(music|songs?|tracks?)\b`),
	regexp.MustCompile(`(?i)\bwhat\s+(should|can)\s+i\s+listen\s+to\b`),
	regexp.MustCompile(`(?i)\b(give|find)\s+me\s+some\s+(new\s+)?(music|songs?)\b`),
	regexp.MustCompile(`(?i)\b(music|songs?|tracks?)\s+(recommendations?|suggestions?)\b`),
}

// ClassifyIntent reports whether text asks for music recommendations.
func ClassifyIntent(text string) Intent {
	for _, re := range recommendPatterns {
		if re.MatchString(text) {
			return IntentRecommend
		}
	}
	return IntentChat
}
