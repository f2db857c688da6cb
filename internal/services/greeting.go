package services

import "strings"

const DefaultGreetingReply = "👋 Hi! I am your AI chatbot. How can I assist you today?"

var greetings = buildGreetings()

func buildGreetings() map[string]struct{} {
	set := make(map[string]struct{})
	for _, word := range []string{"hi", "hello", "hey"} {
		for _, tail := range []string{"", " there"} {
			set[word+tail] = struct{}{}
			set[word+tail+"!"] = struct{}{}
		}
	}
	return set
}

// IsGreeting reports whether text is one of the short greetings that get the canned reply.
// Matching ignores case and surrounding whitespace.
func IsGreeting(text string) bool {
	_, ok := greetings[strings.ToLower(strings.TrimSpace(text))]
	return ok
}
