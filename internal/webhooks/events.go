package webhooks

// EventType identifies a domain event a subscription can listen for.
type EventType string

const (
	EventPostCreated   EventType = "post.created"
	EventCommentOnPost EventType = "comment.on_my_post"
	EventMention       EventType = "mention"
	EventVoteOnPost    EventType = "vote.on_my_post"
	EventNewFollower   EventType = "new_follower"
)

var knownEvents = map[EventType]bool{
	EventPostCreated:   true,
	EventCommentOnPost: true,
	EventMention:       true,
	EventVoteOnPost:    true,
	EventNewFollower:   true,
}

// KnownEvent reports whether name is one of the supported event types.
func KnownEvent(name string) bool {
	return knownEvents[EventType(name)]
}
