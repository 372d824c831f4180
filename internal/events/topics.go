package events

// Topic constants for domain events emitted by the POS.
const (
	TopicOrderCreated       = "order.created"
	TopicOrderPartiallyPaid = "order.partially_paid"
	TopicOrderPaid          = "order.paid"
	TopicOrderCancelled     = "order.cancelled"
	TopicDisplayUpdated     = "display.updated"
	TopicUploadReceived     = "upload.received"
)

// DefaultTopics returns the canonical list of topics the bus accepts.
func DefaultTopics() []string {
	return []string{
		TopicOrderCreated,
		TopicOrderPartiallyPaid,
		TopicOrderPaid,
		TopicOrderCancelled,
		TopicDisplayUpdated,
		TopicUploadReceived,
	}
}

var knownTopics = func() map[string]struct{} {
	set := make(map[string]struct{})
	for _, topic := range DefaultTopics() {
		set[topic] = struct{}{}
	}
	return set
}()

// KnownTopic reports whether topic is one the bus will persist. Misspelled
// topics fail at emit time instead of fragmenting the event log.
func KnownTopic(topic string) bool {
	_, ok := knownTopics[topic]
	return ok
}
