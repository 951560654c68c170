package form

// Reply is the transport-neutral answer to a user message.
type Reply struct {
	Text string
	// Options are rendered as selectable labels, one per row.
	Options []string
	// RemoveKeyboard clears previously offered labels.
	RemoveKeyboard bool
}

func prompt(text string, options ...string) Reply {
	return Reply{Text: text, Options: options}
}

func final(text string) Reply {
	return Reply{Text: text, RemoveKeyboard: true}
}
