package mqtt

// Topics builds the topic names below one prefix.
type Topics struct {
	Prefix string
}

// State carries the retained JSON state, e.g. trafficlight/state.
func (t Topics) State() string { return t.Prefix + "/state" }

// Command accepts command lines in the console syntax.
func (t Topics) Command() string { return t.Prefix + "/command" }

// Response carries the reply to each command line.
func (t Topics) Response() string { return t.Prefix + "/response" }

// Status is "online" while connected and "offline" otherwise (retained,
// also used as last will).
func (t Topics) Status() string { return t.Prefix + "/status" }
