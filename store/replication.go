package store

// Command is one replicated operation: a command name and its effective
// arguments. "Effective" matters for the two rewrite rules spec.md §6
// calls out: HINCRBYFLOAT replicates as the HSET of its resulting string,
// and every blocking command replicates as the non-blocking command that
// actually produced the result (see blocking.ReplicationRewrite).
type Command struct {
	Name string
	Args []string
}

// Log is an in-memory replication stream. A real deployment would ship
// this to replicas over the network; this package stops at recording the
// effective command, per spec.md Non-goals.
type Log struct {
	entries []Command
}

// NewLog returns an empty replication log.
func NewLog() *Log {
	return &Log{}
}

// Append records a command as having been applied.
func (l *Log) Append(name string, args ...string) {
	l.entries = append(l.entries, Command{Name: name, Args: append([]string(nil), args...)})
}

// Entries returns every recorded command, oldest first.
func (l *Log) Entries() []Command {
	return append([]Command(nil), l.entries...)
}
