package model

// CreationFlags bitmask for Queue creation attributes (spec §3).
type CreationFlags uint32

const (
	// Persistent is the only creation flag spec.md defines; retained
	// for future use, never interpreted by the apply engine today.
	Persistent CreationFlags = 1 << iota
)

// OpenFlags bitmask for QueueOpen (spec §4.2, supplemented from
// saMsg.h's SaMsgQueueOpenFlagsT).
type OpenFlags uint32

const (
	// Create: allocate the queue if it doesn't already exist.
	Create OpenFlags = 1 << iota
	// ReceiveCallback: the opening handle wants a "message available"
	// dispatch notification on every Send that lands on this queue.
	ReceiveCallback
	// Empty: truncate any pending messages on a successful open
	// (supplemented from saMsg.h SA_MSG_QUEUE_EMPTY; see SPEC_FULL.md §11).
	Empty
)

// Has reports whether flags includes bit.
func (f OpenFlags) Has(bit OpenFlags) bool { return f&bit != 0 }

// Has reports whether flags includes bit.
func (f CreationFlags) Has(bit CreationFlags) bool { return f&bit != 0 }

// AckFlags bitmask for async MessageSend.
type AckFlags uint32

const (
	MessageDeliveredAck AckFlags = 1 << iota
)

func (f AckFlags) Has(bit AckFlags) bool { return f&bit != 0 }

// CreationAttrs carries the attributes a QueueOpen with Create may
// supply (spec §3's Queue.size_limits/retention_time, plus
// creation_flags).
type CreationAttrs struct {
	Flags         CreationFlags
	SizeLimits    [NumPriorities]uint64
	RetentionTime int64 // nanoseconds
}

// GroupPolicy controls how a MessageSend addressed to a group selects a
// member queue (spec §4.3).
type GroupPolicy uint32

const (
	RoundRobin GroupPolicy = iota + 1
	LocalRoundRobin
	LocalBestQueue
	Broadcast
)

// TrackFlags bitmask for QueueGroupTrack (spec §3/§4.4). At most one of
// Changes/ChangesOnly is active at a time, plus the transient Current.
type TrackFlags uint8

const (
	Current TrackFlags = 1 << iota
	Changes
	ChangesOnly
)

func (f TrackFlags) Has(bit TrackFlags) bool { return f&bit != 0 }

// ChangeTag annotates a group member for tracking notification
// assembly (spec §3/§4.4), reset to NoChange at the end of every
// membership mutation's apply step.
type ChangeTag uint8

const (
	NoChange ChangeTag = iota + 1
	Added
	Removed
	StateChanged
)
