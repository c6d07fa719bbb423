package raknet

// Reliability classifies a frame's delivery guarantee. Numeric codes
// are bit-exact with the RakNet wire variant Bedrock uses: they occupy
// the top three bits of a frame's flag byte (see decodeFrame).
type Reliability byte

const (
	Unreliable Reliability = iota
	UnreliableSequenced
	Reliable
	ReliableOrdered
	ReliableSequenced
	// code 5 (UnreliableWithAckReceipt) is reserved in the wire format
	// but not emitted or accepted by this session layer.
	_reservedUnreliableWithAckReceipt
	ReliableWithAckReceipt
	ReliableOrderedWithAckReceipt
)

// IsReliable reports whether the peer must acknowledge frames of this
// reliability, making them eligible for the recovery queue.
func (r Reliability) IsReliable() bool {
	switch r {
	case Reliable, ReliableOrdered, ReliableSequenced, ReliableWithAckReceipt, ReliableOrderedWithAckReceipt:
		return true
	default:
		return false
	}
}

// IsOrdered reports whether frames of this reliability carry an
// order-index and must be replayed in submission order.
func (r Reliability) IsOrdered() bool {
	return r == ReliableOrdered || r == ReliableOrderedWithAckReceipt
}

// IsSequenced reports whether frames of this reliability carry a
// global sequence-index and must be dropped if stale.
func (r Reliability) IsSequenced() bool {
	return r == UnreliableSequenced || r == ReliableSequenced
}

func (r Reliability) valid() bool {
	return r <= ReliableOrderedWithAckReceipt && r != _reservedUnreliableWithAckReceipt
}

func (r Reliability) String() string {
	switch r {
	case Unreliable:
		return "Unreliable"
	case UnreliableSequenced:
		return "UnreliableSequenced"
	case Reliable:
		return "Reliable"
	case ReliableOrdered:
		return "ReliableOrdered"
	case ReliableSequenced:
		return "ReliableSequenced"
	case ReliableWithAckReceipt:
		return "ReliableWithAckReceipt"
	case ReliableOrderedWithAckReceipt:
		return "ReliableOrderedWithAckReceipt"
	default:
		return "Invalid"
	}
}

// Priority selects which send-queue band a frame is enqueued on.
type Priority int

const (
	PriorityHigh Priority = iota
	PriorityMedium
	PriorityLow
)

func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "High"
	case PriorityMedium:
		return "Medium"
	case PriorityLow:
		return "Low"
	default:
		return "Unknown"
	}
}
