package buffer

// DataType tags a unit as application data or as a control event.
// Events bypass credit-based flow control; data does not.
type DataType uint8

const (
	DataTypeNone DataType = iota
	DataTypeData
	DataTypeEvent
	DataTypeBlockingEvent
	DataTypeEndOfStream
)

func (d DataType) IsData() bool {
	return d == DataTypeData
}

func (d DataType) IsEvent() bool {
	return d == DataTypeEvent || d == DataTypeBlockingEvent || d == DataTypeEndOfStream
}

// IsBlocking reports whether consuming this unit pauses the view until
// ResumeConsumption is called.
func (d DataType) IsBlocking() bool {
	return d == DataTypeBlockingEvent
}

func (d DataType) String() string {
	switch d {
	case DataTypeNone:
		return "none"
	case DataTypeData:
		return "data"
	case DataTypeEvent:
		return "event"
	case DataTypeBlockingEvent:
		return "blocking-event"
	case DataTypeEndOfStream:
		return "end-of-stream"
	default:
		return "unknown"
	}
}
