package tradelog

// RecordType tags what a journal record carries.
type RecordType byte

const (
	RecordTrade    RecordType = 1
	RecordSnapshot RecordType = 2
)

// Record is one journal entry. Seq is the writer-assigned sequence,
// Time the append wall-clock in nanoseconds, Data the encoded payload.
type Record struct {
	Type RecordType
	Seq  uint64
	Time int64
	Data []byte
}
