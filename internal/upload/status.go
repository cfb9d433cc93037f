package upload

// State is the lifecycle stage of one file in a batch
type State string

const (
	Pending   State = "pending"
	Uploading State = "uploading"
	Succeeded State = "succeeded"
	Failed    State = "failed"
)

// Messages used when the service response cannot be interpreted
const (
	InvalidResponse = "Invalid response"
	UnknownError    = "Unknown error"
)

// FileStatus is the outcome of one file. Identity is the position in the
// batch, not the name, since names can repeat.
type FileStatus struct {
	Name   string `json:"name"`
	State  State  `json:"state"`
	Detail string `json:"detail,omitempty"`
}

// String renders the status the way the upload list shows it
func (s FileStatus) String() string {
	switch s.State {
	case Pending:
		return "Pending"
	case Uploading:
		return "Uploading..."
	case Succeeded:
		return "✅ " + s.Detail
	case Failed:
		return "❌ " + s.Detail
	default:
		return string(s.State)
	}
}

// Done reports whether the file has reached a final state
func (s FileStatus) Done() bool {
	return s.State == Succeeded || s.State == Failed
}
