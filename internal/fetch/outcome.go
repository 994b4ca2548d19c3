package fetch

import "fmt"

// OutcomeKind classifies the terminal result of executing a fetch.
type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeTransient
	OutcomePermanent
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeTransient:
		return "transient_failure"
	case OutcomePermanent:
		return "permanent_failure"
	default:
		return fmt.Sprintf("outcome(%d)", int(k))
	}
}

// Outcome is the result of one fetch execution. Attempts counts every HTTP
// attempt made, including retries.
type Outcome struct {
	Kind       OutcomeKind
	Body       string
	StatusCode int
	Reason     string
	Attempts   int
}

func Success(body string, statusCode int) Outcome {
	return Outcome{Kind: OutcomeSuccess, Body: body, StatusCode: statusCode, Attempts: 1}
}

func Transient(reason string, statusCode int) Outcome {
	return Outcome{Kind: OutcomeTransient, Reason: reason, StatusCode: statusCode, Attempts: 1}
}

func Permanent(reason string, statusCode int) Outcome {
	return Outcome{Kind: OutcomePermanent, Reason: reason, StatusCode: statusCode, Attempts: 1}
}
