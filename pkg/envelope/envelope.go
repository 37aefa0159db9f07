// Package envelope defines the uniform result shape returned by every
// registered-tool action, and the typed error kinds the registry uses
// to classify failures.
package envelope

import "encoding/json"

// ErrorKind classifies a failure by cause, not by message text.
type ErrorKind string

const (
	KindValidation   ErrorKind = "validation"
	KindNotFound     ErrorKind = "not_found"
	KindUnauthorized ErrorKind = "unauthorized"
	KindUpstream     ErrorKind = "upstream"
	KindTransport    ErrorKind = "transport"
	KindInternal     ErrorKind = "internal"
	KindConflict     ErrorKind = "conflict"
)

// HTTPStatus maps an error kind to the status code the HTTP control
// surface returns for it. Empty kind (success) maps to 200.
func (k ErrorKind) HTTPStatus() int {
	switch k {
	case "":
		return 200
	case KindValidation:
		return 400
	case KindNotFound:
		return 404
	case KindUnauthorized:
		return 401
	case KindConflict:
		return 409
	case KindUpstream:
		return 502
	case KindTransport:
		return 504
	case KindInternal:
		return 500
	default:
		return 500
	}
}

// Envelope is the only shape that crosses the tool/registry boundary.
// success=true implies Data is present and Error/Kind are empty;
// success=false implies Error and Kind are present and Data is absent.
type Envelope struct {
	Success  bool                   `json:"success"`
	Data     interface{}            `json:"data,omitempty"`
	Error    string                 `json:"error,omitempty"`
	Kind     ErrorKind              `json:"kind,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Ok builds a success envelope carrying data.
func Ok(data interface{}) *Envelope {
	return &Envelope{Success: true, Data: data}
}

// OkWithMetadata builds a success envelope carrying data and metadata.
func OkWithMetadata(data interface{}, metadata map[string]interface{}) *Envelope {
	return &Envelope{Success: true, Data: data, Metadata: metadata}
}

// Fail builds a failure envelope of the given kind with a short message.
// The message must never contain a stack trace or internal path.
func Fail(kind ErrorKind, message string) *Envelope {
	return &Envelope{Success: false, Error: message, Kind: kind}
}

// MarshalJSON is the default compiler-generated behavior; declared
// explicitly only to document that Envelope is always JSON-serializable
// as-is, with no hidden fields.
func (e *Envelope) MarshalJSON() ([]byte, error) {
	type alias Envelope
	return json.Marshal((*alias)(e))
}

// AsValidation wraps an error as a validation-kind envelope.
func AsValidation(message string) *Envelope { return Fail(KindValidation, message) }

// AsNotFound wraps an error as a not_found-kind envelope.
func AsNotFound(message string) *Envelope { return Fail(KindNotFound, message) }

// AsConflict wraps an error as a conflict-kind envelope.
func AsConflict(message string) *Envelope { return Fail(KindConflict, message) }

// AsInternal wraps an error as an internal-kind envelope. Used at
// component boundaries to catch unexpected failures without leaking
// their detail.
func AsInternal(message string) *Envelope { return Fail(KindInternal, message) }

// AsUpstream wraps a backing-service failure.
func AsUpstream(message string) *Envelope { return Fail(KindUpstream, message) }

// AsTransport wraps a network-layer failure.
func AsTransport(message string) *Envelope { return Fail(KindTransport, message) }

// AsUnauthorized wraps a missing-credential failure.
func AsUnauthorized(message string) *Envelope { return Fail(KindUnauthorized, message) }
