package errors

import (
	stdErrors "errors"
	"fmt"
)

// ErrorDump flattens an error for structured logs.
type ErrorDump struct {
	TopMessage     string   `json:"top_message"`
	Code           Code     `json:"code,omitempty"`
	HTTPStatus     int      `json:"http_status,omitempty"`
	Retryable      bool     `json:"retryable,omitempty"`
	UpstreamStatus int      `json:"upstream_status,omitempty"`
	Chain          []string `json:"chain,omitempty"`
}

// Dump describes err by its outermost code. The upstream status is the one
// recorded closest to the top, so a gateway failure keeps the backend's answer
// after further wrapping.
func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}

	d := ErrorDump{
		TopMessage:     err.Error(),
		UpstreamStatus: UpstreamStatusOf(err),
	}
	if typed := As(err); typed != nil {
		meta := MetadataFor(typed.Code())
		d.Code = typed.Code()
		d.HTTPStatus = meta.HTTPStatus
		d.Retryable = meta.Retryable
	}

	for e := err; e != nil; e = stdErrors.Unwrap(e) {
		typed, ok := e.(*Error)
		switch {
		case !ok:
			d.Chain = append(d.Chain, e.Error())
		case typed.upstreamStatus != 0:
			d.Chain = append(d.Chain, fmt.Sprintf("%s [upstream %d]", typed.Error(), typed.upstreamStatus))
		default:
			d.Chain = append(d.Chain, typed.Error())
		}
	}
	return d
}
