package remoteapi

import "fmt"

// ApiError wraps a non-200 response from the ejabberd HTTP admin API
// (§4.3, §7). In the sync engine this is logged and recorded in the
// change report; in UpdatePassword it is surfaced to the caller.
type ApiError struct {
	Endpoint string
	Status   int
	Body     string
}

func (e *ApiError) Error() string {
	return fmt.Sprintf("remoteapi: %s returned status %d: %s", e.Endpoint, e.Status, e.Body)
}
