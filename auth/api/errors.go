package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// ErrUnauthorized matches any *Error with a 401 status.
var ErrUnauthorized = errors.New("unauthorized")

// Error reports a non-2xx answer.
type Error struct {
	Status int
	Body   string
	// Detail is the server supplied message, if any.
	Detail string
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("api: %d %v: %v", e.Status, http.StatusText(e.Status), e.Detail)
	}
	return fmt.Sprintf("api: %d %v", e.Status, http.StatusText(e.Status))
}

func (e *Error) Is(target error) bool {
	return target == ErrUnauthorized && e.Status == http.StatusUnauthorized
}

func newError(status int, body []byte) *Error {
	ret := &Error{Status: status, Body: string(body)}
	var payload map[string]interface{}
	if json.Unmarshal(body, &payload) != nil {
		return ret
	}
	if detail, ok := payload["detail"].(string); ok {
		ret.Detail = detail
		return ret
	}
	// field errors: {"email": ["This field is required."]}
	var fields []string
	for field, value := range payload {
		if messages, ok := value.([]interface{}); ok && len(messages) > 0 {
			fields = append(fields, fmt.Sprintf("%v: %v", field, messages[0]))
		}
	}
	if len(fields) > 0 {
		sort.Strings(fields)
		ret.Detail = strings.Join(fields, "; ")
	}
	return ret
}

