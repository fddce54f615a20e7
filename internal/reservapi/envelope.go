package reservapi

import (
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/woodlands-thekkady/booking-flow/internal/domain"
)

// envelope is the one canonical response shape accepted from the reservation
// backend. Historically the backend answered with a mix of {success,data},
// {data} and bare payloads; anything that does not parse into this shape is
// rejected rather than guessed at.
type envelope struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func decodeEnvelope(body []byte, out interface{}) error {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return errors.Wrap(domain.ErrSchemaMismatch, err.Error())
	}
	if env.Success == nil || env.Data == nil {
		return errors.Wrap(domain.ErrSchemaMismatch, "missing success or data field")
	}
	if !*env.Success {
		return errors.Newf("backend rejected request: %s", env.Message)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return errors.Wrap(domain.ErrSchemaMismatch, err.Error())
	}
	return nil
}
