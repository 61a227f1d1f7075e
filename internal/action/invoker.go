package action

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/spachava753/pottery/internal/api"
	"github.com/spachava753/pottery/internal/display"
	"github.com/spachava753/pottery/internal/models"
)

// ErrUnknownTrigger is returned by Invoke for a name with no trigger.
var ErrUnknownTrigger = errors.New("unknown trigger")

// Doer sends a single API request.
type Doer interface {
	Do(ctx context.Context, r api.Request) (*api.Response, error)
}

// Invoker runs triggers against a server and reports into a display.
type Invoker struct {
	client  Doer
	display *display.Display
}

// NewInvoker creates an invoker.
func NewInvoker(client Doer, d *display.Display) *Invoker {
	return &Invoker{client: client, display: d}
}

// Display returns the display the invoker reports into.
func (i *Invoker) Display() *display.Display {
	return i.display
}

// Invoke issues exactly one request for the named trigger using the given
// field values. Request failures are reported into the display and recorded
// in the outcome; the returned error is reserved for unknown triggers, which
// issue no request.
// Fields are not modified; updates to apply are in Outcome.Copied.
func (i *Invoker) Invoke(ctx context.Context, name string, fields models.Fields) (*models.Outcome, error) {
	t, ok := Lookup(name)
	if !ok {
		return &models.Outcome{
			Trigger:   name,
			ErrorType: models.ErrTriggerNotFound,
		}, fmt.Errorf("%w: %s", ErrUnknownTrigger, name)
	}

	outcome := &models.Outcome{
		ID:        uuid.NewString(),
		Trigger:   t.Name,
		Method:    t.Method,
		StartedAt: time.Now(),
	}
	defer func() {
		outcome.EndedAt = time.Now()
		outcome.DurationSec = outcome.EndedAt.Sub(outcome.StartedAt).Seconds()
	}()

	log := slog.With("invocation", outcome.ID, "trigger", t.Name)

	req, err := t.Build(fields)
	if err != nil {
		outcome.ErrorType = models.ErrRequestInvalid
		i.display.ReportError(errorBody(err))
		log.Error("building request", "error", err)
		return outcome, nil
	}
	outcome.Path = req.Path

	resp, err := i.client.Do(ctx, req)
	if err != nil {
		var reqErr *models.RequestError
		switch {
		case errors.As(err, &reqErr):
			outcome.StatusCode = reqErr.StatusCode
			outcome.ErrorType = models.ErrRequestFailed
			i.display.ReportError(reqErr.Body)
		case errors.Is(err, api.ErrInvalidRequest):
			outcome.ErrorType = models.ErrRequestInvalid
			i.display.ReportError(errorBody(err))
		default:
			outcome.ErrorType = models.ErrTransportFailed
			i.display.ReportError(errorBody(err))
		}
		log.Info("request failed",
			"method", req.Method,
			"path", req.Path,
			"status", outcome.StatusCode,
			"error", err)
		return outcome, nil
	}

	outcome.StatusCode = resp.StatusCode
	outcome.Success = true
	i.display.ReportSuccess(resp.Body)

	if t.Copy != nil {
		outcome.Copied = t.Copy(resp.Body)
	}

	log.Debug("request completed",
		"method", req.Method,
		"path", req.Path,
		"status", resp.StatusCode,
		"copied", outcome.Copied)

	return outcome, nil
}

// errorBody wraps a local or transport error as a JSON error body.
func errorBody(err error) []byte {
	data, _ := json.Marshal(map[string]string{"error": err.Error()})
	return data
}
