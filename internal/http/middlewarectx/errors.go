package middlewarectx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/strata-gate/internal/http/response"
	"github.com/magabrotheeeer/strata-gate/internal/lib/sl"
	"github.com/magabrotheeeer/strata-gate/internal/models"
)

// Error codes written in the "code" field.
const (
	CodeUnauthenticated        = "unauthenticated"
	CodeAccountDisabled        = "accountDisabled"
	CodeNotEntitled            = "notEntitled"
	CodeInsufficientCapability = "insufficientCapability"
	CodeNotFound               = "notFound"
	CodeAlreadyExists          = "alreadyExists"
	CodeUnavailable            = "unavailable"
	CodeInternal               = "internal"
)

// Failure is the HTTP rendering of an error.
type Failure struct {
	Status  int
	Code    string
	Reason  string
	Message string
}

// statusTable is the only place errors become status codes.
var statusTable = []struct {
	target  error
	failure Failure
}{
	{models.ErrUnauthenticated, Failure{http.StatusUnauthorized, CodeUnauthenticated, "", "invalid or missing credential"}},
	{models.ErrAccountDisabled, Failure{http.StatusForbidden, CodeAccountDisabled, "", "account disabled"}},
	{models.ErrNotEntitled, Failure{http.StatusForbidden, CodeNotEntitled, "", "subscription does not allow access"}},
	{models.ErrInsufficientCapability, Failure{http.StatusForbidden, CodeInsufficientCapability, "", "insufficient capability"}},
	{models.ErrNotFound, Failure{http.StatusNotFound, CodeNotFound, "", "not found"}},
	{models.ErrAlreadyExists, Failure{http.StatusConflict, CodeAlreadyExists, "", "already exists"}},
	{models.ErrUnavailable, Failure{http.StatusServiceUnavailable, CodeUnavailable, "", "service temporarily unavailable"}},
	{context.DeadlineExceeded, Failure{http.StatusServiceUnavailable, CodeUnavailable, "", "service temporarily unavailable"}},
}

// Classify maps err to its HTTP rendering. Anything unrecognised is a 500.
func Classify(err error) Failure {
	for _, row := range statusTable {
		if !errors.Is(err, row.target) {
			continue
		}
		f := row.failure
		if row.target == models.ErrNotEntitled {
			f.Reason = string(models.ReasonRequiresUpgrade)
			var ne *models.NotEntitledError
			if errors.As(err, &ne) && ne.Reason != "" {
				f.Reason = string(ne.Reason)
			}
		}
		return f
	}
	return Failure{http.StatusInternalServerError, CodeInternal, "", "internal error"}
}

// WriteError logs err and writes its envelope.
func WriteError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) Failure {
	f := Classify(err)
	if f.Status >= http.StatusInternalServerError {
		log.Error("request failed", slog.String("code", f.Code), sl.Err(err))
	} else {
		log.Info("request rejected", slog.String("code", f.Code), slog.String("reason", f.Reason), sl.Err(err))
	}
	render.Status(r, f.Status)
	render.JSON(w, r, response.Coded(f.Message, f.Code, f.Reason))
	return f
}
