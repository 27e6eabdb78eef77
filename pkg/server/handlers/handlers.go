package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/kaleido-sync/watchagg/pkg/watch"
)

// Handlers holds the aggregator and local store the debug surface reads
// from and provides HTTP handlers over them.
type Handlers struct {
	agg   *watch.Aggregator
	store ExistingKeysStore
}

// ExistingKeysStore is the narrow slice of localstore.Store the debug
// handlers need, kept as an interface so tests can supply a stub instead
// of a real store.
type ExistingKeysStore interface {
	QueryDataCallback(watch.TargetID) *watch.QueryData
}

// New creates a new Handlers instance.
func New(agg *watch.Aggregator, store ExistingKeysStore) *Handlers {
	return &Handlers{agg: agg, store: store}
}

// Error types for consistent error handling.

type BadRequestError struct {
	Message string
}

func (e *BadRequestError) Error() string {
	return e.Message
}

type TargetNotFoundError struct {
	TargetID watch.TargetID
}

func (e *TargetNotFoundError) Error() string {
	return "target not found"
}

type InternalError struct {
	Message string
}

func (e *InternalError) Error() string {
	return e.Message
}

// writeError writes an error response with an appropriate HTTP status code.
func writeError(w http.ResponseWriter, err error) {
	var statusCode int
	var errorType string
	var message string

	switch e := err.(type) {
	case *BadRequestError:
		statusCode = http.StatusBadRequest
		errorType = "BadRequest"
		message = e.Message
	case *TargetNotFoundError:
		statusCode = http.StatusNotFound
		errorType = "TargetNotFound"
		message = e.Error()
	case *InternalError:
		statusCode = http.StatusInternalServerError
		errorType = "InternalError"
		message = e.Message
	default:
		statusCode = http.StatusInternalServerError
		errorType = "InternalError"
		message = err.Error()
	}

	response := map[string]interface{}{
		"ok":      false,
		"error":   errorType,
		"message": message,
		"code":    statusCode,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(response)
}

// writeSuccess writes a success response.
func writeSuccess(w http.ResponseWriter, result interface{}) {
	response := map[string]interface{}{
		"ok":     true,
		"result": result,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}
