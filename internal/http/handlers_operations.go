package http

import (
	"net/http"
	"sync/atomic"

	"ledger/internal/core"
)

const (
	msgNoOperations = "No operations found"
	msgNoOperation  = "No operation found"
)

type operationWrittenBody struct {
	Message   string         `json:"message"`
	Operation core.Operation `json:"operation"`
}

func (s *Server) handleListOperations(w http.ResponseWriter, r *http.Request) {
	userID, err := pathInt64(r, "userID")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ops, err := s.operations.ListForUser(r.Context(), userID)
	s.writeOperationList(w, r, ops, err)
}

func (s *Server) handleListOperationsInRange(w http.ResponseWriter, r *http.Request) {
	userID, err := pathInt64(r, "userID")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ops, err := s.operations.ListForUserInRange(r.Context(), userID, r.PathValue("start"), r.PathValue("end"))
	s.writeOperationList(w, r, ops, err)
}

// writeOperationList answers 404 for an empty result.
func (s *Server) writeOperationList(w http.ResponseWriter, r *http.Request, ops []core.Operation, err error) {
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if len(ops) == 0 {
		NotFoundError(msgNoOperations).Write(w)
		return
	}
	NewJSONResponse().Body(ops).Write(w)
}

func (s *Server) handleGetOperation(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	op, ok, err := s.operations.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !ok {
		NotFoundError(msgNoOperation).Write(w)
		return
	}
	NewJSONResponse().Body(op).Write(w)
}

func (s *Server) handleAddOperation(w http.ResponseWriter, r *http.Request) {
	candidate, err := s.readOperation(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	op, err := s.operations.Add(r.Context(), candidate)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.operationWritten(op.UserID)
	NewJSONResponse().Status(http.StatusCreated).
		Body(operationWrittenBody{Message: "operation added successfully", Operation: op}).
		Write(w)
}

func (s *Server) handleUpdateOperation(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	candidate, err := s.readOperation(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	// the operation may move to another user; both lose their charts
	prev, found, err := s.operations.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	op, err := s.operations.Update(r.Context(), id, candidate)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if found && prev.UserID != op.UserID {
		s.invalidateCharts(prev.UserID)
	}
	s.operationWritten(op.UserID)
	NewJSONResponse().
		Body(operationWrittenBody{Message: "operation updated successfully", Operation: op}).
		Write(w)
}

func (s *Server) handleDeleteOperation(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	prev, found, err := s.operations.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.operations.Delete(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	if found {
		s.operationWritten(prev.UserID)
	}
	NewJSONResponse().Message("operation deleted successfully").Write(w)
}

func (s *Server) readOperation(w http.ResponseWriter, r *http.Request) (core.Operation, error) {
	var payload operationPayload
	if err := decodeJSON(w, r, &payload); err != nil {
		return core.Operation{}, err
	}
	return payload.Operation()
}

func (s *Server) operationWritten(userID int64) {
	atomic.AddInt64(&s.appMetrics.operationWrites, 1)
	s.invalidateCharts(userID)
}
