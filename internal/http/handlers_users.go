package http

import (
	"net/http"

	"ledger/internal/core"
	"ledger/internal/log"
)

type userCreatedBody struct {
	Message string `json:"message"`
	ID      int64  `json:"id"`
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var candidate core.User
	if err := decodeJSON(w, r, &candidate); err != nil {
		s.writeError(w, r, err)
		return
	}

	u, err := s.users.SignUp(r.Context(), candidate)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).
		Body(userCreatedBody{Message: "You were signed up successfully", ID: u.ID}).
		Write(w)
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var creds core.Credentials
	if err := decodeJSON(w, r, &creds); err != nil {
		s.writeError(w, r, err)
		return
	}

	ok, err := s.users.SignIn(r.Context(), creds)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !ok {
		NotFoundError("This user does not exist").Write(w)
		return
	}
	NewJSONResponse().Message("You were signed in successfully").Write(w)
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var candidate core.User
	if err := decodeJSON(w, r, &candidate); err != nil {
		s.writeError(w, r, err)
		return
	}

	if _, err := s.users.UpdateProfile(r.Context(), id, candidate); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.requestLogger(r).DebugContext(r.Context(), "Profile update served", log.FieldUserID, id)
	NewJSONResponse().Message("Your profile was updated successfully").Write(w)
}
