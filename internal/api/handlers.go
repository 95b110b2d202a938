package api

import (
	"errors"
	"net/http"

	"github.com/verivote/verivote/internal/face"
	"github.com/verivote/verivote/internal/ledger"
	"github.com/verivote/verivote/internal/observe"
	"github.com/verivote/verivote/internal/resilience"
	"github.com/verivote/verivote/internal/voice"
	"github.com/verivote/verivote/pkg/identity"
)

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("verivote biometric voting backend is up and running"))
}

// ---------------------------------------------------------------------------
// Face endpoints
// ---------------------------------------------------------------------------

type enrollFaceRequest struct {
	VoterID    flexString `json:"voterId"`
	Descriptor []any      `json:"descriptor"`
	Name       string     `json:"name"`
	Age        flexString `json:"age"`
	Gender     string     `json:"gender"`
	Address    string     `json:"address"`
}

func (s *Server) handleEnrollFace(w http.ResponseWriter, r *http.Request) {
	var req enrollFaceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: err.Error()})
		return
	}
	if req.VoterID == "" || len(req.Descriptor) == 0 {
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: "voterId and descriptor are required"})
		return
	}

	descriptor, err := coerceDescriptor(req.Descriptor)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: "descriptor must be an array of 128 numbers"})
		return
	}

	profile := identity.Profile{
		Name:    req.Name,
		Age:     string(req.Age),
		Gender:  req.Gender,
		Address: req.Address,
	}
	voterID, err := s.faces.Enroll(r.Context(), string(req.VoterID), descriptor, profile)
	switch {
	case errors.Is(err, face.ErrInvalidDescriptor):
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: "descriptor must be an array of 128 numbers"})
		return
	case errors.Is(err, face.ErrMissingField):
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: "voterId and descriptor are required"})
		return
	case errors.Is(err, face.ErrDuplicateVoter):
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: "Voter already enrolled"})
		return
	case err != nil:
		observe.Logger(r.Context()).Error("face enrollment failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, messageResponse{Message: "Failed to save face data"})
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "Face enrolled successfully", VoterID: voterID})
}

type verifyFaceRequest struct {
	Descriptor []any `json:"descriptor"`
}

type faceMatchResponse struct {
	Message  string  `json:"message"`
	VoterID  string  `json:"voterId"`
	Distance float64 `json:"distance"`
	Name     string  `json:"name"`
	Age      string  `json:"age"`
	Gender   string  `json:"gender"`
	Address  string  `json:"address"`
}

func (s *Server) handleVerifyFace(w http.ResponseWriter, r *http.Request) {
	var req verifyFaceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: err.Error()})
		return
	}
	if len(req.Descriptor) == 0 {
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: "descriptor is required"})
		return
	}

	descriptor, err := coerceDescriptor(req.Descriptor)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: "descriptor must be an array of 128 numbers"})
		return
	}

	match, err := s.faces.Identify(r.Context(), descriptor)
	switch {
	case errors.Is(err, face.ErrInvalidDescriptor):
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: "descriptor must be an array of 128 numbers"})
		return
	case err != nil:
		observe.Logger(r.Context()).Error("face identification failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, messageResponse{Message: "Face verification failed"})
		return
	}

	if !match.Matched {
		writeJSON(w, http.StatusUnauthorized, messageResponse{Message: "Face not recognized"})
		return
	}
	writeJSON(w, http.StatusOK, faceMatchResponse{
		Message:  "Face verified",
		VoterID:  match.VoterID,
		Distance: match.Distance,
		Name:     match.Profile.Name,
		Age:      match.Profile.Age,
		Gender:   match.Profile.Gender,
		Address:  match.Profile.Address,
	})
}

type statusResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleResetFaces(w http.ResponseWriter, r *http.Request) {
	if err := s.faces.Reset(r.Context()); err != nil {
		observe.Logger(r.Context()).Error("face reset failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, statusResponse{Status: "Failed to reset face data"})
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "All face data cleared"})
}

// ---------------------------------------------------------------------------
// Voice endpoints
// ---------------------------------------------------------------------------

type enrollVoiceRequest struct {
	VoterID    flexString  `json:"voterId"`
	Name       string      `json:"name"`
	Age        flexString  `json:"age"`
	Gender     string      `json:"gender"`
	Address    string      `json:"address"`
	Passphrase string      `json:"passphrase"`
	MFCCFrames [][]float64 `json:"mfccFrames"`
}

type enrollVoiceResponse struct {
	Status  string `json:"status"`
	Samples int    `json:"samples"`
	VoterID string `json:"voterId"`
	Name    string `json:"name"`
	Age     string `json:"age"`
	Gender  string `json:"gender"`
	Address string `json:"address"`
}

func (s *Server) handleEnrollVoice(w http.ResponseWriter, r *http.Request) {
	var req enrollVoiceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: err.Error()})
		return
	}

	profile := identity.Profile{
		Name:    req.Name,
		Age:     string(req.Age),
		Gender:  req.Gender,
		Address: req.Address,
	}
	result, err := s.voices.Enroll(r.Context(), string(req.VoterID), toUtterance(req.MFCCFrames), profile)
	switch {
	case errors.Is(err, voice.ErrMissingField):
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: "voterId and mfccFrames are required"})
		return
	case errors.Is(err, voice.ErrInconsistentFrames):
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: err.Error()})
		return
	case err != nil:
		observe.Logger(r.Context()).Error("voice enrollment failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, messageResponse{Message: "Failed to save voice data"})
		return
	}

	writeJSON(w, http.StatusOK, enrollVoiceResponse{
		Status:  result.Status,
		Samples: result.Samples,
		VoterID: result.VoterID,
		Name:    result.Profile.Name,
		Age:     result.Profile.Age,
		Gender:  result.Profile.Gender,
		Address: result.Profile.Address,
	})
}

type verifyVoiceRequest struct {
	Passphrase string      `json:"passphrase"`
	MFCCFrames [][]float64 `json:"mfccFrames"`
}

type verifyVoiceResponse struct {
	Verified   bool    `json:"verified"`
	Reason     string  `json:"reason,omitempty"`
	VoterID    string  `json:"voterId,omitempty"`
	Name       string  `json:"name,omitempty"`
	Age        string  `json:"age,omitempty"`
	Gender     string  `json:"gender,omitempty"`
	Address    string  `json:"address,omitempty"`
	Similarity float64 `json:"similarity,omitempty"`
}

func (s *Server) handleVerifyVoice(w http.ResponseWriter, r *http.Request) {
	var req verifyVoiceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: err.Error()})
		return
	}

	match, err := s.voices.Identify(r.Context(), toUtterance(req.MFCCFrames))
	switch {
	case errors.Is(err, voice.ErrNoVoiceData):
		writeJSON(w, http.StatusBadRequest, verifyVoiceResponse{Verified: false, Reason: "no voice data in query"})
		return
	case err != nil:
		observe.Logger(r.Context()).Error("voice identification failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, verifyVoiceResponse{Verified: false, Reason: "voice verification failed"})
		return
	}

	if !match.Matched {
		writeJSON(w, http.StatusOK, verifyVoiceResponse{Verified: false, Reason: "no enrolled voice is close enough"})
		return
	}
	writeJSON(w, http.StatusOK, verifyVoiceResponse{
		Verified:   true,
		VoterID:    match.VoterID,
		Name:       match.Profile.Name,
		Age:        match.Profile.Age,
		Gender:     match.Profile.Gender,
		Address:    match.Profile.Address,
		Similarity: match.Similarity,
	})
}

func toUtterance(frames [][]float64) voice.Utterance {
	utt := make(voice.Utterance, len(frames))
	for i, f := range frames {
		utt[i] = voice.Frame(f)
	}
	return utt
}

// ---------------------------------------------------------------------------
// Vote endpoints
// ---------------------------------------------------------------------------

type voteRequest struct {
	VoterID flexString `json:"voterId"`
}

type voteResponse struct {
	Message      string `json:"message"`
	Tx           string `json:"tx,omitempty"`
	AlreadyVoted bool   `json:"alreadyVoted,omitempty"`
}

// handleVote is the shared gate path used by the fingerprint device: a bare
// numeric voter id, with already-voted reported as a client error.
func (s *Server) handleVote(w http.ResponseWriter, r *http.Request) {
	voterID, ok := s.parseVoteRequest(w, r)
	if !ok {
		return
	}

	receipt, err := s.votes.Cast(r.Context(), voterID)
	switch {
	case errors.Is(err, ledger.ErrAlreadyVoted):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "This voter has already voted."})
		return
	case err != nil:
		s.writeVoteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, voteResponse{Message: "Vote cast successfully!", Tx: receipt.TxHash})
}

// handleVoteModality serves the face and voice vote paths, which report
// already-voted as a 200 with a flag so the frontend can show the outcome
// rather than an error.
func (s *Server) handleVoteModality(modality string) http.HandlerFunc {
	message := "Vote cast via face recognition!"
	if modality == "voice" {
		message = "Vote cast via voice recognition!"
	}

	return func(w http.ResponseWriter, r *http.Request) {
		voterID, ok := s.parseVoteRequest(w, r)
		if !ok {
			return
		}

		receipt, err := s.votes.Cast(r.Context(), voterID)
		switch {
		case errors.Is(err, ledger.ErrAlreadyVoted):
			writeJSON(w, http.StatusOK, voteResponse{Message: "This voter has already voted.", AlreadyVoted: true})
			return
		case err != nil:
			s.writeVoteError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, voteResponse{Message: message, Tx: receipt.TxHash})
	}
}

func (s *Server) parseVoteRequest(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	var req voteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return 0, false
	}
	if req.VoterID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "voterId is required"})
		return 0, false
	}

	voterID, err := identity.NumericVoterID(string(req.VoterID))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "voterId must be numeric"})
		return 0, false
	}
	return voterID, true
}

func (s *Server) writeVoteError(w http.ResponseWriter, r *http.Request, err error) {
	observe.Logger(r.Context()).Error("vote failed", "err", err)
	if errors.Is(err, ledger.ErrUnavailable) || errors.Is(err, resilience.ErrCircuitOpen) {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "vote ledger is unavailable, try again shortly"})
		return
	}
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
}
