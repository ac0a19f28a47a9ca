// internal/transport/httpapi/handlers.go
package httpapi

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	stderrors "origination-intake/internal/common/errors"
	"origination-intake/internal/guard"
	"origination-intake/internal/intake"
	"origination-intake/internal/models"
	"origination-intake/internal/search"
)

const accountKeyHeader = "X-Account-Key"

type enterResponse struct {
	Decision    string                   `json:"decision"`
	Draft       *models.ApplicationDraft `json:"draft,omitempty"`
	HealedSlots []string                 `json:"healedSlots,omitempty"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// handleEnter runs the guarded surface entry and activates the session.
// Live binary IDs, when the client still holds file payloads from this
// browser session, arrive as a comma-separated query parameter.
func (s *Server) handleEnter(w http.ResponseWriter, r *http.Request) {
	accountKey, ok := s.accountKey(w, r)
	if !ok {
		return
	}

	var liveBinaryIDs []string
	if raw := r.URL.Query().Get("liveBinaryIds"); raw != "" {
		liveBinaryIDs = strings.Split(raw, ",")
	}

	session, decision, err := s.service.Enter(r.Context(), accountKey, liveBinaryIDs)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.storeSession(accountKey, session, decision)

	s.writeJSON(w, http.StatusOK, enterResponse{
		Decision:    string(decision),
		Draft:       session.Draft(),
		HealedSlots: session.HealedSlots(),
	})
}

func (s *Server) handleOffer(w http.ResponseWriter, r *http.Request) {
	session, ok := s.mutableSession(w, r)
	if !ok {
		return
	}

	offer := session.Offer()
	if offer == nil {
		// Not computable is expected while the applicant is typing.
		w.WriteHeader(http.StatusNoContent)
		return
	}
	s.writeJSON(w, http.StatusOK, offer)
}

func (s *Server) handleDisclosure(w http.ResponseWriter, r *http.Request) {
	session, ok := s.mutableSession(w, r)
	if !ok {
		return
	}

	visible := session.VisibleDisclosures()
	indices := make([]int, 0, len(visible))
	for i := range visible {
		indices = append(indices, i)
	}
	sort.Ints(indices)

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"visibleIndices": indices,
	})
}

func (s *Server) handleMergeSection(w http.ResponseWriter, r *http.Request) {
	session, ok := s.mutableSession(w, r)
	if !ok {
		return
	}
	section := chi.URLParam(r, "section")

	var patch map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		s.writeError(w, stderrors.NewValidationFailed("request body is not a JSON object"))
		return
	}
	if err := validateSectionPatch(section, patch); err != nil {
		s.writeError(w, err)
		return
	}

	disclosureIndex := -1
	if raw := r.URL.Query().Get("disclosureIndex"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.writeError(w, stderrors.NewValidationFailed("disclosureIndex must be a non-negative integer"))
			return
		}
		disclosureIndex = n
	}

	if section == models.SectionFinances && disclosureIndex >= 0 {
		if err := session.AnswerDisclosure(r.Context(), disclosureIndex, patch); err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, session.Draft().Sections[section])
		return
	}

	offer, err := session.MergeSection(r.Context(), section, patch)
	if err != nil {
		s.writeError(w, err)
		return
	}

	resp := map[string]interface{}{"section": session.Draft().Sections[section]}
	if offer != nil {
		resp["offer"] = offer
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleReplaceOwners(w http.ResponseWriter, r *http.Request) {
	session, ok := s.mutableSession(w, r)
	if !ok {
		return
	}

	var owners []models.Owner
	if err := json.NewDecoder(r.Body).Decode(&owners); err != nil {
		s.writeError(w, stderrors.NewValidationFailed("request body is not an owner list"))
		return
	}
	if err := validateOwners(owners); err != nil {
		s.writeError(w, err)
		return
	}

	if err := session.ReplaceOwners(r.Context(), owners); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, session.Draft().Owners)
}

func (s *Server) handleSetFileSlot(w http.ResponseWriter, r *http.Request) {
	session, ok := s.mutableSession(w, r)
	if !ok {
		return
	}
	slot := chi.URLParam(r, "slot")

	var infos []models.FileDescriptor
	if err := json.NewDecoder(r.Body).Decode(&infos); err != nil {
		s.writeError(w, stderrors.NewValidationFailed("request body is not a file descriptor list"))
		return
	}

	if err := session.SetFileSlot(r.Context(), slot, infos); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetStage(w http.ResponseWriter, r *http.Request) {
	session, ok := s.mutableSession(w, r)
	if !ok {
		return
	}

	var body struct {
		Stage int `json:"stage"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, stderrors.NewValidationFailed("request body must carry a stage number"))
		return
	}

	if err := session.SetStage(r.Context(), body.Stage); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	session, ok := s.mutableSession(w, r)
	if !ok {
		return
	}

	if err := session.Save(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	session, ok := s.mutableSession(w, r)
	if !ok {
		return
	}

	result, err := session.Submit(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	session, ok := s.mutableSession(w, r)
	if !ok {
		return
	}

	if err := session.Reset(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	s.dropSession(r.Header.Get(accountKeyHeader))
	w.WriteHeader(http.StatusNoContent)
}

// handleOperatorLookup serves operator tooling: the latest submission
// record from postgres plus the matching search-index documents. A
// search failure degrades to the record alone.
func (s *Server) handleOperatorLookup(w http.ResponseWriter, r *http.Request) {
	accountKey := r.URL.Query().Get("accountKey")
	if accountKey == "" {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{
			Code: "MISSING_ACCOUNT_KEY", Message: "accountKey query parameter is required",
		})
		return
	}

	record, err := s.recordReader.Get(r.Context(), accountKey)
	if err != nil {
		s.writeError(w, err)
		return
	}

	documents := []search.Document{}
	if s.finder != nil {
		docs, err := s.finder.FindByAccountKey(r.Context(), accountKey)
		if err != nil {
			s.logger.Warn("submission search lookup failed", map[string]interface{}{
				"accountKey": accountKey,
				"error":      err.Error(),
			})
		} else if docs != nil {
			documents = docs
		}
	}

	if record == nil && len(documents) == 0 {
		s.writeJSON(w, http.StatusNotFound, errorResponse{
			Code: "SUBMISSION_NOT_FOUND", Message: "no submission recorded for " + accountKey,
		})
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"record":    record,
		"documents": documents,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ==========================
// Helpers
// ==========================

func (s *Server) accountKey(w http.ResponseWriter, r *http.Request) (string, bool) {
	key := r.Header.Get(accountKeyHeader)
	if key == "" {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{
			Code: "MISSING_ACCOUNT_KEY", Message: accountKeyHeader + " header is required",
		})
		return "", false
	}
	return key, true
}

// mutableSession resolves the active session and refuses mutation while
// the guard decision was a redirect.
func (s *Server) mutableSession(w http.ResponseWriter, r *http.Request) (*intake.Session, bool) {
	accountKey, ok := s.accountKey(w, r)
	if !ok {
		return nil, false
	}

	active := s.activeFor(accountKey)
	if active == nil {
		s.writeJSON(w, http.StatusConflict, errorResponse{
			Code: "NO_ACTIVE_SESSION", Message: "enter the application surface first",
		})
		return nil, false
	}
	if active.decision == guard.RedirectToConfirmation {
		s.writeJSON(w, http.StatusForbidden, errorResponse{
			Code: string(stderrors.ErrCodeAlreadySubmitted), Message: "application already submitted",
		})
		return nil, false
	}
	return active.session, true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("failed to encode response", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := stderrors.CodeOf(err)
	status := http.StatusInternalServerError
	switch code {
	case stderrors.ErrCodeValidationFailed, stderrors.ErrCodeUnknownSection:
		status = http.StatusBadRequest
	case stderrors.ErrCodeAlreadySubmitted, stderrors.ErrCodeDuplicateSubmission:
		status = http.StatusConflict
	case stderrors.ErrCodeTransientRemoteFailure:
		status = http.StatusBadGateway
	}

	s.logger.Warn("request failed", map[string]interface{}{
		"code":  string(code),
		"error": err.Error(),
	})
	s.writeJSON(w, status, errorResponse{Code: string(code), Message: err.Error()})
}

