package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/AlexZinkM/edufund/cardano"
	"github.com/AlexZinkM/edufund/internal/address"
	"github.com/AlexZinkM/edufund/internal/common"
	"github.com/AlexZinkM/edufund/internal/model"
)

var errNotOwner = errors.New("only the project owner can change it")

// recordTimeout bounds the donation insert that follows a confirmed payment.
const recordTimeout = 10 * time.Second

// ListProjects handles GET /projects
// @Summary      List projects
// @Tags         projects
// @Produce      json
// @Param        ownerId  query     string  false  "Owner user id"
// @Success      200      {array}   model.Project
// @Router       /projects [get]
func (h *PlatformHandler) ListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.store.ListProjects(r.Context(), r.URL.Query().Get("ownerId"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, projects)
}

// CreateProject handles POST /projects
// @Summary      Create project
// @Description  Creates a fundraising project. Students only.
// @Tags         projects
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      model.ProjectRequest  true  "Project data"
// @Success      201      {object}  model.Project
// @Failure      400      {object}  model.ErrorResponse
// @Failure      403      {object}  model.ErrorResponse
// @Router       /projects [post]
func (h *PlatformHandler) CreateProject(w http.ResponseWriter, r *http.Request) {
	c, ok := claims(w, r)
	if !ok {
		return
	}
	if c.Role != model.RoleStudent {
		writeError(w, http.StatusForbidden, "only students can create projects", "forbidden")
		return
	}

	p, ok := projectFromRequest(w, r)
	if !ok {
		return
	}
	p.OwnerID = c.UserID()

	if err := h.store.CreateProject(r.Context(), p); err != nil {
		writeDomainError(w, err)
		return
	}
	h.log.WithField("project_id", p.ID).Info("project created")
	writeJSON(w, http.StatusCreated, p)
}

func projectFromRequest(w http.ResponseWriter, r *http.Request) (*model.Project, bool) {
	var req model.ProjectRequest
	if !decodeJSON(w, r, &req) {
		return nil, false
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "invalid_request")
		return nil, false
	}
	if _, err := address.Decode(req.PayoutAddress); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "invalid_request")
		return nil, false
	}
	goal, err := common.ADAToLovelace(req.Goal)
	if err != nil || goal == 0 {
		writeError(w, http.StatusBadRequest, "goal must be a positive ADA amount", "invalid_request")
		return nil, false
	}
	return &model.Project{
		Title:         req.Title,
		Description:   req.Description,
		PayoutAddress: req.PayoutAddress,
		GoalLovelace:  goal,
	}, true
}

// GetProject handles GET /projects/{id}
// @Summary      Get project
// @Tags         projects
// @Produce      json
// @Param        id   path      string  true  "Project id"
// @Success      200  {object}  model.Project
// @Failure      404  {object}  model.ErrorResponse
// @Router       /projects/{id} [get]
func (h *PlatformHandler) GetProject(w http.ResponseWriter, r *http.Request) {
	p, err := h.store.GetProject(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// UpdateProject handles PUT /projects/{id}
// @Summary      Update project
// @Tags         projects
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                true  "Project id"
// @Param        request  body      model.ProjectRequest  true  "Project data"
// @Success      200      {object}  model.Project
// @Failure      403      {object}  model.ErrorResponse
// @Failure      404      {object}  model.ErrorResponse
// @Router       /projects/{id} [put]
func (h *PlatformHandler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.ownedProject(w, r)
	if !ok {
		return
	}

	p, ok := projectFromRequest(w, r)
	if !ok {
		return
	}
	existing.Title = p.Title
	existing.Description = p.Description
	existing.PayoutAddress = p.PayoutAddress
	existing.GoalLovelace = p.GoalLovelace

	if err := h.store.UpdateProject(r.Context(), existing); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, existing)
}

// DeleteProject handles DELETE /projects/{id}
// @Summary      Delete project
// @Description  Deletes the project and its donation records
// @Tags         projects
// @Security     BearerAuth
// @Param        id   path      string  true  "Project id"
// @Success      204
// @Failure      403  {object}  model.ErrorResponse
// @Failure      404  {object}  model.ErrorResponse
// @Router       /projects/{id} [delete]
func (h *PlatformHandler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	p, ok := h.ownedProject(w, r)
	if !ok {
		return
	}
	if err := h.store.DeleteProject(r.Context(), p.ID); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *PlatformHandler) ownedProject(w http.ResponseWriter, r *http.Request) (*model.Project, bool) {
	c, ok := claims(w, r)
	if !ok {
		return nil, false
	}
	p, err := h.store.GetProject(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return nil, false
	}
	if p.OwnerID != c.UserID() {
		writeError(w, http.StatusForbidden, errNotOwner.Error(), "forbidden")
		return nil, false
	}
	return p, true
}

// ProjectQR handles GET /projects/{id}/qr
// @Summary      Project payout QR code
// @Description  Returns the payout address with a base64 PNG QR code
// @Tags         projects
// @Produce      json
// @Param        id    path      string  true   "Project id"
// @Param        size  query     int     false  "Image size in pixels (default 256)"
// @Success      200   {object}  model.ProjectQRResponse
// @Failure      404   {object}  model.ErrorResponse
// @Router       /projects/{id}/qr [get]
func (h *PlatformHandler) ProjectQR(w http.ResponseWriter, r *http.Request) {
	p, err := h.store.GetProject(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	size := 256
	if s := r.URL.Query().Get("size"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 64 || n > 1024 {
			writeError(w, http.StatusBadRequest, "size must be between 64 and 1024", "invalid_request")
			return
		}
		size = n
	}

	qr, err := common.AddressQRCode(p.PayoutAddress, size)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, model.ProjectQRResponse{Address: p.PayoutAddress, QR: qr})
}

// Donate handles POST /projects/{id}/donate
// @Summary      Donate to project
// @Description  Sends ADA from the connected wallet to the project's payout address and records the donation
// @Tags         projects
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string               true  "Project id"
// @Param        request  body      model.DonateRequest  true  "Donation"
// @Success      201      {object}  model.DonateResponse
// @Failure      400      {object}  model.ErrorResponse
// @Failure      404      {object}  model.ErrorResponse
// @Failure      409      {object}  model.ErrorResponse
// @Failure      502      {object}  model.ErrorResponse
// @Failure      504      {object}  model.ErrorResponse
// @Router       /projects/{id}/donate [post]
func (h *PlatformHandler) Donate(w http.ResponseWriter, r *http.Request) {
	c, ok := claims(w, r)
	if !ok {
		return
	}

	var req model.DonateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	p, err := h.store.GetProject(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	res, err := h.wallet.send(r.Context(), p.PayoutAddress, req.Amount)
	if err != nil {
		var unconfirmed *cardano.UnconfirmedError
		if errors.As(err, &unconfirmed) {
			h.log.WithError(err).WithFields(log.Fields{
				"tx_id":      unconfirmed.TxID,
				"project_id": p.ID,
				"donor_id":   c.UserID(),
			}).Error("donation submitted but not confirmed, record it via POST /donations once on chain")
		}
		writeDomainError(w, err)
		return
	}

	// The payment is on chain at this point. Recording it must not depend on
	// the client still being there.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), recordTimeout)
	defer cancel()
	d := &model.Donation{
		ProjectID: p.ID,
		DonorID:   c.UserID(),
		TxID:      res.TxID,
		Lovelace:  res.Lovelace,
		Message:   req.Message,
	}
	if err := h.store.CreateDonation(ctx, d); err != nil {
		h.log.WithError(err).WithField("tx_id", res.TxID).Error("failed to record confirmed donation")
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, model.DonateResponse{Donation: *d, Send: sendResponse(res)})
}
