package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/AlexZinkM/edufund/internal/common"
	"github.com/AlexZinkM/edufund/internal/model"
)

// ListDonations handles GET /donations
// @Summary      List donations
// @Description  Lists donations with optional filters, newest first, and their ADA total
// @Tags         donations
// @Produce      json
// @Param        projectId  query     string  false  "Project id"
// @Param        donorId    query     string  false  "Donor user id"
// @Param        txId       query     string  false  "Transaction id"
// @Param        from       query     string  false  "Start date (YYYY-MM-DD)"
// @Param        to         query     string  false  "End date (YYYY-MM-DD)"
// @Param        minAmount  query     string  false  "Minimum ADA amount"
// @Param        maxAmount  query     string  false  "Maximum ADA amount"
// @Success      200  {object}  model.DonationsResponse
// @Failure      400  {object}  model.ErrorResponse
// @Router       /donations [get]
func (h *PlatformHandler) ListDonations(w http.ResponseWriter, r *http.Request) {
	var filter model.DonationFilter
	q := r.URL.Query()

	const dateLayout = "2006-01-02"
	if fromStr := q.Get("from"); fromStr != "" {
		t, err := time.Parse(dateLayout, fromStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid from date: use YYYY-MM-DD (e.g. 2006-01-02)", "invalid_request")
			return
		}
		filter.From = &t
	}
	if toStr := q.Get("to"); toStr != "" {
		t, err := time.Parse(dateLayout, toStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid to date: use YYYY-MM-DD (e.g. 2006-01-02)", "invalid_request")
			return
		}
		// End of day so filter is inclusive
		t = t.Add(24*time.Hour - time.Nanosecond)
		filter.To = &t
	}

	for key, dst := range map[string]**string{
		"projectId": &filter.ProjectID,
		"donorId":   &filter.DonorID,
		"txId":      &filter.TxID,
		"minAmount": &filter.MinAmount,
		"maxAmount": &filter.MaxAmount,
	} {
		if v := strings.TrimSpace(q.Get(key)); v != "" {
			*dst = &v
		}
	}

	if err := filter.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "invalid_request")
		return
	}

	donations, total, err := h.store.ListDonations(r.Context(), filter)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, model.DonationsResponse{Total: common.LovelaceToADA(total), Donations: donations})
}

// CreateDonation handles POST /donations
// @Summary      Record donation
// @Description  Records a donation for a transaction already sent with /wallet/send
// @Tags         donations
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      model.DonationRequest  true  "Donation"
// @Success      201      {object}  model.Donation
// @Failure      400      {object}  model.ErrorResponse
// @Failure      404      {object}  model.ErrorResponse
// @Failure      409      {object}  model.ErrorResponse
// @Router       /donations [post]
func (h *PlatformHandler) CreateDonation(w http.ResponseWriter, r *http.Request) {
	c, ok := claims(w, r)
	if !ok {
		return
	}

	var req model.DonationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.ProjectID) == "" || !isTxID(req.TxID) {
		writeError(w, http.StatusBadRequest, "projectId and a 64 character hex txId are required", "invalid_request")
		return
	}
	lovelace, err := common.ADAToLovelace(req.Amount)
	if err != nil || lovelace == 0 {
		writeError(w, http.StatusBadRequest, "amount must be a positive ADA amount", "invalid_request")
		return
	}

	d := &model.Donation{
		ProjectID: req.ProjectID,
		DonorID:   c.UserID(),
		TxID:      req.TxID,
		Lovelace:  lovelace,
		Message:   req.Message,
	}
	if err := h.store.CreateDonation(r.Context(), d); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

func isTxID(s string) bool {
	s = strings.TrimSpace(s)
	if len(s) != 64 {
		return false
	}
	for _, c := range strings.ToLower(s) {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
