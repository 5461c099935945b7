package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/AlexZinkM/edufund/cardano"
	"github.com/AlexZinkM/edufund/internal/client"
	"github.com/AlexZinkM/edufund/internal/common"
	"github.com/AlexZinkM/edufund/internal/logging"
	"github.com/AlexZinkM/edufund/internal/model"
)

// RateSource provides the ADA/USD rate shown next to balances.
type RateSource interface {
	GetADAtoUSDRate(ctx context.Context) (string, error)
}

// WalletHandler serves the wallet adapter over one session.
type WalletHandler struct {
	session *cardano.Session
	sender  *cardano.Sender
	rates   RateSource
	log     log.FieldLogger
}

// NewWalletHandler creates a WalletHandler. rates may be nil.
func NewWalletHandler(session *cardano.Session, sender *cardano.Sender, rates RateSource, logger log.FieldLogger) *WalletHandler {
	return &WalletHandler{
		session: session,
		sender:  sender,
		rates:   rates,
		log:     logging.Component(logger, "handler"),
	}
}

// Providers handles GET /wallet/providers
// @Summary      List wallet providers
// @Description  Lists the detected CIP-30 wallets in priority order
// @Tags         wallet
// @Produce      json
// @Success      200  {object}  model.ProvidersResponse
// @Router       /wallet/providers [get]
func (h *WalletHandler) Providers(w http.ResponseWriter, r *http.Request) {
	names := []string{}
	for _, p := range h.session.Providers() {
		names = append(names, p.Name)
	}
	writeJSON(w, http.StatusOK, model.ProvidersResponse{Providers: names})
}

// Connect handles POST /wallet/connect
// @Summary      Connect wallet
// @Description  Enables the preferred detected wallet. Returns the held connection when already connected.
// @Tags         wallet
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  model.WalletStatusResponse
// @Failure      401  {object}  model.ErrorResponse
// @Failure      404  {object}  model.ErrorResponse
// @Failure      502  {object}  model.ErrorResponse
// @Router       /wallet/connect [post]
func (h *WalletHandler) Connect(w http.ResponseWriter, r *http.Request) {
	handle, err := h.session.Connect(r.Context())
	if err != nil {
		h.log.WithError(err).Warn("connect failed")
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse(handle))
}

// Disconnect handles POST /wallet/disconnect
// @Summary      Disconnect wallet
// @Tags         wallet
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  model.WalletStatusResponse
// @Failure      401  {object}  model.ErrorResponse
// @Router       /wallet/disconnect [post]
func (h *WalletHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	h.session.Disconnect()
	writeJSON(w, http.StatusOK, statusResponse(nil))
}

// Status handles GET /wallet/status
// @Summary      Connection status
// @Tags         wallet
// @Produce      json
// @Success      200  {object}  model.WalletStatusResponse
// @Router       /wallet/status [get]
func (h *WalletHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse(h.session.Handle()))
}

func statusResponse(handle *cardano.WalletHandle) model.WalletStatusResponse {
	if handle == nil {
		return model.WalletStatusResponse{}
	}
	return model.WalletStatusResponse{
		Connected:   true,
		Provider:    handle.Provider,
		ConnectedAt: handle.ConnectedAt.UTC().Format(time.RFC3339),
	}
}

// Address handles GET /wallet/address
// @Summary      Wallet address
// @Description  Resolves a display address from the connected wallet. Pass qr=true for a base64 PNG QR code.
// @Tags         wallet
// @Produce      json
// @Param        qr  query     bool  false  "Include QR code"
// @Success      200  {object}  model.AddressResponse
// @Failure      409  {object}  model.ErrorResponse
// @Router       /wallet/address [get]
func (h *WalletHandler) Address(w http.ResponseWriter, r *http.Request) {
	rec, err := h.session.GetAddress(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := model.AddressResponse{
		Raw:         rec.Raw,
		Display:     rec.Display,
		Encoding:    rec.Encoding,
		NetworkHint: string(rec.Hint),
		Source:      rec.Source,
	}
	if withQR, _ := strconv.ParseBool(r.URL.Query().Get("qr")); withQR && !rec.IsPlaceholder() {
		qr, err := common.AddressQRCode(rec.Display, 256)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error(), "internal")
			return
		}
		resp.QR = qr
	}
	writeJSON(w, http.StatusOK, resp)
}

// Balance handles GET /wallet/balance
// @Summary      Wallet balance
// @Description  Decodes the wallet balance in lovelace and ADA with a USD estimate when the rate is available
// @Tags         wallet
// @Produce      json
// @Success      200  {object}  model.WalletBalanceResponse
// @Failure      409  {object}  model.ErrorResponse
// @Router       /wallet/balance [get]
func (h *WalletHandler) Balance(w http.ResponseWriter, r *http.Request) {
	rec, err := h.session.GetBalance(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := model.WalletBalanceResponse{
		Lovelace: rec.Lovelace,
		ADA:      common.LovelaceToADA(rec.Lovelace),
		Strategy: string(rec.Strategy),
		Raw:      rec.Raw,
	}
	if h.rates != nil {
		rate, err := h.rates.GetADAtoUSDRate(r.Context())
		if err != nil {
			h.log.WithError(err).Warn("ADA rate unavailable")
		} else {
			resp.Rate = rate
			resp.USD = client.FiatValue(resp.ADA, rate)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Network handles GET /wallet/network
// @Summary      Network check
// @Description  Reconciles the wallet's reported network id with its address format
// @Tags         wallet
// @Produce      json
// @Success      200  {object}  model.NetworkResponse
// @Failure      409  {object}  model.ErrorResponse
// @Router       /wallet/network [get]
func (h *WalletHandler) Network(w http.ResponseWriter, r *http.Request) {
	st, err := h.session.CheckNetwork(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, model.NetworkResponse{
		ReportedID:  st.ReportedID,
		AddressHint: string(st.AddressHint),
		Network:     string(st.Network),
		NeedsSwitch: st.NeedsSwitch,
	})
}

// Send handles POST /wallet/send
// @Summary      Send ADA
// @Description  Builds a payment, has the wallet sign it, submits it and waits for confirmation
// @Tags         wallet
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      model.SendRequest  true  "Payment data"
// @Success      200      {object}  model.SendResponse
// @Failure      400      {object}  model.ErrorResponse
// @Failure      401      {object}  model.ErrorResponse
// @Failure      409      {object}  model.ErrorResponse
// @Failure      429      {object}  model.ErrorResponse
// @Failure      502      {object}  model.ErrorResponse
// @Failure      504      {object}  model.ErrorResponse
// @Router       /wallet/send [post]
func (h *WalletHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req model.SendRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.send(r.Context(), req.ToAddress, req.Amount)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sendResponse(res))
}

func (h *WalletHandler) send(ctx context.Context, to, amount string) (*cardano.SendResult, error) {
	lovelace, err := common.ADAToLovelace(amount)
	if err != nil || lovelace == 0 {
		return nil, cardano.ErrInvalidAmount
	}

	res, err := h.sender.Send(ctx, h.session, to, lovelace)
	if err != nil {
		h.log.WithError(err).WithField("recipient", to).Warn("send failed")
		return nil, err
	}
	return res, nil
}

func sendResponse(res *cardano.SendResult) model.SendResponse {
	return model.SendResponse{
		TxID:     res.TxID,
		Amount:   common.LovelaceToADA(res.Lovelace),
		Fee:      common.LovelaceToADA(res.Fee),
		Provider: res.Provider,
	}
}
