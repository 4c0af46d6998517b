package keyserver

import (
	"context"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/ruteri/fhevm-instance-bootstrap/kms"
)

// AdminIDHeader identifies the administrator submitting a share.
const AdminIDHeader = "X-Admin-ID"

// ShareSubmission is the body of POST /api/admin/share.
type ShareSubmission struct {
	ShareIndex int    `json:"share_index"`
	Share      string `json:"share"`     // base64
	Signature  string `json:"signature"` // base64, over kms.ShareDigest
}

// AdminStatus is the body of GET /api/admin/status.
type AdminStatus struct {
	State          string `json:"state"`
	SharesReceived int    `json:"shares_received"`
}

// AdminHandler unlocks a ShamirKMS from administrator shares.
type AdminHandler struct {
	mu           sync.Mutex
	log          *slog.Logger
	adminPubKeys map[string][]byte
	shamirKMS    *kms.ShamirKMS
	unlocked     chan struct{}
	closeOnce    sync.Once
}

// NewAdminHandler creates an admin handler for shamirKMS. adminPubKeys maps admin ids to PEM public keys.
func NewAdminHandler(shamirKMS *kms.ShamirKMS, adminPubKeys map[string][]byte, log *slog.Logger) *AdminHandler {
	h := &AdminHandler{
		log:          log,
		adminPubKeys: adminPubKeys,
		shamirKMS:    shamirKMS,
		unlocked:     make(chan struct{}),
	}
	if shamirKMS.IsUnlocked() {
		h.markUnlocked()
	}
	return h
}

// IsUnlocked reports whether the KMS can serve key material.
func (h *AdminHandler) IsUnlocked() bool {
	return h.shamirKMS.IsUnlocked()
}

// WaitForUnlock blocks until the KMS is unlocked or ctx is done.
func (h *AdminHandler) WaitForUnlock(ctx context.Context) error {
	select {
	case <-h.unlocked:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// AdminRouter returns the admin API router.
func (h *AdminHandler) AdminRouter() chi.Router {
	r := chi.NewRouter()
	r.Get("/status", h.handleStatus)
	r.Post("/share", h.handleSubmitShare)
	return r
}

// GET /api/admin/status
func (h *AdminHandler) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := AdminStatus{State: "locked", SharesReceived: h.shamirKMS.SharesReceived()}
	if h.shamirKMS.IsUnlocked() {
		status.State = "unlocked"
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(status)
}

// POST /api/admin/share
func (h *AdminHandler) handleSubmitShare(w http.ResponseWriter, r *http.Request) {
	adminID := r.Header.Get(AdminIDHeader)
	adminPubKeyPEM, known := h.adminPubKeys[adminID]
	if adminID == "" || !known {
		h.log.Warn("Share submission from unknown admin", slog.String("adminID", adminID))
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var submission ShareSubmission
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(&submission); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	share, err := base64.StdEncoding.DecodeString(submission.Share)
	if err != nil {
		http.Error(w, "Invalid share encoding", http.StatusBadRequest)
		return
	}
	signature, err := base64.StdEncoding.DecodeString(submission.Signature)
	if err != nil {
		http.Error(w, "Invalid signature encoding", http.StatusBadRequest)
		return
	}

	h.mu.Lock()
	err = h.shamirKMS.SubmitShare(submission.ShareIndex, share, signature, adminPubKeyPEM)
	unlocked := h.shamirKMS.IsUnlocked()
	h.mu.Unlock()

	if err != nil {
		h.log.Error("Share submission failed", "err", err, slog.String("adminID", adminID))
		http.Error(w, "Share submission failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	message := "Share accepted, waiting for more shares"
	if unlocked {
		h.markUnlocked()
		message = "KMS unlocked"
		h.log.Info("KMS unlocked", slog.String("adminID", adminID))
	} else {
		h.log.Info("Share accepted", slog.String("adminID", adminID), slog.Int("shareIndex", submission.ShareIndex))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"message": message, "unlocked": unlocked})
}

func (h *AdminHandler) markUnlocked() {
	h.closeOnce.Do(func() { close(h.unlocked) })
}

// LoadAdminKeys reads an AdminsConfig and returns the PEM public keys by admin id.
func LoadAdminKeys(r io.Reader) (map[string][]byte, error) {
	var data AdminsConfig

	if err := json.NewDecoder(r).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode admin keys JSON: %w", err)
	}

	result := make(map[string][]byte, len(data.Admins))
	for _, admin := range data.Admins {
		if admin.ID == "" {
			return nil, fmt.Errorf("admin entry without id")
		}
		if _, dup := result[admin.ID]; dup {
			return nil, fmt.Errorf("duplicate admin id %s", admin.ID)
		}

		block, _ := pem.Decode([]byte(admin.PubKey))
		if block == nil {
			return nil, fmt.Errorf("invalid PEM data for admin %s", admin.ID)
		}
		if _, err := x509.ParsePKIXPublicKey(block.Bytes); err != nil {
			return nil, fmt.Errorf("invalid public key for admin %s: %w", admin.ID, err)
		}

		result[admin.ID] = []byte(admin.PubKey)
	}

	return result, nil
}
