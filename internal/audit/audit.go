package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Actions recorded by the API.
const (
	ActionInvoiceCreated  = "invoice.create"
	ActionInvoiceUpdated  = "invoice.update_charges"
	ActionInvoiceDeleted  = "invoice.delete"
	ActionPaymentRecorded = "invoice.payment"
	ActionRentsGenerated  = "invoice.generate"
	ActionConfigUpdated   = "billing_config.update"
	ActionUnitVacated     = "unit.vacate"
	ActionJobTriggered    = "job.run"
)

// Entry is an audit log entry.
type Entry struct {
	ID            string
	Actor         string
	Role          string
	Action        string
	ResourceType  string
	ResourceID    string
	Metadata      json.RawMessage
	PayloadDigest string
	IP            string
	UserAgent     string
	CreatedAt     time.Time
}

// Logger writes audit entries.
type Logger interface {
	Log(ctx context.Context, entry Entry) error
}

// NewEntry builds an entry for an HTTP request. Metadata is JSON-encoded;
// an encoding failure leaves it empty.
func NewEntry(r *http.Request, actor, role, action, resourceType, resourceID string, metadata any) Entry {
	entry := Entry{
		Actor:        actor,
		Role:         role,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		IP:           ClientIP(r),
	}
	if r != nil {
		entry.UserAgent = r.UserAgent()
	}
	if metadata != nil {
		if data, err := json.Marshal(metadata); err == nil {
			entry.Metadata = data
		}
	}
	return entry
}

// NewID generates an audit id.
func NewID() string {
	return "audit-" + uuid.NewString()
}

// DigestJSON computes a SHA256 hex digest of a metadata payload.
func DigestJSON(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ClientIP extracts the client ip from proxy headers or RemoteAddr.
func ClientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return strings.TrimSpace(realIP)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		return host
	}
	return r.RemoteAddr
}
