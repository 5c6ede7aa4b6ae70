package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content digests.
// Version suffix enables future algorithm migration.
const (
	DomainPayload      = "edix/payload/v1"
	DomainNotification = "edix/notification/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// PayloadDigest computes the integrity digest stored next to a record file.
// Empty payloads have an empty digest.
func PayloadDigest(file []byte) string {
	if len(file) == 0 {
		return ""
	}
	return hashWithDomain(DomainPayload, file)
}

// NotificationID computes a stable identifier for a notification.
// Returns error if the notification cannot be canonically marshaled.
func NotificationID(n Notification) (string, error) {
	canonical, err := MarshalCanonical(n.canonicalMap())
	if err != nil {
		return "", fmt.Errorf("NotificationID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainNotification, canonical), nil
}

// canonicalMap projects a Notification onto canonical JSON primitives.
func (n Notification) canonicalMap() map[string]any {
	m := map[string]any{
		"record_id": n.RecordID,
		"backend":   n.Backend,
		"type":      n.Type,
		"related": map[string]any{
			"kind": n.Related.Kind,
			"id":   n.Related.ID,
		},
		"level":   string(n.Level),
		"message": n.Message,
		"state":   string(n.State),
		"at":      n.At.UTC().Format("2006-01-02T15:04:05.000000000Z"),
	}
	if n.Error != "" {
		m["error"] = n.Error
	}
	return m
}

// MarshalNotification renders n as canonical JSON.
func MarshalNotification(n Notification) ([]byte, error) {
	return MarshalCanonical(n.canonicalMap())
}
