package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Event types consumed from the durable inbox.
const (
	// EventSessionStarted announces a newly created mining session.
	EventSessionStarted = "mining.session_started"
	// EventSignupCompleted announces a confirmed user registration.
	EventSignupCompleted = "auth.signup_completed"
)

// SessionStartedPayload captures the durable fields of a session-creation
// notification. Delivery is at-least-once; consumers must tolerate duplicates.
type SessionStartedPayload struct {
	SessionID    string `json:"sessionId"`
	UserID       string `json:"userId"`
	StartInstant string `json:"startInstant"`
}

// EncodeSessionStartedPayload serializes a session-creation notification.
func EncodeSessionStartedPayload(p SessionStartedPayload) (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encode session started payload: %w", err)
	}
	return string(data), nil
}

// Start parses the ISO8601 start instant.
func (p SessionStartedPayload) Start() (time.Time, error) {
	start, err := time.Parse(time.RFC3339, p.StartInstant)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse start instant %q: %w", p.StartInstant, err)
	}
	return start, nil
}

// DecodeSessionStartedPayload centralizes payload parsing so every consumer
// enforces the same required fields.
func DecodeSessionStartedPayload(payloadJSON string) (SessionStartedPayload, error) {
	var payload SessionStartedPayload
	if err := json.Unmarshal([]byte(payloadJSON), &payload); err != nil {
		return SessionStartedPayload{}, fmt.Errorf("decode session started payload: %w", err)
	}
	payload.SessionID = strings.TrimSpace(payload.SessionID)
	payload.UserID = strings.TrimSpace(payload.UserID)
	payload.StartInstant = strings.TrimSpace(payload.StartInstant)
	if payload.SessionID == "" {
		return SessionStartedPayload{}, fmt.Errorf("sessionId is required in session started payload")
	}
	if payload.UserID == "" {
		return SessionStartedPayload{}, fmt.Errorf("userId is required in session started payload")
	}
	if payload.StartInstant == "" {
		return SessionStartedPayload{}, fmt.Errorf("startInstant is required in session started payload")
	}
	if _, err := payload.Start(); err != nil {
		return SessionStartedPayload{}, err
	}
	return payload, nil
}

// SignupCompletedPayload captures the durable fields of a registration event.
type SignupCompletedPayload struct {
	UserID         string `json:"userId"`
	ReferralCode   string `json:"referralCode"`
	ReferredByCode string `json:"referredByCode"`
}

// EncodeSignupCompletedPayload serializes a registration event payload.
func EncodeSignupCompletedPayload(p SignupCompletedPayload) (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encode signup payload: %w", err)
	}
	return string(data), nil
}

// DecodeSignupCompletedPayload parses and validates a signup event payload.
func DecodeSignupCompletedPayload(payloadJSON string) (SignupCompletedPayload, error) {
	var payload SignupCompletedPayload
	if err := json.Unmarshal([]byte(payloadJSON), &payload); err != nil {
		return SignupCompletedPayload{}, fmt.Errorf("decode signup payload: %w", err)
	}
	payload.UserID = strings.TrimSpace(payload.UserID)
	payload.ReferralCode = strings.TrimSpace(payload.ReferralCode)
	payload.ReferredByCode = strings.TrimSpace(payload.ReferredByCode)
	if payload.UserID == "" {
		return SignupCompletedPayload{}, fmt.Errorf("userId is required in signup payload")
	}
	if payload.ReferralCode == "" {
		return SignupCompletedPayload{}, fmt.Errorf("referralCode is required in signup payload")
	}
	return payload, nil
}

// CompletionPayload is the deferred-trigger payload carried from arming to
// firing. The trigger name, not the payload, is the idempotency key.
type CompletionPayload struct {
	SessionID string `json:"sessionId"`
	UserID    string `json:"userId"`
}

// EncodeCompletionPayload serializes a completion trigger payload.
func EncodeCompletionPayload(p CompletionPayload) (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encode completion payload: %w", err)
	}
	return string(data), nil
}

// DecodeCompletionPayload parses and validates a completion trigger payload.
func DecodeCompletionPayload(payloadJSON string) (CompletionPayload, error) {
	var payload CompletionPayload
	if err := json.Unmarshal([]byte(payloadJSON), &payload); err != nil {
		return CompletionPayload{}, fmt.Errorf("decode completion payload: %w", err)
	}
	payload.SessionID = strings.TrimSpace(payload.SessionID)
	payload.UserID = strings.TrimSpace(payload.UserID)
	if payload.SessionID == "" {
		return CompletionPayload{}, fmt.Errorf("sessionId is required in completion payload")
	}
	if payload.UserID == "" {
		return CompletionPayload{}, fmt.Errorf("userId is required in completion payload")
	}
	return payload, nil
}
