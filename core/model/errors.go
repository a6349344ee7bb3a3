package model

import (
	"errors"
	"fmt"
)

// Code identifies a structured domain error.
type Code string

const (
	CodeGhostState           Code = "GHOST_STATE_PREVENTED"
	CodeInvalidTransition    Code = "INVALID_TRANSITION"
	CodeInvariantViolated    Code = "INVARIANT_VIOLATED"
	CodeFrozenDay            Code = "FROZEN_DAY_BLOCKED"
	CodeViolationsBlock      Code = "VIOLATIONS_BLOCK_PUBLISH"
	CodeDataQualityBlock     Code = "DATA_QUALITY_BLOCK_PUBLISH"
	CodeSessionExpired       Code = "SESSION_EXPIRED"
	CodeSessionState         Code = "SESSION_INVALID_STATE"
	CodeSessionActive        Code = "SESSION_ALREADY_ACTIVE"
	CodeNothingToUndo        Code = "NOTHING_TO_UNDO"
	CodeSnapshotPublished    Code = "SNAPSHOT_ALREADY_PUBLISHED"
	CodePlanLockedNoUndo     Code = "PLAN_LOCKED_NO_UNDO"
	CodeLockHeld             Code = "LOCK_HELD"
	CodeIdempotencyMismatch  Code = "IDEMPOTENCY_MISMATCH"
	CodeDeterminismFailure   Code = "DETERMINISM_FAILURE"
	CodeSolverFailed         Code = "SOLVER_FAILED"
	CodeSolverTimeout        Code = "SOLVER_TIMEOUT"
	CodePinConflict          Code = "PIN_CONFLICT"
	CodeAuditGateBlocksLock  Code = "AUDIT_GATE_BLOCKS_LOCK"
	CodePolicyOutOfBounds    Code = "POLICY_OUT_OF_BOUNDS"
	CodeNotFound             Code = "NOT_FOUND"
	CodeInfeasible           Code = "REPAIR_INFEASIBLE"
	CodeInvalidInput         Code = "INVALID_INPUT"
)

// Error is the structured error type surfaced to callers. Detail carries
// machine-readable context for the transport layer; it is never required to
// interpret the error.
type Error struct {
	Code    Code
	Message string
	Detail  map[string]any
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// E builds an Error with a formatted message.
func E(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithDetail attaches one detail field and returns the error.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Detail == nil {
		e.Detail = make(map[string]any)
	}
	e.Detail[key] = value
	return e
}

// CodeOf extracts the domain code from err, or "" if err is not an Error.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code Code) bool { return CodeOf(err) == code }
