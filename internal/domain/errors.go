package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is the generic lookup failure that ErrUnknownCrop refines.
	ErrNotFound = errors.New("not found")

	ErrUnknownCrop            = fmt.Errorf("unknown crop: %w", ErrNotFound)
	ErrKnowledgeMissing       = errors.New("knowledge missing")
	ErrInvalidPhaseTransition = errors.New("invalid phase transition")
	ErrAlreadyAtFinalPhase    = fmt.Errorf("already at final phase: %w", ErrInvalidPhaseTransition)
	ErrNoActiveCultivation    = errors.New("no active cultivation")
	ErrProtocolExists         = errors.New("protocol id already exists")

	// ErrStaleState is returned by repositories when the stored record changed
	// after the caller loaded it.
	ErrStaleState = errors.New("stale cultivation state")
)

// UnknownCropError reports a crop absent from the calendar or disease tables.
type UnknownCropError struct {
	Crop string
}

func (e *UnknownCropError) Error() string {
	return fmt.Sprintf("unknown crop %q", e.Crop)
}

func (e *UnknownCropError) Is(target error) bool {
	return target == ErrUnknownCrop || target == ErrNotFound
}

// KnowledgeMissingError reports that no static knowledge (or an empty
// lifecycle) exists for an otherwise known crop.
type KnowledgeMissingError struct {
	Crop string
}

func (e *KnowledgeMissingError) Error() string {
	return fmt.Sprintf("knowledge for crop %q not found", e.Crop)
}

func (e *KnowledgeMissingError) Is(target error) bool {
	return target == ErrKnowledgeMissing
}

// InvalidPhaseTransitionError reports a rejected phase change. The state is
// left untouched when this error is returned.
type InvalidPhaseTransitionError struct {
	Action     string
	Index      int
	PhaseCount int
	Reason     string
}

func (e *InvalidPhaseTransitionError) Error() string {
	return fmt.Sprintf("invalid phase transition %q (index %d, %d phases): %s", e.Action, e.Index, e.PhaseCount, e.Reason)
}

func (e *InvalidPhaseTransitionError) Is(target error) bool {
	if target == ErrInvalidPhaseTransition {
		return true
	}
	return target == ErrAlreadyAtFinalPhase && e.Reason == reasonFinalPhase
}

const reasonFinalPhase = "already at final phase"

// NewFinalPhaseError builds the rejection returned when "next" is requested at
// the terminal phase.
func NewFinalPhaseError(index, phaseCount int) *InvalidPhaseTransitionError {
	return &InvalidPhaseTransitionError{Action: "next", Index: index, PhaseCount: phaseCount, Reason: reasonFinalPhase}
}

// NoActiveCultivationError is returned by mutating operations that need an
// active cultivation record.
type NoActiveCultivationError struct {
	SessionID string
}

func (e *NoActiveCultivationError) Error() string {
	return fmt.Sprintf("no active cultivation for session %q", e.SessionID)
}

func (e *NoActiveCultivationError) Is(target error) bool {
	return target == ErrNoActiveCultivation
}
