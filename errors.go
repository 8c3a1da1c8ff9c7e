package dbow2

import (
	"github.com/AutonomousFieldRoboticsLab/DBoW2/database"
	"github.com/AutonomousFieldRoboticsLab/DBoW2/descriptor"
	"github.com/AutonomousFieldRoboticsLab/DBoW2/vocab"
)

// Sentinel errors of the common surface, re-exported so callers matching
// with errors.Is need only this package.
var (
	// ErrInvalidBranching is returned for a branching factor below 2.
	ErrInvalidBranching = vocab.ErrInvalidBranching
	// ErrInvalidDepth is returned for a non-positive tree depth.
	ErrInvalidDepth = vocab.ErrInvalidDepth
	// ErrEmptyTraining is returned when training sees no descriptors.
	ErrEmptyTraining = vocab.ErrEmptyTraining
	// ErrNoDirectIndex is returned by direct-index lookups on a database
	// created without one.
	ErrNoDirectIndex = database.ErrNoDirectIndex
	// ErrUnknownEntry is returned for entry ids that were never added.
	ErrUnknownEntry = database.ErrUnknownEntry
)

// ErrLengthMismatch indicates a descriptor whose byte length does not match
// the trait. The Expected and Actual fields carry both lengths.
type ErrLengthMismatch = descriptor.ErrLengthMismatch
