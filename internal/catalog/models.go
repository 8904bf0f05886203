package catalog

import (
	"strings"
	"time"

	"packflow/internal/services"
)

// State represents the lifecycle position of a package record.
type State string

// Stable states. lastState only ever holds one of these.
const (
	StatePending           State = "pending"
	StateCopied            State = "copied"
	StateOriginalRemoved   State = "original_removed"
	StateExtracted         State = "extracted"
	StateValidated         State = "validated"
	StateDefragmented      State = "defragmented"
	StateThumbGenerated    State = "thumb_generated"
	StateMetadataRetrieved State = "metadata_retrieved"
	StateUploaded          State = "uploaded"
	StateSynchronized      State = "synchronized"
	StatePointsSaved       State = "points_saved"
	StateImagesCopied      State = "images_copied"
	StateDirectoryCleaned  State = "directory_cleaned"
	StateMergeInitialized  State = "merge_initialized"
	StateMerged            State = "merged"
)

// Terminal and coordination states.
const (
	StateReady            State = "ready"
	StateWaitingForUpload State = "waiting_for_upload"
	StateWaitingForMerge  State = "waiting_for_merge"
	StateError            State = "error"
)

// Transient processing states, written for display while a transition runs.
const (
	StateCopying            State = "copying"
	StateRemovingOriginal   State = "removing_original"
	StateExtracting         State = "extracting"
	StateValidating         State = "validating"
	StateDefragmenting      State = "defragmenting"
	StateGeneratingThumb    State = "generating_thumb"
	StateRetrievingMetadata State = "retrieving_metadata"
	StateUploading          State = "uploading"
	StateSynchronizing      State = "synchronizing"
	StateSavingPoints       State = "saving_points"
	StateCopyingImages      State = "copying_images"
	StateCleaning           State = "cleaning"
	StateInitializingMerge  State = "initializing_merge"
	StateMerging            State = "merging"
	StateRemoving           State = "removing"
)

// Transition names the asynchronous processing steps of the pipeline.
type Transition string

const (
	TransitionInitPackage    Transition = "initPackage"
	TransitionCopyPackage    Transition = "copyPackage"
	TransitionRemoveOriginal Transition = "removeOriginalPackage"
	TransitionExtract        Transition = "extractPackage"
	TransitionValidate       Transition = "validatePackage"
	TransitionDefragmentMp4  Transition = "defragmentMp4"
	TransitionGenerateThumb  Transition = "generateThumb"
	TransitionGetMetadata    Transition = "getMetadata"
	TransitionUploadMedia    Transition = "uploadMedia"
	TransitionSynchronize    Transition = "synchronizeMedia"
	TransitionSavePoints     Transition = "savePointsOfInterest"
	TransitionCopyImages     Transition = "copyImages"
	TransitionCleanDirectory Transition = "cleanDirectory"
	TransitionInitMerge      Transition = "initMerge"
	TransitionMerge          Transition = "merge"
	TransitionRemovePackage  Transition = "removePackage"
)

var terminalStates = map[State]struct{}{
	StateReady:            {},
	StateWaitingForUpload: {},
	StateError:            {},
}

// IsTerminal reports whether the state stops pipeline advancement.
func (s State) IsTerminal() bool {
	_, ok := terminalStates[s]
	return ok
}

// IsStable reports whether a package in this state can serve as a merge
// target. Only fully processed packages qualify.
func (s State) IsStable() bool {
	return s == StateReady || s == StateWaitingForUpload
}

// ProfileSettings holds probe results recorded on the package metadata.
type ProfileSettings struct {
	VideoHeight int `json:"video-height,omitempty"`
}

// MarkerData carries the type-specific payload of a point-of-interest
// marker parsed from package metadata.
type MarkerData struct {
	Filename    string `json:"filename,omitempty"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
}

// Marker is one raw point-of-interest descriptor from package metadata.
// Timecode is in milliseconds from the start of the media.
type Marker struct {
	Type     string     `json:"type"`
	Timecode int64      `json:"timecode"`
	Data     MarkerData `json:"data,omitempty"`
}

// Metadata is the free-form descriptor attached to a package, populated
// incrementally by transitions (ingestion, validation, probing).
type Metadata struct {
	Filename        string          `json:"filename,omitempty"`
	Title           string          `json:"title,omitempty"`
	Date            int64           `json:"date,omitempty"`
	Duration        int64           `json:"duration,omitempty"`
	RichMedia       bool            `json:"rich-media,omitempty"`
	Indexes         []Marker        `json:"indexes,omitempty"`
	ProfileSettings ProfileSettings `json:"profile-settings,omitempty"`
}

// SpriteRef locates one slide thumbnail inside a generated sprite sheet.
type SpriteRef struct {
	URL string `json:"url"`
	X   int    `json:"x"`
	Y   int    `json:"y"`
}

// TimecodeImage carries the presentation URLs for an image marker.
type TimecodeImage struct {
	Large string    `json:"large"`
	Small SpriteRef `json:"small"`
}

// Timecode is a slide marker published on the package record.
type Timecode struct {
	ID       string        `json:"id"`
	Timecode int64         `json:"timecode"`
	Image    TimecodeImage `json:"image"`
}

// FileInfo describes the stored file attached to a point of interest.
type FileInfo struct {
	OriginalName string `json:"originalName,omitempty"`
	MimeType     string `json:"mimeType,omitempty"`
	FileName     string `json:"fileName,omitempty"`
	Size         int64  `json:"size,omitempty"`
	URL          string `json:"url,omitempty"`
}

// PointOfInterest is a chapter or tag marker attached to a media record.
// Value is a timecode in milliseconds.
type PointOfInterest struct {
	ID              string
	PackageID       int64
	Name            string
	Description     string
	DescriptionText string
	Value           int64
	File            *FileInfo
}

// Package represents one ingested media item and its processing state.
type Package struct {
	ID                  int64
	State               State
	LastState           State
	LastTransition      Transition
	ErrorCode           services.Code
	OriginalFileName    string
	OriginalPackagePath string
	PackageType         string
	Type                string
	Title               string
	Date                time.Time
	MediaIDs            []string
	Metadata            *Metadata
	Link                string
	Thumbnail           string
	Timecodes           []Timecode
	Tags                []string
	LockedByID          int64
	MergeRequired       bool
	Removed             bool
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// EnsureMetadata returns the metadata object, allocating it when absent.
func (p *Package) EnsureMetadata() *Metadata {
	if p.Metadata == nil {
		p.Metadata = &Metadata{}
	}
	return p.Metadata
}

// HasPlatform reports whether the package targets a remote platform. A
// package without a platform type halts at the upload boundary.
func (p *Package) HasPlatform() bool {
	return strings.TrimSpace(p.Type) != ""
}

// ParseState converts a string into a known state value.
func ParseState(value string) (State, bool) {
	normalized := State(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	if _, ok := allStates[normalized]; !ok {
		return "", false
	}
	return normalized, true
}

var allStates = func() map[State]struct{} {
	states := []State{
		StatePending, StateCopied, StateOriginalRemoved, StateExtracted,
		StateValidated, StateDefragmented, StateThumbGenerated,
		StateMetadataRetrieved, StateUploaded, StateSynchronized,
		StatePointsSaved, StateImagesCopied, StateDirectoryCleaned,
		StateMergeInitialized, StateMerged,
		StateReady, StateWaitingForUpload, StateWaitingForMerge, StateError,
		StateCopying, StateRemovingOriginal, StateExtracting, StateValidating,
		StateDefragmenting, StateGeneratingThumb, StateRetrievingMetadata,
		StateUploading, StateSynchronizing, StateSavingPoints,
		StateCopyingImages, StateCleaning, StateInitializingMerge,
		StateMerging, StateRemoving,
	}
	set := make(map[State]struct{}, len(states))
	for _, state := range states {
		set[state] = struct{}{}
	}
	return set
}()
