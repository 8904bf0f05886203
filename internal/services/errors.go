package services

import (
	"errors"
	"fmt"
	"strings"
)

// Code identifies which transition, and which sub-step inside it, failed.
// Codes are persisted on the package record and must remain stable.
type Code int

const (
	CodeNoError Code = iota
	CodeSavePackageData
	CodeCopy
	CodeUnlink
	CodeMediaUpload
	CodeMediaSynchronize
	CodeCleanDirectory
	CodeExtract
	CodeValidation
	CodeSavePoints
	CodeDefragmentation
	CodeMediaFilePath
	CodeGenerateThumb
	CodeGetMetadata
	CodeScanImages
	CodeInitMergeGetPackages
	CodeInitMergeUpdatePackage
	CodeInitMergeWaitForMedia
	CodeInitMergeLockPackage
	CodeMergeGetPackage
	CodeMergeWaitForMedia
	CodeMergeUpdateMedias
	CodeMergeRemoveNotChosen
	CodeReleasePackage
	CodeRemovePackage
	CodeEngineDefect
)

var codeNames = map[Code]string{
	CodeNoError:                "no_error",
	CodeSavePackageData:        "save_package_data",
	CodeCopy:                   "copy",
	CodeUnlink:                 "unlink",
	CodeMediaUpload:            "media_upload",
	CodeMediaSynchronize:       "media_synchronize",
	CodeCleanDirectory:         "clean_directory",
	CodeExtract:                "extract",
	CodeValidation:             "validation",
	CodeSavePoints:             "save_points_of_interest",
	CodeDefragmentation:        "defragmentation",
	CodeMediaFilePath:          "media_file_path",
	CodeGenerateThumb:          "generate_thumb",
	CodeGetMetadata:            "get_metadata",
	CodeScanImages:             "scan_for_images",
	CodeInitMergeGetPackages:   "init_merge_get_packages",
	CodeInitMergeUpdatePackage: "init_merge_update_package",
	CodeInitMergeWaitForMedia:  "init_merge_wait_for_media",
	CodeInitMergeLockPackage:   "init_merge_lock_package",
	CodeMergeGetPackage:        "merge_get_package",
	CodeMergeWaitForMedia:      "merge_wait_for_media",
	CodeMergeUpdateMedias:      "merge_update_medias",
	CodeMergeRemoveNotChosen:   "merge_remove_not_chosen",
	CodeReleasePackage:         "release_package",
	CodeRemovePackage:          "remove_package",
	CodeEngineDefect:           "engine_defect",
}

// String returns the stable symbolic name for a code.
func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("code_%d", int(c))
}

// Error is the typed failure every transition returns. Message is for
// operator display; Code is the machine-actionable signal.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	detail := strings.TrimSpace(e.Message)
	if detail == "" {
		detail = "transition failed"
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, detail, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, detail)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Wrap builds a typed transition error from a code, an operator message and
// an optional underlying cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: strings.TrimSpace(message), Cause: cause}
}

// Wrapf is Wrap with a formatted message.
func Wrapf(code Code, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// CodeOf extracts the failure code from an error chain. Errors that do not
// carry a *services.Error report CodeNoError, which callers should treat as
// "unclassified" rather than success.
func CodeOf(err error) Code {
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Code
	}
	return CodeNoError
}

// MessageOf returns the operator-facing message from an error chain, falling
// back to the plain error text.
func MessageOf(err error) string {
	if err == nil {
		return ""
	}
	var typed *Error
	if errors.As(err, &typed) && strings.TrimSpace(typed.Message) != "" {
		return typed.Message
	}
	return err.Error()
}
