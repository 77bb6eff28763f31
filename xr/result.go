package xr

import (
	"errors"
	"fmt"
)

var ErrNotInitialized = errors.New("xr driver not initialized")
var ErrCallOrder = errors.New("xr frame call out of order")
var ErrNotRunning = errors.New("xr session not running")
var ErrStopped = errors.New("xr session stopped")

// Result is a runtime result code. Negative values are failures.
type Result int32

const (
	Success            Result = 0
	TimeoutExpired     Result = 1
	SessionLossPending Result = 3
	EventUnavailable   Result = 4
	SessionNotFocused  Result = 8
	FrameDiscarded     Result = 9

	ErrorValidationFailure               Result = -1
	ErrorRuntimeFailure                  Result = -2
	ErrorOutOfMemory                     Result = -3
	ErrorInitializationFailed            Result = -6
	ErrorFunctionUnsupported             Result = -7
	ErrorExtensionNotPresent             Result = -9
	ErrorHandleInvalid                   Result = -12
	ErrorInstanceLost                    Result = -13
	ErrorSessionRunning                  Result = -14
	ErrorSessionNotRunning               Result = -16
	ErrorSessionLost                     Result = -17
	ErrorSystemInvalid                   Result = -18
	ErrorSwapchainFormatUnsupported      Result = -26
	ErrorSessionNotReady                 Result = -28
	ErrorSessionNotStopping              Result = -29
	ErrorReferenceSpaceUnsupported       Result = -31
	ErrorFormFactorUnsupported           Result = -34
	ErrorFormFactorUnavailable           Result = -35
	ErrorCallOrderInvalid                Result = -37
	ErrorGraphicsDeviceInvalid           Result = -38
	ErrorGraphicsRequirementsCallMissing Result = -50
)

var resultNames = map[Result]string{
	Success:                              "XR_SUCCESS",
	TimeoutExpired:                       "XR_TIMEOUT_EXPIRED",
	SessionLossPending:                   "XR_SESSION_LOSS_PENDING",
	EventUnavailable:                     "XR_EVENT_UNAVAILABLE",
	SessionNotFocused:                    "XR_SESSION_NOT_FOCUSED",
	FrameDiscarded:                       "XR_FRAME_DISCARDED",
	ErrorValidationFailure:               "XR_ERROR_VALIDATION_FAILURE",
	ErrorRuntimeFailure:                  "XR_ERROR_RUNTIME_FAILURE",
	ErrorOutOfMemory:                     "XR_ERROR_OUT_OF_MEMORY",
	ErrorInitializationFailed:            "XR_ERROR_INITIALIZATION_FAILED",
	ErrorFunctionUnsupported:             "XR_ERROR_FUNCTION_UNSUPPORTED",
	ErrorExtensionNotPresent:             "XR_ERROR_EXTENSION_NOT_PRESENT",
	ErrorHandleInvalid:                   "XR_ERROR_HANDLE_INVALID",
	ErrorInstanceLost:                    "XR_ERROR_INSTANCE_LOST",
	ErrorSessionRunning:                  "XR_ERROR_SESSION_RUNNING",
	ErrorSessionNotRunning:               "XR_ERROR_SESSION_NOT_RUNNING",
	ErrorSessionLost:                     "XR_ERROR_SESSION_LOST",
	ErrorSystemInvalid:                   "XR_ERROR_SYSTEM_INVALID",
	ErrorSwapchainFormatUnsupported:      "XR_ERROR_SWAPCHAIN_FORMAT_UNSUPPORTED",
	ErrorSessionNotReady:                 "XR_ERROR_SESSION_NOT_READY",
	ErrorSessionNotStopping:              "XR_ERROR_SESSION_NOT_STOPPING",
	ErrorReferenceSpaceUnsupported:       "XR_ERROR_REFERENCE_SPACE_UNSUPPORTED",
	ErrorFormFactorUnsupported:           "XR_ERROR_FORM_FACTOR_UNSUPPORTED",
	ErrorFormFactorUnavailable:           "XR_ERROR_FORM_FACTOR_UNAVAILABLE",
	ErrorCallOrderInvalid:                "XR_ERROR_CALL_ORDER_INVALID",
	ErrorGraphicsDeviceInvalid:           "XR_ERROR_GRAPHICS_DEVICE_INVALID",
	ErrorGraphicsRequirementsCallMissing: "XR_ERROR_GRAPHICS_REQUIREMENTS_CALL_MISSING",
}

func (r Result) Failed() bool {
	return r < 0
}

func (r Result) String() string {
	if name, ok := resultNames[r]; ok {
		return name
	}

	return fmt.Sprintf("XrResult(%d)", int32(r))
}

func (r Result) Error() string {
	return r.String()
}

// Check converts a result code into an error. Non negative codes are not errors.
func Check(r Result, call string) error {
	if !r.Failed() {
		return nil
	}

	return fmt.Errorf("%s: %w", call, r)
}
