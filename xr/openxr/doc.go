// Package openxr binds the system OpenXR loader without cgo. Sessions are
// created against the GLX context current on the calling thread.
package openxr
