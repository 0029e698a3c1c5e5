package hxdyn

// Events a component listens for.
const (
	EventShow    = "component-show"
	EventHide    = "component-hide"
	EventEnable  = "component-enable"
	EventDisable = "component-disable"
	EventDestroy = "component-destroy"
)

// EventReady is dispatched on a component's node once it is registered and
// all of its dependents are ready.
const EventReady = "component-ready"

// Content area lifecycle events. EventContentRefresh is inbound; the rest
// are dispatched by the area. EventContentLoaded is also published on the
// Bus with a ContentLoaded payload.
const (
	EventContentLoading = "dynamic-content-loading"
	EventContentLoaded  = "dynamic-content-loaded"
	EventContentFailed  = "dynamic-content-failed"
	EventContentRefresh = "dynamic-content-refresh"
)

// Data attribute keys, without the "data-" prefix.
const (
	DataRegistered     = "registered"
	DataRegisteredAs   = "registered-as"
	DataReady          = "ready"
	DataPath           = "path"
	DataSuffix         = "suffix"
	DataShowRedirect   = "show-redirect"
	DataPreventLoad    = "prevent-load"
	DataAllowedRetries = "allowed-error-retries"
)

// Marker classes.
const (
	ClassHidden             = "hidden"
	ClassDisabled           = "disabled"
	ClassLoader             = "loader"
	ClassContentArea        = "content-area"
	ClassErrorArea          = "error-area"
	ClassDynamicContentArea = "dynamic-content-area"
)

// SelectorDynamicContentArea matches the markup rendered by
// ContentAreaShell.
const SelectorDynamicContentArea = "." + ClassDynamicContentArea

// DefaultAllowedRetries is the retry budget of a content area without a
// data-allowed-error-retries attribute.
const DefaultAllowedRetries = 3

// LoadedDetail is the payload of EventContentLoaded on the area's node.
type LoadedDetail struct {
	Path       string
	StatusCode int
	LoadID     string
}

// FailedDetail is the payload of EventContentFailed. Cause wraps
// ErrTransport, ErrRetriesExhausted or ErrNoPath.
type FailedDetail struct {
	Path       string
	StatusCode int
	Attempts   int
	LoadID     string
	Cause      error
}
