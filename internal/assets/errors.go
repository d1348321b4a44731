package assets

import "errors"

// Sentinel errors returned by the asset registry and lifecycle
// operations. Callers match them with errors.Is.
var (
	// ErrConfiguration marks invalid asset or group configuration.
	ErrConfiguration = errors.New("asset configuration error")

	// ErrNotFound marks a missing asset, group, class, or file.
	ErrNotFound = errors.New("asset not found")

	// ErrUnloadWhileLoading is returned when Unload is called on an
	// asset that sits in the load queue or is being decoded.
	ErrUnloadWhileLoading = errors.New("cannot unload an asset that is loading")

	// ErrShutdown marks operations attempted after the manager
	// stopped its loader.
	ErrShutdown = errors.New("asset manager is shut down")
)
