package ipc

// ProgressInfo summarizes asset loading progress across the local
// loader and any remote reporters.
type ProgressInfo struct {
	Total        int `json:"total"`
	Loaded       int `json:"loaded"`
	Remaining    int `json:"remaining"`
	Percent      int `json:"percent"`
	RemoteTotal  int `json:"remote_total"`
	RemoteLoaded int `json:"remote_loaded"`
}

// ClassInfo summarizes one registered asset class.
type ClassInfo struct {
	Attribute string `json:"attribute"`
	Assets    int    `json:"assets"`
	Groups    int    `json:"groups"`
	Loaded    int    `json:"loaded"`
}

// AssetInfo is the wire representation of a single asset.
type AssetInfo struct {
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	File     string `json:"file"`
	State    string `json:"state"`
	LoadKey  string `json:"load_key"`
	Priority int    `json:"priority"`
}

// DependencyStatus describes availability of an external binary.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail"`
}

// StatusRequest fetches controller status.
type StatusRequest struct{}

// StatusResponse represents combined controller status information.
type StatusResponse struct {
	Running      bool               `json:"running"`
	SessionID    string             `json:"session_id"`
	MachineDir   string             `json:"machine_dir"`
	SocketPath   string             `json:"socket_path"`
	Ready        bool               `json:"ready"`
	PendingHolds []string           `json:"pending_holds"`
	Progress     ProgressInfo       `json:"progress"`
	Classes      []ClassInfo        `json:"classes"`
	Dependencies []DependencyStatus `json:"dependencies"`
	PID          int                `json:"pid"`
}

// ReportProgressRequest carries a remote loader's counts. Remaining
// counts down toward zero as the remote side finishes.
type ReportProgressRequest struct {
	Total     int `json:"total"`
	Remaining int `json:"remaining"`
}

// ReportProgressResponse returns the merged progress after the update.
type ReportProgressResponse struct {
	Progress ProgressInfo `json:"progress"`
}

// AssetListRequest filters the asset listing by class attribute.
// An empty attribute lists every class.
type AssetListRequest struct {
	Attribute string `json:"attribute"`
}

// AssetListResponse contains asset entries.
type AssetListResponse struct {
	Assets []AssetInfo `json:"assets"`
}

// LoadKeyRequest triggers loading of every asset and group registered
// under the given load key.
type LoadKeyRequest struct {
	Key string `json:"key"`
}

// LoadKeyResponse reports how many loadables matched the key.
type LoadKeyResponse struct {
	Matched int `json:"matched"`
}

// ShutdownRequest asks the controller to stop.
type ShutdownRequest struct{}

// ShutdownResponse confirms the shutdown was initiated.
type ShutdownResponse struct {
	Stopping bool `json:"stopping"`
}
