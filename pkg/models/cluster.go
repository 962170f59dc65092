package models

// ClusterCredential holds the connection material for one remote cluster.
// Name is the public cluster identifier and is unique; DisplayName is a
// human label with no uniqueness guarantee.
type ClusterCredential struct {
	Name              string `json:"name"`
	DisplayName       string `json:"display_name"`
	KubeconfigContent string `json:"kubeconfig_content"`
}

// ClusterSummary is the row returned to non-admin cluster listings: the
// credential blob is never exposed outside the admin API.
type ClusterSummary struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Version     string `json:"version,omitempty"`
}
