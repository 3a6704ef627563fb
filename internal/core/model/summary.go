package model

// ClusterSummary is the LLM answer to a cluster summary prompt.
type ClusterSummary struct {
	Summary string `json:"summary"`
}

type ClusterName struct {
	Name string `json:"name"`
}

// ClusterDescription is a human-readable digest of one cluster.
type ClusterDescription struct {
	IDs     []int  `json:"ids"`
	Name    string `json:"name"`
	Summary string `json:"summary"`
	LeadID  int    `json:"lead_id"`
}
