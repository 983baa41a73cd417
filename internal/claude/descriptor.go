package claude

// OAuthAccount is the `oauthAccount` field of the Claude Code configuration
// document: the subset of the active-account record this tool understands.
// Every other field of the document round-trips untouched.
type OAuthAccount struct {
	AccountUUID          string  `json:"accountUuid"`
	EmailAddress         string  `json:"emailAddress"`
	DisplayName          string  `json:"displayName"`
	OrganizationUUID     *string `json:"organizationUuid,omitempty"`
	OrganizationName     *string `json:"organizationName,omitempty"`
	OrganizationRole     *string `json:"organizationRole,omitempty"`
	HasExtraUsageEnabled *bool   `json:"hasExtraUsageEnabled,omitempty"`
	WorkspaceRole        *string `json:"workspaceRole,omitempty"`
}
